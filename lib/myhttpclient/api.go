package myhttpclient

import (
	"context"
	"time"
)

//go:generate mockgen -source=api.go -package myhttpclient -destination httpClient_mock.go HTTPSender
type HTTPSender interface {
	Send(c context.Context, method string, url string, body []byte) (int, []byte, error)
}

type Option func(*jsonHTTPClient)

// WithHeader adds a header to every request, like an api-key.
func WithHeader(name, value string) Option {
	return func(c *jsonHTTPClient) {
		if value != "" {
			c.headers[name] = value
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *jsonHTTPClient) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

func New(opts ...Option) HTTPSender {
	return newJSONHTTPClient(opts...)
}
