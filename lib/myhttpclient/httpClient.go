package myhttpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goswami6/satyampay-checkout/lib/mylog"
)

const (
	defaultTimeout  = 5 * time.Second
	maxResponseSize = 1 << 20
)

type jsonHTTPClient struct {
	client  *http.Client
	headers map[string]string
	logger  mylog.Logger
}

func newJSONHTTPClient(opts ...Option) *jsonHTTPClient {
	c := &jsonHTTPClient{
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		headers: map[string]string{},
		logger:  mylog.New("httpclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *jsonHTTPClient) Send(ctx context.Context, method string, url string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, []byte{}, fmt.Errorf("error creating http request for %s %s: %s", method, url, err)
	}

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	for name, value := range c.headers {
		httpReq.Header.Set(name, value)
	}

	c.logger.Log(ctx, "", mylog.SeverityDebug, "HTTP request: %s %s", method, url)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return 0, []byte{}, fmt.Errorf("error sending %s %s: %w", method, url, err)
	}
	defer httpResp.Body.Close()

	respPayload, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return 0, []byte{}, fmt.Errorf("error reading response %s %s: %w", method, url, err)
	}

	c.logger.Log(ctx, "", mylog.SeverityDebug, "HTTP resp: %s %s -> %d", method, url, httpResp.StatusCode)

	return httpResp.StatusCode, respPayload, nil
}
