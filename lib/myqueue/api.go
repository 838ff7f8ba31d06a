package myqueue

import (
	"context"
)

// Task triggers an HTTP PUT on WebhookURLPath of this same service. Tasks with the same UID are dispatched once.
type Task struct {
	UID            string
	WebhookURLPath string
	Payload        []byte
}

var New func(c context.Context) (TaskQueuer, func(), error)

type TaskQueuer interface {
	Enqueue(c context.Context, task Task) error
}
