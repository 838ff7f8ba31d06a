package myqueue

import (
	"context"
	"os"
	"sync"
)

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = func(c context.Context) (TaskQueuer, func(), error) {
			return NewFake(), func() {}, nil
		}
	}
}

// FakeTaskQueue remembers tasks instead of dispatching them.
type FakeTaskQueue struct {
	sync.Mutex
	Tasks []Task
}

func NewFake() *FakeTaskQueue {
	return &FakeTaskQueue{
		Tasks: []Task{},
	}
}

func (q *FakeTaskQueue) Enqueue(c context.Context, task Task) error {
	q.Lock()
	defer q.Unlock()

	for _, t := range q.Tasks {
		if t.UID == task.UID {
			return nil
		}
	}
	q.Tasks = append(q.Tasks, task)

	return nil
}

func (q *FakeTaskQueue) Enqueued() []Task {
	q.Lock()
	defer q.Unlock()

	return append([]Task{}, q.Tasks...)
}
