package mypubsub

import (
	"context"
	"os"
	"sync"
)

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = func(c context.Context) (PubSub, func(), error) {
			return NewFake(), func() {}, nil
		}
	}
}

// FakePubSub keeps everything in memory; no push delivery takes place.
type FakePubSub struct {
	sync.Mutex
	Topics        map[string]bool
	Subscriptions map[string][]string
	Published     map[string][]string
}

func NewFake() *FakePubSub {
	return &FakePubSub{
		Topics:        map[string]bool{},
		Subscriptions: map[string][]string{},
		Published:     map[string][]string{},
	}
}

func (ps *FakePubSub) Subscribe(c context.Context, topic string, urlToPostTo string) error {
	ps.Lock()
	defer ps.Unlock()

	ps.Topics[topic] = true
	ps.Subscriptions[topic] = append(ps.Subscriptions[topic], urlToPostTo)

	return nil
}

func (ps *FakePubSub) CreateTopic(c context.Context, topic string) error {
	ps.Lock()
	defer ps.Unlock()

	ps.Topics[topic] = true

	return nil
}

func (ps *FakePubSub) Publish(c context.Context, topic string, data string) error {
	ps.Lock()
	defer ps.Unlock()

	ps.Published[topic] = append(ps.Published[topic], data)

	return nil
}

func (ps *FakePubSub) PublishedOn(topic string) []string {
	ps.Lock()
	defer ps.Unlock()

	return append([]string{}, ps.Published[topic]...)
}
