package mypubsub

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/goswami6/satyampay-checkout/lib/mylog"
)

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") != "" {
		New = newGcloudPubSub
	}
}

type gcloudPubSub struct {
	client *pubsub.Client
	logger mylog.Logger

	mutex  sync.Mutex
	topics map[string]*pubsub.Topic
}

func newGcloudPubSub(c context.Context) (PubSub, func(), error) {
	client, err := pubsub.NewClient(c, os.Getenv("GOOGLE_CLOUD_PROJECT"))
	if err != nil {
		return nil, nil, fmt.Errorf("error creating pubsub-client: %s", err)
	}
	ps := &gcloudPubSub{
		client: client,
		logger: mylog.New("pubsub"),
		topics: map[string]*pubsub.Topic{},
	}
	return ps, ps.close, nil
}

// close flushes pending publications before the client goes away.
func (ps *gcloudPubSub) close() {
	ps.mutex.Lock()
	for _, topic := range ps.topics {
		topic.Stop()
	}
	ps.mutex.Unlock()

	ps.client.Close()
}

// topic hands out one long-lived handle per topic, so publications get batched.
func (ps *gcloudPubSub) topic(name string) *pubsub.Topic {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	topic, found := ps.topics[name]
	if !found {
		topic = ps.client.Topic(name)
		ps.topics[name] = topic
	}
	return topic
}

func (ps *gcloudPubSub) CreateTopic(c context.Context, name string) error {
	exists, err := ps.topic(name).Exists(c)
	if err != nil {
		return fmt.Errorf("error looking up topic %s: %s", name, err)
	}
	if exists {
		return nil
	}

	_, err = ps.client.CreateTopic(c, name)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", name, err)
	}
	ps.logger.Log(c, "", mylog.SeverityInfo, "Created topic %s", name)
	return nil
}

// Subscribe registers a push subscription, named after the topic, that posts to the given url.
func (ps *gcloudPubSub) Subscribe(c context.Context, name string, urlToPostTo string) error {
	err := ps.CreateTopic(c, name)
	if err != nil {
		return err
	}

	subscriptionID := name + "-push"
	exists, err := ps.client.Subscription(subscriptionID).Exists(c)
	if err != nil {
		return fmt.Errorf("error looking up subscription %s: %s", subscriptionID, err)
	}
	if exists {
		return nil
	}

	_, err = ps.client.CreateSubscription(c, subscriptionID, pubsub.SubscriptionConfig{
		Topic:             ps.topic(name),
		PushConfig:        pubsub.PushConfig{Endpoint: urlToPostTo},
		AckDeadline:       20 * time.Second,
		RetentionDuration: 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("error subscribing %s to topic %s: %s", urlToPostTo, name, err)
	}
	ps.logger.Log(c, "", mylog.SeverityInfo, "Push subscription %s delivers topic %s to %s", subscriptionID, name, urlToPostTo)
	return nil
}

func (ps *gcloudPubSub) Publish(c context.Context, name string, data string) error {
	_, err := ps.topic(name).Publish(c, &pubsub.Message{Data: []byte(data)}).Get(c)
	if err != nil {
		return fmt.Errorf("error publishing on topic %s: %s", name, err)
	}
	return nil
}
