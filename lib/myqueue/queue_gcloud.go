package myqueue

import (
	"context"
	"fmt"
	"os"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	grpcCodes "google.golang.org/grpc/codes"
	grpcStatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/goswami6/satyampay-checkout/lib/mylog"
)

// Outbox triggers wait a moment so the transaction that stored the event has committed.
const triggerDelay = 2 * time.Second

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") != "" {
		New = newCloudTasksQueue
	}
}

type cloudTasksQueue struct {
	client    *cloudtasks.Client
	queuePath string
	logger    mylog.Logger
}

func newCloudTasksQueue(c context.Context) (TaskQueuer, func(), error) {
	client, err := cloudtasks.NewClient(c)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating cloud-tasks client: %s", err)
	}

	queueName := os.Getenv("QUEUE_NAME")
	if queueName == "" {
		queueName = "checkout-outbox"
	}

	return &cloudTasksQueue{
			client:    client,
			queuePath: fmt.Sprintf("projects/%s/locations/%s/queues/%s", os.Getenv("GOOGLE_CLOUD_PROJECT"), os.Getenv("LOCATION_ID"), queueName),
			logger:    mylog.New("cloudtasks"),
		}, func() {
			client.Close()
		}, nil
}

func (q *cloudTasksQueue) Enqueue(c context.Context, task Task) error {
	name := q.queuePath + "/tasks/" + task.UID

	_, err := q.client.CreateTask(c, &taskspb.CreateTaskRequest{
		Parent: q.queuePath,
		Task: &taskspb.Task{
			Name:         name,
			ScheduleTime: timestamppb.New(time.Now().Add(triggerDelay)),
			MessageType: &taskspb.Task_AppEngineHttpRequest{
				AppEngineHttpRequest: &taskspb.AppEngineHttpRequest{
					HttpMethod:  taskspb.HttpMethod_PUT,
					RelativeUri: task.WebhookURLPath,
					Body:        task.Payload,
				},
			},
		},
	})
	if err != nil {
		if s, ok := grpcStatus.FromError(err); ok && s.Code() == grpcCodes.AlreadyExists {
			// named tasks de-duplicate repeated triggers for the same event
			q.logger.Log(c, "", mylog.SeverityInfo, "Trigger %s was already enqueued", task.UID)
			return nil
		}
		return fmt.Errorf("error enqueueing trigger %s on %s: %s", task.UID, q.queuePath, err)
	}
	return nil
}
