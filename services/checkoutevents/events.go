package checkoutevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/goswami6/satyampay-checkout/lib/myerrors"
	"github.com/goswami6/satyampay-checkout/lib/myevents"
)

const (
	TopicName             = "checkout"
	checkoutStartedName   = TopicName + ".started"
	checkoutCompletedName = TopicName + ".completed"
	qrCodeExpiredName     = TopicName + ".qrcodeExpired"
)

type CheckoutEventService interface {
	Subscribe(c context.Context) error
	OnCheckoutStarted(c context.Context, topic string, event CheckoutStarted) error
	OnCheckoutCompleted(c context.Context, topic string, event CheckoutCompleted) error
	OnQRCodeExpired(c context.Context, topic string, event QRCodeExpired) error
}

// DispatchEvent decodes a pushed envelope and hands the event to the matching handler.
func DispatchEvent(c context.Context, reader io.Reader, service CheckoutEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case checkoutStartedName:
		return handle(c, envelope, service.OnCheckoutStarted)
	case checkoutCompletedName:
		return handle(c, envelope, service.OnCheckoutCompleted)
	case qrCodeExpiredName:
		return handle(c, envelope, service.OnQRCodeExpired)
	default:
		return myerrors.NewNotImplementedError(fmt.Errorf("unknown event type %s", envelope.EventTypeName))
	}
}

func handle[E any](c context.Context, envelope myevents.EventEnvelope, handler func(context.Context, string, E) error) error {
	var event E
	err := json.Unmarshal([]byte(envelope.EventPayload), &event)
	if err != nil {
		return myerrors.NewInvalidInputError(fmt.Errorf("error parsing %s: %s", envelope.EventTypeName, err))
	}
	return handler(c, envelope.Topic, event)
}

type CheckoutStarted struct {
	SessionUID         string
	TargetKind         string
	TargetID           string
	OrderID            string
	GatewayMode        string
	AmountInMinorUnits int64
	Currency           string
}

func (e CheckoutStarted) GetEventTypeName() string {
	return checkoutStartedName
}

func (e CheckoutStarted) GetAggregateName() string {
	return e.TargetID
}

type CheckoutStatus string

const (
	CheckoutStatusUndefined   CheckoutStatus = ""
	CheckoutStatusPending     CheckoutStatus = "pending"
	CheckoutStatusSuccess     CheckoutStatus = "success"
	CheckoutStatusAlreadyPaid CheckoutStatus = "already_paid"
	CheckoutStatusFailed      CheckoutStatus = "failed"
	CheckoutStatusCancelled   CheckoutStatus = "cancelled"
	CheckoutStatusExpired     CheckoutStatus = "expired"
)

type CheckoutCompleted struct {
	SessionUID            string
	TargetKind            string
	TargetID              string
	OrderID               string
	GatewayMode           string
	CheckoutStatus        CheckoutStatus
	CheckoutStatusDetails string
}

func (e CheckoutCompleted) GetEventTypeName() string {
	return checkoutCompletedName
}

func (e CheckoutCompleted) GetAggregateName() string {
	return e.TargetID
}

type QRCodeExpired struct {
	SessionUID string
	TargetID   string
}

func (e QRCodeExpired) GetEventTypeName() string {
	return qrCodeExpiredName
}

func (e QRCodeExpired) GetAggregateName() string {
	return e.TargetID
}
