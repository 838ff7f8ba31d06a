package checkoutapi

import (
	"time"

	"github.com/goswami6/satyampay-checkout/services/checkoutevents"
)

// CheckoutAttempt is the audit record of one created order.
type CheckoutAttempt struct {
	OrderID               string
	SessionUID            string
	TargetKind            TargetKind
	TargetID              string
	GatewayMode           GatewayMode
	AmountInMinorUnits    int64
	Currency              string
	PayerName             string `datastore:",noindex"`
	CreatedAt             time.Time
	LastModified          *time.Time
	PaymentID             string
	CheckoutStatus        checkoutevents.CheckoutStatus
	CheckoutStatusDetails string `datastore:",noindex"`
}

func NewCheckoutAttempt(sessionUID string, order GatewayOrder, target CheckoutTarget, payer PayerInfo, now time.Time) CheckoutAttempt {
	return CheckoutAttempt{
		OrderID:            order.OrderID,
		SessionUID:         sessionUID,
		TargetKind:         target.Kind,
		TargetID:           target.ID,
		GatewayMode:        order.Mode,
		AmountInMinorUnits: order.Amount,
		Currency:           order.Currency,
		PayerName:          payer.Name,
		CreatedAt:          now,
		CheckoutStatus:     checkoutevents.CheckoutStatusPending,
	}
}

func (a CheckoutAttempt) IsFinal() bool {
	return a.CheckoutStatus != checkoutevents.CheckoutStatusUndefined && a.CheckoutStatus != checkoutevents.CheckoutStatusPending
}
