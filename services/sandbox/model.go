package sandbox

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
)

var (
	ErrAmountInvalid = errors.New("invalid amount")
	ErrOrderNotFound = errors.New("order not found")
	ErrAPIKeyInvalid = errors.New("invalid api key")
	ErrHashMismatch  = errors.New("hash does not match")
)

type Config struct {
	GatewayMode checkoutapi.GatewayMode
	KeyID       string
	KeySecret   string
	APIKey      string
}

// Target is a payment link or QR code as the backend keeps it.
type Target struct {
	Kind        checkoutapi.TargetKind
	ID          string
	AmountMode  checkoutapi.AmountMode
	Amount      int64
	Currency    string
	Description string `datastore:",noindex"`
	PayeeName   string
	IsStatic    bool
	GatewayMode checkoutapi.GatewayMode // empty means the configured default
	ExpiresAt   *time.Time
	PaidAt      *time.Time
	PaymentID   string
}

func targetUID(kind checkoutapi.TargetKind, id string) string {
	return fmt.Sprintf("%s/%s", kind, id)
}

// Status is decided by the server clock only.
func (t Target) Status(now time.Time) checkoutapi.TargetStatus {
	switch {
	case t.PaidAt != nil && !t.IsStatic:
		return checkoutapi.TargetStatusPaid
	case t.ExpiresAt != nil && !now.Before(*t.ExpiresAt):
		return checkoutapi.TargetStatusExpired
	default:
		return checkoutapi.TargetStatusActive
	}
}

func (t Target) RemainingSeconds(now time.Time) int64 {
	if t.ExpiresAt == nil || t.IsStatic {
		return 0
	}
	left := t.ExpiresAt.Sub(now).Seconds()
	if left <= 0 {
		return 0
	}
	return int64(math.Ceil(left))
}

type Order struct {
	OrderID     string
	TargetKind  checkoutapi.TargetKind
	TargetID    string
	Amount      int64
	Currency    string
	GatewayMode checkoutapi.GatewayMode
	PayerName   string `datastore:",noindex"`
	PayerEmail  string `datastore:",noindex"`
	CreatedAt   time.Time
}

type PaymentStatus string

const (
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentFailed     PaymentStatus = "failed"
)

type Payment struct {
	PaymentID    string
	OrderID      string
	TargetID     string
	Status       PaymentStatus
	CreatedAt    time.Time
	LastModified *time.Time
}

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

type AuthorizeRequest struct {
	OrderID string  `json:"orderId"`
	Outcome Outcome `json:"outcome"`
}

// AuthorizeResponse mimics what an embedded gateway hands to its success handler.
type AuthorizeResponse struct {
	Status    PaymentStatus `json:"status"`
	OrderID   string        `json:"razorpay_order_id"`
	PaymentID string        `json:"razorpay_payment_id"`
	Signature string        `json:"razorpay_signature,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}
