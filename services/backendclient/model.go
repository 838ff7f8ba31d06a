package backendclient

import (
	"encoding/json"

	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
)

// Wire formats of the payment backend.

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

const (
	ErrorCodeAlreadyPaid = "already_paid"
	ErrorCodeNotFound    = "not_found"
	ErrorCodeExpired     = "expired"
)

type TargetResponse struct {
	ID               string `json:"id"`
	AmountMode       string `json:"amountMode"`
	Amount           *int64 `json:"amount,omitempty"`
	Currency         string `json:"currency"`
	Description      string `json:"description,omitempty"`
	PayeeName        string `json:"payeeName"`
	Status           string `json:"status"`
	IsStatic         bool   `json:"isStatic,omitempty"`
	RemainingSeconds *int64 `json:"remainingSeconds,omitempty"`
}

type CreateOrderRequest struct {
	TargetKind string                 `json:"targetKind"`
	TargetID   string                 `json:"targetId"`
	Amount     *int64                 `json:"amount,omitempty"`
	Payer      *checkoutapi.PayerInfo `json:"payer,omitempty"`
}

type OrderDescriptor struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type CreateOrderResponse struct {
	GatewayMode string                     `json:"gatewayMode"`
	OrderID     string                     `json:"orderId"`
	Amount      int64                      `json:"amount"`
	Currency    string                     `json:"currency"`
	Key         string                     `json:"key,omitempty"`
	Order       *OrderDescriptor           `json:"order,omitempty"`
	Redirect    map[string]json.RawMessage `json:"redirect,omitempty"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
	TargetID  string `json:"targetId"`
}

// Verified is a pointer so a missing field can be told apart from false.
type VerifyPaymentResponse struct {
	Verified *bool `json:"verified"`
}
