package contracttests

import (
	"context"
	"net/url"

	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
	"github.com/goswami6/satyampay-checkout/services/sandbox"
)

// Backend is what the checkout front expects from any payment backend.
type Backend interface {
	GetCheckoutTarget(c context.Context, kind checkoutapi.TargetKind, id string) (checkoutapi.CheckoutTarget, error)
	CreateOrder(c context.Context, req checkoutapi.OrderRequest) (checkoutapi.GatewayOrder, error)
	VerifyPayment(c context.Context, targetID string, artifacts checkoutapi.CompletionArtifacts) (bool, error)
}

// Gateway pays an order the way the payer's browser would.
type Gateway interface {
	Pay(c context.Context, orderID string, outcome sandbox.Outcome) (checkoutapi.CompletionArtifacts, error)
	// PayHosted submits a redirect-mode order on the hosted page and returns where the payer is sent back to.
	PayHosted(c context.Context, order checkoutapi.GatewayOrder, outcome sandbox.Outcome) (*url.URL, error)
}
