package checkout

import (
	"context"

	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
	"github.com/goswami6/satyampay-checkout/services/gatewayruntime"
)

//go:generate mockgen -source=api.go -package checkout -destination api_mock.go Backend RuntimeLoader
type Backend interface {
	GetCheckoutTarget(c context.Context, kind checkoutapi.TargetKind, id string) (checkoutapi.CheckoutTarget, error)
	CreateOrder(c context.Context, req checkoutapi.OrderRequest) (checkoutapi.GatewayOrder, error)
	VerifyPayment(c context.Context, targetID string, artifacts checkoutapi.CompletionArtifacts) (bool, error)
}

type RuntimeLoader interface {
	Ensure(c context.Context) (gatewayruntime.Runtime, error)
}
