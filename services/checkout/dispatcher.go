package checkout

import (
	"context"
	"errors"

	"github.com/goswami6/satyampay-checkout/lib/myerrors"
	"github.com/goswami6/satyampay-checkout/lib/mymetrics"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
)

type dispatcher struct {
	backend Backend
	metrics mymetrics.Recorder
}

func newDispatcher(backend Backend, metrics mymetrics.Recorder) dispatcher {
	return dispatcher{
		backend: backend,
		metrics: metrics,
	}
}

// Dispatch creates a gateway order and checks that its payload fits its mode.
// Abandoned orders are left to the backend.
func (d dispatcher) Dispatch(c context.Context, req checkoutapi.OrderRequest) (checkoutapi.GatewayOrder, error) {
	if req.Amount <= 0 {
		return checkoutapi.GatewayOrder{}, myerrors.NewInvalidInputError(checkoutapi.ErrAmountInvalid)
	}

	order, err := d.backend.CreateOrder(c, req)
	if err != nil {
		d.metrics.OrderObserved("none", dispatchOutcome(err))
		return checkoutapi.GatewayOrder{}, err
	}

	err = order.Validate()
	if err != nil {
		d.metrics.OrderObserved(modeLabel(order.Mode), "malformed")
		return checkoutapi.GatewayOrder{}, myerrors.NewBadGatewayError(err)
	}

	d.metrics.OrderObserved(string(order.Mode), "created")

	return order, nil
}

func dispatchOutcome(err error) string {
	switch {
	case errors.Is(err, checkoutapi.ErrAlreadyPaid):
		return "already_paid"
	case errors.Is(err, checkoutapi.ErrTargetExpired):
		return "expired"
	case errors.Is(err, checkoutapi.ErrTargetNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func modeLabel(mode checkoutapi.GatewayMode) string {
	switch mode {
	case checkoutapi.GatewayModeEmbedded, checkoutapi.GatewayModeRedirect:
		return string(mode)
	default:
		return "unknown"
	}
}
