package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/goswami6/satyampay-checkout/lib/myerrors"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
	"github.com/goswami6/satyampay-checkout/services/gatewayruntime"
)

// GatewayStep tells the browser how to continue. Exactly one of Embedded or Redirect is set.
type GatewayStep struct {
	Mode     checkoutapi.GatewayMode
	Embedded *EmbeddedLaunch
	Redirect *RedirectForm
}

// EmbeddedLaunch is what the modal of the gateway runtime is opened with.
type EmbeddedLaunch struct {
	RuntimeURL  string                `json:"runtimeUrl"`
	Key         string                `json:"key"`
	OrderID     string                `json:"orderId"`
	Amount      int64                 `json:"amount"`
	Currency    string                `json:"currency"`
	PayeeName   string                `json:"payeeName"`
	Description string                `json:"description,omitempty"`
	Prefill     checkoutapi.PayerInfo `json:"prefill"`
}

// RedirectForm is posted by the browser, leaving this application.
type RedirectForm struct {
	Action string
	Fields []checkoutapi.FormField
}

type gatewayStarter struct {
	runtime RuntimeLoader
}

func newGatewayStarter(runtime RuntimeLoader) gatewayStarter {
	return gatewayStarter{
		runtime: runtime,
	}
}

func (g gatewayStarter) start(c context.Context, order checkoutapi.GatewayOrder, target checkoutapi.CheckoutTarget, payer checkoutapi.PayerInfo) (GatewayStep, error) {
	switch order.Mode {
	case checkoutapi.GatewayModeEmbedded:
		_, err := g.runtime.Ensure(c)
		if err != nil {
			if errors.Is(err, checkoutapi.ErrGatewayLoadFailed) {
				return GatewayStep{}, err
			}
			return GatewayStep{}, myerrors.NewUnavailableError(fmt.Errorf("%w: %s", checkoutapi.ErrGatewayLoadFailed, err))
		}
		return GatewayStep{
			Mode: order.Mode,
			Embedded: &EmbeddedLaunch{
				RuntimeURL:  gatewayruntime.ScriptPath,
				Key:         order.Embedded.Key,
				OrderID:     order.Embedded.OrderID,
				Amount:      order.Embedded.Amount,
				Currency:    order.Embedded.Currency,
				PayeeName:   target.PayeeName,
				Description: target.Description,
				Prefill:     payer,
			},
		}, nil

	case checkoutapi.GatewayModeRedirect:
		return GatewayStep{
			Mode: order.Mode,
			Redirect: &RedirectForm{
				Action: order.Redirect.Target(),
				Fields: order.Redirect.FormFields(),
			},
		}, nil

	default:
		return GatewayStep{}, myerrors.NewBadGatewayError(fmt.Errorf("%w: %q", checkoutapi.ErrUnknownGatewayMode, order.Mode))
	}
}
