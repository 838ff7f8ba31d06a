package contracttests

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/goswami6/satyampay-checkout/lib/myerrors"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
	"github.com/goswami6/satyampay-checkout/services/sandbox"
)

func TestSandboxBackend(t *testing.T) {
	BackendContract{
		start: func(t *testing.T, mode checkoutapi.GatewayMode) (Backend, Gateway) {
			backend, gateway, cleanup, err := StartSandbox(context.Background(), mode)
			assert.NoError(t, err)
			t.Cleanup(cleanup)
			return backend, gateway
		},
	}.Test(t)
}

// BackendContract holds for every backend the checkout front can be pointed at.
type BackendContract struct {
	start func(t *testing.T, mode checkoutapi.GatewayMode) (Backend, Gateway)
}

func (c BackendContract) Test(t *testing.T) {
	t.Run("resolves a fixed payment link", func(t *testing.T) {
		var (
			sut, _ = c.start(t, checkoutapi.GatewayModeEmbedded)
			ctx    = context.Background()
		)

		target, err := sut.GetCheckoutTarget(ctx, checkoutapi.TargetKindLink, sandbox.FixedLinkID)
		assert.NoError(t, err)
		assert.NoError(t, target.Validate())
		assert.Equal(t, checkoutapi.AmountModeFixed, target.AmountMode)
		assert.Equal(t, int64(49900), target.Amount)
		assert.Equal(t, checkoutapi.TargetStatusActive, target.Status)
		assert.False(t, target.HasCountdown())
	})

	t.Run("resolves QR codes with and without countdown", func(t *testing.T) {
		var (
			sut, _ = c.start(t, checkoutapi.GatewayModeEmbedded)
			ctx    = context.Background()
		)

		static, err := sut.GetCheckoutTarget(ctx, checkoutapi.TargetKindQR, sandbox.StaticQRID)
		assert.NoError(t, err)
		assert.True(t, static.IsStatic)
		assert.False(t, static.HasCountdown())

		dynamic, err := sut.GetCheckoutTarget(ctx, checkoutapi.TargetKindQR, sandbox.DynamicQRID)
		assert.NoError(t, err)
		assert.True(t, dynamic.HasCountdown())
		assert.True(t, dynamic.RemainingSeconds > 0 && dynamic.RemainingSeconds <= 600)
	})

	t.Run("recognizes a target that does not exist", func(t *testing.T) {
		var (
			sut, _ = c.start(t, checkoutapi.GatewayModeEmbedded)
			ctx    = context.Background()
		)

		_, err := sut.GetCheckoutTarget(ctx, checkoutapi.TargetKindLink, "link_unknown")
		assert.True(t, errors.Is(err, checkoutapi.ErrTargetNotFound))
		assert.Equal(t, http.StatusNotFound, myerrors.GetHTTPStatus(err))
	})

	t.Run("pays an embedded order exactly once", func(t *testing.T) {
		var (
			sut, gateway = c.start(t, checkoutapi.GatewayModeEmbedded)
			ctx          = context.Background()
		)

		order, err := sut.CreateOrder(ctx, checkoutapi.OrderRequest{
			Kind:     checkoutapi.TargetKindLink,
			TargetID: sandbox.FixedLinkID,
			Amount:   49900,
			Payer:    checkoutapi.PayerInfo{Name: "Asha", Email: "asha@example.com"},
		})
		assert.NoError(t, err)
		assert.NoError(t, order.Validate())
		assert.Equal(t, checkoutapi.GatewayModeEmbedded, order.Mode)
		assert.Equal(t, "rzp_test_contract", order.Embedded.Key)
		assert.Equal(t, int64(49900), order.Embedded.Amount)

		artifacts, err := gateway.Pay(ctx, order.OrderID, sandbox.OutcomeSuccess)
		assert.NoError(t, err)
		assert.True(t, artifacts.Complete())

		verified, err := sut.VerifyPayment(ctx, sandbox.FixedLinkID, artifacts)
		assert.NoError(t, err)
		assert.True(t, verified)

		verified, err = sut.VerifyPayment(ctx, sandbox.FixedLinkID, artifacts)
		assert.NoError(t, err)
		assert.True(t, verified)

		target, err := sut.GetCheckoutTarget(ctx, checkoutapi.TargetKindLink, sandbox.FixedLinkID)
		assert.NoError(t, err)
		assert.Equal(t, checkoutapi.TargetStatusPaid, target.Status)

		_, err = sut.CreateOrder(ctx, checkoutapi.OrderRequest{Kind: checkoutapi.TargetKindLink, TargetID: sandbox.FixedLinkID, Amount: 49900})
		assert.True(t, errors.Is(err, checkoutapi.ErrAlreadyPaid))
	})

	t.Run("does not verify forged or declined payments", func(t *testing.T) {
		var (
			sut, gateway = c.start(t, checkoutapi.GatewayModeEmbedded)
			ctx          = context.Background()
		)

		order, err := sut.CreateOrder(ctx, checkoutapi.OrderRequest{Kind: checkoutapi.TargetKindQR, TargetID: sandbox.StaticQRID, Amount: 2500, Payer: checkoutapi.PayerInfo{Name: "Ravi"}})
		assert.NoError(t, err)

		artifacts, err := gateway.Pay(ctx, order.OrderID, sandbox.OutcomeSuccess)
		assert.NoError(t, err)
		forged := artifacts
		forged.Signature = strings.Repeat("0", len(artifacts.Signature))

		verified, err := sut.VerifyPayment(ctx, sandbox.StaticQRID, forged)
		assert.NoError(t, err)
		assert.False(t, verified)

		declined, err := gateway.Pay(ctx, order.OrderID, sandbox.OutcomeFailure)
		assert.NoError(t, err)
		assert.False(t, declined.Complete())

		verified, err = sut.VerifyPayment(ctx, sandbox.StaticQRID, declined)
		assert.NoError(t, err)
		assert.False(t, verified)
	})

	t.Run("hands out a redirect order for hosted checkout", func(t *testing.T) {
		var (
			sut, _ = c.start(t, checkoutapi.GatewayModeEmbedded)
			ctx    = context.Background()
		)

		order, err := sut.CreateOrder(ctx, checkoutapi.OrderRequest{Kind: checkoutapi.TargetKindLink, TargetID: sandbox.RedirectLinkID, Amount: 120000})
		assert.NoError(t, err)
		assert.NoError(t, order.Validate())
		assert.Equal(t, checkoutapi.GatewayModeRedirect, order.Mode)
		assert.True(t, strings.HasSuffix(order.Redirect.Target(), "/sandbox/gateway/hosted"))
		assert.Equal(t, order.OrderID, order.Redirect.Fields["txnid"])
		assert.Equal(t, "120000", order.Redirect.Fields["amount"])
	})

	t.Run("refuses an order without amount for a variable target", func(t *testing.T) {
		var (
			sut, _ = c.start(t, checkoutapi.GatewayModeEmbedded)
			ctx    = context.Background()
		)

		_, err := sut.CreateOrder(ctx, checkoutapi.OrderRequest{Kind: checkoutapi.TargetKindLink, TargetID: sandbox.VariableLinkID})
		assert.True(t, errors.Is(err, checkoutapi.ErrOrderRejected))
	})

	t.Run("pays a static QR code on the hosted page with verifiable artifacts", func(t *testing.T) {
		var (
			sut, gateway = c.start(t, checkoutapi.GatewayModeRedirect)
			ctx          = context.Background()
		)

		order, err := sut.CreateOrder(ctx, checkoutapi.OrderRequest{Kind: checkoutapi.TargetKindQR, TargetID: sandbox.StaticQRID, Amount: 500})
		assert.NoError(t, err)
		assert.NoError(t, order.Validate())
		assert.Equal(t, checkoutapi.GatewayModeRedirect, order.Mode)

		returnURL, err := gateway.PayHosted(ctx, order, sandbox.OutcomeSuccess)
		assert.NoError(t, err)
		assert.Equal(t, "/checkout/return/qr/"+sandbox.StaticQRID+"/"+order.OrderID+"/success", returnURL.Path)

		artifacts := checkoutapi.CompletionArtifacts{
			OrderID:   order.OrderID,
			PaymentID: returnURL.Query().Get("paymentId"),
			Signature: returnURL.Query().Get("signature"),
		}
		verified, err := sut.VerifyPayment(ctx, sandbox.StaticQRID, artifacts)
		assert.NoError(t, err)
		assert.True(t, verified)

		target, err := sut.GetCheckoutTarget(ctx, checkoutapi.TargetKindQR, sandbox.StaticQRID)
		assert.NoError(t, err)
		assert.Equal(t, checkoutapi.TargetStatusActive, target.Status)

		declinedOrder, err := sut.CreateOrder(ctx, checkoutapi.OrderRequest{Kind: checkoutapi.TargetKindQR, TargetID: sandbox.StaticQRID, Amount: 500})
		assert.NoError(t, err)

		returnURL, err = gateway.PayHosted(ctx, declinedOrder, sandbox.OutcomeFailure)
		assert.NoError(t, err)
		assert.Equal(t, "/checkout/return/qr/"+sandbox.StaticQRID+"/"+declinedOrder.OrderID+"/failure", returnURL.Path)
		assert.Empty(t, returnURL.Query().Get("paymentId"))
	})
}
