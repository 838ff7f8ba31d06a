package checkoutapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodePayForm(t *testing.T) {
	form := url.Values{
		"amount":      []string{"500"},
		"payer.name":  []string{"Asha Rao"},
		"payer.email": []string{"asha@example.com"},
		"payer.phone": []string{"9876543210"},
	}

	t.Run("From values", func(t *testing.T) {
		got := PayForm{}
		err := DecodeValues(form, &got)
		assert.NoError(t, err)
		assert.Equal(t, PayForm{
			Amount: "500",
			Payer: PayerInfo{
				Name:  "Asha Rao",
				Email: "asha@example.com",
				Phone: "9876543210",
			},
		}, got)
	})

	t.Run("From request", func(t *testing.T) {
		request, err := http.NewRequest(http.MethodPost, "/checkout/abc/pay", strings.NewReader(form.Encode()))
		assert.NoError(t, err)
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		got, err := NewPayFormFromRequest(request)
		assert.NoError(t, err)
		assert.Equal(t, "500", got.Amount)
		assert.Equal(t, "Asha Rao", got.Payer.Name)
	})

	t.Run("Encode keeps field names", func(t *testing.T) {
		values, err := PayForm{Amount: "500", Payer: PayerInfo{Name: "Asha Rao"}}.ToForm()
		assert.NoError(t, err)
		assert.Equal(t, "500", values.Get("amount"))
		assert.Equal(t, "Asha Rao", values.Get("payer.name"))
	})
}

func TestDecodeCompletion(t *testing.T) {
	request, err := http.NewRequest(http.MethodPost, "/checkout/abc/complete", strings.NewReader("orderId=order_1&paymentId=pay_1&signature=abc"))
	assert.NoError(t, err)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	got, err := NewCompletionFromRequest(request)
	assert.NoError(t, err)
	assert.Equal(t, CompletionArtifacts{OrderID: "order_1", PaymentID: "pay_1", Signature: "abc"}, got)
	assert.True(t, got.Complete())
	assert.False(t, CompletionArtifacts{OrderID: "order_1", PaymentID: "pay_1"}.Complete())
}

func TestTargetValidate(t *testing.T) {
	testCases := []struct {
		name   string
		target CheckoutTarget
		valid  bool
	}{
		{
			name:   "Fixed payment link",
			target: CheckoutTarget{Kind: TargetKindLink, ID: "l1", AmountMode: AmountModeFixed, Amount: 100, Status: TargetStatusActive},
			valid:  true,
		},
		{
			name:   "Static qr",
			target: CheckoutTarget{Kind: TargetKindQR, ID: "q1", AmountMode: AmountModeVariable, IsStatic: true, Status: TargetStatusActive},
			valid:  true,
		},
		{
			name:   "Static qr with fixed amount",
			target: CheckoutTarget{Kind: TargetKindQR, ID: "q1", AmountMode: AmountModeFixed, Amount: 100, IsStatic: true},
		},
		{
			name:   "Expired static qr",
			target: CheckoutTarget{Kind: TargetKindQR, ID: "q1", AmountMode: AmountModeVariable, IsStatic: true, Status: TargetStatusExpired},
		},
		{
			name:   "Static payment link",
			target: CheckoutTarget{Kind: TargetKindLink, ID: "l1", AmountMode: AmountModeVariable, IsStatic: true},
		},
		{
			name:   "Fixed without amount",
			target: CheckoutTarget{Kind: TargetKindLink, ID: "l1", AmountMode: AmountModeFixed},
		},
		{
			name:   "Unknown amount mode",
			target: CheckoutTarget{Kind: TargetKindLink, ID: "l1", AmountMode: "whatever"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.target.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestHasCountdown(t *testing.T) {
	assert.True(t, CheckoutTarget{Kind: TargetKindQR}.HasCountdown())
	assert.False(t, CheckoutTarget{Kind: TargetKindQR, IsStatic: true}.HasCountdown())
	assert.False(t, CheckoutTarget{Kind: TargetKindLink}.HasCountdown())
}

func TestPayerValidate(t *testing.T) {
	assert.NoError(t, PayerInfo{}.Validate())
	assert.NoError(t, PayerInfo{Name: "Asha", Email: "asha@example.com", Phone: "+919876543210"}.Validate())

	err := PayerInfo{Name: "Asha", Email: "not-an-email"}.Validate()
	assert.True(t, errors.Is(err, ErrPayerInvalid))
	assert.Contains(t, err.Error(), "email")

	err = PayerInfo{Phone: "call me"}.Validate()
	assert.True(t, errors.Is(err, ErrPayerInvalid))
}

func TestRedirectPayload(t *testing.T) {
	t.Run("Url wins over endpoint, markers excluded and sorted", func(t *testing.T) {
		p := RedirectPayload{Fields: map[string]string{
			"url":      "https://gw.example/pay",
			"endpoint": "https://other.example",
			"txnid":    "T1",
			"amount":   "500",
			"hash":     "xyz",
		}}
		assert.Equal(t, "https://gw.example/pay", p.Target())
		assert.Equal(t, []FormField{{"amount", "500"}, {"hash", "xyz"}, {"txnid", "T1"}}, p.FormFields())
	})

	t.Run("Endpoint alias", func(t *testing.T) {
		p := RedirectPayload{Fields: map[string]string{"endpoint": "https://gw.example/pay"}}
		assert.Equal(t, "https://gw.example/pay", p.Target())
		assert.Empty(t, p.FormFields())
	})
}

func TestGatewayOrderValidate(t *testing.T) {
	embedded := GatewayOrder{OrderID: "o1", Mode: GatewayModeEmbedded, Embedded: &EmbeddedPayload{Key: "k", OrderID: "o1"}}
	assert.NoError(t, embedded.Validate())

	redirect := GatewayOrder{OrderID: "o1", Mode: GatewayModeRedirect, Redirect: &RedirectPayload{Fields: map[string]string{"url": "https://gw"}}}
	assert.NoError(t, redirect.Validate())

	assert.ErrorIs(t, GatewayOrder{Mode: GatewayModeEmbedded, Embedded: &EmbeddedPayload{OrderID: "o1"}}.Validate(), ErrMalformedOrder)
	assert.ErrorIs(t, GatewayOrder{Mode: GatewayModeRedirect, Redirect: &RedirectPayload{Fields: map[string]string{"a": "b"}}}.Validate(), ErrMalformedOrder)
	assert.ErrorIs(t, GatewayOrder{Mode: GatewayModeEmbedded, Embedded: embedded.Embedded, Redirect: redirect.Redirect}.Validate(), ErrMalformedOrder)
	assert.ErrorIs(t, GatewayOrder{Mode: "upi-intent"}.Validate(), ErrUnknownGatewayMode)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "INR 499.00", FormatAmount(49900, "INR"))
	assert.Equal(t, "INR 5.00", FormatAmount(500, "inr"))
	assert.Equal(t, "JPY 500", FormatAmount(500, "JPY"))
	assert.Equal(t, "", CheckoutTarget{AmountMode: AmountModeVariable}.FormattedAmount())
}

func TestExpiredError(t *testing.T) {
	assert.Equal(t, "QR Code has expired", ExpiredError(TargetKindQR).Error())
	assert.Equal(t, "Payment link has expired", ExpiredError(TargetKindLink).Error())

	wrapped := fmt.Errorf("%w: link_fixed_1", ExpiredError(TargetKindLink))
	assert.True(t, errors.Is(wrapped, ErrTargetExpired))
	assert.False(t, errors.Is(wrapped, ErrTargetNotFound))
}
