package sandbox

import (
	"time"

	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
)

const (
	FixedLinkID      = "link_fixed_1"
	VariableLinkID   = "link_variable_1"
	RedirectLinkID   = "link_redirect_1"
	StaticQRID       = "qr_static_1"
	DynamicQRID      = "qr_dynamic_1"
	dynamicQRTimeout = 10 * time.Minute
)

func seedTargets(now time.Time) []Target {
	expiresAt := now.Add(dynamicQRTimeout)
	return []Target{
		{
			Kind:        checkoutapi.TargetKindLink,
			ID:          FixedLinkID,
			AmountMode:  checkoutapi.AmountModeFixed,
			Amount:      49900,
			Currency:    "INR",
			Description: "Yoga class, March",
			PayeeName:   "Satyam Studio",
		},
		{
			Kind:        checkoutapi.TargetKindLink,
			ID:          VariableLinkID,
			AmountMode:  checkoutapi.AmountModeVariable,
			Currency:    "INR",
			Description: "Donation",
			PayeeName:   "Satyam Foundation",
		},
		{
			Kind:        checkoutapi.TargetKindLink,
			ID:          RedirectLinkID,
			AmountMode:  checkoutapi.AmountModeFixed,
			Amount:      120000,
			Currency:    "INR",
			Description: "Workshop ticket",
			PayeeName:   "Satyam Studio",
			GatewayMode: checkoutapi.GatewayModeRedirect,
		},
		{
			Kind:       checkoutapi.TargetKindQR,
			ID:         StaticQRID,
			AmountMode: checkoutapi.AmountModeVariable,
			Currency:   "INR",
			PayeeName:  "Satyam Tea Stall",
			IsStatic:   true,
		},
		{
			Kind:        checkoutapi.TargetKindQR,
			ID:          DynamicQRID,
			AmountMode:  checkoutapi.AmountModeFixed,
			Amount:      25000,
			Currency:    "INR",
			Description: "Table 4",
			PayeeName:   "Satyam Tea Stall",
			ExpiresAt:   &expiresAt,
		},
	}
}
