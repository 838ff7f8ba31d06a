package checkoutapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

type TargetKind string

const (
	TargetKindLink TargetKind = "link"
	TargetKindQR   TargetKind = "qr"
)

func ParseTargetKind(s string) (TargetKind, error) {
	switch TargetKind(s) {
	case TargetKindLink, TargetKindQR:
		return TargetKind(s), nil
	default:
		return "", fmt.Errorf("unknown target kind %q", s)
	}
}

// Label is what a payer gets to read.
func (k TargetKind) Label() string {
	if k == TargetKindQR {
		return "QR Code"
	}
	return "Payment link"
}

type AmountMode string

const (
	AmountModeFixed    AmountMode = "fixed"
	AmountModeVariable AmountMode = "variable"
)

type TargetStatus string

const (
	TargetStatusActive   TargetStatus = "active"
	TargetStatusPaid     TargetStatus = "paid"
	TargetStatusExpired  TargetStatus = "expired"
	TargetStatusNotFound TargetStatus = "not_found"
)

// CheckoutTarget is either a payment link or a QR code, as reported by the backend.
type CheckoutTarget struct {
	Kind             TargetKind
	ID               string
	AmountMode       AmountMode
	Amount           int64 // minor units, only when AmountMode is fixed
	Currency         string
	Description      string
	PayeeName        string
	Status           TargetStatus
	IsStatic         bool
	RemainingSeconds int64 // only for dynamic QR codes
}

func (t CheckoutTarget) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("target without id")
	}
	if t.Kind == TargetKindLink && t.IsStatic {
		return fmt.Errorf("payment link %s cannot be static", t.ID)
	}
	if t.IsStatic && t.AmountMode != AmountModeVariable {
		return fmt.Errorf("static qr %s must have variable amount", t.ID)
	}
	if t.IsStatic && t.Status == TargetStatusExpired {
		return fmt.Errorf("static qr %s cannot expire", t.ID)
	}
	switch t.AmountMode {
	case AmountModeFixed:
		if t.Amount <= 0 {
			return fmt.Errorf("target %s has fixed amount %d", t.ID, t.Amount)
		}
	case AmountModeVariable:
	default:
		return fmt.Errorf("target %s has unknown amount mode %q", t.ID, t.AmountMode)
	}
	if t.RemainingSeconds < 0 {
		return fmt.Errorf("target %s has negative remaining seconds", t.ID)
	}
	return nil
}

// HasCountdown tells whether the target expires by itself: only dynamic QR codes do.
func (t CheckoutTarget) HasCountdown() bool {
	return t.Kind == TargetKindQR && !t.IsStatic
}

func (t CheckoutTarget) FormattedAmount() string {
	if t.AmountMode != AmountModeFixed {
		return ""
	}
	return FormatAmount(t.Amount, t.Currency)
}

type PayerInfo struct {
	Name  string `form:"name" json:"name,omitempty" validate:"max=100"`
	Email string `form:"email" json:"email,omitempty" validate:"omitempty,email"`
	Phone string `form:"phone" json:"phone,omitempty" validate:"omitempty,max=16,e164|numeric"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (p PayerInfo) Normalized() PayerInfo {
	return PayerInfo{
		Name:  strings.TrimSpace(p.Name),
		Email: strings.TrimSpace(p.Email),
		Phone: strings.TrimSpace(p.Phone),
	}
}

func (p PayerInfo) Validate() error {
	err := validate.Struct(p)
	if err != nil {
		fields := []string{}
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field()))
			}
		}
		return fmt.Errorf("%w: %s", ErrPayerInvalid, strings.Join(fields, ", "))
	}
	return nil
}

func (p PayerInfo) IsEmpty() bool {
	return p == PayerInfo{}
}

type OrderRequest struct {
	Kind     TargetKind
	TargetID string
	Amount   int64
	Payer    PayerInfo
}

type GatewayMode string

const (
	GatewayModeEmbedded GatewayMode = "embedded"
	GatewayModeRedirect GatewayMode = "redirect"
)

// GatewayOrder carries exactly one payload, matching Mode.
type GatewayOrder struct {
	OrderID  string
	Amount   int64
	Currency string
	Mode     GatewayMode
	Embedded *EmbeddedPayload
	Redirect *RedirectPayload
}

type EmbeddedPayload struct {
	Key      string
	OrderID  string
	Amount   int64
	Currency string
}

// RedirectPayload is opaque: only the presence of the target url is checked.
type RedirectPayload struct {
	Fields map[string]string
}

const (
	redirectURLField      = "url"
	redirectEndpointField = "endpoint"
)

func (p RedirectPayload) Target() string {
	if u := p.Fields[redirectURLField]; u != "" {
		return u
	}
	return p.Fields[redirectEndpointField]
}

type FormField struct {
	Name  string
	Value string
}

// FormFields returns every field except the target markers, sorted by name.
func (p RedirectPayload) FormFields() []FormField {
	fields := make([]FormField, 0, len(p.Fields))
	for name, value := range p.Fields {
		if name == redirectURLField || name == redirectEndpointField {
			continue
		}
		fields = append(fields, FormField{Name: name, Value: value})
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Name < fields[j].Name
	})
	return fields
}

func (o GatewayOrder) Validate() error {
	switch o.Mode {
	case GatewayModeEmbedded:
		if o.Redirect != nil {
			return fmt.Errorf("%w: embedded order with redirect payload", ErrMalformedOrder)
		}
		if o.Embedded == nil || o.Embedded.Key == "" || o.Embedded.OrderID == "" {
			return fmt.Errorf("%w: embedded order without key or order id", ErrMalformedOrder)
		}
	case GatewayModeRedirect:
		if o.Embedded != nil {
			return fmt.Errorf("%w: redirect order with embedded payload", ErrMalformedOrder)
		}
		if o.Redirect == nil || o.Redirect.Target() == "" {
			return fmt.Errorf("%w: redirect order without target url", ErrMalformedOrder)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGatewayMode, o.Mode)
	}
	return nil
}

type CompletionArtifacts struct {
	OrderID   string `form:"orderId" json:"orderId"`
	PaymentID string `form:"paymentId" json:"paymentId"`
	Signature string `form:"signature" json:"signature"`
}

func (a CompletionArtifacts) Complete() bool {
	return a.OrderID != "" && a.PaymentID != "" && a.Signature != ""
}

type VerificationResult string

const (
	VerificationVerified VerificationResult = "verified"
	VerificationRejected VerificationResult = "rejected"
)
