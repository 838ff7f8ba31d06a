package checkoutapi

import "errors"

// The messages are shown to payers as is.
var (
	ErrTargetNotFound     = errors.New("checkout target not found")
	ErrAlreadyPaid        = errors.New("already paid")
	ErrTargetExpired      = errors.New("checkout has expired")
	ErrBackendUnavailable = errors.New("payment service temporarily unavailable, please try again")
	ErrOrderRejected      = errors.New("could not create payment order, please try again")
	ErrMalformedOrder     = errors.New("payment service returned an invalid order")
	ErrUnknownGatewayMode = errors.New("unsupported payment gateway")
	ErrGatewayLoadFailed  = errors.New("failed to load payment gateway")
	ErrVerificationFailed = errors.New("payment could not be verified")

	ErrAmountRequired     = errors.New("please enter an amount")
	ErrAmountInvalid      = errors.New("amount must be a positive whole number")
	ErrPayerNameRequired  = errors.New("please enter your name")
	ErrPayerInvalid       = errors.New("invalid payer details")
	ErrPaymentInProgress  = errors.New("payment already in progress")
	ErrSessionNotFound    = errors.New("checkout session not found, please reload the page")
	ErrSessionClosed      = errors.New("checkout session closed, please reload the page")
	ErrSessionFinished    = errors.New("checkout already finished")
	ErrNoEmbeddedCheckout = errors.New("no embedded payment in progress")
)

// ExpiredError names what expired, so a payer of a link is not told about a QR code.
// It matches ErrTargetExpired.
func ExpiredError(kind TargetKind) error {
	return expiredError{kind: kind}
}

type expiredError struct {
	kind TargetKind
}

func (e expiredError) Error() string {
	return e.kind.Label() + " has expired"
}

func (e expiredError) Is(target error) bool {
	return target == ErrTargetExpired
}
