package checkout

import (
	"context"

	"github.com/goswami6/satyampay-checkout/lib/mylog"
	"github.com/goswami6/satyampay-checkout/lib/mymetrics"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
)

type verifier struct {
	backend Backend
	metrics mymetrics.Recorder
	logger  mylog.Logger
}

func newVerifier(backend Backend, metrics mymetrics.Recorder, logger mylog.Logger) verifier {
	return verifier{
		backend: backend,
		metrics: metrics,
		logger:  logger,
	}
}

// Verify is fail-closed: anything but an explicit confirmation by the backend is a rejection.
func (v verifier) Verify(c context.Context, targetID string, artifacts checkoutapi.CompletionArtifacts) checkoutapi.VerificationResult {
	if !artifacts.Complete() {
		v.logger.Log(c, targetID, mylog.SeverityWarn, "Incomplete completion artifacts for order %q", artifacts.OrderID)
		v.metrics.VerificationObserved("incomplete")
		return checkoutapi.VerificationRejected
	}

	verified, err := v.backend.VerifyPayment(c, targetID, artifacts)
	if err != nil {
		v.logger.Log(c, targetID, mylog.SeverityError, "Error verifying payment %s of order %s: %s", artifacts.PaymentID, artifacts.OrderID, err)
		v.metrics.VerificationObserved("error")
		return checkoutapi.VerificationRejected
	}
	if !verified {
		v.logger.Log(c, targetID, mylog.SeverityWarn, "Payment %s of order %s rejected", artifacts.PaymentID, artifacts.OrderID)
		v.metrics.VerificationObserved(string(checkoutapi.VerificationRejected))
		return checkoutapi.VerificationRejected
	}

	v.metrics.VerificationObserved(string(checkoutapi.VerificationVerified))
	return checkoutapi.VerificationVerified
}
