package checkout

import (
	"context"
	"fmt"

	"github.com/goswami6/satyampay-checkout/lib/myerrors"
	"github.com/goswami6/satyampay-checkout/lib/myhttp"
	"github.com/goswami6/satyampay-checkout/lib/mylog"
	"github.com/goswami6/satyampay-checkout/services/checkoutevents"
)

func (s *service) Subscribe(c context.Context) error {
	err := s.subscriber.Subscribe(c, checkoutevents.TopicName, myhttp.GuessHostnameWithScheme()+"/api/checkout/event")
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", checkoutevents.TopicName, err)
	}

	return nil
}

func (s *service) OnCheckoutStarted(c context.Context, topic string, event checkoutevents.CheckoutStarted) error {
	s.logger.Log(c, event.TargetID, mylog.SeverityInfo, "Checkout of order %s started (%s, %d %s)", event.OrderID, event.GatewayMode, event.AmountInMinorUnits, event.Currency)
	return nil
}

// OnCheckoutCompleted brings the attempt log up to date when another instance handled the session.
func (s *service) OnCheckoutCompleted(c context.Context, topic string, event checkoutevents.CheckoutCompleted) error {
	if event.OrderID == "" {
		return nil
	}

	return s.attemptStore.RunInTransaction(c, func(c context.Context) error {
		attempt, found, err := s.attemptStore.Get(c, event.OrderID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching attempt %s: %s", event.OrderID, err))
		}
		if !found || attempt.IsFinal() {
			return nil
		}

		now := s.nower.Now()
		attempt.CheckoutStatus = event.CheckoutStatus
		attempt.CheckoutStatusDetails = event.CheckoutStatusDetails
		attempt.LastModified = &now

		err = s.attemptStore.Put(c, event.OrderID, attempt)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing attempt %s: %s", event.OrderID, err))
		}

		s.logger.Log(c, event.TargetID, mylog.SeverityInfo, "Attempt %s reconciled to %s", event.OrderID, event.CheckoutStatus)

		return nil
	})
}

func (s *service) OnQRCodeExpired(c context.Context, topic string, event checkoutevents.QRCodeExpired) error {
	s.logger.Log(c, event.TargetID, mylog.SeverityInfo, "QR code %s expired in session %s", event.TargetID, event.SessionUID)
	return nil
}
