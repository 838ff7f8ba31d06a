package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/goswami6/satyampay-checkout/lib/myerrors"
	"github.com/goswami6/satyampay-checkout/lib/mylog"
	"github.com/goswami6/satyampay-checkout/lib/mymetrics"
	"github.com/goswami6/satyampay-checkout/lib/mypublisher"
	"github.com/goswami6/satyampay-checkout/lib/mypubsub"
	"github.com/goswami6/satyampay-checkout/lib/mystore"
	"github.com/goswami6/satyampay-checkout/lib/mytime"
	"github.com/goswami6/satyampay-checkout/lib/myuuid"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
	"github.com/goswami6/satyampay-checkout/services/checkoutevents"
)

const defaultSessionTTL = 30 * time.Minute

type PayAction string

const (
	PayActionEmbedded PayAction = "embedded"
	PayActionNavigate PayAction = "navigate"
)

// PayResult tells the checkout page what to do after pressing pay.
type PayResult struct {
	Action   PayAction       `json:"action"`
	Embedded *EmbeddedLaunch `json:"embedded,omitempty"`
	Location string          `json:"location,omitempty"`
}

type openedCheckout struct {
	Session  *Session
	Redirect string
}

type service struct {
	logger       mylog.Logger
	nower        mytime.Nower
	uuider       myuuid.UUIDer
	newTicker    mytime.TickerFactory
	metrics      mymetrics.Recorder
	resolver     resolver
	dispatcher   dispatcher
	gateway      gatewayStarter
	verifier     verifier
	attemptStore mystore.Store[checkoutapi.CheckoutAttempt]
	subscriber   mypubsub.PubSub
	publisher    mypublisher.Publisher
	sessions     *registry
	sessionTTL   time.Duration
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(cfg Config, backend Backend, runtime RuntimeLoader, attemptStore mystore.Store[checkoutapi.CheckoutAttempt], nower mytime.Nower, uuider myuuid.UUIDer, newTicker mytime.TickerFactory, metrics mymetrics.Recorder, logger mylog.Logger, subscriber mypubsub.PubSub, publisher mypublisher.Publisher) *service {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &service{
		logger:       logger,
		nower:        nower,
		uuider:       uuider,
		newTicker:    newTicker,
		metrics:      metrics,
		resolver:     newResolver(backend, metrics),
		dispatcher:   newDispatcher(backend, metrics),
		gateway:      newGatewayStarter(runtime),
		verifier:     newVerifier(backend, metrics, logger),
		attemptStore: attemptStore,
		subscriber:   subscriber,
		publisher:    publisher,
		sessions:     newRegistry(),
		sessionTTL:   ttl,
	}
}

func (s *service) CreateTopics(c context.Context) error {
	err := s.subscriber.CreateTopic(c, checkoutevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", checkoutevents.TopicName, err)
	}

	return nil
}

func (s *service) openCheckout(c context.Context, kind checkoutapi.TargetKind, id string) (openedCheckout, error) {
	resolution, err := s.resolver.Resolve(c, kind, id)
	if err != nil {
		s.logger.Log(c, id, mylog.SeverityWarn, "Error resolving %s %q: %s", kind, id, err)
		return openedCheckout{}, err
	}

	if resolution.AlreadyPaid {
		s.logger.Log(c, id, mylog.SeverityInfo, "%s %s already paid", kind.Label(), id)
		return openedCheckout{Redirect: successLocation(kind, id, true)}, nil
	}

	session := newSession(s.uuider.Create(), resolution.Target, resolution.Expired, s.nower.Now())
	s.sessions.add(session)
	session.clock.Start(s.newTicker, func() {
		s.onClockExpired(session)
	})

	s.logger.Log(c, id, mylog.SeverityInfo, "Opened checkout session %s for %s %s in state %s", session.UID, kind, id, session.State())

	return openedCheckout{Session: session}, nil
}

func (s *service) session(uid string) (*Session, error) {
	session, found := s.sessions.get(uid)
	if !found {
		return nil, myerrors.NewNotFoundError(checkoutapi.ErrSessionNotFound)
	}
	return session, nil
}

func (s *service) pay(c context.Context, uid string, form checkoutapi.PayForm) (PayResult, error) {
	session, err := s.session(uid)
	if err != nil {
		return PayResult{}, err
	}
	target := session.Target

	req, err := session.beginPay(form, s.nower.Now())
	if err != nil {
		return PayResult{}, err
	}

	callCtx, done := session.callContext(c)
	defer done()

	order, err := s.dispatcher.Dispatch(callCtx, req)
	if err != nil {
		switch {
		case errors.Is(err, checkoutapi.ErrAlreadyPaid):
			if !session.finishAlreadyPaid() {
				return PayResult{}, myerrors.NewGoneError(checkoutapi.ErrSessionClosed)
			}
			s.recordOutcome(c, session, nil, checkoutevents.CheckoutStatusAlreadyPaid, "", "")
			return PayResult{
				Action:   PayActionNavigate,
				Location: successLocation(target.Kind, target.ID, true),
			}, nil

		case errors.Is(err, checkoutapi.ErrTargetExpired):
			if session.expireByServer() {
				s.publishExpired(c, session)
			}
			return PayResult{}, myerrors.NewGoneError(checkoutapi.ExpiredError(target.Kind))

		default:
			s.logger.Log(c, target.ID, mylog.SeverityWarn, "Error creating order for session %s: %s", uid, err)
			session.orderFailed(err)
			return PayResult{}, err
		}
	}

	if !session.orderCreated(order) {
		s.logger.Log(c, target.ID, mylog.SeverityInfo, "Session %s closed, abandoning order %s", uid, order.OrderID)
		return PayResult{}, myerrors.NewGoneError(checkoutapi.ErrSessionClosed)
	}

	s.recordStart(c, session, order, req.Payer)

	step, err := s.gateway.start(callCtx, order, target, req.Payer)
	if err != nil {
		s.logger.Log(c, target.ID, mylog.SeverityError, "Error starting gateway for order %s: %s", order.OrderID, err)
		session.gatewayFailed(err)
		s.recordOutcome(c, session, &order, checkoutevents.CheckoutStatusFailed, myerrors.Cause(err).Error(), "")
		return PayResult{}, err
	}

	if !session.gatewayStarted(step) {
		return PayResult{}, myerrors.NewGoneError(checkoutapi.ErrSessionClosed)
	}

	s.logger.Log(c, target.ID, mylog.SeverityInfo, "Started %s gateway for order %s of session %s", step.Mode, order.OrderID, uid)

	if step.Mode == checkoutapi.GatewayModeRedirect {
		return PayResult{
			Action:   PayActionNavigate,
			Location: fmt.Sprintf("/checkout/%s/redirect", url.PathEscape(uid)),
		}, nil
	}
	return PayResult{
		Action:   PayActionEmbedded,
		Embedded: step.Embedded,
	}, nil
}

// complete verifies the artifacts of the embedded gateway and returns where the browser should go.
func (s *service) complete(c context.Context, uid string, artifacts checkoutapi.CompletionArtifacts) (string, error) {
	session, err := s.session(uid)
	if err != nil {
		return "", err
	}
	target := session.Target

	order, err := session.beginVerification(s.nower.Now())
	if err != nil {
		return "", err
	}

	result := checkoutapi.VerificationRejected
	if artifacts.OrderID != order.OrderID {
		s.logger.Log(c, target.ID, mylog.SeverityWarn, "Completion for order %q does not match order %s of session %s", artifacts.OrderID, order.OrderID, uid)
		s.metrics.VerificationObserved("mismatch")
	} else {
		callCtx, done := session.callContext(c)
		result = s.verifier.Verify(callCtx, target.ID, artifacts)
		done()
	}

	status, ok := session.verificationDone(result)
	if !ok {
		return "", myerrors.NewGoneError(checkoutapi.ErrSessionClosed)
	}

	details := ""
	if status == checkoutevents.CheckoutStatusFailed {
		details = checkoutapi.ErrVerificationFailed.Error()
	}
	s.recordOutcome(c, session, &order, status, details, artifacts.PaymentID)

	if status == checkoutevents.CheckoutStatusSuccess {
		return successLocation(target.Kind, target.ID, false), nil
	}
	return failedLocation(target.Kind, target.ID), nil
}

// fail is reported by the embedded gateway. No verification takes place.
func (s *service) fail(c context.Context, uid string, form checkoutapi.FailureForm) (string, error) {
	session, err := s.session(uid)
	if err != nil {
		return "", err
	}
	target := session.Target

	order, err := session.gatewayReportedFailure(s.nower.Now())
	if err != nil {
		return "", err
	}

	if form.OrderID != "" && form.OrderID != order.OrderID {
		s.logger.Log(c, target.ID, mylog.SeverityWarn, "Failure reported for order %q while session %s has order %s", form.OrderID, uid, order.OrderID)
	}
	s.recordOutcome(c, session, &order, checkoutevents.CheckoutStatusFailed, form.Reason, "")

	return failedLocation(target.Kind, target.ID), nil
}

func (s *service) dismiss(c context.Context, uid string) (SessionView, error) {
	session, err := s.session(uid)
	if err != nil {
		return SessionView{}, err
	}

	order, err := session.dismissed(s.nower.Now())
	if err != nil {
		return SessionView{}, err
	}
	s.recordOutcome(c, session, &order, checkoutevents.CheckoutStatusCancelled, "dismissed by payer", "")

	return session.View(), nil
}

func (s *service) status(c context.Context, uid string) (SessionView, error) {
	session, err := s.session(uid)
	if err != nil {
		return SessionView{}, err
	}
	session.touch(s.nower.Now())

	return session.View(), nil
}

func (s *service) redirectForm(c context.Context, uid string) (RedirectForm, error) {
	session, err := s.session(uid)
	if err != nil {
		return RedirectForm{}, err
	}
	session.touch(s.nower.Now())

	return session.redirectStep()
}

// close is idempotent, an unknown session is considered closed already.
func (s *service) close(c context.Context, uid string) {
	session, found := s.sessions.get(uid)
	if !found {
		return
	}
	if session.close() {
		s.logger.Log(c, session.Target.ID, mylog.SeverityInfo, "Closed checkout session %s", uid)
	}
	s.sessions.remove(uid)
}

// returnFromGateway handles the browser coming back from a hosted payment page. The reported
// status is not trusted. Payment artifacts handed back by the gateway are verified for the order
// they belong to. Without them only a single-use target that the backend reports as paid counts.
func (s *service) returnFromGateway(c context.Context, kind checkoutapi.TargetKind, id string, reportedStatus string, artifacts checkoutapi.CompletionArtifacts) string {
	if artifacts.Complete() {
		if s.verifier.Verify(c, id, artifacts) != checkoutapi.VerificationVerified {
			s.logger.Log(c, id, mylog.SeverityWarn, "Gateway returned with status %q but payment %s of order %s was not verified", reportedStatus, artifacts.PaymentID, artifacts.OrderID)
			return failedLocation(kind, id)
		}
		s.logger.Log(c, id, mylog.SeverityInfo, "Payment %s of order %s verified after return", artifacts.PaymentID, artifacts.OrderID)
		return successLocation(kind, id, false)
	}

	resolution, err := s.resolver.Resolve(c, kind, id)
	if err != nil {
		s.logger.Log(c, id, mylog.SeverityWarn, "Error re-resolving %s %s after return with status %q: %s", kind, id, reportedStatus, err)
		s.metrics.VerificationObserved("return_error")
		return failedLocation(kind, id)
	}

	// a static qr code stays active after every payment, so its status proves nothing
	if resolution.Target.IsStatic || !resolution.AlreadyPaid {
		s.logger.Log(c, id, mylog.SeverityWarn, "Gateway returned with status %q for order %q without proof of payment for %s %s", reportedStatus, artifacts.OrderID, kind, id)
		s.metrics.VerificationObserved("return_unpaid")
		return failedLocation(kind, id)
	}

	s.metrics.VerificationObserved("return_paid")
	return successLocation(kind, id, false)
}

func (s *service) onClockExpired(session *Session) {
	if !session.expireByClock() {
		return
	}
	c := context.Background()
	s.logger.Log(c, session.Target.ID, mylog.SeverityInfo, "QR code %s expired in session %s", session.Target.ID, session.UID)
	s.publishExpired(c, session)
}

// heartbeatInterval is how often an open checkout page reports in, well within the session ttl.
func (s *service) heartbeatInterval() time.Duration {
	interval := s.sessionTTL / 3
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

// sweep closes every session idle for longer than the session ttl.
func (s *service) sweep(c context.Context) int {
	cutoff := s.nower.Now().Add(-s.sessionTTL)
	count := 0
	for _, session := range s.sessions.idle(cutoff) {
		session.close()
		s.sessions.remove(session.UID)
		count++
	}
	if count > 0 {
		s.logger.Log(c, "", mylog.SeverityInfo, "Swept %d idle checkout sessions, %d remaining", count, s.sessions.size())
	}
	return count
}

// startSweeper runs until the returned function is called.
func (s *service) startSweeper(c context.Context, interval time.Duration) func() {
	ticker := s.newTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-c.Done():
				return
			case <-ticker.C():
				s.sweep(c)
			}
		}
	}()
	return func() {
		close(done)
	}
}

func (s *service) recordStart(c context.Context, session *Session, order checkoutapi.GatewayOrder, payer checkoutapi.PayerInfo) {
	now := s.nower.Now()

	err := s.attemptStore.RunInTransaction(c, func(c context.Context) error {
		err := s.attemptStore.Put(c, order.OrderID, checkoutapi.NewCheckoutAttempt(session.UID, order, session.Target, payer, now))
		if err != nil {
			return fmt.Errorf("error storing attempt %s: %s", order.OrderID, err)
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutStarted{
			SessionUID:         session.UID,
			TargetKind:         string(session.Target.Kind),
			TargetID:           session.Target.ID,
			OrderID:            order.OrderID,
			GatewayMode:        string(order.Mode),
			AmountInMinorUnits: order.Amount,
			Currency:           order.Currency,
		})
		if err != nil {
			return fmt.Errorf("error publishing event: %s", err)
		}

		return nil
	})
	if err != nil {
		// the payer can continue, the order exists at the backend
		s.logger.Log(c, session.Target.ID, mylog.SeverityError, "Error recording start of order %s: %s", order.OrderID, err)
	}
}

func (s *service) recordOutcome(c context.Context, session *Session, order *checkoutapi.GatewayOrder, status checkoutevents.CheckoutStatus, details string, paymentID string) {
	now := s.nower.Now()

	event := checkoutevents.CheckoutCompleted{
		SessionUID:            session.UID,
		TargetKind:            string(session.Target.Kind),
		TargetID:              session.Target.ID,
		CheckoutStatus:        status,
		CheckoutStatusDetails: details,
	}
	if order != nil {
		event.OrderID = order.OrderID
		event.GatewayMode = string(order.Mode)
	}

	err := s.attemptStore.RunInTransaction(c, func(c context.Context) error {
		if order != nil {
			attempt, found, err := s.attemptStore.Get(c, order.OrderID)
			if err != nil {
				return fmt.Errorf("error fetching attempt %s: %s", order.OrderID, err)
			}
			if !found {
				attempt = checkoutapi.NewCheckoutAttempt(session.UID, *order, session.Target, checkoutapi.PayerInfo{}, now)
			}
			attempt.CheckoutStatus = status
			attempt.CheckoutStatusDetails = details
			attempt.LastModified = &now
			if paymentID != "" {
				attempt.PaymentID = paymentID
			}

			err = s.attemptStore.Put(c, order.OrderID, attempt)
			if err != nil {
				return fmt.Errorf("error storing attempt %s: %s", order.OrderID, err)
			}
		}

		err := s.publisher.Publish(c, checkoutevents.TopicName, event)
		if err != nil {
			return fmt.Errorf("error publishing event: %s", err)
		}

		return nil
	})
	if err != nil {
		s.logger.Log(c, session.Target.ID, mylog.SeverityError, "Error recording %s outcome of session %s: %s", status, session.UID, err)
	}
}

func (s *service) publishExpired(c context.Context, session *Session) {
	if session.Target.Kind != checkoutapi.TargetKindQR {
		return
	}
	err := s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.QRCodeExpired{
		SessionUID: session.UID,
		TargetID:   session.Target.ID,
	})
	if err != nil {
		s.logger.Log(c, session.Target.ID, mylog.SeverityError, "Error publishing expiry of %s: %s", session.Target.ID, err)
	}
}

func successLocation(kind checkoutapi.TargetKind, id string, already bool) string {
	values := url.Values{}
	values.Set("kind", string(kind))
	values.Set("target", id)
	if already {
		values.Set("already", "true")
	}
	return "/payment/success?" + values.Encode()
}

func failedLocation(kind checkoutapi.TargetKind, id string) string {
	values := url.Values{}
	values.Set("kind", string(kind))
	values.Set("target", id)
	return "/payment/failed?" + values.Encode()
}

func retryLocation(kind checkoutapi.TargetKind, id string) string {
	if kind == checkoutapi.TargetKindQR {
		return "/qr/" + url.PathEscape(id)
	}
	return "/pay/" + url.PathEscape(id)
}
