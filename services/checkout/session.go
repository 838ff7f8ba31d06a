package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/goswami6/satyampay-checkout/lib/myerrors"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
	"github.com/goswami6/satyampay-checkout/services/checkoutevents"
)

type SessionState string

const (
	SessionReady           SessionState = "ready"
	SessionSubmitting      SessionState = "submitting"
	SessionAwaitingGateway SessionState = "awaiting_gateway"
	SessionRedirecting     SessionState = "redirecting"
	SessionVerifying       SessionState = "verifying"
	SessionSucceeded       SessionState = "succeeded"
	SessionFailed          SessionState = "failed"
	SessionExpired         SessionState = "expired"
	SessionClosed          SessionState = "closed"
)

// Session is one payer looking at one checkout page. All backend calls made on behalf of the
// session derive from its context, so closing the session abandons them.
type Session struct {
	UID    string
	Target checkoutapi.CheckoutTarget

	mutex         sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
	state         SessionState
	clock         *ExpiryClock
	inFlight      bool
	gatewayBroken bool
	order         *checkoutapi.GatewayOrder
	step          *GatewayStep
	payer         checkoutapi.PayerInfo
	lastError     string
	lastActive    time.Time
}

// SessionView is what the checkout page polls.
type SessionView struct {
	SessionUID       string       `json:"sessionUid"`
	State            SessionState `json:"state"`
	ClockState       ClockState   `json:"clockState"`
	RemainingSeconds int64        `json:"remainingSeconds"`
	Urgent           bool         `json:"urgent"`
	CanPay           bool         `json:"canPay"`
	Message          string       `json:"message,omitempty"`
}

func newSession(uid string, target checkoutapi.CheckoutTarget, expired bool, now time.Time) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	clock := NewExpiryClock(target)
	if expired {
		clock.ForceExpire()
	}

	state := SessionReady
	if clock.State() == ClockExpired {
		state = SessionExpired
	}

	return &Session{
		UID:        uid,
		Target:     target,
		ctx:        ctx,
		cancel:     cancel,
		state:      state,
		clock:      clock,
		lastActive: now,
	}
}

// callContext ends when either the request or the session ends.
func (s *Session) callContext(c context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(c, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *Session) View() SessionView {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	view := SessionView{
		SessionUID:       s.UID,
		State:            s.state,
		ClockState:       s.clock.State(),
		RemainingSeconds: s.clock.Remaining(),
		Urgent:           s.clock.Urgent(),
		CanPay:           s.canPayLocked(),
		Message:          s.lastError,
	}
	if s.state == SessionExpired {
		view.Message = checkoutapi.ExpiredError(s.Target.Kind).Error()
	}
	return view
}

func (s *Session) State() SessionState {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.state
}

func (s *Session) touch(now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lastActive = now
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.lastActive.Before(cutoff)
}

func (s *Session) canPayLocked() bool {
	return s.state == SessionReady && !s.inFlight && !s.gatewayBroken && s.clock.State() != ClockExpired
}

func (s *Session) payBlockedLocked() error {
	switch {
	case s.state == SessionClosed:
		return myerrors.NewGoneError(checkoutapi.ErrSessionClosed)
	case s.state == SessionExpired || s.clock.State() == ClockExpired:
		return myerrors.NewGoneError(checkoutapi.ExpiredError(s.Target.Kind))
	case s.state == SessionSucceeded || s.state == SessionFailed:
		return myerrors.NewConflictError(checkoutapi.ErrSessionFinished)
	case s.inFlight || s.state != SessionReady:
		return myerrors.NewConflictError(checkoutapi.ErrPaymentInProgress)
	case s.gatewayBroken:
		return myerrors.NewUnavailableError(checkoutapi.ErrGatewayLoadFailed)
	default:
		return nil
	}
}

// beginPay claims the session for one order. Input is checked before any network call.
func (s *Session) beginPay(form checkoutapi.PayForm, now time.Time) (checkoutapi.OrderRequest, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lastActive = now

	err := s.payBlockedLocked()
	if err != nil {
		return checkoutapi.OrderRequest{}, err
	}

	amount, err := resolveAmount(s.Target, form.Amount)
	if err != nil {
		s.lastError = myerrors.Cause(err).Error()
		return checkoutapi.OrderRequest{}, err
	}

	payer, err := validatePayer(s.Target.Kind, form.Payer)
	if err != nil {
		s.lastError = myerrors.Cause(err).Error()
		return checkoutapi.OrderRequest{}, err
	}

	s.inFlight = true
	s.state = SessionSubmitting
	s.lastError = ""
	s.payer = payer

	return checkoutapi.OrderRequest{
		Kind:     s.Target.Kind,
		TargetID: s.Target.ID,
		Amount:   amount,
		Payer:    payer,
	}, nil
}

// orderFailed returns the session to ready so the payer can retry.
func (s *Session) orderFailed(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.inFlight = false
	if s.state == SessionSubmitting {
		s.state = SessionReady
	}
	s.lastError = myerrors.Cause(err).Error()
}

// expireByServer returns true when the session was not yet expired.
func (s *Session) expireByServer() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.inFlight = false
	changed := s.clock.ForceExpire()
	s.clock.Stop()
	if s.state == SessionClosed {
		return false
	}
	if s.state != SessionExpired {
		s.state = SessionExpired
		changed = true
	}
	return changed
}

// expireByClock only affects a session that is not waiting on the gateway: a payment
// that is underway may still be confirmed by the server.
func (s *Session) expireByClock() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch s.state {
	case SessionReady, SessionSubmitting:
		s.state = SessionExpired
		return true
	default:
		return false
	}
}

// finishAlreadyPaid returns false when the session was closed meanwhile.
func (s *Session) finishAlreadyPaid() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.inFlight = false
	if s.state == SessionClosed {
		return false
	}
	s.state = SessionSucceeded
	s.clock.Stop()
	return true
}

// orderCreated returns false when the session was closed meanwhile, the order is then abandoned.
func (s *Session) orderCreated(order checkoutapi.GatewayOrder) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state == SessionClosed {
		s.inFlight = false
		return false
	}
	s.order = &order
	return true
}

func (s *Session) gatewayFailed(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.inFlight = false
	s.order = nil
	s.step = nil
	s.gatewayBroken = true
	if s.state == SessionSubmitting {
		s.state = SessionReady
	}
	s.lastError = myerrors.Cause(err).Error()
}

func (s *Session) gatewayStarted(step GatewayStep) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.inFlight = false
	if s.state == SessionClosed {
		return false
	}
	s.step = &step
	if step.Mode == checkoutapi.GatewayModeRedirect {
		s.state = SessionRedirecting
	} else {
		s.state = SessionAwaitingGateway
	}
	return true
}

func (s *Session) embeddedOrderLocked() (checkoutapi.GatewayOrder, error) {
	if s.state == SessionClosed {
		return checkoutapi.GatewayOrder{}, myerrors.NewGoneError(checkoutapi.ErrSessionClosed)
	}
	if s.order == nil || s.order.Mode != checkoutapi.GatewayModeEmbedded {
		return checkoutapi.GatewayOrder{}, myerrors.NewConflictError(checkoutapi.ErrNoEmbeddedCheckout)
	}
	return *s.order, nil
}

// beginVerification also accepts a repeated completion, the last response wins.
func (s *Session) beginVerification(now time.Time) (checkoutapi.GatewayOrder, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lastActive = now

	order, err := s.embeddedOrderLocked()
	if err != nil {
		return order, err
	}
	switch s.state {
	case SessionAwaitingGateway, SessionVerifying, SessionSucceeded, SessionFailed, SessionExpired:
		s.state = SessionVerifying
		return order, nil
	default:
		return checkoutapi.GatewayOrder{}, myerrors.NewConflictError(checkoutapi.ErrNoEmbeddedCheckout)
	}
}

// verificationDone returns false when the session was closed while verifying.
func (s *Session) verificationDone(result checkoutapi.VerificationResult) (checkoutevents.CheckoutStatus, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state == SessionClosed {
		return checkoutevents.CheckoutStatusUndefined, false
	}
	s.clock.Stop()
	if result == checkoutapi.VerificationVerified {
		s.state = SessionSucceeded
		s.lastError = ""
		return checkoutevents.CheckoutStatusSuccess, true
	}
	s.state = SessionFailed
	s.lastError = checkoutapi.ErrVerificationFailed.Error()
	return checkoutevents.CheckoutStatusFailed, true
}

func (s *Session) gatewayReportedFailure(now time.Time) (checkoutapi.GatewayOrder, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lastActive = now

	order, err := s.embeddedOrderLocked()
	if err != nil {
		return order, err
	}
	if s.state != SessionAwaitingGateway {
		return checkoutapi.GatewayOrder{}, myerrors.NewConflictError(checkoutapi.ErrNoEmbeddedCheckout)
	}
	s.state = SessionFailed
	s.clock.Stop()
	return order, nil
}

// dismissed brings the payer back to the form. The abandoned order is left to the backend.
func (s *Session) dismissed(now time.Time) (checkoutapi.GatewayOrder, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lastActive = now

	order, err := s.embeddedOrderLocked()
	if err != nil {
		return order, err
	}
	if s.state != SessionAwaitingGateway {
		return checkoutapi.GatewayOrder{}, myerrors.NewConflictError(checkoutapi.ErrNoEmbeddedCheckout)
	}
	s.order = nil
	s.step = nil
	s.state = SessionReady
	if s.clock.State() == ClockExpired {
		s.state = SessionExpired
	}
	return order, nil
}

func (s *Session) redirectStep() (RedirectForm, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state == SessionClosed {
		return RedirectForm{}, myerrors.NewGoneError(checkoutapi.ErrSessionClosed)
	}
	if s.state != SessionRedirecting || s.step == nil || s.step.Redirect == nil {
		return RedirectForm{}, myerrors.NewConflictError(checkoutapi.ErrPaymentInProgress)
	}
	return *s.step.Redirect, nil
}

func (s *Session) currentOrder() *checkoutapi.GatewayOrder {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.order == nil {
		return nil
	}
	order := *s.order
	return &order
}

// close is final. In-flight calls are cancelled and their results discarded.
func (s *Session) close() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state == SessionClosed {
		return false
	}
	s.state = SessionClosed
	s.inFlight = false
	s.cancel()
	s.clock.Stop()
	return true
}
