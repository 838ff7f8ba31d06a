package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goswami6/satyampay-checkout/lib/myerrors"
	"github.com/goswami6/satyampay-checkout/lib/mylog"
	"github.com/goswami6/satyampay-checkout/services/backendclient"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
)

const (
	hostedPath    = "/sandbox/gateway/hosted"
	orderPrefix   = "order_"
	paymentPrefix = "pay_"
)

// seed is idempotent: existing targets keep their state.
func (s *service) seed(c context.Context) error {
	now := s.nower.Now()
	for _, target := range seedTargets(now) {
		uid := targetUID(target.Kind, target.ID)
		_, found, err := s.targetStore.Get(c, uid)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if found {
			continue
		}
		err = s.targetStore.Put(c, uid, target)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
	}
	return nil
}

func (s *service) fetchTarget(c context.Context, kind checkoutapi.TargetKind, id string) (Target, error) {
	target, found, err := s.targetStore.Get(c, targetUID(kind, id))
	if err != nil {
		return Target{}, myerrors.NewInternalError(err)
	}
	if !found {
		return Target{}, myerrors.NewNotFoundError(fmt.Errorf("%w: %s %s", checkoutapi.ErrTargetNotFound, kind, id))
	}
	return target, nil
}

func (s *service) getTarget(c context.Context, kind checkoutapi.TargetKind, id string) (backendclient.TargetResponse, error) {
	s.logger.Log(c, id, mylog.SeverityInfo, "Fetch %s %s", kind, id)

	target, err := s.fetchTarget(c, kind, id)
	if err != nil {
		return backendclient.TargetResponse{}, err
	}

	now := s.nower.Now()
	resp := backendclient.TargetResponse{
		ID:          target.ID,
		AmountMode:  string(target.AmountMode),
		Currency:    target.Currency,
		Description: target.Description,
		PayeeName:   target.PayeeName,
		Status:      string(target.Status(now)),
		IsStatic:    target.IsStatic,
	}
	if target.AmountMode == checkoutapi.AmountModeFixed {
		amount := target.Amount
		resp.Amount = &amount
	}
	if target.Kind == checkoutapi.TargetKindQR && !target.IsStatic {
		remaining := target.RemainingSeconds(now)
		resp.RemainingSeconds = &remaining
	}
	return resp, nil
}

func (s *service) createOrder(c context.Context, hostname string, req backendclient.CreateOrderRequest) (backendclient.CreateOrderResponse, error) {
	kind, err := checkoutapi.ParseTargetKind(req.TargetKind)
	if err != nil {
		return backendclient.CreateOrderResponse{}, myerrors.NewInvalidInputError(err)
	}

	target, err := s.fetchTarget(c, kind, req.TargetID)
	if err != nil {
		return backendclient.CreateOrderResponse{}, err
	}

	now := s.nower.Now()
	switch target.Status(now) {
	case checkoutapi.TargetStatusPaid:
		return backendclient.CreateOrderResponse{}, myerrors.NewConflictError(fmt.Errorf("%w: %s", checkoutapi.ErrAlreadyPaid, target.ID))
	case checkoutapi.TargetStatusExpired:
		return backendclient.CreateOrderResponse{}, myerrors.NewGoneError(fmt.Errorf("%w: %s", checkoutapi.ExpiredError(target.Kind), target.ID))
	}

	amount, err := orderAmount(target, req.Amount)
	if err != nil {
		return backendclient.CreateOrderResponse{}, err
	}

	order := Order{
		OrderID:     orderPrefix + s.uuider.Create(),
		TargetKind:  target.Kind,
		TargetID:    target.ID,
		Amount:      amount,
		Currency:    target.Currency,
		GatewayMode: target.GatewayMode,
		CreatedAt:   now,
	}
	if order.GatewayMode == "" {
		order.GatewayMode = s.cfg.GatewayMode
	}
	if req.Payer != nil {
		order.PayerName = req.Payer.Name
		order.PayerEmail = req.Payer.Email
	}

	s.logger.Log(c, target.ID, mylog.SeverityInfo, "Create %s order %s for %s %s: %d %s", order.GatewayMode, order.OrderID, kind, target.ID, amount, target.Currency)

	err = s.orderStore.Put(c, order.OrderID, order)
	if err != nil {
		return backendclient.CreateOrderResponse{}, myerrors.NewInternalError(err)
	}

	return s.orderResponse(hostname, order, target)
}

func orderAmount(target Target, requested *int64) (int64, error) {
	if target.AmountMode == checkoutapi.AmountModeFixed {
		if requested != nil && *requested != target.Amount {
			return 0, myerrors.NewInvalidInputError(fmt.Errorf("%w: %d differs from fixed amount", ErrAmountInvalid, *requested))
		}
		return target.Amount, nil
	}
	if requested == nil || *requested <= 0 {
		return 0, myerrors.NewInvalidInputError(fmt.Errorf("%w: variable amount must be positive", ErrAmountInvalid))
	}
	return *requested, nil
}

func (s *service) orderResponse(hostname string, order Order, target Target) (backendclient.CreateOrderResponse, error) {
	resp := backendclient.CreateOrderResponse{
		GatewayMode: string(order.GatewayMode),
		OrderID:     order.OrderID,
		Amount:      order.Amount,
		Currency:    order.Currency,
	}

	if order.GatewayMode != checkoutapi.GatewayModeRedirect {
		resp.Key = s.cfg.KeyID
		resp.Order = &backendclient.OrderDescriptor{
			ID:       order.OrderID,
			Amount:   order.Amount,
			Currency: order.Currency,
		}
		return resp, nil
	}

	amount := strconv.FormatInt(order.Amount, 10)
	fields := map[string]any{
		"url":         hostname + hostedPath,
		"txnid":       order.OrderID,
		"amount":      order.Amount,
		"currency":    order.Currency,
		"productinfo": target.Description,
		"firstname":   order.PayerName,
		"email":       order.PayerEmail,
		"hash":        s.signer.sign(order.OrderID, amount),
	}
	resp.Redirect = make(map[string]json.RawMessage, len(fields))
	for name, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return backendclient.CreateOrderResponse{}, myerrors.NewInternalError(err)
		}
		resp.Redirect[name] = raw
	}
	return resp, nil
}

func (s *service) fetchOrder(c context.Context, orderID string) (Order, bool, error) {
	order, found, err := s.orderStore.Get(c, orderID)
	if err != nil {
		return Order{}, false, myerrors.NewInternalError(err)
	}
	return order, found, nil
}

// authorize plays the gateway: it produces a payment with the artifacts the payer's browser
// would receive.
func (s *service) authorize(c context.Context, req AuthorizeRequest) (AuthorizeResponse, error) {
	order, found, err := s.fetchOrder(c, req.OrderID)
	if err != nil {
		return AuthorizeResponse{}, err
	}
	if !found {
		return AuthorizeResponse{}, myerrors.NewNotFoundError(fmt.Errorf("%w: %s", ErrOrderNotFound, req.OrderID))
	}

	now := s.nower.Now()
	payment := Payment{
		PaymentID: paymentPrefix + s.uuider.Create(),
		OrderID:   order.OrderID,
		TargetID:  order.TargetID,
		Status:    PaymentAuthorized,
		CreatedAt: now,
	}
	resp := AuthorizeResponse{
		Status:    PaymentAuthorized,
		OrderID:   order.OrderID,
		PaymentID: payment.PaymentID,
	}
	if req.Outcome == OutcomeFailure {
		payment.Status = PaymentFailed
		resp.Status = PaymentFailed
		resp.Reason = "Payment declined by issuing bank"
	} else {
		resp.Signature = s.signer.sign(order.OrderID, payment.PaymentID)
	}

	s.logger.Log(c, order.TargetID, mylog.SeverityInfo, "Authorize payment %s on order %s: %s", payment.PaymentID, order.OrderID, payment.Status)

	err = s.paymentStore.Put(c, payment.PaymentID, payment)
	if err != nil {
		return AuthorizeResponse{}, myerrors.NewInternalError(err)
	}
	return resp, nil
}

// verifyPayment never errors on a bad claim: anything it cannot confirm is reported unverified.
func (s *service) verifyPayment(c context.Context, req backendclient.VerifyPaymentRequest) (bool, error) {
	order, found, err := s.fetchOrder(c, req.OrderID)
	if err != nil {
		return false, err
	}
	if !found {
		s.logger.Log(c, req.TargetID, mylog.SeverityWarn, "Verify for unknown order %s", req.OrderID)
		return false, nil
	}
	if req.TargetID != "" && req.TargetID != order.TargetID {
		s.logger.Log(c, req.TargetID, mylog.SeverityWarn, "Order %s belongs to %s", order.OrderID, order.TargetID)
		return false, nil
	}
	if !s.signer.valid(req.Signature, req.OrderID, req.PaymentID) {
		s.logger.Log(c, req.TargetID, mylog.SeverityWarn, "Signature mismatch for payment %s on order %s", req.PaymentID, req.OrderID)
		return false, nil
	}

	return s.settle(c, order, req.PaymentID)
}

// settle captures the payment. Only the first captured payment pays a target, repeating
// that capture is a no-op. Static QR codes take any number of payments.
func (s *service) settle(c context.Context, order Order, paymentID string) (bool, error) {
	now := s.nower.Now()
	settled := false

	err := s.targetStore.RunInTransaction(c, func(c context.Context) error {
		settled = false

		payment, found, err := s.paymentStore.Get(c, paymentID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found || payment.OrderID != order.OrderID || payment.Status == PaymentFailed {
			return nil
		}

		target, err := s.fetchTarget(c, order.TargetKind, order.TargetID)
		if err != nil {
			return err
		}

		if !target.IsStatic {
			if target.PaidAt != nil {
				settled = target.PaymentID == paymentID
				return nil
			}
			target.PaidAt = &now
			target.PaymentID = paymentID
			err = s.targetStore.Put(c, targetUID(target.Kind, target.ID), target)
			if err != nil {
				return myerrors.NewInternalError(err)
			}
		}

		if payment.Status != PaymentCaptured {
			payment.Status = PaymentCaptured
			payment.LastModified = &now
			err = s.paymentStore.Put(c, paymentID, payment)
			if err != nil {
				return myerrors.NewInternalError(err)
			}
		}

		settled = true
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.Log(c, order.TargetID, mylog.SeverityInfo, "Settle payment %s on order %s: %v", paymentID, order.OrderID, settled)
	return settled, nil
}

// completeHosted is where the hosted payment page posts the payer's choice. It settles
// server side and returns the location of the front's return page.
func (s *service) completeHosted(c context.Context, hostname string, orderID string, amount string, hash string, outcome Outcome) (string, error) {
	order, found, err := s.fetchOrder(c, orderID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", myerrors.NewNotFoundError(fmt.Errorf("%w: %s", ErrOrderNotFound, orderID))
	}
	if !s.signer.valid(hash, orderID, amount) {
		return "", myerrors.NewInvalidInputError(fmt.Errorf("%w: order %s", ErrHashMismatch, orderID))
	}

	status := "failure"
	query := url.Values{}
	payment, err := s.authorize(c, AuthorizeRequest{OrderID: orderID, Outcome: outcome})
	if err != nil {
		return "", err
	}
	if payment.Status != PaymentFailed {
		settled, err := s.settle(c, order, payment.PaymentID)
		if err != nil {
			return "", err
		}
		if settled {
			status = "success"
			query.Set("paymentId", payment.PaymentID)
			query.Set("signature", payment.Signature)
		}
	}

	location := fmt.Sprintf("%s/checkout/return/%s/%s/%s/%s", hostname, order.TargetKind, url.PathEscape(order.TargetID), url.PathEscape(order.OrderID), status)
	if len(query) > 0 {
		location += "?" + query.Encode()
	}
	return location, nil
}
