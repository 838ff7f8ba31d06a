package backendclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goswami6/satyampay-checkout/lib/myerrors"
	"github.com/goswami6/satyampay-checkout/lib/myhttpclient"
	"github.com/goswami6/satyampay-checkout/lib/mylog"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
)

var errMalformedVerification = errors.New("verification response without verified field")

type Client struct {
	baseURL string
	sender  myhttpclient.HTTPSender
	logger  mylog.Logger
}

func New(baseURL string, sender myhttpclient.HTTPSender) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		sender:  sender,
		logger:  mylog.New("backendclient"),
	}
}

func (c *Client) GetCheckoutTarget(ctx context.Context, kind checkoutapi.TargetKind, id string) (checkoutapi.CheckoutTarget, error) {
	path := "payment-links"
	if kind == checkoutapi.TargetKindQR {
		path = "qr-codes"
	}

	resp := TargetResponse{}
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("%s/%s/%s", c.baseURL, path, url.PathEscape(id)), nil, &resp)
	if err != nil {
		return checkoutapi.CheckoutTarget{}, err
	}

	target := checkoutapi.CheckoutTarget{
		Kind:        kind,
		ID:          resp.ID,
		AmountMode:  checkoutapi.AmountMode(resp.AmountMode),
		Currency:    resp.Currency,
		Description: resp.Description,
		PayeeName:   resp.PayeeName,
		Status:      checkoutapi.TargetStatus(resp.Status),
		IsStatic:    resp.IsStatic,
	}
	if target.ID == "" {
		target.ID = id
	}
	if resp.Amount != nil {
		target.Amount = *resp.Amount
	}
	if resp.RemainingSeconds != nil {
		target.RemainingSeconds = *resp.RemainingSeconds
	}

	err = target.Validate()
	if err != nil {
		return checkoutapi.CheckoutTarget{}, myerrors.NewBadGatewayError(fmt.Errorf("%w: %s", checkoutapi.ErrBackendUnavailable, err))
	}

	return target, nil
}

func (c *Client) CreateOrder(ctx context.Context, req checkoutapi.OrderRequest) (checkoutapi.GatewayOrder, error) {
	body := CreateOrderRequest{
		TargetKind: string(req.Kind),
		TargetID:   req.TargetID,
	}
	if req.Amount > 0 {
		body.Amount = &req.Amount
	}
	if !req.Payer.IsEmpty() {
		payer := req.Payer
		body.Payer = &payer
	}

	resp := CreateOrderResponse{}
	err := c.call(ctx, http.MethodPost, c.baseURL+"/orders", body, &resp)
	if err != nil {
		if myerrors.GetHTTPStatus(err) == http.StatusBadGateway {
			// Rejections are retryable by the payer
			return checkoutapi.GatewayOrder{}, myerrors.NewBadGatewayError(fmt.Errorf("%w: %s", checkoutapi.ErrOrderRejected, err))
		}
		return checkoutapi.GatewayOrder{}, err
	}

	return orderFromResponse(resp)
}

// orderFromResponse classifies the response by gateway mode. Validation is up to the caller.
func orderFromResponse(resp CreateOrderResponse) (checkoutapi.GatewayOrder, error) {
	order := checkoutapi.GatewayOrder{
		OrderID:  resp.OrderID,
		Amount:   resp.Amount,
		Currency: resp.Currency,
		Mode:     checkoutapi.GatewayMode(resp.GatewayMode),
	}

	switch order.Mode {
	case checkoutapi.GatewayModeEmbedded:
		payload := checkoutapi.EmbeddedPayload{
			Key:      resp.Key,
			OrderID:  resp.OrderID,
			Amount:   resp.Amount,
			Currency: resp.Currency,
		}
		if resp.Order != nil {
			payload.OrderID = resp.Order.ID
			payload.Amount = resp.Order.Amount
			payload.Currency = resp.Order.Currency
		}
		if order.OrderID == "" {
			order.OrderID = payload.OrderID
		}
		order.Embedded = &payload
	case checkoutapi.GatewayModeRedirect:
		fields, err := stringifyFields(resp.Redirect)
		if err != nil {
			return checkoutapi.GatewayOrder{}, myerrors.NewBadGatewayError(fmt.Errorf("%w: %s", checkoutapi.ErrMalformedOrder, err))
		}
		order.Redirect = &checkoutapi.RedirectPayload{Fields: fields}
	}

	return order, nil
}

// stringifyFields turns every opaque value into its form representation without interpreting it.
func stringifyFields(raw map[string]json.RawMessage) (map[string]string, error) {
	fields := make(map[string]string, len(raw))
	for name, value := range raw {
		trimmed := bytes.TrimSpace(value)
		switch {
		case len(trimmed) == 0 || string(trimmed) == "null":
			fields[name] = ""
		case trimmed[0] == '"':
			s := ""
			err := json.Unmarshal(trimmed, &s)
			if err != nil {
				return nil, fmt.Errorf("field %s: %s", name, err)
			}
			fields[name] = s
		case trimmed[0] == '{' || trimmed[0] == '[':
			compact := bytes.Buffer{}
			err := json.Compact(&compact, trimmed)
			if err != nil {
				return nil, fmt.Errorf("field %s: %s", name, err)
			}
			fields[name] = compact.String()
		default:
			// numbers and booleans keep their literal text
			fields[name] = string(trimmed)
		}
	}
	return fields, nil
}

func (c *Client) VerifyPayment(ctx context.Context, targetID string, artifacts checkoutapi.CompletionArtifacts) (bool, error) {
	resp := VerifyPaymentResponse{}
	err := c.call(ctx, http.MethodPost, c.baseURL+"/payments/verify", VerifyPaymentRequest{
		OrderID:   artifacts.OrderID,
		PaymentID: artifacts.PaymentID,
		Signature: artifacts.Signature,
		TargetID:  targetID,
	}, &resp)
	if err != nil {
		return false, err
	}
	if resp.Verified == nil {
		return false, myerrors.NewBadGatewayError(errMalformedVerification)
	}
	return *resp.Verified, nil
}

func (c *Client) call(ctx context.Context, method string, url string, request interface{}, response interface{}) error {
	var body []byte
	if request != nil {
		var err error
		body, err = json.Marshal(request)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error marshalling request for %s %s: %s", method, url, err))
		}
	}

	status, respBody, err := c.sender.Send(ctx, method, url, body)
	if err != nil {
		if ctx.Err() != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("%w: %s", checkoutapi.ErrBackendUnavailable, ctx.Err()))
		}
		return myerrors.NewUnavailableError(fmt.Errorf("%w: %s", checkoutapi.ErrBackendUnavailable, err))
	}

	if status < 200 || status >= 300 {
		return c.errorFromResponse(ctx, method, url, status, respBody)
	}

	err = json.Unmarshal(respBody, response)
	if err != nil {
		return myerrors.NewBadGatewayError(fmt.Errorf("%w: error parsing response of %s %s: %s", checkoutapi.ErrBackendUnavailable, method, url, err))
	}
	return nil
}

func (c *Client) errorFromResponse(ctx context.Context, method string, url string, status int, body []byte) error {
	errResp := ErrorResponse{}
	_ = json.Unmarshal(body, &errResp)

	c.logger.Log(ctx, "", mylog.SeverityWarn, "Backend %s %s returned %d (code:%q, message:%q)", method, url, status, errResp.Code, errResp.Message)

	switch {
	case errResp.Code == ErrorCodeAlreadyPaid:
		return myerrors.NewConflictError(fmt.Errorf("%w: %s", checkoutapi.ErrAlreadyPaid, errResp.Message))
	case errResp.Code == ErrorCodeNotFound || status == http.StatusNotFound:
		return myerrors.NewNotFoundError(fmt.Errorf("%w: %s", checkoutapi.ErrTargetNotFound, errResp.Message))
	case errResp.Code == ErrorCodeExpired || status == http.StatusGone:
		return myerrors.NewGoneError(fmt.Errorf("%w: %s", checkoutapi.ErrTargetExpired, errResp.Message))
	case status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout || status == http.StatusTooManyRequests:
		return myerrors.NewUnavailableError(fmt.Errorf("%w: status %d", checkoutapi.ErrBackendUnavailable, status))
	default:
		return myerrors.NewBadGatewayError(fmt.Errorf("%w: status %d: %s %s", checkoutapi.ErrBackendUnavailable, status, errResp.Code, errResp.Message))
	}
}
