package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/goswami6/satyampay-checkout/lib/mystore"
	"github.com/goswami6/satyampay-checkout/lib/mytime"
	"github.com/goswami6/satyampay-checkout/lib/myuuid"
	"github.com/goswami6/satyampay-checkout/services/backendclient"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
)

const (
	keyID     = "rzp_test_key"
	keySecret = "sandbox-secret"
	hostname  = "http://example.com"
)

type fixture struct {
	router      *mux.Router
	now         *time.Time
	targetStore *mystore.InMemoryStore[Target]
	signer      signer
}

func setup(t *testing.T, ctrl *gomock.Controller, cfg Config) fixture {
	t.Setenv("PUBLIC_BASE_URL", "")

	c := context.TODO()
	targetStore, _, _ := mystore.NewInMemoryStore[Target](c)
	orderStore, _, _ := mystore.NewInMemoryStore[Order](c)
	paymentStore, _, _ := mystore.NewInMemoryStore[Payment](c)

	now := mytime.ExampleTime
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().DoAndReturn(func() time.Time { return now }).AnyTimes()

	counter := 0
	uuider := myuuid.NewMockUUIDer(ctrl)
	uuider.EXPECT().Create().DoAndReturn(func() string {
		counter++
		return fmt.Sprintf("%d", counter)
	}).AnyTimes()

	if cfg.KeyID == "" {
		cfg.KeyID = keyID
		cfg.KeySecret = keySecret
	}

	f := fixture{
		router:      mux.NewRouter(),
		now:         &now,
		targetStore: targetStore,
		signer:      newSigner(cfg.KeySecret),
	}

	sut := NewWebService(cfg, targetStore, orderStore, paymentStore, nower, uuider)
	err := sut.RegisterEndpoints(c, f.router)
	assert.NoError(t, err)

	return f
}

func (f fixture) call(t *testing.T, method string, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	payload := []byte{}
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		assert.NoError(t, err)
	}
	request := httptest.NewRequest(method, path, bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		request.Header.Set(headers[i], headers[i+1])
	}
	response := httptest.NewRecorder()
	f.router.ServeHTTP(response, request)
	return response
}

func (f fixture) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	response := httptest.NewRecorder()
	f.router.ServeHTTP(response, request)
	return response
}

func (f fixture) target(t *testing.T, path string) backendclient.TargetResponse {
	response := f.call(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, response.Code)
	resp := backendclient.TargetResponse{}
	assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
	return resp
}

func (f fixture) createOrder(t *testing.T, req backendclient.CreateOrderRequest) backendclient.CreateOrderResponse {
	response := f.call(t, http.MethodPost, APIPrefix+"/orders", req)
	assert.Equal(t, http.StatusCreated, response.Code)
	resp := backendclient.CreateOrderResponse{}
	assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
	return resp
}

func (f fixture) authorize(t *testing.T, orderID string, outcome Outcome) AuthorizeResponse {
	response := f.call(t, http.MethodPost, "/sandbox/gateway/authorize", AuthorizeRequest{OrderID: orderID, Outcome: outcome})
	assert.Equal(t, http.StatusOK, response.Code)
	resp := AuthorizeResponse{}
	assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
	return resp
}

func (f fixture) verify(t *testing.T, req backendclient.VerifyPaymentRequest) bool {
	response := f.call(t, http.MethodPost, APIPrefix+"/payments/verify", req)
	assert.Equal(t, http.StatusOK, response.Code)
	resp := backendclient.VerifyPaymentResponse{}
	assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
	if !assert.NotNil(t, resp.Verified) {
		return false
	}
	return *resp.Verified
}

func errorBody(t *testing.T, response *httptest.ResponseRecorder) backendclient.ErrorResponse {
	resp := backendclient.ErrorResponse{}
	assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
	return resp
}

func amount(v int64) *int64 {
	return &v
}

func TestTargets(t *testing.T) {
	t.Run("Fixed payment link", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		resp := f.target(t, APIPrefix+"/payment-links/"+FixedLinkID)
		assert.Equal(t, FixedLinkID, resp.ID)
		assert.Equal(t, "fixed", resp.AmountMode)
		assert.Equal(t, int64(49900), *resp.Amount)
		assert.Equal(t, "active", resp.Status)
		assert.Nil(t, resp.RemainingSeconds)
	})

	t.Run("Static QR has no countdown", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		resp := f.target(t, APIPrefix+"/qr-codes/"+StaticQRID)
		assert.True(t, resp.IsStatic)
		assert.Equal(t, "variable", resp.AmountMode)
		assert.Nil(t, resp.Amount)
		assert.Nil(t, resp.RemainingSeconds)
	})

	t.Run("Dynamic QR counts down and expires by server clock", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		resp := f.target(t, APIPrefix+"/qr-codes/"+DynamicQRID)
		assert.Equal(t, "active", resp.Status)
		assert.Equal(t, int64(600), *resp.RemainingSeconds)

		*f.now = f.now.Add(9*time.Minute + 30*time.Second)
		resp = f.target(t, APIPrefix+"/qr-codes/"+DynamicQRID)
		assert.Equal(t, int64(30), *resp.RemainingSeconds)

		*f.now = f.now.Add(time.Minute)
		resp = f.target(t, APIPrefix+"/qr-codes/"+DynamicQRID)
		assert.Equal(t, "expired", resp.Status)
		assert.Equal(t, int64(0), *resp.RemainingSeconds)
	})

	t.Run("Unknown target", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		response := f.call(t, http.MethodGet, APIPrefix+"/payment-links/"+StaticQRID, nil)
		assert.Equal(t, http.StatusNotFound, response.Code)
		assert.Equal(t, backendclient.ErrorCodeNotFound, errorBody(t, response).Code)
	})

	t.Run("Api key is enforced when configured", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{APIKey: "letmein"})

		response := f.call(t, http.MethodGet, APIPrefix+"/payment-links/"+FixedLinkID, nil)
		assert.Equal(t, http.StatusForbidden, response.Code)
		assert.Equal(t, "unauthorized", errorBody(t, response).Code)

		response = f.call(t, http.MethodGet, APIPrefix+"/payment-links/"+FixedLinkID, nil, APIKeyHeader, "letmein")
		assert.Equal(t, http.StatusOK, response.Code)
	})
}

func TestCreateOrder(t *testing.T) {
	t.Run("Embedded order for fixed link", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		resp := f.createOrder(t, backendclient.CreateOrderRequest{
			TargetKind: "link",
			TargetID:   FixedLinkID,
			Amount:     amount(49900),
			Payer:      &checkoutapi.PayerInfo{Name: "Asha"},
		})
		assert.Equal(t, "embedded", resp.GatewayMode)
		assert.Equal(t, "order_1", resp.OrderID)
		assert.Equal(t, keyID, resp.Key)
		assert.Equal(t, &backendclient.OrderDescriptor{ID: "order_1", Amount: 49900, Currency: "INR"}, resp.Order)
		assert.Empty(t, resp.Redirect)
	})

	t.Run("Variable amount from payer", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		resp := f.createOrder(t, backendclient.CreateOrderRequest{TargetKind: "qr", TargetID: StaticQRID, Amount: amount(1500)})
		assert.Equal(t, int64(1500), resp.Amount)
	})

	t.Run("Redirect order carries hosted page fields", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		resp := f.createOrder(t, backendclient.CreateOrderRequest{TargetKind: "link", TargetID: RedirectLinkID})
		assert.Equal(t, "redirect", resp.GatewayMode)
		assert.Empty(t, resp.Key)
		assert.JSONEq(t, `"http://example.com/sandbox/gateway/hosted"`, string(resp.Redirect["url"]))
		assert.JSONEq(t, `"order_1"`, string(resp.Redirect["txnid"]))
		assert.JSONEq(t, `120000`, string(resp.Redirect["amount"]))
		assert.JSONEq(t, fmt.Sprintf("%q", f.signer.sign("order_1", "120000")), string(resp.Redirect["hash"]))
	})

	t.Run("Configured gateway mode applies to targets without one", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{GatewayMode: checkoutapi.GatewayModeRedirect})

		resp := f.createOrder(t, backendclient.CreateOrderRequest{TargetKind: "link", TargetID: FixedLinkID})
		assert.Equal(t, "redirect", resp.GatewayMode)
	})

	testCases := []struct {
		name   string
		req    backendclient.CreateOrderRequest
		status int
		code   string
	}{
		{
			name:   "Variable amount missing",
			req:    backendclient.CreateOrderRequest{TargetKind: "link", TargetID: VariableLinkID},
			status: http.StatusBadRequest,
			code:   "invalid_amount",
		},
		{
			name:   "Fixed amount tampered",
			req:    backendclient.CreateOrderRequest{TargetKind: "link", TargetID: FixedLinkID, Amount: amount(100)},
			status: http.StatusBadRequest,
			code:   "invalid_amount",
		},
		{
			name:   "Unknown kind",
			req:    backendclient.CreateOrderRequest{TargetKind: "invoice", TargetID: FixedLinkID},
			status: http.StatusBadRequest,
			code:   "invalid_request",
		},
		{
			name:   "Unknown target",
			req:    backendclient.CreateOrderRequest{TargetKind: "qr", TargetID: "qr_unknown"},
			status: http.StatusNotFound,
			code:   backendclient.ErrorCodeNotFound,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			f := setup(t, ctrl, Config{})

			response := f.call(t, http.MethodPost, APIPrefix+"/orders", tc.req)
			assert.Equal(t, tc.status, response.Code)
			assert.Equal(t, tc.code, errorBody(t, response).Code)
		})
	}

	t.Run("Expired QR is refused at order creation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		*f.now = f.now.Add(dynamicQRTimeout)
		response := f.call(t, http.MethodPost, APIPrefix+"/orders", backendclient.CreateOrderRequest{TargetKind: "qr", TargetID: DynamicQRID})
		assert.Equal(t, http.StatusGone, response.Code)
		assert.Equal(t, backendclient.ErrorCodeExpired, errorBody(t, response).Code)
	})
}

func TestVerifyPayment(t *testing.T) {
	t.Run("Verified payment pays the target, repeated verification is idempotent", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		order := f.createOrder(t, backendclient.CreateOrderRequest{TargetKind: "link", TargetID: FixedLinkID})
		payment := f.authorize(t, order.OrderID, OutcomeSuccess)
		assert.Equal(t, PaymentAuthorized, payment.Status)
		assert.Equal(t, f.signer.sign(order.OrderID, payment.PaymentID), payment.Signature)

		req := backendclient.VerifyPaymentRequest{
			OrderID:   order.OrderID,
			PaymentID: payment.PaymentID,
			Signature: payment.Signature,
			TargetID:  FixedLinkID,
		}
		assert.True(t, f.verify(t, req))
		assert.True(t, f.verify(t, req))

		assert.Equal(t, "paid", f.target(t, APIPrefix+"/payment-links/"+FixedLinkID).Status)

		response := f.call(t, http.MethodPost, APIPrefix+"/orders", backendclient.CreateOrderRequest{TargetKind: "link", TargetID: FixedLinkID})
		assert.Equal(t, http.StatusConflict, response.Code)
		assert.Equal(t, backendclient.ErrorCodeAlreadyPaid, errorBody(t, response).Code)
	})

	t.Run("First verified payment wins", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		first := f.createOrder(t, backendclient.CreateOrderRequest{TargetKind: "link", TargetID: FixedLinkID})
		second := f.createOrder(t, backendclient.CreateOrderRequest{TargetKind: "link", TargetID: FixedLinkID})
		firstPayment := f.authorize(t, first.OrderID, OutcomeSuccess)
		secondPayment := f.authorize(t, second.OrderID, OutcomeSuccess)

		assert.True(t, f.verify(t, backendclient.VerifyPaymentRequest{
			OrderID: second.OrderID, PaymentID: secondPayment.PaymentID, Signature: secondPayment.Signature, TargetID: FixedLinkID,
		}))
		assert.False(t, f.verify(t, backendclient.VerifyPaymentRequest{
			OrderID: first.OrderID, PaymentID: firstPayment.PaymentID, Signature: firstPayment.Signature, TargetID: FixedLinkID,
		}))
	})

	t.Run("Static QR accepts every verified payment", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		for i := 0; i < 2; i++ {
			order := f.createOrder(t, backendclient.CreateOrderRequest{TargetKind: "qr", TargetID: StaticQRID, Amount: amount(2000)})
			payment := f.authorize(t, order.OrderID, OutcomeSuccess)
			assert.True(t, f.verify(t, backendclient.VerifyPaymentRequest{
				OrderID: order.OrderID, PaymentID: payment.PaymentID, Signature: payment.Signature, TargetID: StaticQRID,
			}))
		}
		assert.Equal(t, "active", f.target(t, APIPrefix+"/qr-codes/"+StaticQRID).Status)
	})

	t.Run("Claims that cannot be confirmed are unverified", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		order := f.createOrder(t, backendclient.CreateOrderRequest{TargetKind: "link", TargetID: FixedLinkID})
		payment := f.authorize(t, order.OrderID, OutcomeSuccess)
		declined := f.authorize(t, order.OrderID, OutcomeFailure)
		assert.Equal(t, PaymentFailed, declined.Status)
		assert.Empty(t, declined.Signature)
		assert.NotEmpty(t, declined.Reason)

		claims := map[string]backendclient.VerifyPaymentRequest{
			"bad signature":      {OrderID: order.OrderID, PaymentID: payment.PaymentID, Signature: "deadbeef", TargetID: FixedLinkID},
			"other target":       {OrderID: order.OrderID, PaymentID: payment.PaymentID, Signature: payment.Signature, TargetID: VariableLinkID},
			"unknown order":      {OrderID: "order_x", PaymentID: payment.PaymentID, Signature: f.signer.sign("order_x", payment.PaymentID), TargetID: FixedLinkID},
			"unknown payment":    {OrderID: order.OrderID, PaymentID: "pay_x", Signature: f.signer.sign(order.OrderID, "pay_x"), TargetID: FixedLinkID},
			"declined payment":   {OrderID: order.OrderID, PaymentID: declined.PaymentID, Signature: f.signer.sign(order.OrderID, declined.PaymentID), TargetID: FixedLinkID},
			"incomplete request": {OrderID: order.OrderID, PaymentID: payment.PaymentID, TargetID: FixedLinkID},
		}
		for name, claim := range claims {
			assert.False(t, f.verify(t, claim), name)
		}
		assert.Equal(t, "active", f.target(t, APIPrefix+"/payment-links/"+FixedLinkID).Status)
	})

	t.Run("Authorizing an unknown order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		response := f.call(t, http.MethodPost, "/sandbox/gateway/authorize", AuthorizeRequest{OrderID: "order_x", Outcome: OutcomeSuccess})
		assert.Equal(t, http.StatusNotFound, response.Code)
	})
}

func TestHostedPage(t *testing.T) {
	hostedFields := func(order backendclient.CreateOrderResponse) url.Values {
		form := url.Values{}
		for name, raw := range order.Redirect {
			if name == "url" {
				continue
			}
			s := ""
			if json.Unmarshal(raw, &s) != nil {
				s = string(raw)
			}
			form.Set(name, s)
		}
		return form
	}

	t.Run("Hosted page shows the order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		order := f.createOrder(t, backendclient.CreateOrderRequest{TargetKind: "link", TargetID: RedirectLinkID})
		response := f.post(t, hostedPath, hostedFields(order))
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Contains(t, response.Body.String(), "Workshop ticket")
		assert.Contains(t, response.Body.String(), `action="/sandbox/gateway/hosted/complete"`)
		assert.Contains(t, response.Body.String(), `value="order_1"`)
	})

	t.Run("Paying on hosted page settles and returns to checkout", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		order := f.createOrder(t, backendclient.CreateOrderRequest{TargetKind: "link", TargetID: RedirectLinkID})
		form := hostedFields(order)
		form.Set("outcome", "success")

		response := f.post(t, hostedPath+"/complete", form)
		assert.Equal(t, http.StatusSeeOther, response.Code)
		assert.Equal(t, hostname+"/checkout/return/link/"+RedirectLinkID+"/order_1/success?paymentId=pay_2&signature="+f.signer.sign("order_1", "pay_2"), response.Header().Get("Location"))
		assert.Equal(t, "paid", f.target(t, APIPrefix+"/payment-links/"+RedirectLinkID).Status)
	})

	t.Run("Paying a static QR code on hosted page returns verifiable artifacts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{GatewayMode: checkoutapi.GatewayModeRedirect})

		amount := int64(500)
		order := f.createOrder(t, backendclient.CreateOrderRequest{TargetKind: "qr", TargetID: StaticQRID, Amount: &amount})
		form := hostedFields(order)
		form.Set("outcome", "success")

		response := f.post(t, hostedPath+"/complete", form)
		assert.Equal(t, http.StatusSeeOther, response.Code)
		location, err := url.Parse(response.Header().Get("Location"))
		assert.NoError(t, err)
		assert.Equal(t, "/checkout/return/qr/"+StaticQRID+"/order_1/success", location.Path)
		assert.Equal(t, "pay_2", location.Query().Get("paymentId"))

		// static codes stay active, the payment itself is what gets confirmed
		assert.Equal(t, "active", f.target(t, APIPrefix+"/qr-codes/"+StaticQRID).Status)
		assert.True(t, f.verify(t, backendclient.VerifyPaymentRequest{
			OrderID:   "order_1",
			PaymentID: location.Query().Get("paymentId"),
			Signature: location.Query().Get("signature"),
			TargetID:  StaticQRID,
		}))
	})

	t.Run("Failing on hosted page leaves target unpaid", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		order := f.createOrder(t, backendclient.CreateOrderRequest{TargetKind: "link", TargetID: RedirectLinkID})
		form := hostedFields(order)
		form.Set("outcome", "failure")

		response := f.post(t, hostedPath+"/complete", form)
		assert.Equal(t, http.StatusSeeOther, response.Code)
		assert.Equal(t, hostname+"/checkout/return/link/"+RedirectLinkID+"/order_1/failure", response.Header().Get("Location"))
		assert.Equal(t, "active", f.target(t, APIPrefix+"/payment-links/"+RedirectLinkID).Status)
	})

	t.Run("Tampered amount is refused", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := setup(t, ctrl, Config{})

		order := f.createOrder(t, backendclient.CreateOrderRequest{TargetKind: "link", TargetID: RedirectLinkID})
		form := hostedFields(order)
		form.Set("amount", "100")
		form.Set("outcome", "success")

		response := f.post(t, hostedPath+"/complete", form)
		assert.Equal(t, http.StatusBadRequest, response.Code)
		assert.Equal(t, "active", f.target(t, APIPrefix+"/payment-links/"+RedirectLinkID).Status)
	})
}

func TestSeedIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := setup(t, ctrl, Config{})
	paidAt := mytime.ExampleTime

	target, found, err := f.targetStore.Get(context.TODO(), targetUID(checkoutapi.TargetKindLink, FixedLinkID))
	assert.NoError(t, err)
	assert.True(t, found)
	target.PaidAt = &paidAt
	assert.NoError(t, f.targetStore.Put(context.TODO(), targetUID(checkoutapi.TargetKindLink, FixedLinkID), target))

	sut := &service{targetStore: f.targetStore, nower: mytime.RealNower{}}
	assert.NoError(t, sut.seed(context.TODO()))

	assert.Equal(t, "paid", f.target(t, APIPrefix+"/payment-links/"+FixedLinkID).Status)
	assert.Len(t, f.targetStore.Items, len(seedTargets(mytime.ExampleTime)))
}

func TestRuntimeScript(t *testing.T) {
	script := string(RuntimeScript())
	assert.Contains(t, script, "window.Razorpay = Gateway")
	assert.Contains(t, script, "/sandbox/gateway/authorize")
	assert.Contains(t, script, "payment.failed")
}
