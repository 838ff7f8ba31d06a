package sandbox

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/goswami6/satyampay-checkout/lib/mycontext"
	"github.com/goswami6/satyampay-checkout/lib/myerrors"
	"github.com/goswami6/satyampay-checkout/lib/myhttp"
	"github.com/goswami6/satyampay-checkout/lib/mylog"
	"github.com/goswami6/satyampay-checkout/lib/mystore"
	"github.com/goswami6/satyampay-checkout/lib/mytime"
	"github.com/goswami6/satyampay-checkout/lib/myuuid"
	"github.com/goswami6/satyampay-checkout/services/backendclient"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
)

const (
	APIPrefix    = "/sandbox/api"
	APIKeyHeader = "X-Api-Key"
)

//go:embed templates static
var assetFolder embed.FS
var hostedPageTemplate *template.Template

func init() {
	hostedPageTemplate = template.Must(template.ParseFS(assetFolder, "templates/hosted.html"))
}

// RuntimeScript is a stand-in for the embedded gateway runtime, exposing the same browser api.
func RuntimeScript() []byte {
	script, err := assetFolder.ReadFile("static/runtime.js")
	if err != nil {
		panic(fmt.Sprintf("sandbox runtime missing: %s", err))
	}
	return script
}

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(cfg Config, targetStore mystore.Store[Target], orderStore mystore.Store[Order], paymentStore mystore.Store[Payment], nower mytime.Nower, uuider myuuid.UUIDer) *webService {
	logger := mylog.New("sandbox")
	return &webService{
		logger:  logger,
		service: newService(cfg, targetStore, orderStore, paymentStore, nower, uuider, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	err := s.service.seed(c)
	if err != nil {
		return fmt.Errorf("error seeding sandbox: %s", err)
	}

	api := router.PathPrefix(APIPrefix).Subrouter()
	api.Use(s.requireAPIKey)
	api.HandleFunc("/payment-links/{id}", s.targetPage(checkoutapi.TargetKindLink)).Methods("GET")
	api.HandleFunc("/qr-codes/{id}", s.targetPage(checkoutapi.TargetKindQR)).Methods("GET")
	api.HandleFunc("/orders", s.createOrderPage()).Methods("POST")
	api.HandleFunc("/payments/verify", s.verifyPage()).Methods("POST")

	router.HandleFunc("/sandbox/gateway/authorize", s.authorizePage()).Methods("POST")
	router.HandleFunc(hostedPath, s.hostedPage()).Methods("POST")
	router.HandleFunc(hostedPath+"/complete", s.hostedCompletePage()).Methods("POST")

	return nil
}

func (s *webService) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.service.cfg.APIKey != "" && r.Header.Get(APIKeyHeader) != s.service.cfg.APIKey {
			c := mycontext.ContextFromHTTPRequest(r)
			s.writeAPIError(c, w, myerrors.NewAuthenticationError(ErrAPIKeyInvalid))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// errorCode is what the backend puts in its error body.
func errorCode(err error) string {
	switch {
	case errors.Is(err, checkoutapi.ErrAlreadyPaid):
		return backendclient.ErrorCodeAlreadyPaid
	case errors.Is(err, checkoutapi.ErrTargetNotFound):
		return backendclient.ErrorCodeNotFound
	case errors.Is(err, checkoutapi.ErrTargetExpired):
		return backendclient.ErrorCodeExpired
	case errors.Is(err, ErrAmountInvalid):
		return "invalid_amount"
	case errors.Is(err, ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, ErrAPIKeyInvalid):
		return "unauthorized"
	case myerrors.GetHTTPStatus(err) == http.StatusBadRequest:
		return "invalid_request"
	default:
		return "internal_error"
	}
}

func (s *webService) writeAPIError(c context.Context, w http.ResponseWriter, err error) {
	status := myerrors.GetHTTPStatus(err)
	s.logger.Log(c, "", mylog.SeverityWarn, "Sandbox error response: http-status:%d, error-msg:%s", status, err)
	myhttp.NewWriter(s.logger).Write(c, w, status, backendclient.ErrorResponse{
		Code:    errorCode(err),
		Message: myerrors.Cause(err).Error(),
	})
}

func decodeJSON(r *http.Request, target interface{}) error {
	err := json.NewDecoder(r.Body).Decode(target)
	if err != nil {
		return myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %s", err))
	}
	return nil
}

func (s *webService) targetPage(kind checkoutapi.TargetKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		resp, err := s.service.getTarget(c, kind, mux.Vars(r)["id"])
		if err != nil {
			s.writeAPIError(c, w, err)
			return
		}

		myhttp.NewWriter(s.logger).Write(c, w, http.StatusOK, resp)
	}
}

func (s *webService) createOrderPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		req := backendclient.CreateOrderRequest{}
		err := decodeJSON(r, &req)
		if err != nil {
			s.writeAPIError(c, w, err)
			return
		}

		resp, err := s.service.createOrder(c, myhttp.HostnameWithScheme(r), req)
		if err != nil {
			s.writeAPIError(c, w, err)
			return
		}

		myhttp.NewWriter(s.logger).Write(c, w, http.StatusCreated, resp)
	}
}

func (s *webService) verifyPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		req := backendclient.VerifyPaymentRequest{}
		err := decodeJSON(r, &req)
		if err != nil {
			s.writeAPIError(c, w, err)
			return
		}

		verified, err := s.service.verifyPayment(c, req)
		if err != nil {
			s.writeAPIError(c, w, err)
			return
		}

		myhttp.NewWriter(s.logger).Write(c, w, http.StatusOK, backendclient.VerifyPaymentResponse{
			Verified: &verified,
		})
	}
}

func (s *webService) authorizePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := AuthorizeRequest{}
		err := decodeJSON(r, &req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		resp, err := s.service.authorize(c, req)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, resp)
	}
}

type HostedForm struct {
	TxnID       string  `form:"txnid"`
	Amount      string  `form:"amount"`
	Currency    string  `form:"currency"`
	ProductInfo string  `form:"productinfo"`
	FirstName   string  `form:"firstname"`
	Hash        string  `form:"hash"`
	Outcome     Outcome `form:"outcome"`
}

func newHostedFormFromRequest(r *http.Request) (HostedForm, error) {
	form := HostedForm{}
	err := r.ParseForm()
	if err != nil {
		return form, myerrors.NewInvalidInputError(err)
	}
	err = checkoutapi.DecodeValues(r.PostForm, &form)
	return form, err
}

type hostedView struct {
	HostedForm
	Action          string
	FormattedAmount string
}

func (s *webService) hostedPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		form, err := newHostedFormFromRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		order, found, err := s.service.fetchOrder(c, form.TxnID)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}
		if !found {
			errorWriter.WriteError(c, w, 3, myerrors.NewNotFoundError(fmt.Errorf("%w: %s", ErrOrderNotFound, form.TxnID)))
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = hostedPageTemplate.Execute(w, hostedView{
			HostedForm:      form,
			Action:          hostedPath + "/complete",
			FormattedAmount: checkoutapi.FormatAmount(order.Amount, order.Currency),
		})
		if err != nil {
			s.logger.Log(c, form.TxnID, mylog.SeverityError, "Error rendering hosted page: %s", err)
		}
	}
}

func (s *webService) hostedCompletePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		form, err := newHostedFormFromRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		location, err := s.service.completeHosted(c, myhttp.HostnameWithScheme(r), form.TxnID, form.Amount, form.Hash, form.Outcome)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		http.Redirect(w, r, location, http.StatusSeeOther)
	}
}
