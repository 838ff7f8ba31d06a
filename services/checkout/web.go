package checkout

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/goswami6/satyampay-checkout/lib/mycontext"
	"github.com/goswami6/satyampay-checkout/lib/myerrors"
	"github.com/goswami6/satyampay-checkout/lib/myhttp"
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

//go:embed templates
var templateFolder embed.FS
var (
	checkoutPageTemplate *template.Template
	redirectPageTemplate *template.Template
	successPageTemplate  *template.Template
	failedPageTemplate   *template.Template
	errorPageTemplate    *template.Template
)

func init() {
	checkoutPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/checkout.html"))
	redirectPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/redirect.html"))
	successPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/success.html"))
	failedPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/failed.html"))
	errorPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/error.html"))
}

type Config struct {
	SessionTTL time.Duration
}

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(cfg Config, backend Backend, runtime RuntimeLoader, attemptStore mystore.Store[checkoutapi.CheckoutAttempt], nower mytime.Nower, uuider myuuid.UUIDer, newTicker mytime.TickerFactory, metrics mymetrics.Recorder, subscriber mypubsub.PubSub, publisher mypublisher.Publisher) *webService {
	logger := mylog.New("checkout")
	return &webService{
		logger:  logger,
		service: newService(cfg, backend, runtime, attemptStore, nower, uuider, newTicker, metrics, logger, subscriber, publisher),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	// Pages a payer lands on
	router.HandleFunc("/pay/{id}", s.openCheckoutPage(checkoutapi.TargetKindLink)).Methods("GET")
	router.HandleFunc("/pay/", s.openCheckoutPage(checkoutapi.TargetKindLink)).Methods("GET")
	router.HandleFunc("/qr/{id}", s.openCheckoutPage(checkoutapi.TargetKindQR)).Methods("GET")
	router.HandleFunc("/qr/", s.openCheckoutPage(checkoutapi.TargetKindQR)).Methods("GET")

	// Called by the checkout page
	router.HandleFunc("/checkout/{sessionUID}/pay", s.pay()).Methods("POST")
	router.HandleFunc("/checkout/{sessionUID}/complete", s.complete()).Methods("POST")
	router.HandleFunc("/checkout/{sessionUID}/failed", s.fail()).Methods("POST")
	router.HandleFunc("/checkout/{sessionUID}/dismiss", s.dismiss()).Methods("POST")
	router.HandleFunc("/checkout/{sessionUID}/status", s.status()).Methods("GET")
	router.HandleFunc("/checkout/{sessionUID}/close", s.close()).Methods("POST")
	router.HandleFunc("/checkout/{sessionUID}/redirect", s.redirectPage()).Methods("GET")

	// The hosted payment page sends the browser back here
	router.HandleFunc("/checkout/return/{kind}/{id}/{orderId}/{status}", s.returnPage()).Methods("GET", "POST")

	router.HandleFunc("/payment/success", s.successPage()).Methods("GET")
	router.HandleFunc("/payment/failed", s.failedPage()).Methods("GET")

	err := s.service.CreateTopics(c)
	if err != nil {
		return err
	}

	router.HandleFunc("/api/checkout/event", s.handleEventEnvelope()).Methods("POST")

	err = s.service.Subscribe(c)
	if err != nil {
		return err
	}

	return nil
}

// StartSweeper closes idle sessions until the returned function is called.
func (s *webService) StartSweeper(c context.Context, interval time.Duration) func() {
	return s.service.startSweeper(c, interval)
}

type checkoutPage struct {
	SessionUID       string
	Title            string
	Kind             checkoutapi.TargetKind
	TargetID         string
	PayeeName        string
	Description      string
	FixedAmount      bool
	FormattedAmount  string
	Currency         string
	NameRequired     bool
	HasCountdown     bool
	RemainingSeconds int64
	Urgent           bool
	Expired          bool
	ExpiredMessage   string
	Message          string
	HeartbeatSeconds int64
}

func newCheckoutPage(session *Session, heartbeat time.Duration) checkoutPage {
	view := session.View()
	target := session.Target
	return checkoutPage{
		SessionUID:       session.UID,
		Title:            target.Kind.Label(),
		Kind:             target.Kind,
		TargetID:         target.ID,
		PayeeName:        target.PayeeName,
		Description:      target.Description,
		FixedAmount:      target.AmountMode == checkoutapi.AmountModeFixed,
		FormattedAmount:  target.FormattedAmount(),
		Currency:         target.Currency,
		NameRequired:     target.Kind == checkoutapi.TargetKindQR,
		HasCountdown:     target.HasCountdown(),
		RemainingSeconds: view.RemainingSeconds,
		Urgent:           view.Urgent,
		Expired:          view.State == SessionExpired,
		ExpiredMessage:   checkoutapi.ExpiredError(target.Kind).Error(),
		Message:          view.Message,
		HeartbeatSeconds: int64(heartbeat / time.Second),
	}
}

func (s *webService) openCheckoutPage(kind checkoutapi.TargetKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		id := mux.Vars(r)["id"]

		opened, err := s.service.openCheckout(c, kind, id)
		if err != nil {
			s.renderError(c, w, kind, id, err)
			return
		}

		if opened.Redirect != "" {
			http.Redirect(w, r, opened.Redirect, http.StatusSeeOther)
			return
		}

		s.render(c, w, checkoutPageTemplate, http.StatusOK, newCheckoutPage(opened.Session, s.service.heartbeatInterval()))
	}
}

func (s *webService) pay() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		form, err := checkoutapi.NewPayFormFromRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		result, err := s.service.pay(c, mux.Vars(r)["sessionUID"], form)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, result)
	}
}

func (s *webService) complete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		artifacts, err := checkoutapi.NewCompletionFromRequest(r)
		if err != nil {
			// unreadable artifacts are not trusted either
			artifacts = checkoutapi.CompletionArtifacts{}
		}

		location, err := s.service.complete(c, mux.Vars(r)["sessionUID"], artifacts)
		if err != nil {
			s.renderError(c, w, "", "", err)
			return
		}

		http.Redirect(w, r, location, http.StatusSeeOther)
	}
}

func (s *webService) fail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		form, err := checkoutapi.NewFailureFormFromRequest(r)
		if err != nil {
			form = checkoutapi.FailureForm{}
		}

		location, err := s.service.fail(c, mux.Vars(r)["sessionUID"], form)
		if err != nil {
			s.renderError(c, w, "", "", err)
			return
		}

		http.Redirect(w, r, location, http.StatusSeeOther)
	}
}

func (s *webService) dismiss() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		view, err := s.service.dismiss(c, mux.Vars(r)["sessionUID"])
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, view)
	}
}

func (s *webService) status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		view, err := s.service.status(c, mux.Vars(r)["sessionUID"])
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, view)
	}
}

func (s *webService) close() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		s.service.close(c, mux.Vars(r)["sessionUID"])

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Checkout session closed",
		})
	}
}

func (s *webService) redirectPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		form, err := s.service.redirectForm(c, mux.Vars(r)["sessionUID"])
		if err != nil {
			s.renderError(c, w, "", "", err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		s.render(c, w, redirectPageTemplate, http.StatusOK, form)
	}
}

func (s *webService) returnPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		vars := mux.Vars(r)
		kind, err := checkoutapi.ParseTargetKind(vars["kind"])
		if err != nil {
			s.renderError(c, w, "", "", myerrors.NewNotFoundError(checkoutapi.ErrTargetNotFound))
			return
		}

		// payment id and signature arrive as query or form values, depending on the gateway
		artifacts, err := checkoutapi.NewCompletionFromRequest(r)
		if err != nil {
			artifacts = checkoutapi.CompletionArtifacts{}
		}
		artifacts.OrderID = vars["orderId"]

		location := s.service.returnFromGateway(c, kind, vars["id"], vars["status"], artifacts)

		http.Redirect(w, r, location, http.StatusSeeOther)
	}
}

type resultPage struct {
	Title    string
	Kind     checkoutapi.TargetKind
	TargetID string
	Already  bool
	RetryURL string
}

func newResultPage(r *http.Request) resultPage {
	query := r.URL.Query()
	kind, err := checkoutapi.ParseTargetKind(query.Get("kind"))
	if err != nil {
		kind = checkoutapi.TargetKindLink
	}
	page := resultPage{
		Title:    kind.Label(),
		Kind:     kind,
		TargetID: query.Get("target"),
		Already:  query.Get("already") == "true",
	}
	if page.TargetID != "" {
		page.RetryURL = retryLocation(kind, page.TargetID)
	}
	return page
}

func (s *webService) successPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		s.render(c, w, successPageTemplate, http.StatusOK, newResultPage(r))
	}
}

func (s *webService) failedPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		s.render(c, w, failedPageTemplate, http.StatusOK, newResultPage(r))
	}
}

func (s *webService) handleEventEnvelope() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := checkoutevents.DispatchEvent(c, r.Body, s.service)
		if err != nil {
			errorWriter.WriteError(c, w, 5, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed event",
		})
	}
}

type errorPage struct {
	Status   int
	Message  string
	RetryURL string
}

// renderError shows the cause to the payer, a retry link is only offered for transient failures.
func (s *webService) renderError(c context.Context, w http.ResponseWriter, kind checkoutapi.TargetKind, id string, err error) {
	status := myerrors.GetHTTPStatus(err)
	page := errorPage{
		Status:  status,
		Message: myerrors.Cause(err).Error(),
	}
	if status == http.StatusInternalServerError {
		page.Message = "Something went wrong, please try again"
	}
	if status >= http.StatusInternalServerError && kind != "" && id != "" {
		page.RetryURL = retryLocation(kind, id)
	}

	s.logger.Log(c, id, mylog.SeverityWarn, "Rendering error page (%d): %s", status, err)

	s.render(c, w, errorPageTemplate, status, page)
}

func (s *webService) render(c context.Context, w http.ResponseWriter, tmpl *template.Template, status int, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := tmpl.Execute(w, data)
	if err != nil {
		s.logger.Log(c, "", mylog.SeverityError, "Error executing template %s: %s", tmpl.Name(), err)
	}
}
