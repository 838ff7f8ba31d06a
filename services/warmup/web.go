package warmup

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/goswami6/satyampay-checkout/lib/mycontext"
	"github.com/goswami6/satyampay-checkout/lib/myhttp"
	"github.com/goswami6/satyampay-checkout/lib/mylog"
	"github.com/goswami6/satyampay-checkout/services/gatewayruntime"
)

//go:generate mockgen -source=web.go -package warmup -destination runtime_mock.go RuntimeLoader
type RuntimeLoader interface {
	Ensure(c context.Context) (gatewayruntime.Runtime, error)
}

type webService struct {
	logger mylog.Logger
	loader RuntimeLoader
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewService(loader RuntimeLoader) *webService {
	logger := mylog.New("warmup")
	return &webService{
		logger: logger,
		loader: loader,
	}
}

func (s webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/_ah/warmup", s.warmupPage()).Methods("GET")
}

// warmupPage preloads the gateway runtime so the first payer does not wait for it.
func (s *webService) warmupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		runtime, err := s.loader.Ensure(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		s.logger.Log(c, "", mylog.SeverityInfo, "Gateway runtime %s ready (%d bytes)", runtime.SourceURL, len(runtime.Script))

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed warmup request",
		})
	}
}
