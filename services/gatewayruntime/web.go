package gatewayruntime

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/goswami6/satyampay-checkout/lib/mycontext"
	"github.com/goswami6/satyampay-checkout/lib/myhttp"
)

const ScriptPath = "/gateway/runtime.js"

func (l *Loader) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc(ScriptPath, l.scriptPage()).Methods("GET")
}

func (l *Loader) scriptPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(l.logger)

		runtime, err := l.Ensure(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(runtime.Script)))
		w.Header().Set("Cache-Control", "public, max-age=300")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(runtime.Script)
	}
}
