package contracttests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/goswami6/satyampay-checkout/lib/myhttpclient"
	"github.com/goswami6/satyampay-checkout/lib/mystore"
	"github.com/goswami6/satyampay-checkout/lib/mytime"
	"github.com/goswami6/satyampay-checkout/lib/myuuid"
	"github.com/goswami6/satyampay-checkout/services/backendclient"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
	"github.com/goswami6/satyampay-checkout/services/sandbox"
)

const sandboxAPIKey = "contract-key"

// StartSandbox runs a fresh sandbox backend on a local port. Targets without a gateway mode of
// their own use the given mode.
func StartSandbox(c context.Context, mode checkoutapi.GatewayMode) (Backend, Gateway, func(), error) {
	targetStore, _, _ := mystore.NewInMemoryStore[sandbox.Target](c)
	orderStore, _, _ := mystore.NewInMemoryStore[sandbox.Order](c)
	paymentStore, _, _ := mystore.NewInMemoryStore[sandbox.Payment](c)

	router := mux.NewRouter()
	err := sandbox.NewWebService(sandbox.Config{
		GatewayMode: mode,
		KeyID:       "rzp_test_contract",
		KeySecret:   "contract-secret",
		APIKey:      sandboxAPIKey,
	}, targetStore, orderStore, paymentStore, mytime.RealNower{}, myuuid.RealUUIDer{}).RegisterEndpoints(c, router)
	if err != nil {
		return nil, nil, nil, err
	}

	server := httptest.NewServer(router)
	backend := backendclient.New(server.URL+sandbox.APIPrefix, myhttpclient.New(myhttpclient.WithHeader(sandbox.APIKeyHeader, sandboxAPIKey)))
	gateway := &sandboxGateway{
		baseURL: server.URL,
		sender:  myhttpclient.New(),
		browser: &http.Client{
			// the return url points at the checkout front, which is not running here
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}

	return backend, gateway, server.Close, nil
}

type sandboxGateway struct {
	baseURL string
	sender  myhttpclient.HTTPSender
	browser *http.Client
}

func (g *sandboxGateway) Pay(c context.Context, orderID string, outcome sandbox.Outcome) (checkoutapi.CompletionArtifacts, error) {
	body, err := json.Marshal(sandbox.AuthorizeRequest{OrderID: orderID, Outcome: outcome})
	if err != nil {
		return checkoutapi.CompletionArtifacts{}, err
	}

	status, respBody, err := g.sender.Send(c, http.MethodPost, g.baseURL+"/sandbox/gateway/authorize", body)
	if err != nil {
		return checkoutapi.CompletionArtifacts{}, err
	}
	if status != http.StatusOK {
		return checkoutapi.CompletionArtifacts{}, fmt.Errorf("authorize %s returned %d", orderID, status)
	}

	resp := sandbox.AuthorizeResponse{}
	err = json.Unmarshal(respBody, &resp)
	if err != nil {
		return checkoutapi.CompletionArtifacts{}, err
	}

	return checkoutapi.CompletionArtifacts{
		OrderID:   resp.OrderID,
		PaymentID: resp.PaymentID,
		Signature: resp.Signature,
	}, nil
}

func (g *sandboxGateway) PayHosted(c context.Context, order checkoutapi.GatewayOrder, outcome sandbox.Outcome) (*url.URL, error) {
	if order.Redirect == nil {
		return nil, fmt.Errorf("order %s is not a redirect order", order.OrderID)
	}

	form := url.Values{}
	for name, value := range order.Redirect.Fields {
		form.Set(name, value)
	}
	form.Set("outcome", string(outcome))

	resp, err := g.browser.PostForm(order.Redirect.Target()+"/complete", form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		return nil, fmt.Errorf("hosted page for %s returned %d", order.OrderID, resp.StatusCode)
	}
	return url.Parse(resp.Header.Get("Location"))
}
