package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/goswami6/satyampay-checkout/lib/myhttpclient"
	"github.com/goswami6/satyampay-checkout/lib/mymetrics"
	"github.com/goswami6/satyampay-checkout/lib/mypublisher"
	"github.com/goswami6/satyampay-checkout/lib/mypubsub"
	"github.com/goswami6/satyampay-checkout/lib/myqueue"
	"github.com/goswami6/satyampay-checkout/lib/mystore"
	"github.com/goswami6/satyampay-checkout/lib/mytime"
	"github.com/goswami6/satyampay-checkout/lib/myuuid"
	"github.com/goswami6/satyampay-checkout/services/backendclient"
	"github.com/goswami6/satyampay-checkout/services/checkout"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
	"github.com/goswami6/satyampay-checkout/services/gatewayruntime"
	"github.com/goswami6/satyampay-checkout/services/sandbox"
	"github.com/goswami6/satyampay-checkout/services/warmup"
)

func main() {
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %s", err)
	}

	router := mux.NewRouter()

	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}

	metrics := mymetrics.New()
	metrics.RegisterEndpoints(c, router)

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		log.Fatalf("Error creating pubsub: %s", err)
	}
	defer pubsubCleanup()

	queue, queueCleanup, err := myqueue.New(c)
	if err != nil {
		log.Fatalf("Error creating queue: %s", err)
	}
	defer queueCleanup()

	publisher, publisherCleanup, err := mypublisher.New(c, pubsub, queue, nower)
	if err != nil {
		log.Fatalf("Error creating publisher: %s", err)
	}
	defer publisherCleanup()
	publisher.RegisterEndpoints(c, router)

	if cfg.SandboxEnabled {
		cleanup, err := registerSandbox(c, cfg, router, nower, uuider)
		if err != nil {
			log.Fatalf("Error creating sandbox: %s", err)
		}
		defer cleanup()
	}

	source, err := runtimeSource(cfg)
	if err != nil {
		log.Fatalf("Error configuring gateway runtime: %s", err)
	}
	loader := gatewayruntime.NewLoader(source, nower, metrics)
	loader.RegisterEndpoints(c, router)

	warmup.NewService(loader).RegisterEndpoints(c, router)

	backend := backendclient.New(cfg.BackendURL(), myhttpclient.New(
		myhttpclient.WithHeader(sandbox.APIKeyHeader, cfg.BackendAPIKey),
		myhttpclient.WithTimeout(cfg.BackendTimeout),
	))

	attemptStore, attemptStoreCleanup, err := mystore.New[checkoutapi.CheckoutAttempt](c)
	if err != nil {
		log.Fatalf("Error creating attempt store: %s", err)
	}
	defer attemptStoreCleanup()

	checkoutService := checkout.NewWebService(checkout.Config{SessionTTL: cfg.SessionTTL}, backend, loader, attemptStore, nower, uuider, mytime.NewRealTicker, metrics, pubsub, publisher)
	err = checkoutService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering checkout endpoints: %s", err)
	}
	stopSweeper := checkoutService.StartSweeper(c, cfg.SweepInterval)
	defer stopSweeper()

	startWebServerBlocking(c, cfg.Port, router)
}

func registerSandbox(c context.Context, cfg Config, router *mux.Router, nower mytime.Nower, uuider myuuid.UUIDer) (func(), error) {
	targetStore, targetCleanup, err := mystore.New[sandbox.Target](c)
	if err != nil {
		return nil, err
	}
	orderStore, orderCleanup, err := mystore.New[sandbox.Order](c)
	if err != nil {
		targetCleanup()
		return nil, err
	}
	paymentStore, paymentCleanup, err := mystore.New[sandbox.Payment](c)
	if err != nil {
		targetCleanup()
		orderCleanup()
		return nil, err
	}
	cleanup := func() {
		targetCleanup()
		orderCleanup()
		paymentCleanup()
	}

	err = sandbox.NewWebService(sandbox.Config{
		GatewayMode: cfg.SandboxGatewayMode,
		KeyID:       cfg.SandboxKeyID,
		KeySecret:   cfg.SandboxKeySecret,
		APIKey:      cfg.BackendAPIKey,
	}, targetStore, orderStore, paymentStore, nower, uuider).RegisterEndpoints(c, router)
	if err != nil {
		cleanup()
		return nil, err
	}

	log.Printf("Sandbox backend enabled (try http://localhost:%s/pay/%s or /qr/%s)", cfg.Port, sandbox.FixedLinkID, sandbox.DynamicQRID)
	return cleanup, nil
}

func runtimeSource(cfg Config) (gatewayruntime.Source, error) {
	if cfg.GatewayRuntimeURL != "" {
		return gatewayruntime.NewHTTPSource(cfg.GatewayRuntimeURL, myhttpclient.New(myhttpclient.WithTimeout(cfg.BackendTimeout))), nil
	}
	if cfg.SandboxEnabled {
		return gatewayruntime.NewStaticSource("sandbox", sandbox.RuntimeScript()), nil
	}
	return nil, fmt.Errorf("GATEWAY_RUNTIME_URL is required when the sandbox is disabled")
}

func startWebServerBlocking(c context.Context, port string, router *mux.Router) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-c.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Printf("Error shutting down webserver: %s", err)
		}
	}()

	log.Printf("Starting webserver on port %s (try http://localhost:%s)", port, port)
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Error starting webserver on port %s: %s", port, err)
	}
}
