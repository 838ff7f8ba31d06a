package sandbox

import (
	"github.com/goswami6/satyampay-checkout/lib/mylog"
	"github.com/goswami6/satyampay-checkout/lib/mystore"
	"github.com/goswami6/satyampay-checkout/lib/mytime"
	"github.com/goswami6/satyampay-checkout/lib/myuuid"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
)

type service struct {
	cfg          Config
	targetStore  mystore.Store[Target]
	orderStore   mystore.Store[Order]
	paymentStore mystore.Store[Payment]
	signer       signer
	nower        mytime.Nower
	uuider       myuuid.UUIDer
	logger       mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(cfg Config, targetStore mystore.Store[Target], orderStore mystore.Store[Order], paymentStore mystore.Store[Payment], nower mytime.Nower, uuider myuuid.UUIDer, logger mylog.Logger) *service {
	if cfg.GatewayMode == "" {
		cfg.GatewayMode = checkoutapi.GatewayModeEmbedded
	}
	return &service{
		cfg:          cfg,
		targetStore:  targetStore,
		orderStore:   orderStore,
		paymentStore: paymentStore,
		signer:       newSigner(cfg.KeySecret),
		nower:        nower,
		uuider:       uuider,
		logger:       logger,
	}
}
