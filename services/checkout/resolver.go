package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goswami6/satyampay-checkout/lib/myerrors"
	"github.com/goswami6/satyampay-checkout/lib/mymetrics"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
)

// Resolution is what a payer gets to see when opening a link or scanning a code.
type Resolution struct {
	Target      checkoutapi.CheckoutTarget
	AlreadyPaid bool
	Expired     bool
}

type resolver struct {
	backend Backend
	metrics mymetrics.Recorder
}

func newResolver(backend Backend, metrics mymetrics.Recorder) resolver {
	return resolver{
		backend: backend,
		metrics: metrics,
	}
}

// Resolve has no side effects. Already paid is an outcome, not an error.
func (r resolver) Resolve(c context.Context, kind checkoutapi.TargetKind, id string) (Resolution, error) {
	if strings.TrimSpace(id) == "" {
		r.metrics.ResolutionObserved(string(kind), "not_found")
		return Resolution{}, myerrors.NewNotFoundError(checkoutapi.ErrTargetNotFound)
	}

	target, err := r.backend.GetCheckoutTarget(c, kind, id)
	if err != nil {
		switch {
		case errors.Is(err, checkoutapi.ErrAlreadyPaid):
			r.metrics.ResolutionObserved(string(kind), "already_paid")
			return Resolution{Target: terminalTarget(kind, id, checkoutapi.TargetStatusPaid), AlreadyPaid: true}, nil
		case errors.Is(err, checkoutapi.ErrTargetExpired):
			r.metrics.ResolutionObserved(string(kind), "expired")
			return Resolution{Target: terminalTarget(kind, id, checkoutapi.TargetStatusExpired), Expired: true}, nil
		case errors.Is(err, checkoutapi.ErrTargetNotFound):
			r.metrics.ResolutionObserved(string(kind), "not_found")
		default:
			r.metrics.ResolutionObserved(string(kind), "error")
		}
		return Resolution{}, err
	}

	switch target.Status {
	case checkoutapi.TargetStatusPaid:
		r.metrics.ResolutionObserved(string(kind), "already_paid")
		return Resolution{Target: target, AlreadyPaid: true}, nil
	case checkoutapi.TargetStatusExpired:
		r.metrics.ResolutionObserved(string(kind), "expired")
		return Resolution{Target: target, Expired: true}, nil
	case checkoutapi.TargetStatusNotFound:
		r.metrics.ResolutionObserved(string(kind), "not_found")
		return Resolution{}, myerrors.NewNotFoundError(checkoutapi.ErrTargetNotFound)
	case checkoutapi.TargetStatusActive:
		if target.HasCountdown() && target.RemainingSeconds <= 0 {
			r.metrics.ResolutionObserved(string(kind), "expired")
			return Resolution{Target: target, Expired: true}, nil
		}
		r.metrics.ResolutionObserved(string(kind), "active")
		return Resolution{Target: target}, nil
	default:
		r.metrics.ResolutionObserved(string(kind), "error")
		return Resolution{}, myerrors.NewBadGatewayError(fmt.Errorf("%w: unknown status %q", checkoutapi.ErrBackendUnavailable, target.Status))
	}
}

func terminalTarget(kind checkoutapi.TargetKind, id string, status checkoutapi.TargetStatus) checkoutapi.CheckoutTarget {
	return checkoutapi.CheckoutTarget{
		Kind:   kind,
		ID:     id,
		Status: status,
	}
}
