package myerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	cause := errors.New("payment link not found")

	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "Plain error", err: cause, status: http.StatusInternalServerError},
		{name: "Nil error", err: nil, status: http.StatusInternalServerError},
		{name: "Invalid input", err: NewInvalidInputError(cause), status: http.StatusBadRequest},
		{name: "Invalid input formatted", err: NewInvalidInputErrorf("amount %q", "12.345"), status: http.StatusBadRequest},
		{name: "Authentication", err: NewAuthenticationError(cause), status: http.StatusForbidden},
		{name: "Not found", err: NewNotFoundError(cause), status: http.StatusNotFound},
		{name: "Conflict", err: NewConflictError(cause), status: http.StatusConflict},
		{name: "Gone", err: NewGoneError(cause), status: http.StatusGone},
		{name: "Internal", err: NewInternalError(cause), status: http.StatusInternalServerError},
		{name: "Bad gateway", err: NewBadGatewayError(cause), status: http.StatusBadGateway},
		{name: "Unavailable", err: NewUnavailableError(cause), status: http.StatusServiceUnavailable},
		{name: "Wrapped once more", err: fmt.Errorf("resolving qr: %w", NewGoneError(cause)), status: http.StatusGone},
		{name: "Outermost status wins", err: NewBadGatewayError(fmt.Errorf("%w", NewNotFoundError(cause))), status: http.StatusBadGateway},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, GetHTTPStatus(tc.err))
		})
	}
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "status: 404, err: payment link not found", NewNotFoundError(errors.New("payment link not found")).Error())
	assert.Equal(t, "status: 400, err: amount \"12.345\"", NewInvalidInputErrorf("amount %q", "12.345").Error())
}

func TestCause(t *testing.T) {
	sentinel := errors.New("already paid")

	err := NewConflictError(fmt.Errorf("%w: backend said so", sentinel))

	assert.True(t, errors.Is(err, sentinel))
	assert.Equal(t, sentinel, Cause(err))
	assert.Equal(t, sentinel, Cause(sentinel))
}
