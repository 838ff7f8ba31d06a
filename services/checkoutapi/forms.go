package checkoutapi

import (
	"fmt"
	"net/http"
	"net/url"

	formcodec "github.com/go-playground/form/v4"

	"github.com/goswami6/satyampay-checkout/lib/myerrors"
)

// PayForm is posted when the payer presses pay. Amount stays a string so
// the amount rules decide what is acceptable.
type PayForm struct {
	Amount string    `form:"amount"`
	Payer  PayerInfo `form:"payer"`
}

type FailureForm struct {
	OrderID string `form:"orderId"`
	Reason  string `form:"reason"`
}

func NewPayFormFromRequest(r *http.Request) (PayForm, error) {
	form := PayForm{}
	err := decodeRequest(r, &form)
	return form, err
}

func NewCompletionFromRequest(r *http.Request) (CompletionArtifacts, error) {
	artifacts := CompletionArtifacts{}
	err := decodeRequest(r, &artifacts)
	return artifacts, err
}

func NewFailureFormFromRequest(r *http.Request) (FailureForm, error) {
	form := FailureForm{}
	err := decodeRequest(r, &form)
	return form, err
}

func decodeRequest(r *http.Request, target interface{}) error {
	err := r.ParseForm()
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}
	return DecodeValues(r.Form, target)
}

func DecodeValues(values url.Values, target interface{}) error {
	err := formcodec.NewDecoder().Decode(target, values)
	if err != nil {
		return myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err))
	}
	return nil
}

func (f PayForm) ToForm() (url.Values, error) {
	values, err := formcodec.NewEncoder().Encode(f)
	if err != nil {
		return nil, fmt.Errorf("error encoding form: %s", err)
	}
	return values, nil
}
