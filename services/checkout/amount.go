package checkout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goswami6/satyampay-checkout/lib/myerrors"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
)

// resolveAmount yields the amount in minor units. Only a strictly positive integer gets through.
func resolveAmount(target checkoutapi.CheckoutTarget, input string) (int64, error) {
	if target.AmountMode == checkoutapi.AmountModeFixed {
		if target.Amount <= 0 {
			return 0, myerrors.NewInternalError(fmt.Errorf("fixed target %s without amount", target.ID))
		}
		return target.Amount, nil
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return 0, myerrors.NewInvalidInputError(checkoutapi.ErrAmountRequired)
	}
	for _, r := range input {
		if r < '0' || r > '9' {
			return 0, myerrors.NewInvalidInputError(checkoutapi.ErrAmountInvalid)
		}
	}
	amount, err := strconv.ParseInt(input, 10, 64)
	if err != nil || amount <= 0 {
		return 0, myerrors.NewInvalidInputError(checkoutapi.ErrAmountInvalid)
	}
	return amount, nil
}

func validatePayer(kind checkoutapi.TargetKind, payer checkoutapi.PayerInfo) (checkoutapi.PayerInfo, error) {
	payer = payer.Normalized()
	if kind == checkoutapi.TargetKindQR && payer.Name == "" {
		return payer, myerrors.NewInvalidInputError(checkoutapi.ErrPayerNameRequired)
	}
	err := payer.Validate()
	if err != nil {
		return payer, myerrors.NewInvalidInputError(err)
	}
	return payer, nil
}
