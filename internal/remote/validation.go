package remote

import (
	"errors"
	"reflect"
	"strings"

	"order-portal/internal/models"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var maxTotalAmount = decimal.RequireFromString("9999999999.99")

var fieldMessages = map[string]string{
	"required":     "required",
	"email":        "invalid email format",
	"max":          "must be at most 1000 characters",
	"positive":     "must be positive",
	"max_amount":   "is too large",
	"amount_scale": "must have at most 2 decimal places",
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(createOrderStructValidation, models.CreateOrderRequest{})

	return v
}

// createOrderStructValidation checks the decimal total, which tags cannot express.
func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(models.CreateOrderRequest)

	switch {
	case !req.TotalAmount.IsPositive():
		sl.ReportError(req.TotalAmount, "totalAmount", "TotalAmount", "positive", "")
	case req.TotalAmount.GreaterThan(maxTotalAmount):
		sl.ReportError(req.TotalAmount, "totalAmount", "TotalAmount", "max_amount", "")
	case req.TotalAmount.Exponent() < -2 && !req.TotalAmount.Equal(req.TotalAmount.Round(2)):
		sl.ReportError(req.TotalAmount, "totalAmount", "TotalAmount", "amount_scale", "")
	}
}

// validateCreateOrder returns a *ValidationError keyed by JSON field name.
func validateCreateOrder(v *validatorv10.Validate, req *models.CreateOrderRequest) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validatorv10.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = fe.Error()
		}
		fields[fe.Field()] = msg
	}
	return &ValidationError{Fields: fields}
}
