package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate *validator.Validate

// maxCost is the largest cost that fits NUMERIC(10, 2).
var maxCost = decimal.New(1, 8)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	validate.RegisterStructValidation(validateItemInput, ItemInput{})
}

func validateItemInput(sl validator.StructLevel) {
	in := sl.Current().Interface().(ItemInput)
	if !in.Cost.Valid {
		return
	}
	cost := in.Cost.Decimal
	switch {
	case cost.IsNegative() || cost.GreaterThanOrEqual(maxCost):
		sl.ReportError(in.Cost, "cost", "Cost", "cost_range", "")
	case !cost.Equal(cost.Round(2)):
		sl.ReportError(in.Cost, "cost", "Cost", "cost_precision", "")
	}
}

// Validate checks s against its validate tags. Failures wrap ErrInvalidInput
// and name every offending field.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "datetime":
		return field + " must be a date in YYYY-MM-DD format"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "cost_range":
		return "cost must be between 0 and 99999999.99"
	case "cost_precision":
		return "cost must have at most 2 decimal places"
	}
	return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
}
