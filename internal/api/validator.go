package api

import (
	"reflect"
	"strings"

	"ece-marketplace/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// RequestValidator plugs validator/v10 into echo. Decimal fields are
// validated through their string form.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})
	_ = v.RegisterValidation("positive", positiveDecimal)
	_ = v.RegisterValidation("strategy", autoBidStrategy)
	return &RequestValidator{validate: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.validate.Struct(i); err != nil {
		return domain.Validation("%s", describe(err))
	}
	return nil
}

func decimalValue(field reflect.Value) interface{} {
	switch v := field.Interface().(type) {
	case decimal.Decimal:
		return v.String()
	case decimal.NullDecimal:
		if !v.Valid {
			return nil
		}
		return v.Decimal.String()
	}
	return nil
}

var positiveDecimal validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	d, err := decimal.NewFromString(s)
	return err == nil && d.IsPositive()
}

var autoBidStrategy validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	return ok && (s == "" || domain.AutoBidStrategy(strings.ToUpper(s)).Valid())
}

// describe turns the first failed field into a readable message.
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return "Missing required field: " + fe.Field()
	case "positive":
		return fe.Field() + " must be greater than 0"
	default:
		return "Invalid value for " + fe.Field()
	}
}
