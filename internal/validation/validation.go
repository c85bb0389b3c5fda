// Package validation wraps go-playground/validator with English messages
// keyed by JSON field names.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/shopspring/decimal"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)
)

const (
	phoneTag    = "phone"
	notBlankTag = "notblank"
	decGtTag    = "dgt"
	decGteTag   = "dgte"
)

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation(phoneTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && (s == "" || phonePattern.MatchString(s))
	})
	_ = Validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	})
	_ = Validate.RegisterValidation(decGtTag, decimalCompare(func(c int) bool { return c > 0 }))
	_ = Validate.RegisterValidation(decGteTag, decimalCompare(func(c int) bool { return c >= 0 }))

	registerTranslations()
}

func decimalCompare(ok func(int) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		var d decimal.Decimal
		switch v := fl.Field().Interface().(type) {
		case decimal.Decimal:
			d = v
		case *decimal.Decimal:
			if v == nil {
				return true
			}
			d = *v
		default:
			return false
		}
		limit, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return ok(d.Cmp(limit))
	}
}

func registerTranslations() {
	noop := func(ut.Translator) error { return nil }
	for _, tag := range []string{phoneTag, notBlankTag, decGtTag, decGteTag} {
		_ = Validate.RegisterTranslation(tag, Translator, noop, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case phoneTag:
		return "phone number must be entered in the format '+999999999', up to 15 digits"
	case notBlankTag:
		return "this field cannot be blank"
	case decGtTag:
		return fe.Field() + " must be greater than " + fe.Param()
	case decGteTag:
		return fe.Field() + " must be " + fe.Param() + " or greater"
	}
	return fe.Error()
}

// Struct validates v and converts failures into an apperr.ValidationError.
func Struct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Translate(Translator)
	}
	return apperr.ValidationFields(fields)
}

func IsPhone(s string) bool {
	return phonePattern.MatchString(s)
}
