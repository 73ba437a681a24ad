package invoice

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-invoice/internal/country"
)

var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// NewValidator returns a validator with the invoice rules registered:
// "gstin" checks the 15 character GSTIN layout and "placeofsupply" requires
// a known two-digit state prefix.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("gstin", func(fl validator.FieldLevel) bool {
		return gstinPattern.MatchString(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
	})
	_ = v.RegisterValidation("placeofsupply", func(fl validator.FieldLevel) bool {
		_, ok := country.StateName(fl.Field().String())
		return ok
	})
	return v
}

// FieldError is one entry of a VALIDATION_ERROR response.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// ValidationDetails flattens validator errors for the API response.
func ValidationDetails(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe.Namespace()), Rule: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// fieldPath drops the root struct name: "DomesticHeader.company.email" -> "company.email".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
