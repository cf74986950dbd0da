package authsdk

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var fieldMessages = map[string]string{
	"required": "required",
	"email":    "must be a valid email address",
	"min":      "too short (min %s)",
	"max":      "too long (max %s)",
	"oneof":    "must be one of: %s",
}

// validateStruct returns JSON field names mapped to short messages, or nil.
func validateStruct(s any) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Tag()]
		switch {
		case !ok:
			msg = "invalid (" + fe.Tag() + ")"
		case strings.Contains(msg, "%s"):
			msg = fmt.Sprintf(msg, fe.Param())
		}
		out[fe.Field()] = msg
	}
	return out
}

// Validate checks field formats. Returns nil when the request is well formed.
func (r LoginRequest) Validate() map[string]string { return validateStruct(r) }

// Validate checks field formats. Returns nil when the request is well formed.
func (r RegisterRequest) Validate() map[string]string {
	r.FullName = strings.TrimSpace(r.FullName)
	return validateStruct(r)
}

// Validate checks field formats. Role membership is checked again server-side.
func (r InviteRequest) Validate() map[string]string { return validateStruct(r) }

func (r BootstrapRequest) Validate() map[string]string {
	r.FullName = strings.TrimSpace(r.FullName)
	return validateStruct(r)
}
