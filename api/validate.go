package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
)

// validate is shared across request structs; validator.New() is safe for
// concurrent use once built, matching internal/config's own usage.
var validate = validator.New()

// decodeAndValidate decodes the request body into v and runs struct-tag
// validation over it, returning a ready-to-render list of field errors on
// either a decode or a validation failure.
func decodeAndValidate(r *http.Request, v any) []fieldError {
	if err := decodeJSON(r, v); err != nil {
		return []fieldError{{Detail: "invalid request body: " + err.Error()}}
	}
	if err := validate.Struct(v); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []fieldError{{Detail: err.Error()}}
		}
		out := make([]fieldError, len(verrs))
		for i, fe := range verrs {
			out[i] = fieldError{Field: fe.Field(), Detail: fe.Tag()}
		}
		return out
	}
	return nil
}
