package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/stackmesh/platform-go/errors"
)

var validate = validator.New()

// DecodeJSON decodes the request body into dst and runs struct-tag
// validation. Failures come back as platform validation errors suitable for
// RespondAppError.
func DecodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return errors.NewValidation(fmt.Sprintf("invalid request body: %v", err))
	}
	if err := validate.Struct(dst); err != nil {
		return errors.NewValidation(fmt.Sprintf("request validation failed: %v", err))
	}
	return nil
}
