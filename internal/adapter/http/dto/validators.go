package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"order-payments/internal/core/domain"
	"order-payments/pkg/apperror"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Visible ASCII only: no whitespace or control characters.
var idempotencyKeyRe = regexp.MustCompile(`^[\x21-\x7E]+$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("idempotency_key", validateIdempotencyKey)
		v.RegisterTagNameFunc(fieldName)
	}
}

// validateIdempotencyKey accepts printable, non-space ASCII up to
// domain.MaxIdempotencyKeyLength bytes.
func validateIdempotencyKey(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true // optional header; use "required" tag to enforce presence
	}
	return len(raw) <= domain.MaxIdempotencyKeyLength && idempotencyKeyRe.MatchString(raw)
}

// fieldName reports fields by their JSON, header or form name.
func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "header", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return fld.Name
}

// BindError converts a gin binding error into a VAL_001 error with
// per-field messages where the failing field is known. Oversized bodies
// map to VAL_002.
func BindError(err error) *apperror.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
		}
		return apperror.ValidationFields(fields)
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.ErrBodyTooLarge()
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperror.ValidationFields(map[string][]string{
			typeErr.Field: {fmt.Sprintf("The %s field has an invalid type.", typeErr.Field)},
		})
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return apperror.Validation("The request body must be valid JSON")
	}

	return apperror.Validation("The request body is invalid")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", fe.Field())
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s characters.", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("The %s must be at least %s.", fe.Field(), fe.Param())
	case "idempotency_key":
		return fmt.Sprintf("The %s must be at most %d visible ASCII characters.", fe.Field(), domain.MaxIdempotencyKeyLength)
	}
	return fmt.Sprintf("The %s field is invalid.", fe.Field())
}
