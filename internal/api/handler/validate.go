package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/floodwatch/floodwatch/internal/alert"
	"github.com/floodwatch/floodwatch/internal/api/models"
	"github.com/floodwatch/floodwatch/internal/api/response"
)

// maxBodyBytes caps decoded request bodies.
const maxBodyBytes = 64 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "severity", func(fl validator.FieldLevel) bool {
		_, err := alert.ParseSeverity(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "category", func(fl validator.FieldLevel) bool {
		return alert.Category(strings.ToUpper(fl.Field().String())).Valid()
	})
	return v
}

// mustRegister adds a custom tag and panics if the validator refuses it.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %q validation: %v", tag, err))
	}
}

// decode reads a JSON body into dst and validates it. On failure it writes
// the problem response and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeBody(w, r, dst, false)
}

// decodeOptional is decode for endpoints where the whole body may be omitted.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeBody(w, r, dst, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !(optional && errors.Is(err, io.EOF)) {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return false
	}
	if errs := fieldErrors(validate.Struct(dst)); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", errs)
		return false
	}
	return true
}

func fieldErrors(err error) []models.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
			Code:    strings.ToUpper(fe.Tag()),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "severity":
		return "unknown severity"
	case "category":
		return "unknown category"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
