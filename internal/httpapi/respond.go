package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/p-n-ai/pai-quest/internal/platform/apperr"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"internal","message":"failed to encode response"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError responds with the status for err. Internal errors are logged
// and their details withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := errorDetail{Message: err.Error()}

	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &ve):
		first := ve[0]
		detail.Code = "validation_failed"
		detail.Field = first.Field()
		detail.Message = fmt.Sprintf("field %q failed on the %q rule", first.Field(), first.Tag())
		status = http.StatusBadRequest
	case status == http.StatusNotFound:
		detail.Code = "not_found"
	case status == http.StatusBadRequest:
		detail.Code = "invalid_input"
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		detail.Code = "internal"
		detail.Message = "internal server error"
	}
	writeJSON(w, status, errorBody{Error: detail})
}

// decodeJSON reads a single JSON object into dst and validates it.
func (s *Server) decodeJSON(r *http.Request, dst any) error {
	const op = "httpapi.decodeJSON"

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Invalid(op, "malformed request body: %v", err)
	}
	if dec.More() {
		return apperr.Invalid(op, "request body must hold a single JSON object")
	}
	return s.validate.Struct(dst)
}
