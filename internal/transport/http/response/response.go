package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/baechuer/curation-service/internal/domain"
	pkgctx "github.com/baechuer/curation-service/internal/pkg/context"
	zlog "github.com/rs/zerolog/log"
)

// Envelope is the body of every response:
// {"success":true,"data":...} or {"success":false,"error":{...}}
type Envelope struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Error   *ErrorPayload `json:"error,omitempty"`
}

type ErrorPayload struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// Verbose exposes the cause of data_unavailable errors to clients.
// Only main flips it, and only when APP_ENV=dev.
var Verbose = false

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Data(w http.ResponseWriter, status int, payload any) {
	JSON(w, status, Envelope{Success: true, Data: payload})
}

func Fail(w http.ResponseWriter, status int, code, message string, meta map[string]string, requestID string) {
	JSON(w, status, Envelope{
		Error: &ErrorPayload{
			Code:      code,
			Message:   message,
			Meta:      meta,
			RequestID: requestID,
		},
	})
}

// Err maps err to a status and writes the error envelope. Causes of
// DataUnavailable and foreign errors are logged, never returned.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	requestID := RequestIDFromRequest(r)

	var ae *domain.AppError
	if err == nil || !errors.As(err, &ae) {
		zlog.Error().Err(err).Str("request_id", requestID).Str("path", r.URL.Path).Msg("unhandled error")
		Fail(w, http.StatusInternalServerError, "internal_error", "internal error", nil, requestID)
		return
	}

	meta := ae.Meta
	if ae.Code == domain.CodeDataUnavailable {
		zlog.Error().Err(ae.Cause).Str("request_id", requestID).Str("path", r.URL.Path).Msg("data unavailable")
		if Verbose && ae.Cause != nil {
			meta = map[string]string{"detail": ae.Cause.Error()}
		}
	}
	Fail(w, statusFromCode(ae.Code), string(ae.Code), ae.Message, meta, requestID)
}

func statusFromCode(code domain.ErrCode) int {
	switch code {
	case domain.CodeValidation, domain.CodeRejected:
		return http.StatusUnprocessableEntity
	case domain.CodeUnauthorized:
		return http.StatusUnauthorized
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RequestIDFromRequest prefers the id stored by the RequestID middleware and
// falls back to the inbound header.
func RequestIDFromRequest(r *http.Request) string {
	if id := pkgctx.GetRequestID(r.Context()); id != "" {
		return id
	}
	if v := r.Header.Get("X-Request-Id"); v != "" {
		return v
	}
	return r.Header.Get("X-Request-ID")
}
