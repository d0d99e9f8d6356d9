package http

import (
	"context"
	"errors"
	"net/http"

	"spendsheet/internal/ai"
	"spendsheet/internal/core"
	"spendsheet/internal/ledger"
	"spendsheet/internal/log"
)

// requestError is a client mistake found while parsing the request.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error   { return &requestError{status: http.StatusBadRequest, msg: msg} }
func unprocessable(msg string) error { return &requestError{status: http.StatusUnprocessableEntity, msg: msg} }

var validationErrors = []error{
	core.ErrEmptyDescription,
	core.ErrDescriptionLong,
	core.ErrInvalidAmount,
	core.ErrZeroDate,
	core.ErrEmptyCategory,
	core.ErrInvalidDate,
	core.ErrBlankPassword,
}

// statusFor maps an error to its HTTP status, the error type used in logs and
// the message shown to the client. Server-side failures get a generic message.
func statusFor(err error) (int, string, string) {
	var reqErr *requestError
	var schemaErr *ledger.SchemaError
	var upstream *ai.UpstreamError
	var transport *ai.TransportError

	switch {
	case errors.As(err, &reqErr):
		return reqErr.status, log.ErrorTypeValidation, reqErr.msg
	case core.IsConfigError(err), errors.As(err, &schemaErr):
		return http.StatusInternalServerError, log.ErrorTypeConfiguration, "failed to fetch data: the store is misconfigured"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, log.ErrorTypeNotFound, err.Error()
	case errors.Is(err, core.ErrBuiltinCategory), errors.Is(err, core.ErrAlreadyExists):
		return http.StatusConflict, log.ErrorTypeConflict, err.Error()
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusForbidden, log.ErrorTypeAuth, err.Error()
	case errors.Is(err, ai.ErrNotConfigured):
		return http.StatusServiceUnavailable, log.ErrorTypeConfiguration, err.Error()
	case errors.As(err, &upstream):
		return http.StatusBadGateway, log.ErrorTypeUpstream, "the AI service returned an error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, log.ErrorTypeStore, "the request timed out"
	case errors.As(err, &transport):
		return http.StatusBadGateway, log.ErrorTypeUpstream, "failed to reach the AI service, please retry"
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity, log.ErrorTypeValidation, err.Error()
		}
	}
	return http.StatusBadGateway, log.ErrorTypeStore, "failed to reach the store, please retry"
}

// writeError logs err with the request logger and renders it as JSON.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, errType, msg := statusFor(err)
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
	fields := log.NewFields().WithOperation(op).WithErrorType(errType).WithError(err).ToSlice()
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields...)
	} else {
		logger.InfoContext(r.Context(), "Request rejected", fields...)
	}
	ErrorResponse(status, msg).Write(w)
}
