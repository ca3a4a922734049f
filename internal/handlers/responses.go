package handlers

import (
	stderrors "errors"
	"net/http"

	"money-tracker/internal/errors"
	"money-tracker/internal/repositories"
	"money-tracker/internal/services"

	"github.com/labstack/echo/v4"
)

// STANDARDIZED ERROR HANDLING PATTERNS
//
// Handlers report failures through one of three helpers:
//
// 1. SendError - a known error code (4xx), e.g.
//    SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
//
// 2. SendDomainError - an error returned by a service. Domain errors are
//    mapped to their code; anything unrecognized becomes a system error.
//
// 3. SendSystemError - internal failures that must not leak details (500)
//
// DO NOT USE echo.NewHTTPError() or c.JSON() for errors in handlers.

const (
	// TraceIDContextKey is the context key for storing the trace ID
	TraceIDContextKey = "trace_id"
)

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Data    interface{} `json:"data,omitempty" swaggertype:"object"`
	Message string      `json:"message,omitempty"`
	Meta    interface{} `json:"meta,omitempty" swaggertype:"object"`
}

// ErrorResponse is an alias for the standardized error response type
type ErrorResponse = errors.ErrorResponse

// getTraceID extracts the trace ID from the Echo context
func getTraceID(c echo.Context) string {
	traceID, ok := c.Get(TraceIDContextKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// SendError sends a standardized error response with trace ID from context
func SendError(c echo.Context, code errors.ErrorCode, opts ...errors.ErrorOption) error {
	traceID := getTraceID(c)
	errorResponse := errors.NewErrorResponse(code, traceID, opts...)
	return c.JSON(errorResponse.GetHTTPStatus(), errorResponse)
}

// SendSystemError wraps a system error with generic message
func SendSystemError(c echo.Context, err error) error {
	traceID := getTraceID(c)
	errorResponse, _ := errors.WrapSystemError(err, traceID)
	return c.JSON(http.StatusInternalServerError, errorResponse)
}

// SendValidationError reports field -> message pairs as a validation failure
func SendValidationError(c echo.Context, fields map[string]string) error {
	return c.JSON(http.StatusBadRequest, errors.NewValidationError(fields, getTraceID(c)))
}

// SendDomainError maps an error returned by a service to its response
func SendDomainError(c echo.Context, err error) error {
	code, opts, ok := MapDomainError(err)
	if !ok {
		return SendSystemError(c, err)
	}
	return SendError(c, code, opts...)
}

// MapDomainError resolves the error code for a service error. ok is false
// when err is not a recognized domain error.
func MapDomainError(err error) (errors.ErrorCode, []errors.ErrorOption, bool) {
	if validationErr, ok := errors.AsValidation(err); ok {
		return errors.ValidationGeneral, []errors.ErrorOption{errors.WithDetails(validationErr.Details()...)}, true
	}
	if _, ok := errors.AsAuth(err); ok {
		return errors.AuthMissingToken, nil, true
	}
	// the store's own message is surfaced as-is
	if storeErr, ok := errors.AsStore(err); ok {
		return errors.StoreOperationFailed, []errors.ErrorOption{errors.WithMessage(storeErr.Err.Error())}, true
	}

	var tooShort *services.PasswordTooShortError
	switch {
	case stderrors.Is(err, repositories.ErrTransactionNotFound):
		return errors.TransactionNotFound, nil, true
	case stderrors.Is(err, services.ErrConfirmationRequired):
		return errors.TransactionConfirmationRequired, nil, true
	case stderrors.Is(err, services.ErrInvalidCredentials):
		return errors.AuthInvalidCredentials, nil, true
	case stderrors.Is(err, services.ErrAccountLocked):
		return errors.AuthAccountLocked, nil, true
	case stderrors.Is(err, services.ErrUserAlreadyExists):
		return errors.AuthEmailTaken, nil, true
	case stderrors.Is(err, services.ErrInvalidRefreshToken):
		return errors.AuthInvalidTokenFormat, []errors.ErrorOption{errors.WithDetails("Invalid or expired refresh token")}, true
	case stderrors.Is(err, services.ErrInvalidGoogleCredential),
		stderrors.Is(err, services.ErrGoogleEmailUnverified):
		return errors.AuthFederatedRejected, []errors.ErrorOption{errors.WithDetails(err.Error())}, true
	case stderrors.Is(err, services.ErrFederatedSignInDisabled):
		return errors.SystemServiceUnavailable, []errors.ErrorOption{errors.WithDetails(err.Error())}, true
	case stderrors.Is(err, repositories.ErrUserNotFound):
		return errors.AuthInvalidCredentials, nil, true
	case stderrors.As(err, &tooShort),
		stderrors.Is(err, services.ErrPasswordEmpty),
		stderrors.Is(err, services.ErrPasswordTooLong),
		stderrors.Is(err, services.ErrPasswordNoUppercase),
		stderrors.Is(err, services.ErrPasswordNoLowercase),
		stderrors.Is(err, services.ErrPasswordNoNumber):
		return errors.ValidationGeneral, []errors.ErrorOption{errors.WithDetails("password: " + err.Error())}, true
	}

	return "", nil, false
}
