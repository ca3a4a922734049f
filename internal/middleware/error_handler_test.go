package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"money-tracker/internal/handlers"
	"money-tracker/internal/repositories"
	"money-tracker/internal/services"
	"money-tracker/internal/validation"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
)

// ErrorHandlerTestSuite defines the test suite for error handler middleware
type ErrorHandlerTestSuite struct {
	suite.Suite
	echo *echo.Echo
}

// SetupTest runs before each test
func (s *ErrorHandlerTestSuite) SetupTest() {
	s.echo = echo.New()
	s.echo.HTTPErrorHandler = CustomHTTPErrorHandler
}

func TestErrorHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ErrorHandlerTestSuite))
}

func (s *ErrorHandlerTestSuite) newContext() (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.Set(TraceIDContextKey, "test-trace-id")
	return c, rec
}

func jsonUnmarshal(rec *httptest.ResponseRecorder, v interface{}) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}

func (s *ErrorHandlerTestSuite) TestCustomHTTPErrorHandler_EchoHTTPError() {
	c, rec := s.newContext()

	CustomHTTPErrorHandler(echo.NewHTTPError(http.StatusNotFound, "Resource not found"), c)

	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Body.String(), "test-trace-id")
	s.Contains(rec.Body.String(), "Resource not found")
	s.Contains(rec.Body.String(), "SYSTEM_007")
}

func (s *ErrorHandlerTestSuite) TestCustomHTTPErrorHandler_GenericError() {
	c, rec := s.newContext()

	CustomHTTPErrorHandler(errors.New("pq: connection refused"), c)

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "SYSTEM_001")
	s.NotContains(rec.Body.String(), "connection refused")
}

func (s *ErrorHandlerTestSuite) TestCustomHTTPErrorHandler_NoTraceID() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	CustomHTTPErrorHandler(errors.New("test error"), c)

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "unknown")
}

func (s *ErrorHandlerTestSuite) TestCustomHTTPErrorHandler_CommittedResponse() {
	c, rec := s.newContext()

	_ = c.JSON(http.StatusOK, map[string]string{"status": "ok"})

	CustomHTTPErrorHandler(errors.New("test error"), c)

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "ok")
}

func (s *ErrorHandlerTestSuite) TestCustomHTTPErrorHandler_ValidatorErrors() {
	type payload struct {
		Description string `validate:"required"`
	}
	err := validation.GetValidator().GetValidate().Struct(payload{})
	s.Require().Error(err)

	c, rec := s.newContext()
	CustomHTTPErrorHandler(err, c)

	s.Equal(http.StatusBadRequest, rec.Code)
	resp := handlers.ErrorResponse{}
	s.Require().NoError(jsonUnmarshal(rec, &resp))
	s.Equal("VALIDATION_001", resp.Error.Code)
	s.NotEmpty(resp.Error.Details)
}

func (s *ErrorHandlerTestSuite) TestCustomHTTPErrorHandler_DomainErrors() {
	testCases := []struct {
		name         string
		err          error
		expectedCode string
		status       int
	}{
		{"transaction not found", fmt.Errorf("get: %w", repositories.ErrTransactionNotFound), "TRANSACTION_001", http.StatusNotFound},
		{"confirmation required", services.ErrConfirmationRequired, "TRANSACTION_004", http.StatusUnprocessableEntity},
		{"locked account", services.ErrAccountLocked, "AUTH_006", http.StatusForbidden},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			c, rec := s.newContext()

			CustomHTTPErrorHandler(tc.err, c)

			s.Equal(tc.status, rec.Code)
			s.Contains(rec.Body.String(), tc.expectedCode)
		})
	}
}

func (s *ErrorHandlerTestSuite) TestMapHTTPStatusToErrorCode_AllStatuses() {
	testCases := []struct {
		status       int
		expectedCode string
	}{
		{http.StatusBadRequest, "VALIDATION_001"},
		{http.StatusUnauthorized, "AUTH_002"},
		{http.StatusForbidden, "AUTH_006"},
		{http.StatusNotFound, "SYSTEM_007"},
		{http.StatusMethodNotAllowed, "VALIDATION_001"},
		{http.StatusUnprocessableEntity, "TRANSACTION_005"},
		{http.StatusTooManyRequests, "SYSTEM_006"},
		{http.StatusInternalServerError, "SYSTEM_001"},
		{http.StatusBadGateway, "STORE_001"},
		{http.StatusServiceUnavailable, "SYSTEM_003"},
		{999, "SYSTEM_005"},
	}

	for _, tc := range testCases {
		s.Run(fmt.Sprintf("status_%d", tc.status), func() {
			c, rec := s.newContext()

			CustomHTTPErrorHandler(echo.NewHTTPError(tc.status), c)

			s.Equal(tc.status, rec.Code)
			s.Contains(rec.Body.String(), tc.expectedCode)
		})
	}
}

func (s *ErrorHandlerTestSuite) TestCustomHTTPErrorHandler_JSONFormat() {
	c, rec := s.newContext()

	CustomHTTPErrorHandler(errors.New("test error"), c)

	s.Contains(rec.Header().Get("Content-Type"), "application/json")
}
