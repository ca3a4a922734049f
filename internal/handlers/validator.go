package handlers

import (
	stderrors "errors"

	"money-tracker/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator implements echo.Validator interface
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a validator with the domain tags registered
func NewValidator() echo.Validator {
	return &CustomValidator{validator: validation.GetValidator().GetValidate()}
}

// Validate implements the echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// validateRequest runs the echo validator and returns field -> message pairs,
// or nil when req is valid
func validateRequest(c echo.Context, req interface{}) map[string]string {
	err := c.Validate(req)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if stderrors.As(err, &validationErrs) {
		return validation.FieldErrors(validationErrs)
	}
	return map[string]string{"request": err.Error()}
}
