package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"money-tracker/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	// MaxAmountScale is the number of decimal places the store keeps
	MaxAmountScale = 2
	// MaxAmountDigits is the integer part a decimal(15,2) column can hold
	MaxAmountDigits = 13
	// maxAmountExponentScale bounds trailing zeros such as "1.000" before rescaling
	maxAmountExponentScale = 18
)

// Validator wraps the go-playground validator with custom rules and error formatting
type Validator struct {
	validate *validator.Validate
}

// GetValidate returns the underlying validator.Validate instance for use with Echo
func (v *Validator) GetValidate() *validator.Validate {
	return v.validate
}

var (
	instance *Validator
	once     sync.Once
)

// GetValidator returns the singleton validator instance
func GetValidator() *Validator {
	once.Do(func() {
		instance = NewValidator()
	})
	return instance
}

// NewValidator creates a new validator instance with custom rules and configuration
func NewValidator() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("category", validateCategory)
	_ = v.RegisterValidation("txtype", validateTransactionType)
	_ = v.RegisterValidation("amount", validateAmount)
	_ = v.RegisterValidation("calendar_date", validateCalendarDate)
	_ = v.RegisterValidation("year_month", validateYearMonth)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Struct validates s and returns the failures keyed by JSON field name.
// A nil map means s is valid.
func (v *Validator) Struct(s interface{}) (map[string]string, error) {
	err := v.validate.Struct(s)
	if err == nil {
		return nil, nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil, err
	}

	return FieldErrors(validationErrs), nil
}

// FieldErrors maps validator failures to field -> message pairs
func FieldErrors(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		fields[fe.Field()] = FormatFieldError(fe)
	}
	return fields
}

// ParseAmount parses a non-negative monetary amount with at most two decimal places
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if err := checkAmount(amount, raw); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

func checkAmount(amount decimal.Decimal, raw string) error {
	if amount.IsNegative() {
		return models.ErrInvalidAmount
	}
	// checked before Truncate, which expands the coefficient to the full exponent
	if exp := amount.Exponent(); exp > MaxAmountDigits || exp < -maxAmountExponentScale {
		return fmt.Errorf("amount %q is out of range", raw)
	}
	if !amount.Equal(amount.Truncate(MaxAmountScale)) {
		return fmt.Errorf("amount %q has more than %d decimal places", raw, MaxAmountScale)
	}
	if len(amount.Truncate(0).String()) > MaxAmountDigits {
		return fmt.Errorf("amount %q is too large", raw)
	}
	return nil
}

// ParseCalendarDate parses a YYYY-MM-DD date into UTC midnight
func ParseCalendarDate(raw string) (time.Time, error) {
	return time.Parse(models.DateLayout, strings.TrimSpace(raw))
}

// Custom validation functions

func validateCategory(fl validator.FieldLevel) bool {
	return models.IsValidCategory(fl.Field().String())
}

func validateTransactionType(fl validator.FieldLevel) bool {
	return models.IsValidTransactionType(fl.Field().String())
}

// validateAmount accepts strings and decimals that ParseAmount would accept
func validateAmount(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() == reflect.String {
		_, err := ParseAmount(field.String())
		return err == nil
	}

	if d, ok := field.Interface().(decimal.Decimal); ok {
		return checkAmount(d, "") == nil
	}

	return false
}

func validateCalendarDate(fl validator.FieldLevel) bool {
	_, err := ParseCalendarDate(fl.Field().String())
	return err == nil
}

func validateYearMonth(fl validator.FieldLevel) bool {
	_, err := time.Parse(models.MonthLayout, strings.TrimSpace(fl.Field().String()))
	return err == nil
}

// FormatFieldError converts a validator.FieldError to a human-readable message
func FormatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters long", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters long", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters long", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "category":
		return "must be one of: " + strings.Join(categoryNames(), " ")
	case "txtype":
		return "must be one of: income expense"
	case "amount":
		return "must be a non-negative number with at most 2 decimal places"
	case "calendar_date":
		return "must be a date in YYYY-MM-DD format"
	case "year_month":
		return "must be a month in YYYY-MM format"
	default:
		return fmt.Sprintf("failed validation for '%s'", fe.Tag())
	}
}

func categoryNames() []string {
	categories := models.AllCategories()
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, string(c))
	}
	return names
}
