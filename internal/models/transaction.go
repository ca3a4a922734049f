package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType distinguishes money coming in from money going out
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"

	// DefaultTransactionType is what a blank form starts with
	DefaultTransactionType = TransactionTypeExpense

	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"

	MaxTitleLength = 255
)

var (
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidCategory        = errors.New("invalid category")
	ErrInvalidAmount          = errors.New("transaction amount must not be negative")
	ErrTitleRequired          = errors.New("title is required")
	ErrTitleTooLong           = fmt.Errorf("title must not exceed %d characters", MaxTitleLength)
	ErrOwnerRequired          = errors.New("owner ID is required")
	ErrDateRequired           = errors.New("date is required")
)

// Transaction is a single income or expense entry owned by one user
type Transaction struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_owner_date,priority:1" json:"owner_id"`
	Title     string          `gorm:"type:varchar(255);not null" json:"title"`
	Category  Category        `gorm:"type:varchar(20);not null;index" json:"category"`
	Amount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Type      TransactionType `gorm:"type:varchar(10);not null;index" json:"type"`
	Date      time.Time       `gorm:"type:date;not null;index:idx_transactions_owner_date,priority:2" json:"date"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null" json:"updated_at"`
}

// BeforeCreate hook for Transaction
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	t.Date = TruncateToDate(t.Date)

	return t.Validate()
}

// BeforeUpdate hook for Transaction
func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	t.Date = TruncateToDate(t.Date)
	return t.Validate()
}

// Validate checks the invariants every stored transaction must hold
func (t *Transaction) Validate() error {
	if t.OwnerID == uuid.Nil {
		return ErrOwnerRequired
	}

	title := strings.TrimSpace(t.Title)
	if title == "" {
		return ErrTitleRequired
	}
	if len(title) > MaxTitleLength {
		return ErrTitleTooLong
	}

	if !IsValidCategory(string(t.Category)) {
		return ErrInvalidCategory
	}

	if !IsValidTransactionType(string(t.Type)) {
		return ErrInvalidTransactionType
	}

	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}

	if t.Date.IsZero() {
		return ErrDateRequired
	}

	return nil
}

// DateKey returns the day bucket key (YYYY-MM-DD)
func (t *Transaction) DateKey() string {
	return t.Date.Format(DateLayout)
}

// MonthKey returns the month bucket key (YYYY-MM)
func (t *Transaction) MonthKey() string {
	return t.Date.Format(MonthLayout)
}

// IsIncome reports whether the transaction adds to the balance
func (t *Transaction) IsIncome() bool {
	return t.Type == TransactionTypeIncome
}

// IsExpense reports whether the transaction subtracts from the balance
func (t *Transaction) IsExpense() bool {
	return t.Type == TransactionTypeExpense
}

// TableName specifies the table name for Transaction
func (t *Transaction) TableName() string {
	return "transactions"
}

// IsValidTransactionType checks if a transaction type is valid
func IsValidTransactionType(transactionType string) bool {
	switch TransactionType(transactionType) {
	case TransactionTypeIncome, TransactionTypeExpense:
		return true
	default:
		return false
	}
}

// TypeFilterOptions returns the values accepted by the type filter
func TypeFilterOptions() []string {
	return []string{FilterAll, string(TransactionTypeIncome), string(TransactionTypeExpense)}
}

// TruncateToDate drops the time of day, keeping the calendar date as seen in t's own location
func TruncateToDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
