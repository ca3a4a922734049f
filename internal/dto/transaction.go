package dto

import (
	"time"

	"money-tracker/internal/editor"
	"money-tracker/internal/models"

	"github.com/google/uuid"
)

// TransactionRequest is the raw create/update form. Values are normalized by the editor.
type TransactionRequest struct {
	Title    string `json:"title"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
	Date     string `json:"date"`
	Type     string `json:"type"`
}

// ToForm converts the request into an editor form
func (r TransactionRequest) ToForm() editor.Form {
	return editor.Form{
		Title:    r.Title,
		Amount:   r.Amount,
		Category: r.Category,
		Date:     r.Date,
		Type:     r.Type,
	}
}

// TransactionFilters contains filtering options for transaction queries
type TransactionFilters struct {
	Category string `query:"category"`
	Type     string `query:"type"`
}

// TransactionResponse is a stored transaction as returned by the API
type TransactionResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Amount    string    `json:"amount"`
	Type      string    `json:"type"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ToTransactionResponse maps a transaction model to its API shape
func ToTransactionResponse(tx *models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        tx.ID,
		Title:     tx.Title,
		Category:  string(tx.Category),
		Amount:    tx.Amount.StringFixed(2),
		Type:      string(tx.Type),
		Date:      tx.DateKey(),
		CreatedAt: tx.CreatedAt,
		UpdatedAt: tx.UpdatedAt,
	}
}

// ToTransactionResponses maps a list, never returning nil
func ToTransactionResponses(transactions []models.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		out = append(out, ToTransactionResponse(&transactions[i]))
	}
	return out
}

// AppliedFilters echoes the normalized filter values back to the client
type AppliedFilters struct {
	Category string `json:"category"`
	Type     string `json:"type"`
}

// ListTransactionsResponse represents the response for listing transactions
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Filters      AppliedFilters        `json:"filters"`
	Count        int                   `json:"count"`
}

// SnapshotEvent is one server-sent snapshot of a live transaction query
type SnapshotEvent struct {
	Sequence     uint64                `json:"sequence"`
	At           time.Time             `json:"at"`
	Transactions []TransactionResponse `json:"transactions"`
}

// CategoriesResponse lists the accepted category and type values
type CategoriesResponse struct {
	Categories      []string `json:"categories"`
	CategoryFilters []string `json:"categoryFilters"`
	Types           []string `json:"types"`
	TypeFilters     []string `json:"typeFilters"`
}

// NewCategoriesResponse builds the fixed enum listing
func NewCategoriesResponse() CategoriesResponse {
	categories := make([]string, 0, len(models.AllCategories()))
	for _, c := range models.AllCategories() {
		categories = append(categories, string(c))
	}
	return CategoriesResponse{
		Categories:      categories,
		CategoryFilters: models.CategoryFilterOptions(),
		Types:           []string{string(models.TransactionTypeIncome), string(models.TransactionTypeExpense)},
		TypeFilters:     models.TypeFilterOptions(),
	}
}

// PaginationInfo contains pagination metadata
type PaginationInfo struct {
	HasMore bool  `json:"hasMore"`
	Offset  int   `json:"offset"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
}
