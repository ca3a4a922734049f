package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"money-tracker/internal/models"
	"money-tracker/internal/query"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUnscopedQuery       = errors.New("transaction query must be scoped to an owner")
	ErrUnsupportedFilter   = errors.New("unsupported filter field")
)

// filterColumns maps filter fields to the columns they may touch
var filterColumns = map[query.Field]string{
	query.FieldOwner:    "owner_id",
	query.FieldCategory: "category",
	query.FieldType:     "type",
}

var orderColumns = map[query.Field]string{
	query.FieldDate: "date",
}

// editableColumns are the only columns an update writes; owner_id and created_at never change
var editableColumns = []string{"title", "category", "amount", "type", "date", "updated_at"}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepositoryInterface {
	return &transactionRepository{
		db: db,
	}
}

// Create stores a new transaction. ID and timestamps are assigned here.
func (r *transactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	if transaction == nil {
		return errors.New("transaction cannot be nil")
	}

	transaction.ID = uuid.Nil
	transaction.CreatedAt = time.Time{}
	transaction.UpdatedAt = time.Time{}

	if err := r.db.WithContext(ctx).Create(transaction).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// Update replaces the editable fields of the owner's transaction
func (r *transactionRepository) Update(ctx context.Context, transaction *models.Transaction) error {
	if transaction == nil {
		return errors.New("transaction cannot be nil")
	}
	if transaction.ID == uuid.Nil {
		return ErrTransactionNotFound
	}

	transaction.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(transaction).
		Where("owner_id = ?", transaction.OwnerID).
		Select(editableColumns).
		Updates(transaction)

	if result.Error != nil {
		return fmt.Errorf("failed to update transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// Delete removes the owner's transaction
func (r *transactionRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.Transaction{})

	if result.Error != nil {
		return fmt.Errorf("failed to delete transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// GetByID retrieves the owner's transaction by ID. Another owner's row reads as not found.
func (r *transactionRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &transaction, nil
}

// List returns the transactions matching spec, newest date first
func (r *transactionRepository) List(ctx context.Context, spec query.FilterSpec) ([]models.Transaction, error) {
	q, err := applyFilterSpec(r.db.WithContext(ctx).Model(&models.Transaction{}), spec)
	if err != nil {
		return nil, err
	}

	transactions := []models.Transaction{}
	if err := q.Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

// applyFilterSpec translates spec into WHERE and ORDER BY clauses over whitelisted columns
func applyFilterSpec(db *gorm.DB, spec query.FilterSpec) (*gorm.DB, error) {
	if spec.IsZero() {
		return nil, ErrUnscopedQuery
	}

	for _, p := range spec.Predicates() {
		column, ok := filterColumns[p.Field]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, p.Field)
		}
		db = db.Where(column+" = ?", p.Value)
	}

	order := spec.OrderBy()
	column, ok := orderColumns[order.Field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, order.Field)
	}
	direction := "DESC"
	if order.Direction == query.Asc {
		direction = "ASC"
	}

	return db.Order(column + " " + direction).Order("created_at " + direction), nil
}
