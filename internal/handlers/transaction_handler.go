package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"money-tracker/internal/dto"
	"money-tracker/internal/errors"
	"money-tracker/internal/models"
	"money-tracker/internal/query"
	"money-tracker/internal/services"
	"money-tracker/internal/subscription"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	streamHeartbeat = 15 * time.Second
)

// TransactionSubscriber opens live queries over the caller's transactions
type TransactionSubscriber interface {
	Subscribe(ctx context.Context, spec query.FilterSpec) (*subscription.Subscription, error)
}

// TransactionHandler handles transaction-related HTTP requests
type TransactionHandler struct {
	transactionService services.TransactionServiceInterface
	subscriber         TransactionSubscriber
	heartbeat          time.Duration
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(
	transactionService services.TransactionServiceInterface,
	subscriber TransactionSubscriber,
) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		subscriber:         subscriber,
		heartbeat:          streamHeartbeat,
	}
}

func parseTransactionFilters(c echo.Context, userID uuid.UUID) (query.FilterSpec, dto.AppliedFilters, error) {
	var filters dto.TransactionFilters
	filters.Category = c.QueryParam("category")
	filters.Type = c.QueryParam("type")

	spec, err := query.Build(userID, filters.Category, filters.Type)
	if err != nil {
		return query.FilterSpec{}, dto.AppliedFilters{}, err
	}

	applied := dto.AppliedFilters{Category: models.FilterAll, Type: models.FilterAll}
	for _, p := range spec.Predicates() {
		switch p.Field {
		case query.FieldCategory:
			applied.Category = p.Value
		case query.FieldType:
			applied.Type = p.Value
		}
	}

	return spec, applied, nil
}

// ListTransactions returns the caller's transactions, newest first
// @Summary List transactions
// @Description List the authenticated user's transactions ordered by date descending, optionally filtered by category and type
// @Tags Transactions
// @Security BearerAuth
// @Produce json
// @Param category query string false "Category filter (All, Food, Travel, Shopping, Bills, Salary, Other)"
// @Param type query string false "Type filter (All, income, expense)"
// @Success 200 {object} dto.ListTransactionsResponse "Filtered transactions"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 - Unknown filter value"
// @Failure 401 {object} errors.ErrorResponse "AUTH_002 - Missing or invalid authentication"
// @Failure 502 {object} errors.ErrorResponse "STORE_001 - Store rejected the query"
// @Router /transactions [get]
func (h *TransactionHandler) ListTransactions(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	spec, applied, err := parseTransactionFilters(c, userID)
	if err != nil {
		return SendDomainError(c, err)
	}

	transactions, err := h.transactionService.List(c.Request().Context(), spec)
	if err != nil {
		return SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, dto.ListTransactionsResponse{
		Transactions: dto.ToTransactionResponses(transactions),
		Filters:      applied,
		Count:        len(transactions),
	})
}

// GetTransaction returns one transaction
// @Summary Get transaction
// @Description Get a single transaction owned by the authenticated user
// @Tags Transactions
// @Security BearerAuth
// @Produce json
// @Param id path string true "Transaction ID (UUID)"
// @Success 200 {object} dto.TransactionResponse "Transaction details"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_003 - Invalid transaction ID format"
// @Failure 401 {object} errors.ErrorResponse "AUTH_002 - Missing or invalid authentication"
// @Failure 404 {object} errors.ErrorResponse "TRANSACTION_001 - Transaction not found"
// @Failure 502 {object} errors.ErrorResponse "STORE_001 - Store rejected the query"
// @Router /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails("Transaction ID must be a valid UUID"))
	}

	transaction, err := h.transactionService.Get(c.Request().Context(), userID, transactionID)
	if err != nil {
		return SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, dto.ToTransactionResponse(transaction))
}

// CreateTransaction records a new transaction
// @Summary Create transaction
// @Description Validate and store a new transaction for the authenticated user
// @Tags Transactions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.TransactionRequest true "Transaction form"
// @Success 201 {object} dto.TransactionResponse "Transaction created"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 - Invalid form values"
// @Failure 401 {object} errors.ErrorResponse "AUTH_002 - Missing or invalid authentication"
// @Failure 502 {object} errors.ErrorResponse "STORE_001 - Store rejected the write"
// @Router /transactions [post]
func (h *TransactionHandler) CreateTransaction(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var req dto.TransactionRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	transaction, err := h.transactionService.Submit(c.Request().Context(), userID, nil, req.ToForm(), requestMeta(c))
	if err != nil {
		return SendDomainError(c, err)
	}

	return c.JSON(http.StatusCreated, dto.ToTransactionResponse(transaction))
}

// UpdateTransaction replaces every field of an existing transaction
// @Summary Update transaction
// @Description Validate and overwrite an existing transaction of the authenticated user
// @Tags Transactions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID (UUID)"
// @Param request body dto.TransactionRequest true "Transaction form"
// @Success 200 {object} dto.TransactionResponse "Transaction updated"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 - Invalid form values"
// @Failure 401 {object} errors.ErrorResponse "AUTH_002 - Missing or invalid authentication"
// @Failure 404 {object} errors.ErrorResponse "TRANSACTION_001 - Transaction not found"
// @Failure 502 {object} errors.ErrorResponse "STORE_001 - Store rejected the write"
// @Router /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails("Transaction ID must be a valid UUID"))
	}

	var req dto.TransactionRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	ctx := c.Request().Context()

	existing, err := h.transactionService.Get(ctx, userID, transactionID)
	if err != nil {
		return SendDomainError(c, err)
	}

	transaction, err := h.transactionService.Submit(ctx, userID, existing, req.ToForm(), requestMeta(c))
	if err != nil {
		return SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, dto.ToTransactionResponse(transaction))
}

// DeleteTransaction removes a transaction after explicit confirmation
// @Summary Delete transaction
// @Description Delete a transaction of the authenticated user. The request must carry confirm=true.
// @Tags Transactions
// @Security BearerAuth
// @Produce json
// @Param id path string true "Transaction ID (UUID)"
// @Param confirm query bool true "Confirms the deletion"
// @Success 200 {object} SuccessResponse{message=string} "Transaction deleted"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_003 - Invalid transaction ID format"
// @Failure 401 {object} errors.ErrorResponse "AUTH_002 - Missing or invalid authentication"
// @Failure 404 {object} errors.ErrorResponse "TRANSACTION_001 - Transaction not found"
// @Failure 422 {object} errors.ErrorResponse "TRANSACTION_004 - Deletion not confirmed"
// @Failure 502 {object} errors.ErrorResponse "STORE_001 - Store rejected the delete"
// @Router /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails("Transaction ID must be a valid UUID"))
	}

	err = h.transactionService.Delete(c.Request().Context(), userID, transactionID, getBoolParam(c, "confirm"), requestMeta(c))
	if err != nil {
		return SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "Transaction deleted"})
}

// StreamTransactions pushes the filtered transaction list as server-sent events
// @Summary Stream transactions
// @Description Server-sent events carrying the complete filtered list whenever the user's transactions change
// @Tags Transactions
// @Security BearerAuth
// @Produce text/event-stream
// @Param category query string false "Category filter"
// @Param type query string false "Type filter"
// @Success 200 {object} dto.SnapshotEvent "One event per snapshot"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 - Unknown filter value"
// @Failure 401 {object} errors.ErrorResponse "AUTH_002 - Missing or invalid authentication"
// @Failure 502 {object} errors.ErrorResponse "STORE_001 - Initial load failed"
// @Failure 503 {object} errors.ErrorResponse "SYSTEM_003 - Server shutting down"
// @Router /transactions/stream [get]
func (h *TransactionHandler) StreamTransactions(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	spec, _, err := parseTransactionFilters(c, userID)
	if err != nil {
		return SendDomainError(c, err)
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	sub, err := h.subscriber.Subscribe(ctx, spec)
	if err != nil {
		if err == subscription.ErrHubClosed {
			return SendError(c, errors.SystemServiceUnavailable)
		}
		return SendDomainError(c, err)
	}
	defer sub.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	// the stream outlives the server write timeout
	_ = http.NewResponseController(res).SetWriteDeadline(time.Time{})
	res.WriteHeader(http.StatusOK)
	res.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := writeSnapshotEvent(res, snap); err != nil {
				return nil
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeSnapshotEvent(res *echo.Response, snap subscription.Snapshot) error {
	payload, err := json.Marshal(dto.SnapshotEvent{
		Sequence:     snap.Sequence,
		At:           snap.At,
		Transactions: dto.ToTransactionResponses(snap.Transactions),
	})
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(res, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Sequence, payload); err != nil {
		return err
	}
	res.Flush()
	return nil
}

// ListCategories returns the accepted category and type values
// @Summary List categories
// @Description The fixed set of transaction categories and types, plus their filter options
// @Tags Transactions
// @Produce json
// @Success 200 {object} dto.CategoriesResponse "Categories and types"
// @Router /categories [get]
func (h *TransactionHandler) ListCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.NewCategoriesResponse())
}
