// Package editor holds the create/edit form for a single transaction and the
// state machine that submits it to a store.
package editor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	apperrors "money-tracker/internal/errors"
	"money-tracker/internal/models"
	"money-tracker/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrSubmitInProgress = errors.New("a submission is already in progress")
	ErrNotEditing       = errors.New("editor is not editing a transaction")
)

// State of the editor
type State int

const (
	StateIdle State = iota
	StateEditing
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// Form is the raw user input for one transaction
type Form struct {
	Title    string `json:"title" validate:"required,max=255"`
	Amount   string `json:"amount" validate:"required,amount"`
	Category string `json:"category" validate:"required,category"`
	Date     string `json:"date" validate:"required,calendar_date"`
	Type     string `json:"type" validate:"required,txtype"`
}

// BlankForm returns the form a new transaction starts with
func BlankForm() Form {
	return Form{Type: string(models.DefaultTransactionType)}
}

// FormFromTransaction prefills a form with a stored transaction's values
func FormFromTransaction(tx *models.Transaction) Form {
	return Form{
		Title:    tx.Title,
		Amount:   tx.Amount.StringFixed(validation.MaxAmountScale),
		Category: string(tx.Category),
		Date:     tx.DateKey(),
		Type:     string(tx.Type),
	}
}

// Values is a normalized form
type Values struct {
	Title    string
	Amount   decimal.Decimal
	Category models.Category
	Type     models.TransactionType
	Date     time.Time
}

// Normalize trims and validates a form. Every failing field is reported at once.
func Normalize(form Form) (Values, error) {
	trimmed := Form{
		Title:    strings.TrimSpace(form.Title),
		Amount:   strings.TrimSpace(form.Amount),
		Category: strings.TrimSpace(form.Category),
		Date:     strings.TrimSpace(form.Date),
		Type:     strings.TrimSpace(form.Type),
	}

	fields, err := validation.GetValidator().Struct(trimmed)
	if err != nil {
		return Values{}, err
	}
	if len(fields) > 0 {
		return Values{}, apperrors.NewValidation(fields)
	}

	amount, err := validation.ParseAmount(trimmed.Amount)
	if err != nil {
		return Values{}, apperrors.NewFieldValidation("amount", err.Error())
	}
	date, err := validation.ParseCalendarDate(trimmed.Date)
	if err != nil {
		return Values{}, apperrors.NewFieldValidation("date", err.Error())
	}

	return Values{
		Title:    trimmed.Title,
		Amount:   amount,
		Category: models.Category(trimmed.Category),
		Type:     models.TransactionType(trimmed.Type),
		Date:     date,
	}, nil
}

// Store persists submitted transactions
type Store interface {
	Create(ctx context.Context, tx *models.Transaction) error
	Update(ctx context.Context, tx *models.Transaction) error
}

// Editor drives one form through Idle, Editing and Submitting.
// It is safe for concurrent use; a second Submit while one is in flight fails fast.
type Editor struct {
	mu     sync.Mutex
	store  Store
	state  State
	form   Form
	target *models.Transaction
}

// New creates an idle editor backed by store
func New(store Store) *Editor {
	return &Editor{store: store, state: StateIdle}
}

// State returns the current state
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Form returns a copy of the current form
func (e *Editor) Form() Form {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.form
}

// Target returns the ID of the transaction being edited, or uuid.Nil when creating
func (e *Editor) Target() uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.target == nil {
		return uuid.Nil
	}
	return e.target.ID
}

// BeginCreate opens a blank form
func (e *Editor) BeginCreate() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	e.state = StateEditing
	e.form = BlankForm()
	e.target = nil
	return nil
}

// BeginEdit opens a form prefilled from tx
func (e *Editor) BeginEdit(tx *models.Transaction) error {
	if tx == nil {
		return ErrNotEditing
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	existing := *tx
	e.state = StateEditing
	e.form = FormFromTransaction(&existing)
	e.target = &existing
	return nil
}

// SetForm replaces the form contents
func (e *Editor) SetForm(form Form) error {
	return e.update(func(f *Form) { *f = form })
}

// SetTitle sets one field
func (e *Editor) SetTitle(v string) error { return e.update(func(f *Form) { f.Title = v }) }

// SetAmount sets one field
func (e *Editor) SetAmount(v string) error { return e.update(func(f *Form) { f.Amount = v }) }

// SetCategory sets one field
func (e *Editor) SetCategory(v string) error { return e.update(func(f *Form) { f.Category = v }) }

// SetDate sets one field
func (e *Editor) SetDate(v string) error { return e.update(func(f *Form) { f.Date = v }) }

// SetType sets one field
func (e *Editor) SetType(v string) error { return e.update(func(f *Form) { f.Type = v }) }

func (e *Editor) update(apply func(*Form)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateEditing:
		apply(&e.form)
		return nil
	case StateSubmitting:
		return ErrSubmitInProgress
	default:
		return ErrNotEditing
	}
}

// Cancel discards the form
func (e *Editor) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	e.reset()
	return nil
}

// Submit checks the caller, validates the form and writes it for caller. On success the editor
// returns to idle with the stored transaction; on any failure it stays in
// editing with the form untouched. Store failures are not retried.
func (e *Editor) Submit(ctx context.Context, caller uuid.UUID) (*models.Transaction, error) {
	e.mu.Lock()
	switch e.state {
	case StateSubmitting:
		e.mu.Unlock()
		return nil, ErrSubmitInProgress
	case StateIdle:
		e.mu.Unlock()
		return nil, ErrNotEditing
	}

	if caller == uuid.Nil {
		e.mu.Unlock()
		return nil, apperrors.ErrNoCaller
	}
	values, err := Normalize(e.form)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	tx, op := e.build(caller, values)
	e.state = StateSubmitting
	e.mu.Unlock()

	if op == "create" {
		err = e.store.Create(ctx, tx)
	} else {
		err = e.store.Update(ctx, tx)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.state = StateEditing
		return nil, classify(op, err)
	}

	e.reset()
	return tx, nil
}

func (e *Editor) build(caller uuid.UUID, values Values) (*models.Transaction, string) {
	tx := &models.Transaction{}
	op := "create"
	if e.target != nil {
		*tx = *e.target
		op = "update"
	}

	tx.OwnerID = caller
	tx.Title = values.Title
	tx.Amount = values.Amount
	tx.Category = values.Category
	tx.Type = values.Type
	tx.Date = values.Date
	return tx, op
}

func (e *Editor) reset() {
	e.state = StateIdle
	e.form = Form{}
	e.target = nil
}

func classify(op string, err error) error {
	if _, ok := apperrors.AsStore(err); ok {
		return err
	}
	if _, ok := apperrors.AsAuth(err); ok {
		return err
	}
	if _, ok := apperrors.AsValidation(err); ok {
		return err
	}
	return apperrors.NewStoreError(op, err)
}
