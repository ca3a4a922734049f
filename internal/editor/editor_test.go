package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "money-tracker/internal/errors"
	"money-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type fakeStore struct {
	mu        sync.Mutex
	createErr error
	updateErr error
	creates   []models.Transaction
	updates   []models.Transaction
	block     chan struct{}
	entered   chan struct{}
}

func (f *fakeStore) Create(ctx context.Context, tx *models.Transaction) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	tx.ID = uuid.New()
	tx.CreatedAt = time.Now().UTC()
	f.creates = append(f.creates, *tx)
	return nil
}

func (f *fakeStore) Update(ctx context.Context, tx *models.Transaction) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, *tx)
	return nil
}

func (f *fakeStore) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
}

type EditorTestSuite struct {
	suite.Suite
	store  *fakeStore
	editor *Editor
	caller uuid.UUID
	ctx    context.Context
}

func (s *EditorTestSuite) SetupTest() {
	s.store = &fakeStore{}
	s.editor = New(s.store)
	s.caller = uuid.New()
	s.ctx = context.Background()
}

func TestEditorTestSuite(t *testing.T) {
	suite.Run(t, new(EditorTestSuite))
}

func validForm() Form {
	return Form{Title: "Groceries", Amount: "42.10", Category: "Food", Date: "2024-01-05", Type: "expense"}
}

func (s *EditorTestSuite) TestBeginCreate_DefaultsToExpense() {
	s.Equal(StateIdle, s.editor.State())

	s.Require().NoError(s.editor.BeginCreate())

	s.Equal(StateEditing, s.editor.State())
	s.Equal(Form{Type: "expense"}, s.editor.Form())
	s.Equal(uuid.Nil, s.editor.Target())
}

func (s *EditorTestSuite) TestBeginEdit_Prefills() {
	existing := &models.Transaction{
		ID:       uuid.New(),
		OwnerID:  s.caller,
		Title:    "Salary",
		Category: models.CategorySalary,
		Amount:   decimal.RequireFromString("3000"),
		Type:     models.TransactionTypeIncome,
		Date:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	s.Require().NoError(s.editor.BeginEdit(existing))

	s.Equal(StateEditing, s.editor.State())
	s.Equal(Form{Title: "Salary", Amount: "3000.00", Category: "Salary", Date: "2024-02-01", Type: "income"}, s.editor.Form())
	s.Equal(existing.ID, s.editor.Target())
}

func (s *EditorTestSuite) TestSetters_RequireEditing() {
	s.ErrorIs(s.editor.SetTitle("x"), ErrNotEditing)
	s.ErrorIs(s.editor.SetForm(validForm()), ErrNotEditing)

	s.Require().NoError(s.editor.BeginCreate())
	s.Require().NoError(s.editor.SetTitle("Taxi"))
	s.Require().NoError(s.editor.SetAmount("15"))
	s.Require().NoError(s.editor.SetCategory("Travel"))
	s.Require().NoError(s.editor.SetDate("2024-03-03"))
	s.Require().NoError(s.editor.SetType("expense"))

	s.Equal(Form{Title: "Taxi", Amount: "15", Category: "Travel", Date: "2024-03-03", Type: "expense"}, s.editor.Form())
}

func (s *EditorTestSuite) TestSubmit_CreateSuccessReturnsToIdle() {
	s.Require().NoError(s.editor.BeginCreate())
	s.Require().NoError(s.editor.SetForm(validForm()))

	tx, err := s.editor.Submit(s.ctx, s.caller)
	s.Require().NoError(err)

	s.NotEqual(uuid.Nil, tx.ID)
	s.Equal(s.caller, tx.OwnerID)
	s.Equal("Groceries", tx.Title)
	s.True(decimal.RequireFromString("42.10").Equal(tx.Amount))
	s.Equal(models.CategoryFood, tx.Category)
	s.Equal(models.TransactionTypeExpense, tx.Type)
	s.Equal("2024-01-05", tx.DateKey())

	s.Equal(StateIdle, s.editor.State())
	s.Equal(Form{}, s.editor.Form())
	s.Len(s.store.creates, 1)

	s.Require().NoError(s.editor.BeginCreate())
	s.Equal("expense", s.editor.Form().Type)
}

func (s *EditorTestSuite) TestSubmit_UpdateKeepsIdentity() {
	created := time.Date(2023, 12, 1, 8, 0, 0, 0, time.UTC)
	existing := &models.Transaction{
		ID:        uuid.New(),
		OwnerID:   s.caller,
		Title:     "Hotel",
		Category:  models.CategoryTravel,
		Amount:    decimal.RequireFromString("200"),
		Type:      models.TransactionTypeExpense,
		Date:      time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		CreatedAt: created,
	}

	s.Require().NoError(s.editor.BeginEdit(existing))
	s.Require().NoError(s.editor.SetAmount("180.5"))

	tx, err := s.editor.Submit(s.ctx, s.caller)
	s.Require().NoError(err)

	s.Equal(existing.ID, tx.ID)
	s.Equal(created, tx.CreatedAt)
	s.True(decimal.RequireFromString("180.5").Equal(tx.Amount))
	s.Require().Len(s.store.updates, 1)
	s.Empty(s.store.creates)

	// the caller's copy is left alone
	s.True(decimal.RequireFromString("200").Equal(existing.Amount))
}

func (s *EditorTestSuite) TestSubmit_ValidationNeverReachesStore() {
	s.Require().NoError(s.editor.BeginCreate())
	s.Require().NoError(s.editor.SetForm(Form{Title: "  ", Amount: "abc", Category: "Food", Date: "2024-01-05", Type: "expense"}))

	_, err := s.editor.Submit(s.ctx, s.caller)
	s.Require().Error(err)

	verr, ok := apperrors.AsValidation(err)
	s.Require().True(ok)
	s.Contains(verr.Fields, "title")
	s.Contains(verr.Fields, "amount")

	s.Equal(StateEditing, s.editor.State())
	s.Empty(s.store.creates)
}

func (s *EditorTestSuite) TestSubmit_MissingCallerRetainsForm() {
	s.Require().NoError(s.editor.BeginCreate())
	s.Require().NoError(s.editor.SetForm(validForm()))

	_, err := s.editor.Submit(s.ctx, uuid.Nil)
	s.Require().Error(err)

	_, ok := apperrors.AsAuth(err)
	s.True(ok)
	s.Equal(StateEditing, s.editor.State())
	s.Equal(validForm(), s.editor.Form())
	s.Empty(s.store.creates)
}

func (s *EditorTestSuite) TestSubmit_MissingCallerCheckedBeforeForm() {
	invalid := Form{Title: "", Amount: "abc", Category: "Food", Date: "2024-01-05", Type: "expense"}
	s.Require().NoError(s.editor.BeginCreate())
	s.Require().NoError(s.editor.SetForm(invalid))

	_, err := s.editor.Submit(s.ctx, uuid.Nil)
	s.Require().Error(err)

	_, isAuth := apperrors.AsAuth(err)
	s.True(isAuth)
	_, isValidation := apperrors.AsValidation(err)
	s.False(isValidation)
	s.Equal(invalid, s.editor.Form())
}

func (s *EditorTestSuite) TestSubmit_StoreFailureRetainsForm() {
	s.store.createErr = errors.New("connection reset by peer")

	s.Require().NoError(s.editor.BeginCreate())
	s.Require().NoError(s.editor.SetForm(validForm()))

	_, err := s.editor.Submit(s.ctx, s.caller)
	s.Require().Error(err)

	serr, ok := apperrors.AsStore(err)
	s.Require().True(ok)
	s.Equal("create", serr.Op)
	s.ErrorIs(err, s.store.createErr)

	s.Equal(StateEditing, s.editor.State())
	s.Equal(validForm(), s.editor.Form())

	// a retry is the user's decision
	s.store.createErr = nil
	_, err = s.editor.Submit(s.ctx, s.caller)
	s.Require().NoError(err)
	s.Len(s.store.creates, 1)
}

func (s *EditorTestSuite) TestSubmit_RejectsReentry() {
	s.store.block = make(chan struct{})
	s.store.entered = make(chan struct{}, 1)

	s.Require().NoError(s.editor.BeginCreate())
	s.Require().NoError(s.editor.SetForm(validForm()))

	done := make(chan error, 1)
	go func() {
		_, err := s.editor.Submit(s.ctx, s.caller)
		done <- err
	}()

	<-s.store.entered
	s.Equal(StateSubmitting, s.editor.State())

	_, err := s.editor.Submit(s.ctx, s.caller)
	s.ErrorIs(err, ErrSubmitInProgress)
	s.ErrorIs(s.editor.Cancel(), ErrSubmitInProgress)
	s.ErrorIs(s.editor.BeginCreate(), ErrSubmitInProgress)
	s.ErrorIs(s.editor.SetTitle("late"), ErrSubmitInProgress)

	close(s.store.block)
	s.Require().NoError(<-done)
	s.Equal(StateIdle, s.editor.State())
}

func (s *EditorTestSuite) TestSubmit_FromIdle() {
	_, err := s.editor.Submit(s.ctx, s.caller)
	s.ErrorIs(err, ErrNotEditing)
}

func (s *EditorTestSuite) TestCancel() {
	s.Require().NoError(s.editor.BeginCreate())
	s.Require().NoError(s.editor.SetTitle("draft"))
	s.Require().NoError(s.editor.Cancel())

	s.Equal(StateIdle, s.editor.State())
	s.Equal(Form{}, s.editor.Form())
}

func (s *EditorTestSuite) TestNormalize_TrimsValues() {
	values, err := Normalize(Form{Title: " Rent ", Amount: " 950 ", Category: " Bills ", Date: " 2024-04-01 ", Type: " expense "})
	s.Require().NoError(err)

	s.Equal("Rent", values.Title)
	s.Equal(models.CategoryBills, values.Category)
	s.Equal(models.TransactionTypeExpense, values.Type)
	s.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), values.Date)
}

func (s *EditorTestSuite) TestNormalize_ReportsEveryField() {
	_, err := Normalize(Form{})
	s.Require().Error(err)

	verr, ok := apperrors.AsValidation(err)
	s.Require().True(ok)
	s.Len(verr.Fields, 5)
}
