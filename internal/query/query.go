// Package query builds store-agnostic filter specifications for a caller's transactions.
package query

import (
	"fmt"
	"strings"

	apperrors "money-tracker/internal/errors"
	"money-tracker/internal/models"

	"github.com/google/uuid"
)

// Field names a filterable transaction attribute
type Field string

const (
	FieldOwner    Field = "owner_id"
	FieldCategory Field = "category"
	FieldType     Field = "type"
	FieldDate     Field = "date"
)

// Direction of an ordering clause
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Predicate is an equality comparison on one field
type Predicate struct {
	Field Field
	Value string
}

// Order is a single ordering clause
type Order struct {
	Field     Field
	Direction Direction
}

// FilterSpec describes which transactions a caller sees and in what order.
// It is always scoped to exactly one owner.
type FilterSpec struct {
	owner      uuid.UUID
	predicates []Predicate
	order      Order
}

// Build returns the filter for ownerID's transactions, optionally narrowed by
// category and type. "All" or an empty filter adds no predicate.
func Build(ownerID uuid.UUID, categoryFilter, typeFilter string) (FilterSpec, error) {
	if ownerID == uuid.Nil {
		return FilterSpec{}, apperrors.ErrNoCaller
	}

	categoryFilter = strings.TrimSpace(categoryFilter)
	typeFilter = strings.TrimSpace(typeFilter)

	fields := map[string]string{}
	if !isAll(categoryFilter) && !models.IsValidCategory(categoryFilter) {
		fields["category"] = "must be one of: " + strings.Join(models.CategoryFilterOptions(), " ")
	}
	if !isAll(typeFilter) && !models.IsValidTransactionType(typeFilter) {
		fields["type"] = "must be one of: " + strings.Join(models.TypeFilterOptions(), " ")
	}
	if len(fields) > 0 {
		return FilterSpec{}, apperrors.NewValidation(fields)
	}

	spec := FilterSpec{
		owner:      ownerID,
		predicates: []Predicate{{Field: FieldOwner, Value: ownerID.String()}},
		order:      Order{Field: FieldDate, Direction: Desc},
	}
	if !isAll(categoryFilter) {
		spec.predicates = append(spec.predicates, Predicate{Field: FieldCategory, Value: categoryFilter})
	}
	if !isAll(typeFilter) {
		spec.predicates = append(spec.predicates, Predicate{Field: FieldType, Value: typeFilter})
	}

	return spec, nil
}

// ForOwner returns the unfiltered spec for ownerID
func ForOwner(ownerID uuid.UUID) (FilterSpec, error) {
	return Build(ownerID, models.FilterAll, models.FilterAll)
}

func isAll(filter string) bool {
	return filter == "" || strings.EqualFold(filter, models.FilterAll)
}

// Owner returns the owner every result is scoped to
func (s FilterSpec) Owner() uuid.UUID {
	return s.owner
}

// Predicates returns a copy of the equality predicates, owner first
func (s FilterSpec) Predicates() []Predicate {
	out := make([]Predicate, len(s.predicates))
	copy(out, s.predicates)
	return out
}

// OrderBy returns the ordering clause
func (s FilterSpec) OrderBy() Order {
	return s.order
}

// IsZero reports whether the spec was never built
func (s FilterSpec) IsZero() bool {
	return s.owner == uuid.Nil
}

// Matches evaluates the predicates against a transaction in memory
func (s FilterSpec) Matches(t *models.Transaction) bool {
	if t == nil || s.IsZero() {
		return false
	}
	for _, p := range s.predicates {
		switch p.Field {
		case FieldOwner:
			if t.OwnerID.String() != p.Value {
				return false
			}
		case FieldCategory:
			if string(t.Category) != p.Value {
				return false
			}
		case FieldType:
			if string(t.Type) != p.Value {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Key returns a canonical string for the spec, stable across equal filters
func (s FilterSpec) Key() string {
	var b strings.Builder
	for i, p := range s.predicates {
		if i > 0 {
			b.WriteByte('&')
		}
		fmt.Fprintf(&b, "%s=%s", p.Field, p.Value)
	}
	fmt.Fprintf(&b, "|%s %s", s.order.Field, s.order.Direction)
	return b.String()
}

// String implements fmt.Stringer
func (s FilterSpec) String() string {
	return s.Key()
}
