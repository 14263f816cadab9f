package tenant

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates the entity does not exist for the owner.
	ErrNotFound = errors.New("tenant: not found")
	// ErrNameTaken indicates another entity of the same kind and owner uses the name.
	ErrNameTaken = errors.New("tenant: name already taken")
	// ErrInsufficientStock indicates at least one product cannot cover the requested quantity.
	ErrInsufficientStock = errors.New("tenant: insufficient stock")
	// ErrDeletionNotAllowed indicates the entity is still referenced by an order.
	ErrDeletionNotAllowed = errors.New("tenant: deletion not allowed")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("tenant: validation failed")
)

// Shortage describes one product that cannot cover its demand.
type Shortage struct {
	ProductID int64 `json:"productId"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
}

// InsufficientStockError lists every shortage found while checking a reservation.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("product %d requested %d available %d", s.ProductID, s.Requested, s.Available))
	}
	return ErrInsufficientStock.Error() + ": " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// ValidationError carries per-field messages for rejected input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFound wraps ErrNotFound with the missing entity.
func NotFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}

// NameTaken wraps ErrNameTaken with the clashing entity.
func NameTaken(kind EntityKind, name string) error {
	return fmt.Errorf("%s %q: %w", kind, name, ErrNameTaken)
}
