package core

import (
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"
)

type (
	// ItemID is the stable handle of an item across edits, moves and reloads.
	ItemID string

	// Item is one priced line of the ledger. LineTotal is always derived.
	Item struct {
		ID             ItemID
		Category       string
		Description    string
		Quantity       float64
		QuantityDetail string
		Unit           string
		UnitPrice      float64
	}

	// NewItem carries the fields accepted by Ledger.AddItem.
	NewItem struct {
		Category       string
		Description    string
		Unit           string
		UnitPrice      float64
		Quantity       float64
		QuantityDetail string
	}

	// ItemEdit carries the fields replaced by Ledger.EditItem.
	ItemEdit struct {
		Description string
		Unit        string
		UnitPrice   float64
		Quantity    float64
	}
)

var (
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyUnit        = errors.New("empty unit")
	ErrInvalidUnitPrice = errors.New("unit price must be a non-negative number")
	ErrInvalidQuantity  = errors.New("quantity must be a positive number")
)

// NewItemID returns a fresh random item handle.
func NewItemID() ItemID {
	return ItemID(uuid.NewString())
}

// ParseItemID accepts only canonical UUID handles.
func ParseItemID(s string) (ItemID, bool) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return ItemID(u.String()), true
}

func (id ItemID) String() string { return string(id) }

// LineTotal is quantity times unit price.
func (it Item) LineTotal() float64 {
	return it.Quantity * it.UnitPrice
}

func (n NewItem) Validate() error {
	if strings.TrimSpace(n.Category) == "" {
		return &ValidationError{Field: "category", Err: ErrEmptyCategory}
	}
	return validateFields(n.Description, n.Unit, n.UnitPrice, n.Quantity)
}

func (e ItemEdit) Validate() error {
	return validateFields(e.Description, e.Unit, e.UnitPrice, e.Quantity)
}

func validateFields(description, unit string, unitPrice, quantity float64) error {
	if strings.TrimSpace(description) == "" {
		return &ValidationError{Field: "description", Err: ErrEmptyDescription}
	}
	if strings.TrimSpace(unit) == "" {
		return &ValidationError{Field: "unit", Err: ErrEmptyUnit}
	}
	if !isFinite(unitPrice) || unitPrice < 0 {
		return &ValidationError{Field: "unit_price", Err: ErrInvalidUnitPrice}
	}
	if !isFinite(quantity) || quantity <= 0 {
		return &ValidationError{Field: "quantity", Err: ErrInvalidQuantity}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
