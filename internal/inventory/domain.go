package inventory

import (
	"errors"
	"time"
)

// ItemKind distinguishes the two stocked catalog tables.
type ItemKind string

const (
	ItemKindProduct    ItemKind = "product"
	ItemKindMotorcycle ItemKind = "motorcycle"
)

// Valid reports whether the kind is known.
func (k ItemKind) Valid() bool {
	return k == ItemKindProduct || k == ItemKindMotorcycle
}

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementTypeIn represents an inbound movement (restock, sale reversal).
	MovementTypeIn MovementType = "IN"
	// MovementTypeOut represents an outbound movement (sale).
	MovementTypeOut MovementType = "OUT"
	// MovementTypeAdjust indicates manual adjustments.
	MovementTypeAdjust MovementType = "ADJUST"
)

// Movement models one stock ledger row. Qty is signed: positive adds
// stock, negative removes it.
type Movement struct {
	ID        int64        `json:"id"`
	Type      MovementType `json:"type"`
	ItemKind  ItemKind     `json:"item_kind"`
	ItemID    int64        `json:"item_id"`
	Qty       float64      `json:"qty"`
	RefModule string       `json:"ref_module,omitempty"`
	RefID     string       `json:"ref_id,omitempty"`
	Note      string       `json:"note,omitempty"`
	Actor     string       `json:"actor,omitempty"`
	PostedAt  time.Time    `json:"posted_at"`
}

// AdjustmentInput describes a manual stock adjustment request.
type AdjustmentInput struct {
	ItemKind ItemKind
	ItemID   int64
	Qty      float64
	Note     string
	Actor    string
	RefID    string
}

// ListFilters filters movement listings.
type ListFilters struct {
	ItemKind ItemKind
	ItemID   int64
	From     time.Time
	To       time.Time
	Page     int
	Limit    int
}

// ErrNegativeStock triggered when a movement would drive stock below zero.
var ErrNegativeStock = errors.New("inventory: negative stock not allowed")

// ErrInvalidQuantity indicates a zero quantity.
var ErrInvalidQuantity = errors.New("inventory: quantity must be non zero")

// ErrItemNotFound indicates the referenced catalog row does not exist.
var ErrItemNotFound = errors.New("inventory: item not found")
