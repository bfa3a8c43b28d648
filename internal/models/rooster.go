package models

import "time"

// Rooster sale status values.
const (
	StatusOther   = "other"
	StatusForSale = "for-sale"
	StatusSold    = "sold"
)

// Rooster is the primary managed record, transitively owned by a Group.
// Every write to a rooster document emits a change event with optional
// before/after snapshots.
type Rooster struct {
	// ID is the document id (not stored in the payload).
	ID string `json:"-"`

	GroupID string `json:"groupId"`
	Name    string `json:"name"`
	Plate   string `json:"plate"`

	// Lineage fields.
	BreedLine string `json:"breedLine,omitempty"`
	FatherID  string `json:"fatherId,omitempty"`
	MotherID  string `json:"motherId,omitempty"`

	// Status is one of the Status* constants.
	Status string `json:"status"`

	// ShowInShowcase, together with Status==StatusForSale, controls whether a
	// public listing exists for this rooster.
	ShowInShowcase bool `json:"showInShowcase"`

	// SalePrice and SaleDate are nil until set by the seller. A nil here must
	// surface as an explicit null on the listing, never as an absent field.
	SalePrice *float64   `json:"salePrice"`
	SaleDate  *time.Time `json:"saleDate"`

	ImageURL string `json:"imageUrl,omitempty"`

	// UpdatedAt is an epoch-millisecond version, monotonically increased by the
	// writer on every change. Derived-record writers discard events older than
	// the version they already reflect.
	UpdatedAt int64 `json:"updatedAt"`
}
