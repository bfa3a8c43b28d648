package models

import "time"

// Listing is the derived showcase projection of a Rooster for sale, keyed 1:1
// by rooster id. It exists iff the rooster has Status==StatusForSale and
// ShowInShowcase==true and its group/owner resolve. Exclusively owned and
// rewritten by the listing projector; never user-editable.
type Listing struct {
	// ID is the document id, equal to the source rooster id.
	ID string `json:"-"`

	GroupID string `json:"groupId"`

	// Snapshot of rooster display fields. Pointers distinguish an explicit
	// null (field cleared on the source) from a populated value.
	Name      string     `json:"name"`
	Plate     string     `json:"plate"`
	Status    string     `json:"status"`
	BreedLine *string    `json:"breedLine"`
	FatherID  *string    `json:"fatherId"`
	MotherID  *string    `json:"motherId"`
	SalePrice *float64   `json:"salePrice"`
	SaleDate  *time.Time `json:"saleDate"`
	ImageURL  *string    `json:"imageUrl"`

	// Denormalized owner/group names, kept current by the name cascade.
	OwnerUID  string `json:"ownerUid"`
	OwnerName string `json:"ownerName"`
	GroupName string `json:"groupName"`

	// SourceVersion mirrors Rooster.UpdatedAt at projection time; stale events
	// are discarded against it.
	SourceVersion int64 `json:"sourceVersion"`

	// UpdatedAt is the server-assigned write timestamp.
	UpdatedAt time.Time `json:"updatedAt"`
}
