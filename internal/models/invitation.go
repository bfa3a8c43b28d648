package models

import "time"

// PendingInvite is one membership offer inside an Invitation document.
type PendingInvite struct {
	InviterName string    `json:"inviterName"`
	GroupName   string    `json:"groupName"`
	Role        string    `json:"role"`
	Timestamp   time.Time `json:"timestamp"`
}

// Invitation holds the pending membership offers for a single user, keyed 1:1
// by the invited user's id. At most one pending invite per group at a time;
// a repeat invite for the same group overwrites the earlier one.
type Invitation struct {
	// ID is the document id, equal to the invited user's id.
	ID string `json:"-"`

	Pending map[string]PendingInvite `json:"pending_invitations"`
}
