package models

import "time"

// Subscription plans, lowest to highest tier.
const (
	PlanIniciacion = "iniciacion"
	PlanMaestro    = "maestro"
	PlanElite      = "elite"
)

// User represents a registered account.
type User struct {
	// ID is the document id (not stored in the payload).
	ID string `json:"-"`

	// FullName is denormalized onto listings as ownerName.
	FullName string `json:"fullName"`

	// Email is the lookup key used by the identity provider.
	Email string `json:"email"`

	// GroupIDs is the inverse index of Group.Members for this user.
	GroupIDs []string `json:"groupIds"`

	// Plan is one of the Plan* constants.
	Plan string `json:"plan"`

	ActiveSubscriptionID   string     `json:"activeSubscriptionId,omitempty"`
	PurchaseToken          string     `json:"purchaseToken,omitempty"`
	SubscriptionExpiryDate *time.Time `json:"subscriptionExpiryDate,omitempty"`
}

// InGroup reports whether groupID is present in the user's inverse index.
func (u *User) InGroup(groupID string) bool {
	for _, id := range u.GroupIDs {
		if id == groupID {
			return true
		}
	}
	return false
}
