package models

// Member roles within a gallera.
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleMember  = "member"
)

// Group represents a gallera: an owned collection of roosters and members.
//
// Members is the authorization source of truth. It maps user id to role and
// must always contain OwnerID. Group.Members and User.GroupIDs are mutual
// inverse indexes and are only ever updated together, atomically.
type Group struct {
	// ID is the document id (not stored in the payload).
	ID string `json:"-"`

	// OwnerID is the user id of the gallera owner. Never removable from Members.
	OwnerID string `json:"ownerId"`

	// Name is the display name, denormalized onto listings as groupName.
	Name string `json:"name"`

	// Members maps user id to role.
	Members map[string]string `json:"members"`
}

// IsMember reports whether uid currently belongs to the group.
func (g *Group) IsMember(uid string) bool {
	_, ok := g.Members[uid]
	return ok
}
