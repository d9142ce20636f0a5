package domain

// Group is an entry in the protected group directory served to verified
// bearer-token callers.
type Group struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Membership roles, ordered from least to most privileged.
const (
	RoleMember  = "member"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// Membership ties a resource owner to a group with a role.
type Membership struct {
	Group Group  `json:"-"`
	Role  string `json:"voot_membership_role"`
}

// GroupMember is one entry of a group member listing.
type GroupMember struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Role        string `json:"voot_membership_role"`
}
