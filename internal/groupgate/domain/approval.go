package domain

import "time"

// Approval records a resource owner's cumulative consent for a client. The
// scope only grows (by merge) on subsequent consents until the approval is
// revoked as a whole.
type Approval struct {
	ClientID        string
	ResourceOwnerID string
	Scope           string // canonical form
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
