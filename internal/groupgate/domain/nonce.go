package domain

import "time"

// AuthorizeNonce correlates a rendered consent prompt with the eventual
// approval or denial. It captures the full authorization request so the
// approval can be matched against what the resource owner was actually shown.
// A nonce is consumed exactly once and never updated.
type AuthorizeNonce struct {
	Nonce           string
	ClientID        string
	ResourceOwnerID string
	ResponseType    string
	RedirectURI     string
	Scope           string // canonical form of the requested scope
	State           string
	CreatedAt       time.Time
}
