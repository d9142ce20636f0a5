package domain

import "time"

// AccessToken is an opaque bearer credential bound to a client, a resource
// owner and an approved scope. Tokens are immutable after creation; expiry is
// evaluated lazily by comparing IssueTime+ExpiresIn against the clock.
type AccessToken struct {
	Token                    string
	IssueTime                time.Time
	ClientID                 string
	ResourceOwnerID          string
	ResourceOwnerDisplayName string
	Scope                    string // canonical form
	ExpiresIn                int64  // seconds
}

// ExpiresAt returns the instant after which the token is no longer valid.
func (t AccessToken) ExpiresAt() time.Time {
	return t.IssueTime.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Expired reports whether the token is past its lifetime at now.
func (t AccessToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt())
}
