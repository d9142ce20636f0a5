// Package identity supplies the authenticated resource owner to the
// authorization engine. The authorization server never authenticates resource
// owners itself; it trusts a pluggable mechanism (an SSO proxy, a session
// layer) chosen at process start.
package identity

import (
	"errors"
	"net/http"
)

// ErrNotAuthenticated reports that the request carries no resource-owner
// identity. Handlers answer it with 401, not with a redirect.
var ErrNotAuthenticated = errors.New("identity: resource owner not authenticated")

// ResourceOwner identifies the authenticated end user of the consent and
// management pages.
type ResourceOwner interface {
	// ResourceOwnerID returns a stable opaque identifier for the owner.
	ResourceOwnerID() string
	// ResourceOwnerDisplayName returns a human-readable name recorded in
	// token metadata.
	ResourceOwnerDisplayName() string
}

// Authenticator resolves the resource owner behind an HTTP request.
type Authenticator interface {
	Authenticate(r *http.Request) (ResourceOwner, error)
}

// Owner is a plain ResourceOwner value.
type Owner struct {
	ID          string
	DisplayName string
}

func (o Owner) ResourceOwnerID() string          { return o.ID }
func (o Owner) ResourceOwnerDisplayName() string { return o.DisplayName }
