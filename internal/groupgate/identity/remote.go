package identity

import "net/http"

// Default headers set by SSO front proxies (mod_auth_mellon, oauth2-proxy and
// friends all speak REMOTE_USER-style headers).
const (
	DefaultUserHeader = "X-Remote-User"
	DefaultNameHeader = "X-Remote-Name"
)

// RemoteAuthenticator trusts identity headers injected by an authenticating
// reverse proxy. It must only be used when the service is unreachable except
// through that proxy.
type RemoteAuthenticator struct {
	// UserHeader carries the opaque resource-owner id. Required.
	UserHeader string
	// NameHeader carries the display name. Falls back to the id when the
	// header is absent.
	NameHeader string
}

func NewRemoteAuthenticator(userHeader, nameHeader string) *RemoteAuthenticator {
	if userHeader == "" {
		userHeader = DefaultUserHeader
	}
	if nameHeader == "" {
		nameHeader = DefaultNameHeader
	}
	return &RemoteAuthenticator{UserHeader: userHeader, NameHeader: nameHeader}
}

func (a *RemoteAuthenticator) Authenticate(r *http.Request) (ResourceOwner, error) {
	id := r.Header.Get(a.UserHeader)
	if id == "" {
		return nil, ErrNotAuthenticated
	}

	name := r.Header.Get(a.NameHeader)
	if name == "" {
		name = id
	}

	return Owner{ID: id, DisplayName: name}, nil
}
