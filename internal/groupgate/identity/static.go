package identity

import "net/http"

// StaticAuthenticator treats every request as the same fixed resource owner.
// Development use only.
type StaticAuthenticator struct {
	Owner Owner
}

func NewStaticAuthenticator(id, displayName string) *StaticAuthenticator {
	if displayName == "" {
		displayName = id
	}
	return &StaticAuthenticator{Owner: Owner{ID: id, DisplayName: displayName}}
}

func (a *StaticAuthenticator) Authenticate(_ *http.Request) (ResourceOwner, error) {
	if a.Owner.ID == "" {
		return nil, ErrNotAuthenticated
	}
	return a.Owner, nil
}
