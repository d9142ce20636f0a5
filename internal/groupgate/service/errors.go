package service

import (
	"errors"
	"fmt"
)

var (
	// Token endpoint errors, named after the OAuth2 error codes the HTTP
	// layer maps them to.
	ErrInvalidRequest       = errors.New("invalid_request")
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")
	ErrInvalidGrant         = errors.New("invalid_grant")
	ErrInvalidClient        = errors.New("invalid_client")
	ErrUnauthorizedClient   = errors.New("unauthorized_client")

	// Bearer verification error.
	ErrInvalidToken = errors.New("invalid_token")
)

// IdentityError is a fatal authorization failure raised before the client's
// redirect target is trusted. It must be rendered to the resource owner
// directly and never carried on a redirect.
type IdentityError struct {
	Description string
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("client identity error: %s", e.Description)
}

func identityErrorf(format string, args ...any) *IdentityError {
	return &IdentityError{Description: fmt.Sprintf(format, args...)}
}

// AsIdentityError unwraps err into an *IdentityError when it is one.
func AsIdentityError(err error) (*IdentityError, bool) {
	var ie *IdentityError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
