package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
	"github.com/openvoot/groupgate/internal/groupgate/store"
)

// bearerRE is the token68 grammar from RFC 6750. Anything else is rejected
// before touching storage.
var bearerRE = regexp.MustCompile(`^Bearer ([a-zA-Z0-9\-._~+/]+=*)$`)

// VerifyService resolves bearer tokens for resource-server callers.
type VerifyService struct {
	Store store.Store
}

// Verify parses the Authorization header, resolves the token and checks
// expiry. All failures map to ErrInvalidToken; the HTTP layer answers them
// with a WWW-Authenticate challenge.
func (s *VerifyService) Verify(ctx context.Context, authorizationHeader string) (domain.AccessToken, error) {
	m := bearerRE.FindStringSubmatch(authorizationHeader)
	if m == nil {
		return domain.AccessToken{}, ErrInvalidToken
	}

	token, err := s.Store.AccessTokens().GetAccessToken(ctx, m[1])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AccessToken{}, ErrInvalidToken
		}
		return domain.AccessToken{}, err
	}
	if token.Expired(time.Now()) {
		return domain.AccessToken{}, ErrInvalidToken
	}
	return token, nil
}
