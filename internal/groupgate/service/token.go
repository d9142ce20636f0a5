package service

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
	"github.com/openvoot/groupgate/internal/groupgate/store"
	"github.com/openvoot/groupgate/pkg/slogx"
)

// TokenService implements the token endpoint: exchanging a single-use
// authorization code for the access token minted at grant time.
type TokenService struct {
	Store store.Store
}

// TokenRequest carries the decoded token endpoint POST.
type TokenRequest struct {
	GrantType   string
	Code        string
	RedirectURI string

	// AuthorizationHeader is passed through verbatim for client
	// authentication.
	AuthorizationHeader string
}

// Exchange validates the grant, authenticates the client per its profile and
// redeems the code exactly once.
func (s *TokenService) Exchange(ctx context.Context, req TokenRequest) (domain.AccessToken, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	if req.GrantType == "" {
		return domain.AccessToken{}, ErrInvalidRequest
	}
	if req.GrantType != "authorization_code" {
		return domain.AccessToken{}, ErrUnsupportedGrantType
	}
	if req.Code == "" {
		return domain.AccessToken{}, ErrInvalidRequest
	}

	var result domain.AccessToken

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		code, err := tx.AuthorizationCodes().GetAuthorizationCode(ctx, req.Code, req.RedirectURI)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}
		if code.Expired(now) {
			return ErrInvalidGrant
		}

		client, err := tx.Clients().GetClient(ctx, code.ClientID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		switch client.Type {
		case domain.ClientTypeUserAgentApplication:
			// The implicit-only profile never holds credentials and
			// may not use this endpoint.
			return ErrUnauthorizedClient
		case domain.ClientTypeWebApplication:
			if !verifyBasicAuth(req.AuthorizationHeader, client) {
				l.Info("client authentication failed", slog.String("client_id", client.ID))
				return ErrInvalidClient
			}
		case domain.ClientTypeNativeApplication:
			if req.AuthorizationHeader != "" && !verifyBasicAuth(req.AuthorizationHeader, client) {
				l.Info("client authentication failed", slog.String("client_id", client.ID))
				return ErrInvalidClient
			}
		}

		// Single-use guard: a failed delete means the code was already
		// redeemed by a concurrent or earlier exchange.
		if err := tx.AuthorizationCodes().DeleteAuthorizationCode(ctx, code.Code, code.RedirectURI); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		token, err := tx.AccessTokens().GetAccessToken(ctx, code.AccessToken)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}
		result = token
		return nil
	})
	if err != nil {
		return domain.AccessToken{}, err
	}

	l.Info("authorization code exchanged",
		slog.String("client_id", result.ClientID),
		slog.String("resource_owner_id", result.ResourceOwnerID))

	return result, nil
}

// verifyBasicAuth checks an HTTP Basic credential against the client's
// id/secret. Strict base64 only; the split is on the first colon; empty
// username or password is rejected.
func verifyBasicAuth(header string, client domain.Client) bool {
	encoded, ok := strings.CutPrefix(header, "Basic ")
	if !ok {
		return false
	}
	decoded, err := base64.StdEncoding.Strict().DecodeString(encoded)
	if err != nil {
		return false
	}
	idx := strings.IndexByte(string(decoded), ':')
	if idx <= 0 || idx == len(decoded)-1 {
		return false
	}
	user := string(decoded[:idx])
	pass := string(decoded[idx+1:])

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(client.ID)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(client.Secret)) == 1
	return userOK && passOK
}
