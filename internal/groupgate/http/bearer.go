package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
	"github.com/openvoot/groupgate/internal/groupgate/service"
	"github.com/openvoot/groupgate/pkg/httpx"
	"github.com/openvoot/groupgate/pkg/oauthx"
	"github.com/openvoot/groupgate/pkg/scopex"
)

type contextKey int

const tokenContextKey contextKey = iota

// TokenFromContext returns the verified access token placed by
// BearerMiddleware.
func TokenFromContext(ctx context.Context) (domain.AccessToken, bool) {
	token, ok := ctx.Value(tokenContextKey).(domain.AccessToken)
	return token, ok
}

// BearerMiddleware verifies the Authorization header and, when requiredScope
// is non-empty, demands that scope token. Failures answer with a
// WWW-Authenticate challenge per RFC 6750.
func BearerMiddleware(verifier *service.VerifyService, realm, requiredScope string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := verifier.Verify(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				if errors.Is(err, service.ErrInvalidToken) {
					oauthx.WriteChallenge(w, realm, oauthx.ErrorCodeInvalidToken, "the access token is malformed, unknown or expired")
					return
				}
				oauthx.ErrServerError.WriteJSON(w)
				return
			}
			if requiredScope != "" && !scopex.Contains(token.Scope, requiredScope) {
				w.Header().Set("WWW-Authenticate",
					`Bearer realm="`+realm+`",error="insufficient_scope",scope="`+requiredScope+`"`)
				w.WriteHeader(http.StatusForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), tokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CORSMiddleware allows cross-origin reads of the protected resource API so
// browser-based clients holding a bearer token can call it directly.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
