package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openvoot/groupgate/internal/groupgate/service"
	"github.com/openvoot/groupgate/pkg/httpx"
	"github.com/openvoot/groupgate/pkg/oauthx"
	"github.com/openvoot/groupgate/pkg/slogx"
)

// TokenHandler serves the token endpoint. It accepts
// application/x-www-form-urlencoded per RFC 6749 and never redirects; all
// failures are structured JSON errors.
type TokenHandler struct {
	TokenService *service.TokenService
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		oauthx.ErrInvalidRequest.WriteJSON(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		oauthx.ErrInvalidRequest.WriteJSON(w)
		return
	}

	token, err := h.TokenService.Exchange(r.Context(), service.TokenRequest{
		GrantType:           r.PostForm.Get("grant_type"),
		Code:                r.PostForm.Get("code"),
		RedirectURI:         r.PostForm.Get("redirect_uri"),
		AuthorizationHeader: r.Header.Get("Authorization"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, oauthx.TokenResponse{
		AccessToken: token.Token,
		TokenType:   "bearer",
		ExpiresIn:   token.ExpiresIn,
		Scope:       token.Scope,
	})
}

func (h *TokenHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		oauthx.ErrInvalidRequest.WriteJSON(w)
	case errors.Is(err, service.ErrUnsupportedGrantType):
		oauthx.ErrUnsupportedGrantType.WriteJSON(w)
	case errors.Is(err, service.ErrInvalidGrant):
		oauthx.ErrInvalidGrant.WriteJSON(w)
	case errors.Is(err, service.ErrInvalidClient):
		oauthx.ErrInvalidClient.WriteJSON(w)
	case errors.Is(err, service.ErrUnauthorizedClient):
		oauthx.ErrUnauthorizedClient.WriteJSON(w)
	default:
		slogx.FromContext(r.Context()).Error("token exchange failed", slog.Any("error", err))
		oauthx.ErrServerError.WriteJSON(w)
	}
}
