package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/openvoot/groupgate/internal/groupgate/identity"
	"github.com/openvoot/groupgate/internal/groupgate/service"
	"github.com/openvoot/groupgate/pkg/slogx"
)

// AuthorizeHandler serves the authorization endpoint: GET renders the consent
// prompt or redirects immediately, POST processes the consent decision.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
	Authenticator    identity.Authenticator
}

func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	owner, err := h.Authenticator.Authenticate(r)
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	result, err := h.AuthorizeService.Authorize(r.Context(), owner, service.AuthorizeRequest{
		ClientID:     q.Get("client_id"),
		ResponseType: q.Get("response_type"),
		RedirectURI:  q.Get("redirect_uri"),
		Scope:        q.Get("scope"),
		State:        q.Get("state"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, r, result)
}

func (h *AuthorizeHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	owner, err := h.Authenticator.Authenticate(r)
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	if err := r.ParseForm(); err != nil {
		renderErrorPage(w, http.StatusBadRequest, "malformed form body")
		return
	}

	requested := r.PostForm.Get("scope")
	posted := requested
	if granted, ok := r.PostForm["granted_scope"]; ok {
		posted = strings.Join(granted, " ")
	}

	result, err := h.AuthorizeService.Approve(r.Context(), owner, service.ApproveRequest{
		ClientID:    r.PostForm.Get("client_id"),
		Scope:       requested,
		Nonce:       r.PostForm.Get("authorize_nonce"),
		PostedScope: posted,
		Approved:    r.PostForm.Get("approval") == "approve",
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, r, result)
}

func (h *AuthorizeHandler) writeResult(w http.ResponseWriter, r *http.Request, result service.AuthorizeResult) {
	switch result.Action {
	case service.ActionRedirect:
		http.Redirect(w, r, result.RedirectURL, http.StatusFound)
	case service.ActionAskApproval:
		renderConsent(w, consentPage{
			Client:         result.Client,
			Scopes:         result.Scopes,
			Scope:          strings.Join(result.Scopes, " "),
			Nonce:          result.Nonce,
			Action:         r.URL.Path,
			AllowFiltering: h.AuthorizeService.Settings.AllowScopeFiltering,
		})
	}
}

func (h *AuthorizeHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if ie, ok := service.AsIdentityError(err); ok {
		slogx.FromContext(r.Context()).Info("authorization rejected", slog.String("reason", ie.Description))
		renderErrorPage(w, http.StatusBadRequest, ie.Description)
		return
	}
	slogx.FromContext(r.Context()).Error("authorization failed", slog.Any("error", err))
	renderErrorPage(w, http.StatusInternalServerError, "internal server error")
}
