package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/openvoot/groupgate/internal/groupgate/identity"
	"github.com/openvoot/groupgate/internal/groupgate/service"
	"github.com/openvoot/groupgate/internal/groupgate/store"
	"github.com/openvoot/groupgate/pkg/slogx"
)

// ApprovalsHandler lets a resource owner review and revoke the consents they
// have granted.
type ApprovalsHandler struct {
	ApprovalService *service.ApprovalService
	Authenticator   identity.Authenticator
}

func (h *ApprovalsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	owner, err := h.Authenticator.Authenticate(r)
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	entries, err := h.ApprovalService.ListApprovals(r.Context(), owner.ResourceOwnerID())
	if err != nil {
		slogx.FromContext(r.Context()).Error("listing approvals failed", slog.Any("error", err))
		renderErrorPage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = approvalsTemplate.Execute(w, struct {
		Entries []service.ApprovalEntry
		Action  string
	}{Entries: entries, Action: r.URL.Path})
}

func (h *ApprovalsHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	owner, err := h.Authenticator.Authenticate(r)
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	if err := r.ParseForm(); err != nil {
		renderErrorPage(w, http.StatusBadRequest, "malformed form body")
		return
	}
	clientID := r.PostForm.Get("client_id")
	if clientID == "" {
		renderErrorPage(w, http.StatusBadRequest, "client_id missing")
		return
	}

	err = h.ApprovalService.RevokeApproval(r.Context(), owner.ResourceOwnerID(), clientID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slogx.FromContext(r.Context()).Error("revoking approval failed", slog.Any("error", err))
		renderErrorPage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
}
