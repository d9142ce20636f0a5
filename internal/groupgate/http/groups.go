package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/openvoot/groupgate/internal/groupgate/service"
	"github.com/openvoot/groupgate/pkg/httpx"
	"github.com/openvoot/groupgate/pkg/oauthx"
	"github.com/openvoot/groupgate/pkg/slogx"
)

// GroupsHandler serves the protected VOOT group directory. The router places
// it behind BearerMiddleware, so a verified token is always in the context.
type GroupsHandler struct {
	VootService *service.VootService
}

// HandleGroups serves the caller's own group memberships.
func (h *GroupsHandler) HandleGroups(w http.ResponseWriter, r *http.Request) {
	token, ok := TokenFromContext(r.Context())
	if !ok {
		oauthx.ErrServerError.WriteJSON(w)
		return
	}

	startIndex, count := pageParams(r)
	page, err := h.VootService.ListMemberships(r.Context(), token.ResourceOwnerID, startIndex, count)
	if err != nil {
		slogx.FromContext(r.Context()).Error("listing memberships failed", slog.Any("error", err))
		oauthx.ErrServerError.WriteJSON(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

// HandleGroupMembers serves the member list of one of the caller's groups.
func (h *GroupsHandler) HandleGroupMembers(w http.ResponseWriter, r *http.Request) {
	token, ok := TokenFromContext(r.Context())
	if !ok {
		oauthx.ErrServerError.WriteJSON(w)
		return
	}

	startIndex, count := pageParams(r)
	page, err := h.VootService.GetGroupMembers(r.Context(), token.ResourceOwnerID, r.PathValue("groupID"), startIndex, count)
	if err != nil {
		if errors.Is(err, service.ErrNotGroupMember) {
			httpx.WriteJSON(w, http.StatusForbidden, map[string]string{
				"error":             "not_a_member",
				"error_description": "the resource owner is not a member of this group",
			})
			return
		}
		slogx.FromContext(r.Context()).Error("listing group members failed", slog.Any("error", err))
		oauthx.ErrServerError.WriteJSON(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func pageParams(r *http.Request) (startIndex, count int) {
	q := r.URL.Query()
	startIndex, _ = strconv.Atoi(q.Get("startIndex"))
	count, _ = strconv.Atoi(q.Get("count"))
	return startIndex, count
}
