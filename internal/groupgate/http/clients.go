package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
	"github.com/openvoot/groupgate/internal/groupgate/service"
	"github.com/openvoot/groupgate/internal/groupgate/store"
	"github.com/openvoot/groupgate/pkg/httpx"
	"github.com/openvoot/groupgate/pkg/oauthx"
	"github.com/openvoot/groupgate/pkg/slogx"
)

// ClientsHandler is the administrative client registration API. The router
// gates every route behind a bearer token carrying the admin scope.
type ClientsHandler struct {
	ClientService *service.ClientService
}

type clientRequest struct {
	ID          string `json:"id"`
	Secret      string `json:"secret"`
	Name        string `json:"name"`
	Description string `json:"description"`
	RedirectURI string `json:"redirect_uri"`
	Type        string `json:"type"`
}

func (req clientRequest) toDomain() domain.Client {
	return domain.Client{
		ID:          req.ID,
		Secret:      req.Secret,
		Name:        req.Name,
		Description: req.Description,
		RedirectURI: req.RedirectURI,
		Type:        domain.ClientType(req.Type),
	}
}

func (h *ClientsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	clients, err := h.ClientService.ListClients(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, clients)
}

func (h *ClientsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	client, err := h.ClientService.GetClient(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, client)
}

func (h *ClientsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		oauthx.ErrInvalidRequest.WriteJSON(w)
		return
	}
	client, err := h.ClientService.AddClient(r.Context(), req.toDomain())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, client)
}

func (h *ClientsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		oauthx.ErrInvalidRequest.WriteJSON(w)
		return
	}
	req.ID = r.PathValue("id")
	client, err := h.ClientService.UpdateClient(r.Context(), req.toDomain())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, client)
}

func (h *ClientsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.ClientService.DeleteClient(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClientsHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		(&oauthx.Error{
			StatusCode:  http.StatusBadRequest,
			Code:        oauthx.ErrorCodeInvalidRequest,
			Description: err.Error(),
		}).WriteJSON(w)
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	case errors.Is(err, store.ErrAlreadyExists):
		httpx.WriteJSON(w, http.StatusConflict, map[string]string{"error": "already_exists"})
	default:
		slogx.FromContext(r.Context()).Error("client management failed", slog.Any("error", err))
		oauthx.ErrServerError.WriteJSON(w)
	}
}
