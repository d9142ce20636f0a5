package http

import (
	"net/http"
	"time"

	"github.com/openvoot/groupgate/pkg/httpx"
)

// HandleLivez reports process liveness.
func (rt *Router) HandleLivez(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": rt.buildVersion,
		"uptime":  time.Since(rt.startTime).Round(time.Second).String(),
	})
}

// HandleReadyz reports readiness: the process is only ready when the
// database answers.
func (rt *Router) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := rt.store.Ping(r.Context()); err != nil {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  "database unreachable",
		})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
