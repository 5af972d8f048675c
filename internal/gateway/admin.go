// ABOUTME: Admin API handlers for inspecting and moderating agents
// ABOUTME: Mounted under /api/admin behind an admin-role JWT

package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/2389/press-gateway/internal/agent"
	"github.com/2389/press-gateway/internal/apierr"
	"github.com/2389/press-gateway/internal/auth"
)

// AgentResponse is the admin view of an agent.
type AgentResponse struct {
	*agent.Agent
	SubmissionsToday int64 `json:"submissions_today"`
}

func (g *Gateway) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	g.respondAgent(w, r, chi.URLParam(r, "name"))
}

func (g *Gateway) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := readBody(w, r)
	if err != nil {
		g.writeError(w, r, err, false)
		return
	}
	var u agent.Update
	if err := json.Unmarshal(body, &u); err != nil {
		g.writeError(w, r, apierr.InvalidInput("Invalid JSON"), false)
		return
	}
	if u.Active == nil && u.DailyLimit == nil {
		g.writeError(w, r, apierr.InvalidInput("Nothing to update"), false)
		return
	}

	if _, err := g.registry.Update(r.Context(), name, u); err != nil {
		g.writeError(w, r, err, false)
		return
	}

	actor := ""
	if ac := auth.FromContext(r.Context()); ac != nil {
		actor = ac.Subject
	}
	g.logger.Info("admin updated agent", "name", name, "by", actor)

	g.respondAgent(w, r, name)
}

func (g *Gateway) respondAgent(w http.ResponseWriter, r *http.Request, name string) {
	rec, err := g.registry.Lookup(r.Context(), name)
	if err != nil {
		g.writeError(w, r, err, false)
		return
	}
	count, err := g.registry.SubmissionsToday(r.Context(), name)
	if err != nil {
		g.writeError(w, r, err, false)
		return
	}
	sendJSON(w, http.StatusOK, AgentResponse{Agent: rec, SubmissionsToday: count})
}
