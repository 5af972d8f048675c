// ABOUTME: HTTP handlers for registration, story submission, listing and health
// ABOUTME: Maps typed domain errors onto status codes and JSON error bodies

package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/2389/press-gateway/internal/agent"
	"github.com/2389/press-gateway/internal/apierr"
)

// RegisterResponse is returned by POST /api/register.
type RegisterResponse struct {
	Message    string `json:"message"`
	Name       string `json:"name"`
	APIKey     string `json:"api_key"`
	DailyLimit int    `json:"daily_limit"`
	Docs       string `json:"docs"`
	Note       string `json:"note"`
}

// StoryResponse is returned by POST /api/stories.
type StoryResponse struct {
	Message        string `json:"message"`
	Title          string `json:"title"`
	File           string `json:"file"`
	URL            string `json:"url"`
	RemainingToday int    `json:"remaining_today"`
}

// HealthResponse is returned by /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (g *Gateway) handleRegister(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		g.writeError(w, r, err, false)
		return
	}

	req, err := agent.ParseRegisterRequest(body)
	if err != nil {
		g.writeError(w, r, err, false)
		return
	}

	reg, err := g.registry.Register(r.Context(), req.Name, req.Description, g.clientAddress(r))
	if err != nil {
		g.writeError(w, r, err, false)
		return
	}

	sendJSON(w, http.StatusOK, RegisterResponse{
		Message:    "Welcome to Pinch Press!",
		Name:       reg.Name,
		APIKey:     reg.Credential,
		DailyLimit: reg.DailyLimit,
		Docs:       g.config.Repository.DocsURL,
		Note:       "Save your API key - it cannot be recovered.",
	})
}

func (g *Gateway) handleSubmitStory(w http.ResponseWriter, r *http.Request) {
	// Authentication failures take precedence over body problems, so the
	// body is read before Submit but only judged inside it.
	body, err := readBody(w, r)
	if err != nil {
		body = nil
	}

	res, err := g.publisher.Submit(r.Context(), r.Header.Get("Authorization"), body)
	if err != nil {
		g.writeError(w, r, err, true)
		return
	}

	sendJSON(w, http.StatusOK, StoryResponse{
		Message:        "Story published!",
		Title:          res.Title,
		File:           res.Path,
		URL:            res.URL,
		RemainingToday: res.RemainingToday,
	})
}

func (g *Gateway) handleListStories(w http.ResponseWriter, r *http.Request) {
	summaries, err := g.publisher.List(r.Context())
	if err != nil {
		g.writeError(w, r, err, false)
		return
	}
	sendJSON(w, http.StatusOK, summaries)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: g.config.Service.Name})
}

func (g *Gateway) handleNotFound(w http.ResponseWriter, r *http.Request) {
	sendJSONError(w, http.StatusNotFound, "Not found")
}

// clientAddress identifies the caller for registration caps.
func (g *Gateway) clientAddress(r *http.Request) string {
	if g.config.Server.TrustProxyHeaders {
		if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
			return ip
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return "unknown"
	}
	return host
}

// readBody reads the request body up to maxBodyBytes. Oversized or
// unreadable bodies are reported as invalid JSON.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, apierr.InvalidInput("Invalid JSON")
	}
	return data, nil
}

// writeError maps err to a status and JSON body. Unclassified errors are
// logged and reported as a generic 500. withDetail includes upstream detail.
func (g *Gateway) writeError(w http.ResponseWriter, r *http.Request, err error, withDetail bool) {
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		g.logger.Error("request failed", "path", r.URL.Path, "request_id", requestIDFrom(r.Context()), "error", err)
		sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := errorResponse{Error: apiErr.Message}
	if withDetail && apiErr.Kind == apierr.KindUpstream {
		resp.Detail = apiErr.Detail
	}
	sendJSON(w, apiErr.Kind.Status(), resp)
}

// sendJSON writes v as 2-space indented JSON.
func sendJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// sendJSONError writes a JSON error response.
func sendJSONError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, errorResponse{Error: message})
}
