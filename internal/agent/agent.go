// ABOUTME: Agent record type and registration request parsing
// ABOUTME: Records are stored as JSON under agent:{fingerprint}

package agent

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/2389/press-gateway/internal/apierr"
)

const (
	maxNameLength        = 50
	minNameLength        = 2
	maxDescriptionLength = 200
)

// Agent is a registered submitter.
type Agent struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Registered  time.Time `json:"registered"`
	DailyLimit  int       `json:"daily_limit"`
	Active      bool      `json:"active"`
}

// RegisterRequest is the body of a registration call.
type RegisterRequest struct {
	Name        string
	Description string
}

// ParseRegisterRequest decodes a registration body. A non-string name is
// treated as missing; a non-string description is rejected.
func ParseRegisterRequest(body []byte) (RegisterRequest, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return RegisterRequest{}, apierr.InvalidInput("Invalid JSON")
	}

	var req RegisterRequest
	if name, ok := raw["name"].(string); ok {
		req.Name = name
	}
	switch desc := raw["description"].(type) {
	case nil:
	case string:
		req.Description = desc
	default:
		return RegisterRequest{}, apierr.InvalidInput("Missing or invalid field: description")
	}
	return req, nil
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// normalizeName trims and truncates a requested name.
func normalizeName(name string) string {
	return truncate(strings.TrimSpace(name), maxNameLength)
}

func nameKey(name string) string {
	return "name:" + strings.ToLower(name)
}

func agentKey(fingerprint string) string {
	return "agent:" + fingerprint
}
