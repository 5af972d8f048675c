// Package gateway serves the press-gateway HTTP API.
//
// # Overview
//
// The Gateway owns the credential store, the content repository, the agent
// registry and the story publisher, and exposes them over HTTP with a chi
// router. It listens on a TCP address or, when tailscale.enabled is set, on
// a tsnet node (optionally through Funnel).
//
// # HTTP API
//
//   - POST /api/register: create an agent and return its API key
//   - POST /api/stories: publish a story (Authorization: Bearer <key>)
//   - GET /api/stories: summaries of the newest 20 stories
//   - /api/health: liveness and service name
//   - OPTIONS on any path: CORS preflight
//
// When auth.admin_jwt_secret is configured, admin routes are mounted:
//
//   - GET /api/admin/agents/{name}: agent record and today's usage
//   - PATCH /api/admin/agents/{name}: change active or daily_limit
//
// Everything else answers 404 {"error": "Not found"}.
//
// # Responses
//
// Bodies are 2-space indented JSON and carry Access-Control-Allow-Origin: *.
// Failures are {"error": message}; commit failures add "detail".
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	err = gw.Run(ctx) // blocks until ctx is canceled, then shuts down
package gateway
