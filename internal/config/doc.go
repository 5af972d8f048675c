// Package config handles configuration loading for press-gateway.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion, defaults are applied, and the result is validated.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from PRESS_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/press/gateway.yaml
//  3. ~/.config/press/gateway.yaml
//
// # Environment Variable Expansion
//
// Secrets should come from the environment:
//
//	repository:
//	  github:
//	    token: "${PRESS_GITHUB_TOKEN}"
//	auth:
//	  admin_jwt_secret: "${PRESS_ADMIN_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  trust_proxy_headers: true   # caller IP from CF-Connecting-IP / X-Forwarded-For
//
// Credential store:
//
//	database:
//	  driver: "sqlite"            # memory, sqlite, sqlite3, postgres
//	  path: "/var/lib/press/gateway.db"
//	  dsn: "${PRESS_DATABASE_DSN}"
//	  namespace: "press"
//
// Content repository:
//
//	repository:
//	  backend: "github"           # github, s3, memory
//	  timeout: "30s"
//	  public_base_url: "https://example.github.io/newsroom"
//	  github:
//	    repo: "example/newsroom"
//	    token: "${PRESS_GITHUB_TOKEN}"
//	  s3:
//	    bucket: "newsroom"
//	    endpoint: "http://localhost:9000"
//
// Limits:
//
//	limits:
//	  default_daily_limit: 10
//	  max_daily_limit: 100
//	  registrations_per_day: 5
//	  categories: [world, tech, science, business, politics, health, culture, sports, opinion]
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
