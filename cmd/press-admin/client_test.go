package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/press-gateway/internal/auth"
	"github.com/2389/press-gateway/internal/config"
	"github.com/2389/press-gateway/internal/gateway"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func startGateway(t *testing.T) *httptest.Server {
	t.Helper()

	cfg, err := config.Parse([]byte(`
database:
  driver: memory
repository:
  backend: memory
auth:
  admin_jwt_secret: "` + testSecret + `"
`))
	require.NoError(t, err)

	gw, err := gateway.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Shutdown(context.Background()) })

	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/api/register", "application/json", strings.NewReader(`{"name":"Clawdia"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return srv
}

func adminToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	v, err := auth.NewJWTVerifier([]byte(testSecret))
	require.NoError(t, err)
	token, err := v.Generate("ops", auth.RoleAdmin, ttl)
	require.NoError(t, err)
	return token
}

func TestClientAgents(t *testing.T) {
	srv := startGateway(t)
	c := newClient(srv.URL, adminToken(t, time.Hour))
	ctx := context.Background()

	v, err := c.getAgent(ctx, "clawdia")
	require.NoError(t, err)
	assert.Equal(t, "Clawdia", v.Name)
	assert.True(t, v.Active)
	assert.Equal(t, 10, v.DailyLimit)

	active := false
	v, err = c.updateAgent(ctx, "Clawdia", agentUpdate{Active: &active})
	require.NoError(t, err)
	assert.False(t, v.Active)

	limit := 3
	v, err = c.updateAgent(ctx, "Clawdia", agentUpdate{DailyLimit: &limit})
	require.NoError(t, err)
	assert.Equal(t, 3, v.DailyLimit)
	assert.False(t, v.Active, "limit change keeps suspension")

	_, err = c.getAgent(ctx, "nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Agent not found (HTTP 404)")
}

func TestClientRejectedToken(t *testing.T) {
	srv := startGateway(t)
	c := newClient(srv.URL, "not-a-jwt")

	_, err := c.getAgent(context.Background(), "Clawdia")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestClientHealth(t *testing.T) {
	srv := startGateway(t)
	service, err := newClient(srv.URL, "").health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Pinch Press API", service)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "admin.toml")
	require.NoError(t, os.WriteFile(path, []byte("url = \"https://press.example/\"\ntoken = \"abc\"\n"), 0o600))

	t.Run("file", func(t *testing.T) {
		t.Setenv("PRESS_ADMIN_URL", "")
		t.Setenv("PRESS_ADMIN_TOKEN", "")
		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "https://press.example", cfg.URL)
		assert.Equal(t, "abc", cfg.Token)
	})

	t.Run("environment wins", func(t *testing.T) {
		t.Setenv("PRESS_ADMIN_URL", "http://127.0.0.1:9000")
		t.Setenv("PRESS_ADMIN_TOKEN", "env")
		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "http://127.0.0.1:9000", cfg.URL)
		assert.Equal(t, "env", cfg.Token)

		cfg.override("http://flag", "")
		assert.Equal(t, "http://flag", cfg.URL)
		assert.Equal(t, "env", cfg.Token)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("PRESS_ADMIN_URL", "")
		t.Setenv("PRESS_ADMIN_TOKEN", "")
		cfg, err := loadConfig(filepath.Join(dir, "nope.toml"))
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080", cfg.URL)
		assert.Empty(t, cfg.Token)
	})

	t.Run("malformed file", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.toml")
		require.NoError(t, os.WriteFile(bad, []byte("url = "), 0o600))
		_, err := loadConfig(bad)
		assert.Error(t, err)
	})
}

func TestDescribeClaims(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	claims, err := parseClaims(adminToken(t, 0))
	require.NoError(t, err)
	assert.Equal(t, "subject=ops role=admin expires=never", describeClaims(claims, now))

	claims, err = parseClaims(adminToken(t, time.Hour))
	require.NoError(t, err)
	assert.Contains(t, describeClaims(claims, now), "expires=")
	assert.Contains(t, describeClaims(claims, claims.ExpiresAt.Add(time.Minute)), "EXPIRED")

	_, err = parseClaims("garbage")
	assert.Error(t, err)
}
