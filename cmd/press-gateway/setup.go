// ABOUTME: Interactive init and admin bootstrap for press-gateway
// ABOUTME: init writes gateway.yaml; bootstrap adds an admin secret and writes admin.toml

package main

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/2389/press-gateway/internal/auth"
	"github.com/2389/press-gateway/internal/config"
)

// adminFile is the press-admin client config written by bootstrap.
type adminFile struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

// runBootstrap enables the admin API:
// 1. Generates auth.admin_jwt_secret in the gateway config (if absent)
// 2. Issues an admin JWT
// 3. Writes admin.toml next to the gateway config for press-admin
func runBootstrap(args []string) error {
	fs := pflag.NewFlagSet("bootstrap", pflag.ContinueOnError)
	subject := fs.StringP("name", "n", "admin", "subject recorded in the admin token")
	ttl := fs.Duration("ttl", 30*24*time.Hour, "token lifetime (0 for no expiry)")
	baseURL := fs.String("url", "", "gateway URL for press-admin (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	*subject = strings.TrimSpace(*subject)
	if *subject == "" {
		return fmt.Errorf("--name cannot be empty")
	}

	configPath := config.DefaultPath()
	raw, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no config at %s (run press-gateway init first)", configPath)
	}
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	secret := lookupYAML(&doc, "auth", "admin_jwt_secret")
	if secret == "" {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return fmt.Errorf("generating admin secret: %w", err)
		}
		secret = base64.StdEncoding.EncodeToString(secretBytes)

		if err := setYAML(&doc, secret, "auth", "admin_jwt_secret"); err != nil {
			return err
		}
		out, err := yaml.Marshal(&doc)
		if err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		if err := os.WriteFile(configPath, out, 0o600); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		green.Printf("  ✓ Added admin secret to %s\n", configPath)
	} else {
		cyan.Printf("  Using existing admin secret in %s\n", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.AdminJWTSecret))
	if err != nil {
		return fmt.Errorf("creating JWT verifier: %w", err)
	}
	token, err := verifier.Generate(*subject, auth.RoleAdmin, *ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	if *baseURL == "" {
		*baseURL = "http://" + localAddr(cfg.Server.HTTPAddr)
	}

	adminPath := filepath.Join(filepath.Dir(configPath), "admin.toml")
	f, err := os.OpenFile(adminPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("writing admin config: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(adminFile{URL: *baseURL, Token: token}); err != nil {
		f.Close()
		return fmt.Errorf("encoding admin config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing admin config: %w", err)
	}
	green.Printf("  ✓ Saved admin token: %s\n", adminPath)

	expires := "never"
	if *ttl > 0 {
		expires = time.Now().Add(*ttl).UTC().Format("Jan 02, 2006")
	}

	fmt.Println()
	green.Println("  Bootstrap complete!")
	fmt.Println()
	fmt.Printf("  Subject:  %s\n", *subject)
	fmt.Printf("  Role:     %s\n", auth.RoleAdmin)
	fmt.Printf("  Expires:  %s\n", expires)
	fmt.Printf("  Gateway:  %s\n", *baseURL)
	fmt.Println()
	yellow.Println("  Ready to go:")
	fmt.Println("    press-gateway serve          # restart to enable the admin API")
	fmt.Println("    press-admin agents show NAME # inspect an agent")
	fmt.Println()

	return nil
}

// lookupYAML returns the scalar at path in doc, or "" when absent.
func lookupYAML(doc *yaml.Node, path ...string) string {
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	for _, key := range path {
		if node.Kind != yaml.MappingNode {
			return ""
		}
		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				next = node.Content[i+1]
				break
			}
		}
		if next == nil {
			return ""
		}
		node = next
	}
	if node.Kind != yaml.ScalarNode {
		return ""
	}
	return node.Value
}

// setYAML sets the scalar at path in doc, creating mappings as needed.
func setYAML(doc *yaml.Node, value string, path ...string) error {
	if doc.Kind == 0 {
		doc.Kind = yaml.DocumentNode
	}
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			doc.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
		}
		doc = doc.Content[0]
	}

	node := doc
	for i, key := range path {
		if node.Kind != yaml.MappingNode {
			return fmt.Errorf("config key %s is not a mapping", strings.Join(path[:i], "."))
		}
		last := i == len(path)-1

		var next *yaml.Node
		for j := 0; j+1 < len(node.Content); j += 2 {
			if node.Content[j].Value == key {
				next = node.Content[j+1]
				break
			}
		}
		if next == nil {
			next = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			if last {
				next = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str"}
			}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, next)
		}
		if last {
			next.Kind = yaml.ScalarNode
			next.Tag = "!!str"
			next.Style = yaml.DoubleQuotedStyle
			next.Value = value
			next.Content = nil
			return nil
		}
		if next.Kind == yaml.ScalarNode && next.Value == "" {
			// "auth:" with no body parses as a null scalar
			next.Kind = yaml.MappingNode
			next.Tag = "!!map"
		}
		node = next
	}
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("press-gateway configuration setup")
	fmt.Println("=================================")
	fmt.Println()

	defaultDbPath := filepath.Join(getDataPath(), "gateway.db")

	outputFile := prompt(reader, "Config file path", config.DefaultPath())

	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, "File exists. Overwrite?", "no")) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	serviceName := prompt(reader, "Service name", "Pinch Press API")
	httpAddr := prompt(reader, "HTTP address", "0.0.0.0:8080")
	trustProxy := yes(prompt(reader, "Behind Cloudflare or a reverse proxy?", "no"))

	fmt.Println("\n--- Credential Store ---")
	driver := prompt(reader, "Driver (sqlite/sqlite3/postgres/memory)", "sqlite")
	var dbPath, dsn string
	switch driver {
	case "sqlite", "sqlite3":
		dbPath = prompt(reader, "SQLite database path", defaultDbPath)
	case "postgres":
		dsn = prompt(reader, "Postgres DSN", "postgres://press@localhost:5432/press?sslmode=disable")
	}

	fmt.Println("\n--- Content Repository ---")
	backend := prompt(reader, "Backend (github/s3)", "github")
	var ghRepo, ghBranch, s3Bucket, s3Region, s3Endpoint, s3Prefix string
	switch backend {
	case "github":
		ghRepo = prompt(reader, "GitHub repository (owner/name)", "")
		ghBranch = prompt(reader, "Branch (empty for default)", "")
	case "s3":
		s3Bucket = prompt(reader, "Bucket", "")
		s3Region = prompt(reader, "Region", "us-east-1")
		s3Endpoint = prompt(reader, "Endpoint (empty for AWS)", "")
		s3Prefix = prompt(reader, "Key prefix", "")
	}
	publicBaseURL := prompt(reader, "Public site URL", "")
	docsURL := prompt(reader, "API docs URL", "")

	fmt.Println("\n--- Tailscale Configuration ---")
	tailscaleEnabled := yes(prompt(reader, "Enable Tailscale?", "no"))

	var tsHostname, tsAuthKey string
	var tsEphemeral, tsFunnel bool
	if tailscaleEnabled {
		tsHostname = prompt(reader, "Tailscale hostname", "press-gateway")
		tsAuthKey = prompt(reader, "Tailscale auth key (leave empty for interactive)", "")
		tsEphemeral = yes(prompt(reader, "Ephemeral node?", "no"))
		tsFunnel = yes(prompt(reader, "Enable Funnel (public HTTPS)?", "no"))
	}

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# press-gateway configuration\n")
	cfg.WriteString("# Generated by press-gateway init\n\n")

	fmt.Fprintf(&cfg, "service:\n  name: %q\n\n", serviceName)

	cfg.WriteString("server:\n")
	fmt.Fprintf(&cfg, "  http_addr: %q\n", httpAddr)
	fmt.Fprintf(&cfg, "  trust_proxy_headers: %t\n\n", trustProxy)

	cfg.WriteString("database:\n")
	fmt.Fprintf(&cfg, "  driver: %q\n", driver)
	if dbPath != "" {
		fmt.Fprintf(&cfg, "  path: %q\n", dbPath)
	}
	if dsn != "" {
		fmt.Fprintf(&cfg, "  dsn: %q\n", dsn)
	}
	cfg.WriteString("\n")

	cfg.WriteString("repository:\n")
	fmt.Fprintf(&cfg, "  backend: %q\n", backend)
	fmt.Fprintf(&cfg, "  public_base_url: %q\n", strings.TrimRight(publicBaseURL, "/"))
	fmt.Fprintf(&cfg, "  docs_url: %q\n", docsURL)
	cfg.WriteString("  timeout: \"30s\"\n")
	cfg.WriteString("  list_cache_ttl: \"15s\"\n")
	switch backend {
	case "github":
		cfg.WriteString("  github:\n")
		fmt.Fprintf(&cfg, "    repo: %q\n", ghRepo)
		cfg.WriteString("    token: \"${GITHUB_TOKEN}\"\n")
		if ghBranch != "" {
			fmt.Fprintf(&cfg, "    branch: %q\n", ghBranch)
		}
	case "s3":
		cfg.WriteString("  s3:\n")
		fmt.Fprintf(&cfg, "    bucket: %q\n", s3Bucket)
		fmt.Fprintf(&cfg, "    region: %q\n", s3Region)
		if s3Endpoint != "" {
			fmt.Fprintf(&cfg, "    endpoint: %q\n", s3Endpoint)
		}
		if s3Prefix != "" {
			fmt.Fprintf(&cfg, "    prefix: %q\n", s3Prefix)
		}
	}
	cfg.WriteString("\n")

	cfg.WriteString("tailscale:\n")
	fmt.Fprintf(&cfg, "  enabled: %t\n", tailscaleEnabled)
	if tailscaleEnabled {
		fmt.Fprintf(&cfg, "  hostname: %q\n", tsHostname)
		if tsAuthKey != "" {
			fmt.Fprintf(&cfg, "  auth_key: %q\n", tsAuthKey)
		}
		fmt.Fprintf(&cfg, "  ephemeral: %t\n", tsEphemeral)
		fmt.Fprintf(&cfg, "  funnel: %t\n", tsFunnel)
	}
	cfg.WriteString("\n")

	cfg.WriteString("limits:\n")
	cfg.WriteString("  default_daily_limit: 10\n")
	cfg.WriteString("  max_daily_limit: 100\n")
	cfg.WriteString("  registrations_per_day: 5\n\n")

	cfg.WriteString("logging:\n")
	fmt.Fprintf(&cfg, "  level: %q\n", logLevel)
	fmt.Fprintf(&cfg, "  format: %q\n", logFormat)

	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	switch backend {
	case "github":
		fmt.Println("Set GITHUB_TOKEN to a token with contents:write on the repository.")
	case "s3":
		fmt.Println("S3 credentials come from the AWS default chain unless access_key/secret_key are set.")
	}
	fmt.Println("\nNext steps:")
	fmt.Println("  press-gateway bootstrap   # enable the admin API")
	fmt.Println("  press-gateway serve")

	return nil
}

func yes(answer string) bool {
	a := strings.ToLower(answer)
	return a == "yes" || a == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
