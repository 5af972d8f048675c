// ABOUTME: Entry point for press-gateway, the Pinch Press submission API
// ABOUTME: Dispatches serve, init, bootstrap, health and build-site commands

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/2389/press-gateway/internal/config"
	"github.com/2389/press-gateway/internal/content"
	"github.com/2389/press-gateway/internal/gateway"
	"github.com/2389/press-gateway/internal/site"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
       _            _
 _ __ (_)_ __   ___| |__    _ __  _ __ ___  ___ ___
| '_ \| | '_ \ / __| '_ \  | '_ \| '__/ _ \/ __/ __|
| |_) | | | | | (__| | | | | |_) | | |  __/\__ \__ \
| .__/|_|_| |_|\___|_| |_| | .__/|_|  \___||___/___/
|_|                        |_|
`

// getDataPath returns the press data directory.
// Priority: XDG_DATA_HOME/press > ~/.local/share/press
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "press")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: press-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                  Start the API server")
		fmt.Println("  init                   Create a new config file interactively")
		fmt.Println("  bootstrap              Generate the admin secret and an admin token")
		fmt.Println("  health                 Check gateway health")
		fmt.Println("  build-site --out DIR   Render published stories as static HTML")
		fmt.Println("  version                Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "bootstrap":
		err = runBootstrap(os.Args[2:])
	case "health":
		err = runHealth(ctx, os.Args[2:])
	case "build-site":
		err = runBuildSite(ctx, os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.DefaultPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	if cfg.Server.HTTPAddr != "" && !cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("HTTP:       %s\n", cfg.Server.HTTPAddr)
	}
	green.Print("    ▶ ")
	fmt.Printf("Store:      %s\n", cfg.Database.Driver)
	green.Print("    ▶ ")
	fmt.Printf("Repository: %s\n", describeRepository(cfg.Repository))

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale:  ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		} else if cfg.Tailscale.HTTPS {
			yellow.Print(" [https]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}
	if cfg.Auth.AdminJWTSecret == "" {
		yellow.Println("    ! Admin API disabled (run press-gateway bootstrap)")
	}

	fmt.Println()

	logger.Info("starting press-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"store", cfg.Database.Driver,
		"repository", cfg.Repository.Backend,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

func describeRepository(cfg config.RepositoryConfig) string {
	switch cfg.Backend {
	case "github":
		return "github " + cfg.GitHub.Repo
	case "s3":
		return "s3://" + cfg.S3.Bucket + "/" + cfg.S3.Prefix
	default:
		return cfg.Backend
	}
}

func runHealth(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("health", pflag.ContinueOnError)
	baseURL := fs.String("url", "", "gateway base URL (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *baseURL == "" {
		cfg, err := config.Load(config.DefaultPath())
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		*baseURL = "http://" + localAddr(cfg.Server.HTTPAddr)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	var health gateway.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	color.Green("healthy")
	fmt.Printf("service: %s\n", health.Service)
	return nil
}

// localAddr rewrites a wildcard listen address into one a local client can dial.
func localAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

func runBuildSite(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("build-site", pflag.ContinueOnError)
	outDir := fs.StringP("out", "o", "public", "output directory")
	siteName := fs.String("name", "", "site title (default service.name)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger(cfg.Logging)

	if *siteName == "" {
		*siteName = cfg.Service.Name
	}

	httpClient := &http.Client{Timeout: cfg.Repository.Timeout}
	repo, err := content.Open(ctx, cfg.Repository, httpClient)
	if err != nil {
		return fmt.Errorf("opening content repository: %w", err)
	}

	builder, err := site.NewBuilder(repo, *siteName, site.WithLogger(logger))
	if err != nil {
		return err
	}

	n, err := builder.Build(ctx, *outDir)
	if err != nil {
		return fmt.Errorf("building site: %w", err)
	}

	color.New(color.FgGreen).Printf("  ✓ Rendered %d stories into %s\n", n, *outDir)
	return nil
}
