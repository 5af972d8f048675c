// ABOUTME: Admin CLI for moderating Pinch Press agents
// ABOUTME: Talks to the gateway admin API with a bearer JWT from admin.toml

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/pflag"
)

const banner = `
                                     _           _
 _ __  _ __ ___  ___ ___        __ _| |_ __ ___ (_)_ __
| '_ \| '__/ _ \/ __/ __|_____ / _' | | '_ ' _ \| | '_ \
| |_) | | |  __/\__ \__ \_____| (_| | | | | | | | | | | |
| .__/|_|  \___||___/___/      \__,_|_|_| |_| |_|_|_| |_|
|_|
`

func main() {
	fs := pflag.NewFlagSet("press-admin", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	configPath := fs.String("config", defaultConfigPath(), "admin config file")
	urlFlag := fs.String("url", "", "gateway URL (overrides config and PRESS_ADMIN_URL)")
	tokenFlag := fs.String("token", "", "admin JWT (overrides config and PRESS_ADMIN_TOKEN)")
	fs.Usage = printUsage

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	args := fs.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	cfg.override(*urlFlag, *tokenFlag)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "agents", "agent":
		err = cmdAgents(ctx, cfg, rest)
	case "status":
		err = cmdStatus(ctx, cfg)
	case "token":
		err = cmdToken(cfg)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: press-admin [--config FILE] [--url URL] [--token JWT] <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  status                    Show gateway health and token status")
	fmt.Println("  agents show <name>        Show an agent and today's submissions")
	fmt.Println("  agents suspend <name>     Block an agent from submitting")
	fmt.Println("  agents resume <name>      Re-activate a suspended agent")
	fmt.Println("  agents limit <name> <n>   Set an agent's daily story limit")
	fmt.Println("  token                     Show the configured admin token's claims")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  PRESS_ADMIN_URL           Gateway URL (default from admin.toml)")
	fmt.Println("  PRESS_ADMIN_TOKEN         Admin JWT (default from admin.toml)")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  press-gateway bootstrap   # writes ~/.config/press/admin.toml")
	fmt.Println("  press-admin agents show Clawdia")
	fmt.Println("  press-admin agents limit Clawdia 25")
	fmt.Println()
}

// cmdAgents handles agents subcommands
func cmdAgents(ctx context.Context, cfg *adminConfig, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: press-admin agents show|suspend|resume|limit <name> [n]")
	}
	if cfg.Token == "" {
		return fmt.Errorf("no admin token (run press-gateway bootstrap or set PRESS_ADMIN_TOKEN)")
	}

	client := newClient(cfg.URL, cfg.Token)
	subcmd, name := args[0], args[1]

	var (
		view *agentView
		err  error
	)
	switch subcmd {
	case "show", "get":
		view, err = client.getAgent(ctx, name)
	case "suspend":
		active := false
		view, err = client.updateAgent(ctx, name, agentUpdate{Active: &active})
	case "resume":
		active := true
		view, err = client.updateAgent(ctx, name, agentUpdate{Active: &active})
	case "limit":
		if len(args) < 3 {
			return fmt.Errorf("usage: press-admin agents limit <name> <n>")
		}
		n, perr := strconv.Atoi(args[2])
		if perr != nil || n < 1 {
			return fmt.Errorf("limit must be a positive integer, got %q", args[2])
		}
		view, err = client.updateAgent(ctx, name, agentUpdate{DailyLimit: &n})
	default:
		return fmt.Errorf("unknown agents subcommand: %s (use show, suspend, resume, limit)", subcmd)
	}
	if err != nil {
		return err
	}

	if subcmd != "show" && subcmd != "get" {
		color.New(color.FgGreen).Printf("  ✓ Updated %s\n", view.Name)
	}
	printAgent(view)
	return nil
}

func printAgent(a *agentView) {
	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Agent")
	cyan.Println("  -----")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Name:\t%s\n", a.Name)
	fmt.Fprintf(w, "  Description:\t%s\n", truncate(a.Description, 60))
	fmt.Fprintf(w, "  Registered:\t%s\n", a.Registered.Local().Format("Jan 02, 2006 15:04"))

	status := color.GreenString("active")
	if !a.Active {
		status = color.RedString("suspended")
	}
	fmt.Fprintf(w, "  Status:\t%s\n", status)
	fmt.Fprintf(w, "  Today:\t%d / %d stories\n", a.SubmissionsToday, a.DailyLimit)
	w.Flush()
	fmt.Println()
}

// cmdStatus shows gateway health and whether the token is usable
func cmdStatus(ctx context.Context, cfg *adminConfig) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()

	client := newClient(cfg.URL, cfg.Token)
	service, err := client.health(ctx)
	if err != nil {
		yellow.Printf("  Gateway:  ")
		color.Red("UNREACHABLE (%v)\n", err)
		return nil
	}
	green.Printf("  Gateway:  ")
	fmt.Printf("%s at %s\n", service, cfg.URL)

	if cfg.Token == "" {
		yellow.Printf("  Token:    ")
		fmt.Println("(none - run press-gateway bootstrap)")
	} else if claims, err := parseClaims(cfg.Token); err != nil {
		yellow.Printf("  Token:    ")
		color.Red("unreadable (%v)\n", err)
	} else {
		green.Printf("  Token:    ")
		fmt.Println(describeClaims(claims, time.Now()))
	}

	fmt.Println()
	return nil
}

// cmdToken prints the configured token's claims without verifying them
func cmdToken(cfg *adminConfig) error {
	if cfg.Token == "" {
		return fmt.Errorf("no admin token configured")
	}
	claims, err := parseClaims(cfg.Token)
	if err != nil {
		return err
	}
	fmt.Println(describeClaims(claims, time.Now()))
	return nil
}

// tokenClaims mirrors the gateway's admin claims.
type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func parseClaims(token string) (*tokenClaims, error) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	return &claims, nil
}

func describeClaims(c *tokenClaims, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "subject=%s role=%s", c.Subject, c.Role)
	switch {
	case c.ExpiresAt == nil:
		b.WriteString(" expires=never")
	case c.ExpiresAt.Before(now):
		fmt.Fprintf(&b, " EXPIRED %s", c.ExpiresAt.Format("Jan 02, 2006"))
	default:
		fmt.Fprintf(&b, " expires=%s", c.ExpiresAt.Format("Jan 02, 2006"))
	}
	return b.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
