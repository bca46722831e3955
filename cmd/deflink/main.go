// ABOUTME: Entry point for the deflink directory server
// ABOUTME: Dispatches serve, init, passwd, repair and health subcommands

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/deflink/deflink/internal/config"
	"github.com/deflink/deflink/internal/server"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const banner = `
     _       __ _ _       _
  __| | ___ / _| (_)_ __ | | __
 / _' |/ _ \ |_| | | '_ \| |/ /
| (_| |  __/  _| | | | | |   <
 \__,_|\___|_| |_|_|_| |_|_|\_\
`

func usage() {
	fmt.Println("Usage: deflink <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve     Start the directory server")
	fmt.Println("  init      Create a new config file interactively")
	fmt.Println("  passwd    Set the OEM password")
	fmt.Println("  repair    Reconcile collection indexes with stored records")
	fmt.Println("  health    Check server health")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// A missing .env file is fine
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "passwd":
		err = runPasswd(ctx, os.Args[2:])
	case "repair":
		err = runRepair(ctx)
	case "health":
		err = runHealth(ctx)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when none
// exists yet.
func loadConfig() (*config.Config, string, error) {
	configPath := config.Path()
	cfg, found, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, configPath, fmt.Errorf("loading config: %w", err)
	}
	if !found {
		configPath = "(defaults, " + configPath + " not found)"
	}
	return cfg, configPath, nil
}

func runServe(ctx context.Context) error {
	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s", cfg.Database.Driver)
	if cfg.Database.Driver == config.DriverSQLite {
		gray.Printf(" (%s)", cfg.Database.Path)
	}
	if cfg.Database.Driver == config.DriverMemory {
		yellow.Print(" [not persisted]")
	}
	fmt.Println()
	green.Print("    ▶ ")
	fmt.Printf("Providers: new profiles start as %s\n", cfg.Directory.ProviderDefaultStatus)
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:   %s\n", cfg.Metrics.Path)
	}
	fmt.Println()

	logger.Info("starting deflink",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"driver", cfg.Database.Driver,
	)

	s, err := server.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(ctx, cfg, s, version, logger)
	if err != nil {
		_ = s.Close()
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	// Make HTTP request to ready endpoint with context
	url := fmt.Sprintf("http://%s/health/ready", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
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

	fmt.Println("healthy")
	return nil
}
