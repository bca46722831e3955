// ABOUTME: Offline maintenance subcommands for deflink
// ABOUTME: Interactive config creation, password reset and index repair

package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/deflink/deflink/internal/auth"
	"github.com/deflink/deflink/internal/config"
	"github.com/deflink/deflink/internal/server"
	"github.com/deflink/deflink/internal/store"
)

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("deflink configuration setup")
	fmt.Println("===========================")
	fmt.Println()

	cfg := config.Default()

	outputFile := prompt(reader, "Config file path", config.Path())
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
		if err := os.Remove(outputFile); err != nil {
			return fmt.Errorf("removing old config: %w", err)
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	cfg.Server.HTTPAddr = prompt(reader, "HTTP address", cfg.Server.HTTPAddr)

	fmt.Println("\n--- Database Configuration ---")
	cfg.Database.Driver = prompt(reader, "Driver (sqlite/postgres/memory)", cfg.Database.Driver)
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		cfg.Database.Path = prompt(reader, "SQLite database path", cfg.Database.Path)
	case config.DriverPostgres:
		cfg.Database.Path = ""
		cfg.Database.DSN = prompt(reader, "Postgres DSN", "postgres://deflink@localhost:5432/deflink?sslmode=disable")
	}

	fmt.Println("\n--- Authentication ---")
	secret, err := auth.NewSecret()
	if err != nil {
		return err
	}
	cfg.Auth.SessionSecret = base64.StdEncoding.EncodeToString(secret)
	cfg.Auth.DefaultPassword = prompt(reader, "Initial OEM password", cfg.Auth.DefaultPassword)
	cfg.Auth.CookieSecure = isYes(prompt(reader, "Serve behind HTTPS (secure cookies)?", "yes"))

	fmt.Println("\n--- Directory ---")
	cfg.Directory.ProviderDefaultStatus = prompt(reader, "Status of new provider profiles (draft/freigeschaltet)", cfg.Directory.ProviderDefaultStatus)
	cfg.Directory.Seed = isYes(prompt(reader, "Load demo data?", "yes"))

	fmt.Println("\n--- Logging Configuration ---")
	cfg.Logging.Level = prompt(reader, "Log level (debug/info/warn/error)", cfg.Logging.Level)
	cfg.Logging.Format = prompt(reader, "Log format (text/json)", cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Write(outputFile, cfg); err != nil {
		return err
	}

	if cfg.Database.Driver == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	if outputFile != config.Path() {
		fmt.Printf("  DEFLINK_CONFIG=%s deflink serve\n", outputFile)
	} else {
		fmt.Println("  deflink serve")
	}
	return nil
}

// openStore opens the configured store for an offline command.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		return nil, fmt.Errorf("the memory driver keeps no data between runs; configure sqlite or postgres")
	}
	return server.OpenStore(ctx, cfg)
}

// runPasswd sets the OEM password and signs out every session.
// Usage: deflink passwd [--password VALUE]
func runPasswd(ctx context.Context, args []string) error {
	var password string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--password" || arg == "-p":
			if i+1 >= len(args) {
				return fmt.Errorf("--password requires a value")
			}
			password = args[i+1]
			i++
		case strings.HasPrefix(arg, "--password="):
			password = strings.TrimPrefix(arg, "--password=")
		default:
			return fmt.Errorf("unexpected argument: %s", arg)
		}
	}
	if password == "" {
		password = prompt(bufio.NewReader(os.Stdin), "New OEM password", "")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(config.LoggingConfig{Level: "warn", Format: cfg.Logging.Format})

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	dir := server.NewDirectory(s, cfg)
	if err := dir.Settings().EnsureSeed(ctx); err != nil {
		return err
	}

	secret, err := auth.NewSecret()
	if err != nil {
		return err
	}
	authenticator := auth.NewAuthenticator(dir.Settings(), auth.NewSessionManager(s, secret, cfg.Auth.SessionTTL))

	// The zero session keeps nothing, so every login is revoked.
	if err := authenticator.ChangePassword(ctx, auth.Session{}, password); err != nil {
		return err
	}

	color.New(color.FgGreen).Println("  ✓ OEM password updated, all sessions signed out")
	return nil
}

// runRepair reconciles both collection indexes with their records.
func runRepair(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(cfg.Logging)

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := server.NewDirectory(s, cfg).Repair(ctx)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Println("  ✓ Repair complete")
	fmt.Printf("  OEM requests:      %d reindexed, %d dangling removed\n", report.Requests.Reindexed, report.Requests.Dropped)
	fmt.Printf("  Provider profiles: %d reindexed, %d dangling removed\n", report.Providers.Reindexed, report.Providers.Dropped)
	return nil
}

func isYes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "y"
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
		if s := strings.TrimSpace(input); s != "" {
			return s
		}
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
