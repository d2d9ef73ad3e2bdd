// ABOUTME: Entry point for the sportzone command line client
// ABOUTME: Loads config and .env, sets up logging, and dispatches subcommands

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/2389/sportzone/internal/app"
	"github.com/2389/sportzone/internal/config"
)

// Version is set at build time.
var version = "dev"

const banner = `
                       _
  ___ _ __   ___  _ __| |_ _______  _ __   ___
 / __| '_ \ / _ \| '__| __|_  / _ \| '_ \ / _ \
 \__ \ |_) | (_) | |  | |_ / / (_) | | | |  __/
 |___/ .__/ \___/|_|   \__/___\___/|_| |_|\___|
     |_|
`

func usage() {
	fmt.Println("Usage: sportzone <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	for _, name := range commandNames() {
		cmd := commandTable()[name]
		fmt.Printf("  %-34s %s\n", cmd.usage, cmd.help)
	}
	fmt.Printf("  %-34s %s\n", "shell", "Start the interactive shell")
	fmt.Printf("  %-34s %s\n", "version", "Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// A missing .env is fine
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Println(version)
		return
	case "help", "-h", "--help":
		usage()
		return
	case "shell":
		err = withApp(ctx, func(c *cli) error { return runShell(ctx, c) })
	default:
		if _, ok := commandTable()[os.Args[1]]; !ok {
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
			os.Exit(1)
		}
		err = withApp(ctx, func(c *cli) error {
			c.waitForReplies = true
			return c.run(ctx, os.Args[1:])
		})
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file when one exists, else the defaults.
func loadConfig() (*config.Config, string, error) {
	path := config.FindPath()
	if path == "" {
		return config.Default(), "", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

// withApp builds the app, runs fn, and closes the app.
func withApp(ctx context.Context, fn func(c *cli) error) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && cfg.AI.APIKey == "" {
		cfg.AI.APIKey = key
	}

	logger := setupLogger(cfg.Logging)
	logger.Debug("starting sportzone", "config", path, "store", cfg.Store.Driver, "version", version)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	runErr := fn(newCLI(a, os.Stdin, os.Stdout))
	if err := a.Close(); err != nil {
		logger.Error("closing app", "error", err)
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func printBanner() {
	color.New(color.FgCyan).Print(banner)
	color.New(color.FgHiBlack).Printf("    version: %s\n\n", version)
}

// logLevel maps a config level name to a slog level.
func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
