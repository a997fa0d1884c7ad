package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/skylite-dev/skylite/internal/config"
	"github.com/skylite-dev/skylite/internal/core"
	"github.com/skylite-dev/skylite/internal/emu"
	"github.com/skylite-dev/skylite/internal/httpx"
	"github.com/skylite-dev/skylite/internal/logging"
	"github.com/skylite-dev/skylite/internal/services/objectstore"
	"github.com/skylite-dev/skylite/internal/services/secretstore"
	"github.com/skylite-dev/skylite/internal/services/tableengine"
)

var (
	// Version is set at build time via ldflags.
	// Example: go build -ldflags "-X github.com/skylite-dev/skylite/internal/cli.Version=1.0.0"
	Version = "dev"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "skylite",
	Short: "GCP LocalStack-style emulator",
	Long: `Skylite is a local emulator of GCP-flavoured services for development
and testing: an object store, a tabular query service and a versioned
secret store, all in-memory.

It exposes a single edge HTTP port that routes requests to the enabled
service modules, and can pre-populate state from a declarative seed file.`,
}

// startCmd represents the start command.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Skylite server",
	Long: `Start the Skylite edge server on the configured port.
The server will listen for HTTP requests and route them to enabled services.`,
	RunE: runStart,
}

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Print the version number of Skylite.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("skylite version %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute is the entry point for the CLI. It should be called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runStart initializes and starts the HTTP server.
func runStart(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("starting skylite",
		logging.String("version", Version),
		logging.Int("edge_port", cfg.EdgePort),
		logging.Bool("strict_mode", cfg.StrictMode),
		logging.String("log_level", cfg.LogLevel),
	)

	// Build the emulation registry that owns all service state
	regOpts := []emu.Option{
		emu.WithProject(cfg.ProjectID),
		emu.WithLogger(logger),
	}
	if cfg.StrictMode {
		regOpts = append(regOpts, emu.WithStrict())
	}
	registry := emu.NewRegistry(regOpts...)

	// Pre-populate state from the seed file, if configured
	if cfg.SeedFile != "" {
		seed, err := emu.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			return fmt.Errorf("failed to load seed file: %w", err)
		}
		if err := registry.Build(seed); err != nil {
			return fmt.Errorf("failed to build seed state: %w", err)
		}
		logger.Info("seed state loaded", logging.String("seed_file", cfg.SeedFile))
	}

	// Create the services over the registry's stores
	services := []core.Service{
		objectstore.NewService(registry.ObjectStore(), logger),
		tableengine.NewService(registry.TableEngine(), logger),
		secretstore.NewService(registry.SecretStore(), logger),
	}

	logger.Info("registered services",
		logging.Int("count", len(services)),
	)

	// Create edge router
	router := httpx.NewEdgeRouter(cfg, logger, services)

	// Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.EdgePort)
	logger.Info("listening on edge port",
		logging.String("address", addr),
	)

	if err := http.ListenAndServe(addr, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
