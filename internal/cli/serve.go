package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alechenninger/readgate/internal/config"
	"github.com/alechenninger/readgate/internal/server"
)

// shutdownTimeout bounds graceful shutdown
const shutdownTimeout = 15 * time.Second

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the readgate server",
		Long: `Start the readgate gRPC and HTTP servers.

The server will:
  - Listen for gRPC requests (Envoy ext_authz, gRPC health)
  - Listen for HTTP requests (/healthz, /metrics, /inspect/*path)
  - Load configuration from file, environment variables, and command-line flags

Configuration precedence (highest to lowest):
  1. Command-line flags
  2. Environment variables (READGATE_*, "__" separates nesting levels)
  3. Configuration file
  4. Built-in defaults`,
		RunE: runServe,
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

// loadConfig resolves the config file and loads it with cmd's flags
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	configPath, err := config.ResolvePath(configFile, defaultConfigPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find config: %w", err)
	}

	loader, err := config.NewLoaderWithFlags(configPath, cmd.Flags())
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}

	cfg, err := loader.Get()
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, configPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load configuration (file + env vars + flags)
	cfg, configPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// 2. Create provider to build all components from config
	provider := config.NewProvider(cfg)
	logger := provider.Logger()

	serverCfg, err := provider.ServerConfig()
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	// 3. Create and start server
	srv := server.New(serverCfg)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info("readgate is running",
		"grpc_port", cfg.Server.GRPCPort,
		"http_port", cfg.Server.HTTPPort,
		"base_path", cfg.Gateway.BasePath,
		"config", configPath,
	)

	// 4. Wait for interrupt signal
	<-ctx.Done()
	logger.Info("Shutting down")

	// 5. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}

	logger.Info("Shutdown complete")
	return nil
}
