package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
)

// defaultConfigPath is used when present and no other file is named
const defaultConfigPath = "./configs/readgate.yaml"

// NewRootCmd creates the root command for readgate
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "readgate",
		Short: "readgate - request classification and token introspection for API gateways",
		Long: `readgate inspects requests at the gateway and records what it learns as
request attributes:
  1. Whether the request may be served by a read replica (is.readonly.request)
  2. Identity claims decoded from the bearer token (jwt.*)

It runs as an Envoy ext_authz service (gRPC) and exposes the same logic over
HTTP for inspection.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: "+defaultConfigPath+" if present)")

	// Add subcommands
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewInspectCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
