package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/alechenninger/readgate/internal/attributes"
	"github.com/alechenninger/readgate/internal/clock"
	"github.com/alechenninger/readgate/internal/config"
	"github.com/alechenninger/readgate/internal/route"
	"github.com/alechenninger/readgate/internal/token"
)

type inspectOptions struct {
	method        string
	path          string
	token         string
	authorization string
	now           int64
	output        string
}

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the attributes readgate would produce for a request",
		Long: `Run route classification and token extraction for a single request and
print the resulting attributes. Nothing is sent anywhere.

Examples:
  readgate inspect --path /v1/users/42 --token "$TOKEN"
  readgate inspect --method POST --path /v1/users/42 --authorization "Bearer $TOKEN" -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.method, "method", "GET", "HTTP method of the request")
	cmd.Flags().StringVar(&opts.path, "path", "/", "request path, including any gateway base path")
	cmd.Flags().StringVar(&opts.token, "token", "", "bearer token")
	cmd.Flags().StringVar(&opts.authorization, "authorization", "", "Authorization header value (used when --token is empty)")
	cmd.Flags().Int64Var(&opts.now, "now", 0, "evaluate expiry at this Unix time (default: current time)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "json", "output format: json, yaml")

	config.RegisterFlags(cmd.Flags())

	return cmd
}

func runInspect(cmd *cobra.Command, opts *inspectOptions) error {
	format := strings.ToLower(opts.output)
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unsupported output format %q (want json or yaml)", opts.output)
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	providerOpts := []config.ProviderOption{config.WithLogOutput(cmd.ErrOrStderr())}
	if opts.now != 0 {
		providerOpts = append(providerOpts, config.WithClock(clock.NewEpochClock(opts.now)))
	}
	provider := config.NewProvider(cfg, providerOpts...)

	pipeline, err := provider.Pipeline()
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	tok := opts.token
	if tok == "" {
		tok = token.FromAuthorizationHeader(opts.authorization)
	}

	store := attributes.NewMap(
		opts.method,
		route.TrimBasePath(cfg.Gateway.BasePath, opts.path),
		tok,
	)
	pipeline.Run(cmd.Context(), store)

	return writeAttributes(cmd.OutOrStdout(), format, attributes.Snapshot(store))
}

func writeAttributes(w io.Writer, format string, snapshot map[string]any) error {
	var (
		out []byte
		err error
	)
	switch format {
	case "yaml":
		out, err = yaml.Marshal(snapshot)
	default:
		out, err = json.MarshalIndent(snapshot, "", "  ")
		out = append(out, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}

	_, err = w.Write(out)
	return err
}
