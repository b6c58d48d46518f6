package config

import (
	"errors"
	"fmt"
	"strings"
)

// Config is the root configuration structure for readgate
type Config struct {
	// Server configuration (gRPC and HTTP ports)
	Server ServerConfig `koanf:"server"`

	// Gateway configures how requests map onto attributes
	Gateway GatewayConfig `koanf:"gateway"`

	// Routes configures read-replica classification
	Routes RoutesConfig `koanf:"routes"`

	// Observability configuration (logging, metrics)
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig contains network-level server settings
type ServerConfig struct {
	// GRPCPort is the port for the ext_authz gRPC service
	GRPCPort int `koanf:"grpc_port" usage:"gRPC server port (ext_authz, health)"`

	// HTTPPort is the port for health, metrics and inspection
	HTTPPort int `koanf:"http_port" usage:"HTTP server port (healthz, metrics, inspect)"`
}

// GatewayConfig configures the attribute adapters
type GatewayConfig struct {
	// BasePath is removed from request paths before classification,
	// e.g. "/orders" for a proxy deployed under that path
	BasePath string `koanf:"base_path" usage:"path prefix removed before route classification"`

	// TokenHeader names the header holding the bearer token
	TokenHeader string `koanf:"token_header" usage:"header carrying the bearer token"`

	// HeaderPrefix prefixes attribute headers sent upstream
	HeaderPrefix string `koanf:"header_prefix" usage:"prefix for attribute headers added to allowed requests"`

	// StripCredentials removes the token header before forwarding
	StripCredentials bool `koanf:"strip_credentials" usage:"remove the token header from forwarded requests"`

	// AdmissionPolicy is an optional CEL expression over attrs.
	// Empty admits every request.
	AdmissionPolicy string `koanf:"admission_policy" usage:"CEL admission expression over attrs (empty allows all)"`
}

// RoutesConfig configures the route classifier
type RoutesConfig struct {
	// Methods eligible for read replicas. Default: GET.
	Methods []string `koanf:"methods" usage:"HTTP methods eligible for read replicas"`

	// ReadOnly lists read-replica routes in precedence order.
	// Empty uses the built-in routes.
	ReadOnly []RouteConfig `koanf:"readonly"`
}

// RouteConfig is a single read-replica route. Exactly one field is set.
type RouteConfig struct {
	// Template matches one path with {name} single-segment placeholders
	Template string `koanf:"template"`

	// Prefix matches every path starting with it
	Prefix string `koanf:"prefix"`

	// Regexp is a raw regular expression
	Regexp string `koanf:"regexp"`
}

// ObservabilityConfig configures application observability
type ObservabilityConfig struct {
	// LogLevel sets the log level
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `koanf:"log_level" usage:"log level: debug, info, warn, error"`

	// LogFormat sets the log format
	// Options: "json", "text"
	// Default: "json"
	LogFormat string `koanf:"log_format" usage:"log format: json, text"`

	// MetricsEnabled exposes /metrics and counts events
	MetricsEnabled bool `koanf:"metrics_enabled" usage:"expose prometheus metrics on /metrics"`
}

// Defaults returns the configuration used when nothing else is set
func Defaults() map[string]any {
	return map[string]any{
		"server.grpc_port":              9090,
		"server.http_port":              8080,
		"gateway.base_path":             "",
		"gateway.token_header":          "authorization",
		"gateway.header_prefix":         "x-readgate-",
		"gateway.strip_credentials":     false,
		"gateway.admission_policy":      "",
		"routes.methods":                []string{"GET"},
		"observability.log_level":       "info",
		"observability.log_format":      "json",
		"observability.metrics_enabled": true,
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	var errs []error

	if err := validPort(c.Server.GRPCPort); err != nil {
		errs = append(errs, fmt.Errorf("server.grpc_port: %w", err))
	}
	if err := validPort(c.Server.HTTPPort); err != nil {
		errs = append(errs, fmt.Errorf("server.http_port: %w", err))
	}
	if c.Server.GRPCPort != 0 && c.Server.GRPCPort == c.Server.HTTPPort {
		errs = append(errs, fmt.Errorf("server.grpc_port and server.http_port must differ"))
	}
	if c.Gateway.BasePath != "" && !strings.HasPrefix(c.Gateway.BasePath, "/") {
		errs = append(errs, fmt.Errorf("gateway.base_path must start with /: %q", c.Gateway.BasePath))
	}

	for i, r := range c.Routes.ReadOnly {
		set := 0
		for _, v := range []string{r.Template, r.Prefix, r.Regexp} {
			if v != "" {
				set++
			}
		}
		if set != 1 {
			errs = append(errs, fmt.Errorf("routes.readonly[%d]: exactly one of template, prefix or regexp must be set", i))
		}
	}

	switch strings.ToLower(c.Observability.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("observability.log_level: unknown level %q", c.Observability.LogLevel))
	}
	switch strings.ToLower(c.Observability.LogFormat) {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("observability.log_format: unknown format %q", c.Observability.LogFormat))
	}

	return errors.Join(errs...)
}

func validPort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}
	return nil
}
