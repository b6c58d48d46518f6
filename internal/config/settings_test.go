package config

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestSettings(t *testing.T) {
	tests := []struct {
		key  string
		flag string
		env  string
		list bool
	}{
		{"server.grpc_port", "server-grpc-port", "READGATE_SERVER__GRPC_PORT", false},
		{"server.http_port", "server-http-port", "READGATE_SERVER__HTTP_PORT", false},
		{"gateway.base_path", "gateway-base-path", "READGATE_GATEWAY__BASE_PATH", false},
		{"gateway.admission_policy", "gateway-admission-policy", "READGATE_GATEWAY__ADMISSION_POLICY", false},
		{"routes.methods", "routes-methods", "READGATE_ROUTES__METHODS", true},
		{"observability.metrics_enabled", "observability-metrics-enabled", "READGATE_OBSERVABILITY__METRICS_ENABLED", false},
	}

	byKey := make(map[string]setting, len(settings))
	for _, s := range settings {
		byKey[s.key] = s
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			s, ok := byKey[tt.key]
			if !ok {
				t.Fatalf("no setting for %q", tt.key)
			}
			if got := s.flagName(); got != tt.flag {
				t.Errorf("flagName() = %q, want %q", got, tt.flag)
			}
			if got := s.envName(); got != tt.env {
				t.Errorf("envName() = %q, want %q", got, tt.env)
			}
			if got := s.list(); got != tt.list {
				t.Errorf("list() = %v, want %v", got, tt.list)
			}
		})
	}

	if _, ok := byKey["routes.readonly"]; ok {
		t.Error("routes.readonly is a list of structs and should only come from files")
	}
	if len(settings) != 11 {
		t.Errorf("got %d settings, want 11", len(settings))
	}
}

func TestRegisterFlags(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flagSet)

	expectedFlags := []struct {
		name     string
		usage    string
		flagType string
	}{
		{"server-grpc-port", "gRPC server port (ext_authz, health)", "int"},
		{"server-http-port", "HTTP server port (healthz, metrics, inspect)", "int"},
		{"gateway-strip-credentials", "remove the token header from forwarded requests", "bool"},
		{"routes-methods", "HTTP methods eligible for read replicas", "stringSlice"},
		{"observability-log-format", "log format: json, text", "string"},
	}

	for _, tt := range expectedFlags {
		t.Run(tt.name, func(t *testing.T) {
			flag := flagSet.Lookup(tt.name)
			if flag == nil {
				t.Fatalf("flag %q not registered", tt.name)
			}
			if flag.Usage != tt.usage {
				t.Errorf("flag %q usage = %q, want %q", tt.name, flag.Usage, tt.usage)
			}
			if flag.Value.Type() != tt.flagType {
				t.Errorf("flag %q type = %q, want %q", tt.name, flag.Value.Type(), tt.flagType)
			}
			if flag.DefValue != "" && flag.DefValue != "0" && flag.DefValue != "false" && flag.DefValue != "[]" {
				t.Errorf("flag %q default = %q, want zero", tt.name, flag.DefValue)
			}
		})
	}

	// Registering twice must not panic
	RegisterFlags(flagSet)
}

func TestFlagKeys(t *testing.T) {
	keys := flagKeys()

	if got := keys["gateway-token-header"]; got != "gateway.token_header" {
		t.Errorf("gateway-token-header maps to %q", got)
	}
	if len(keys) != len(settings) {
		t.Errorf("got %d flag keys for %d settings", len(keys), len(settings))
	}
}
