package config

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/alechenninger/readgate/internal/clock"
	"github.com/alechenninger/readgate/internal/policy"
	"github.com/alechenninger/readgate/internal/probe"
	"github.com/alechenninger/readgate/internal/route"
	"github.com/alechenninger/readgate/internal/server"
	"github.com/alechenninger/readgate/internal/token"
)

// Provider constructs all application components from configuration
// This is the main entry point for building a configured readgate instance
type Provider struct {
	config    *Config
	logOutput io.Writer
	clock     clock.Clock

	// Lazily constructed components (cached after first call)
	logger     *slog.Logger
	observer   probe.Observer
	classifier *route.Classifier
	extractor  *token.Extractor
	policy     policy.Policy
	pipeline   *server.Pipeline
}

// ProviderOption customizes a Provider
type ProviderOption func(*Provider)

// WithLogOutput sends logs to w instead of stderr
func WithLogOutput(w io.Writer) ProviderOption {
	return func(p *Provider) { p.logOutput = w }
}

// WithClock sets the clock used for token expiry
func WithClock(c clock.Clock) ProviderOption {
	return func(p *Provider) { p.clock = c }
}

// NewProvider creates a new provider from configuration
func NewProvider(config *Config, opts ...ProviderOption) *Provider {
	p := &Provider{
		config:    config,
		logOutput: os.Stderr,
		clock:     clock.NewSystemClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Logger returns the configured slog logger
func (p *Provider) Logger() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}

	opts := &slog.HandlerOptions{Level: parseLevel(p.config.Observability.LogLevel)}

	var handler slog.Handler
	if strings.EqualFold(p.config.Observability.LogFormat, "text") {
		handler = slog.NewTextHandler(p.logOutput, opts)
	} else {
		handler = slog.NewJSONHandler(p.logOutput, opts)
	}

	p.logger = slog.New(handler)
	return p.logger
}

// Observer returns the observer notified by the classifier and extractor
func (p *Provider) Observer() probe.Observer {
	if p.observer != nil {
		return p.observer
	}

	observers := []probe.Observer{probe.NewLoggingObserver(p.Logger())}
	if p.config.Observability.MetricsEnabled {
		observers = append(observers, probe.NewMetricsObserver())
	}

	p.observer = probe.NewCompositeObserver(observers...)
	return p.observer
}

// Classifier returns the configured route classifier
func (p *Provider) Classifier() (*route.Classifier, error) {
	if p.classifier != nil {
		return p.classifier, nil
	}

	opts := []route.Option{route.WithObserver(p.Observer())}

	if len(p.config.Routes.Methods) > 0 {
		opts = append(opts, route.WithMethods(p.config.Routes.Methods...))
	}

	if len(p.config.Routes.ReadOnly) > 0 {
		patterns, err := NewPatterns(p.config.Routes.ReadOnly)
		if err != nil {
			return nil, fmt.Errorf("failed to create route patterns: %w", err)
		}
		opts = append(opts, route.WithPatterns(patterns...))
	}

	p.classifier = route.NewClassifier(opts...)
	return p.classifier, nil
}

// NewPatterns compiles configured routes in order
func NewPatterns(routes []RouteConfig) ([]route.Pattern, error) {
	patterns := make([]route.Pattern, 0, len(routes))
	for i, r := range routes {
		var (
			pattern route.Pattern
			err     error
		)
		switch {
		case r.Template != "":
			pattern, err = route.Template(r.Template)
		case r.Prefix != "":
			pattern, err = route.Prefix(r.Prefix)
		case r.Regexp != "":
			pattern, err = route.Regexp(r.Regexp)
		default:
			err = fmt.Errorf("no template, prefix or regexp set")
		}
		if err != nil {
			return nil, fmt.Errorf("routes.readonly[%d]: %w", i, err)
		}
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}

// Extractor returns the configured token extractor
func (p *Provider) Extractor() *token.Extractor {
	if p.extractor != nil {
		return p.extractor
	}

	p.extractor = token.NewExtractor(
		token.WithClock(p.clock),
		token.WithObserver(p.Observer()),
	)
	return p.extractor
}

// Policy returns the configured admission policy
func (p *Provider) Policy() (policy.Policy, error) {
	if p.policy != nil {
		return p.policy, nil
	}

	pol, err := policy.New(p.config.Gateway.AdmissionPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to create admission policy: %w", err)
	}

	p.policy = pol
	return pol, nil
}

// Pipeline returns the classifier+extractor pipeline shared by adapters
func (p *Provider) Pipeline() (*server.Pipeline, error) {
	if p.pipeline != nil {
		return p.pipeline, nil
	}

	classifier, err := p.Classifier()
	if err != nil {
		return nil, err
	}

	p.pipeline = server.NewPipeline(classifier, p.Extractor())
	return p.pipeline, nil
}

// AuthzServer returns a configured ext_authz server
func (p *Provider) AuthzServer() (*server.AuthzServer, error) {
	pipeline, err := p.Pipeline()
	if err != nil {
		return nil, err
	}

	pol, err := p.Policy()
	if err != nil {
		return nil, err
	}

	return server.NewAuthzServer(pipeline, server.AuthzConfig{
		BasePath:         p.config.Gateway.BasePath,
		TokenHeader:      p.config.Gateway.TokenHeader,
		HeaderPrefix:     p.config.Gateway.HeaderPrefix,
		StripCredentials: p.config.Gateway.StripCredentials,
		Policy:           pol,
		Logger:           p.Logger(),
	}), nil
}

// HTTPHandler returns the HTTP surface
func (p *Provider) HTTPHandler() (http.Handler, error) {
	pipeline, err := p.Pipeline()
	if err != nil {
		return nil, err
	}

	return server.NewHTTPHandler(pipeline, server.HTTPConfig{
		BasePath:       p.config.Gateway.BasePath,
		TokenHeader:    p.config.Gateway.TokenHeader,
		MetricsEnabled: p.config.Observability.MetricsEnabled,
		Logger:         p.Logger(),
	}), nil
}

// ServerConfig returns the server configuration with all handlers built
func (p *Provider) ServerConfig() (server.Config, error) {
	authz, err := p.AuthzServer()
	if err != nil {
		return server.Config{}, err
	}

	handler, err := p.HTTPHandler()
	if err != nil {
		return server.Config{}, err
	}

	return server.Config{
		GRPCPort:    p.config.Server.GRPCPort,
		HTTPPort:    p.config.Server.HTTPPort,
		AuthzServer: authz,
		HTTPHandler: handler,
		Logger:      p.Logger(),
	}, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
