package probe

import (
	"context"
	"log/slog"

	"github.com/alechenninger/readgate/internal/route"
	"github.com/alechenninger/readgate/internal/token"
)

// LoggingObserver logs classification and extraction events with slog.
type LoggingObserver struct {
	logger *slog.Logger
}

var (
	_ route.Observer = (*LoggingObserver)(nil)
	_ token.Observer = (*LoggingObserver)(nil)
)

// NewLoggingObserver creates an observer that writes structured records to
// logger, or to slog.Default() when logger is nil.
func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{
		logger: logger,
	}
}

// RequestClassified logs eligible requests only. Ineligible requests are the
// common case and produce no record.
func (o *LoggingObserver) RequestClassified(ctx context.Context, method, path string, eligible bool, matched route.Pattern) {
	if !eligible {
		return
	}

	attrs := withRequestID(ctx,
		slog.String("method", method),
		slog.String("path", path),
	)
	if matched != nil {
		attrs = append(attrs, slog.String("pattern", matched.String()))
	}

	o.logger.LogAttrs(ctx, slog.LevelInfo, "Read-only request detected", attrs...)
}

func (o *LoggingObserver) ClaimsExtracted(ctx context.Context, c token.Claims) {
	if c.Expired {
		o.logger.LogAttrs(ctx, slog.LevelInfo, "Parsed expired token",
			withRequestID(ctx,
				slog.String("username", c.Username),
				slog.Int64("exp", c.ExpiresAt),
			)...,
		)
		return
	}

	o.logger.LogAttrs(ctx, slog.LevelInfo, "Parsed token for user",
		withRequestID(ctx, slog.String("username", c.Username))...,
	)
}

func (o *LoggingObserver) ExtractionFailed(ctx context.Context, err *token.Error) {
	if err.Kind == token.KindMissingToken {
		o.logger.LogAttrs(ctx, slog.LevelDebug, "No token provided", withRequestID(ctx)...)
		return
	}

	o.logger.LogAttrs(ctx, slog.LevelWarn, "Token parse failed",
		withRequestID(ctx,
			slog.String("kind", err.Kind.String()),
			slog.String("error", err.Error()),
		)...,
	)
}

func withRequestID(ctx context.Context, attrs ...slog.Attr) []slog.Attr {
	if id := RequestIDFrom(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	return attrs
}
