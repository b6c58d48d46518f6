package probe

import (
	"context"
	"strconv"

	"github.com/alechenninger/readgate/internal/metrics"
	"github.com/alechenninger/readgate/internal/route"
	"github.com/alechenninger/readgate/internal/token"
)

// Outcome label values for readgate_token_extractions_total.
const (
	OutcomeValid = "valid"
)

// MetricsObserver counts classification and extraction outcomes.
type MetricsObserver struct{}

var (
	_ route.Observer = MetricsObserver{}
	_ token.Observer = MetricsObserver{}
)

// NewMetricsObserver returns an observer backed by the process-wide
// collectors in package metrics.
func NewMetricsObserver() MetricsObserver {
	return MetricsObserver{}
}

func (MetricsObserver) RequestClassified(_ context.Context, _, _ string, eligible bool, _ route.Pattern) {
	metrics.RouteClassificationsTotal.WithLabelValues(strconv.FormatBool(eligible)).Inc()
}

func (MetricsObserver) ClaimsExtracted(_ context.Context, c token.Claims) {
	outcome := OutcomeValid
	if c.Err != nil {
		outcome = c.Err.Kind.String()
	}
	metrics.TokenExtractionsTotal.WithLabelValues(outcome).Inc()
}

func (MetricsObserver) ExtractionFailed(_ context.Context, err *token.Error) {
	metrics.TokenExtractionsTotal.WithLabelValues(err.Kind.String()).Inc()
}
