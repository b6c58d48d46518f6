package probe

import (
	"context"

	"github.com/alechenninger/readgate/internal/route"
	"github.com/alechenninger/readgate/internal/token"
)

// Observer is notified of both classification and extraction events.
type Observer interface {
	route.Observer
	token.Observer
}

type compositeObserver struct {
	observers []Observer
}

// NewCompositeObserver fans every event out to observers, in order.
// Nil entries are skipped.
func NewCompositeObserver(observers ...Observer) Observer {
	filtered := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	return &compositeObserver{observers: filtered}
}

func (c *compositeObserver) RequestClassified(ctx context.Context, method, path string, eligible bool, matched route.Pattern) {
	for _, o := range c.observers {
		o.RequestClassified(ctx, method, path, eligible, matched)
	}
}

func (c *compositeObserver) ClaimsExtracted(ctx context.Context, claims token.Claims) {
	for _, o := range c.observers {
		o.ClaimsExtracted(ctx, claims)
	}
}

func (c *compositeObserver) ExtractionFailed(ctx context.Context, err *token.Error) {
	for _, o := range c.observers {
		o.ExtractionFailed(ctx, err)
	}
}

type noopObserver struct{}

// NoopObserver returns an observer that ignores every event.
func NoopObserver() Observer {
	return noopObserver{}
}

func (noopObserver) RequestClassified(context.Context, string, string, bool, route.Pattern) {}
func (noopObserver) ClaimsExtracted(context.Context, token.Claims)                          {}
func (noopObserver) ExtractionFailed(context.Context, *token.Error)                         {}
