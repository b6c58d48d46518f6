// Package route decides whether a request may be served by a read replica.
package route

import (
	"context"
	"net/http"

	"github.com/alechenninger/readgate/internal/attributes"
)

// Observer receives classification events.
// Implementations must be safe for concurrent use.
type Observer interface {
	// RequestClassified is called once per Apply. matched is nil unless the
	// request is eligible.
	RequestClassified(ctx context.Context, method, path string, eligible bool, matched Pattern)
}

type noopObserver struct{}

func (noopObserver) RequestClassified(context.Context, string, string, bool, Pattern) {}

// Classifier matches (method, path) against an ordered list of patterns.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	methods  map[string]struct{}
	patterns []Pattern
	observer Observer
}

// Option configures a Classifier
type Option func(*Classifier)

// WithPatterns replaces the default pattern list. Order is precedence.
func WithPatterns(patterns ...Pattern) Option {
	return func(c *Classifier) {
		c.patterns = append([]Pattern(nil), patterns...)
	}
}

// WithMethods replaces the set of methods eligible for replicas.
// Comparison is exact and case-sensitive.
func WithMethods(methods ...string) Option {
	return func(c *Classifier) {
		c.methods = make(map[string]struct{}, len(methods))
		for _, m := range methods {
			c.methods[m] = struct{}{}
		}
	}
}

// WithObserver sets the observer notified by Apply
func WithObserver(o Observer) Option {
	return func(c *Classifier) {
		if o != nil {
			c.observer = o
		}
	}
}

// NewClassifier creates a classifier. Without options it accepts GET requests
// matching DefaultPatterns.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		methods:  map[string]struct{}{http.MethodGet: {}},
		patterns: DefaultPatterns(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Patterns returns the configured patterns in precedence order
func (c *Classifier) Patterns() []Pattern {
	return append([]Pattern(nil), c.patterns...)
}

// Match returns the first pattern that makes the request eligible.
func (c *Classifier) Match(method, path string) (Pattern, bool) {
	if _, ok := c.methods[method]; !ok {
		return nil, false
	}
	for _, p := range c.patterns {
		if p.Match(path) {
			return p, true
		}
	}
	return nil, false
}

// Classify reports whether the request is eligible for a read replica.
func (c *Classifier) Classify(method, path string) bool {
	_, ok := c.Match(method, path)
	return ok
}

// Apply classifies the request held in rc and records the decision under
// is.readonly.request.
func (c *Classifier) Apply(ctx context.Context, rc attributes.RequestContext) bool {
	method, path := rc.Verb(), rc.PathSuffix()

	matched, eligible := c.Match(method, path)
	rc.SetReadOnlyRequest(eligible)

	c.observer.RequestClassified(ctx, method, path, eligible, matched)
	return eligible
}
