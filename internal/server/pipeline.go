package server

import (
	"context"
	"strings"

	"github.com/alechenninger/readgate/internal/attributes"
	"github.com/alechenninger/readgate/internal/route"
	"github.com/alechenninger/readgate/internal/token"
)

// Pipeline runs the classifier and then the extractor over one request's
// attributes. Both adapters share it.
type Pipeline struct {
	classifier *route.Classifier
	extractor  *token.Extractor
}

// Result summarizes what the pipeline wrote.
type Result struct {
	ReadOnly bool
	Claims   token.Claims
}

// NewPipeline creates a pipeline. Nil components fall back to defaults.
func NewPipeline(classifier *route.Classifier, extractor *token.Extractor) *Pipeline {
	if classifier == nil {
		classifier = route.NewClassifier()
	}
	if extractor == nil {
		extractor = token.NewExtractor()
	}
	return &Pipeline{
		classifier: classifier,
		extractor:  extractor,
	}
}

// Run classifies the request, then extracts its token, writing both results
// into store.
func (p *Pipeline) Run(ctx context.Context, store attributes.Store) Result {
	rc := attributes.New(store)
	readOnly := p.classifier.Apply(ctx, rc)
	claims := p.extractor.Apply(ctx, rc)
	return Result{ReadOnly: readOnly, Claims: claims}
}

// tokenFromHeader reads a bearer credential from an Authorization-style
// header. Custom token headers may carry the bare token instead.
func tokenFromHeader(headerName, value string) string {
	if tok := token.FromAuthorizationHeader(value); tok != "" {
		return tok
	}
	if headerName != DefaultTokenHeader {
		return strings.TrimSpace(value)
	}
	return ""
}
