// Package token extracts identity claims from an unverified bearer token.
//
// Extraction decodes the payload of a three-part token and normalizes a
// handful of well-known claims. The signature is never inspected: this is
// introspection for routing and policy, not authentication.
//
// Every failure is returned as data. Extract never panics and never returns
// a Go error; callers branch on Claims.Valid.
package token

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/alechenninger/readgate/internal/attributes"
	"github.com/alechenninger/readgate/internal/claims"
	"github.com/alechenninger/readgate/internal/clock"
)

var (
	errInvalidUTF8  = errors.New("payload is not valid UTF-8 text")
	errNotObject    = errors.New("payload is not a JSON object")
	errTrailingData = errors.New("unexpected data after JSON payload")

	urlSafeToStd = strings.NewReplacer("-", "+", "_", "/")
)

// Claims is the normalized result of extracting one token at one instant.
// Valid implies Err == nil and !Expired; Expired implies !Valid.
type Claims struct {
	Subject   string
	Username  string
	ClientID  string
	Issuer    string
	IssuedAt  int64
	ExpiresAt int64

	Scope     Optional[string]
	Roles     Optional[string] // JSON encoding of the roles claim
	UsingRBAC Optional[bool]

	Valid   bool
	Expired bool

	// Err is nil exactly when Valid is true
	Err *Error
}

// Parsed reports whether the payload was decoded, whether or not it expired.
func (c Claims) Parsed() bool {
	return c.Err == nil || c.Err.Kind == KindExpired
}

// ErrorMessage returns the jwt.error text, or "" when valid.
func (c Claims) ErrorMessage() string {
	if c.Err == nil {
		return ""
	}
	return c.Err.Error()
}

// Extract decodes token and evaluates expiry against now (Unix seconds).
// It is a pure function of its arguments.
func Extract(token string, now int64) Claims {
	if token == "" {
		return failed(missingTokenError())
	}

	segment, err := payloadSegment(token)
	if err != nil {
		return failed(err)
	}

	doc, err := decodeSegment(segment)
	if err != nil {
		return failed(err)
	}

	raw, err := parseClaims(doc)
	if err != nil {
		return failed(err)
	}

	return normalize(raw, now)
}

func failed(err *Error) Claims {
	return Claims{Err: err}
}

// payloadSegment returns the middle part of a header.payload.signature token.
func payloadSegment(token string) (string, *Error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", malformedTokenError()
	}
	return parts[1], nil
}

// decodeSegment turns a base64url segment, padded or not, into UTF-8 text.
func decodeSegment(segment string) ([]byte, *Error) {
	s := urlSafeToStd.Replace(segment)
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}

	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, payloadDecodeError(err)
	}
	if !utf8.Valid(b) {
		return nil, payloadDecodeError(errInvalidUTF8)
	}
	return b, nil
}

// parseClaims parses a JSON object, keeping numbers exact.
func parseClaims(doc []byte) (claims.Claims, *Error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, payloadDecodeError(err)
	}
	if obj == nil {
		return nil, payloadDecodeError(errNotObject)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errTrailingData
		}
		return nil, payloadDecodeError(err)
	}

	return claims.Claims(obj), nil
}

func normalize(raw claims.Claims, now int64) Claims {
	c := Claims{
		Subject:   firstPresent(raw, "sub"),
		Username:  firstPresent(raw, "username", "user_name", "sub"),
		ClientID:  firstPresent(raw, "client_id", "azp"),
		Issuer:    firstPresent(raw, "iss"),
		ExpiresAt: intClaim(raw, "exp"),
		IssuedAt:  intClaim(raw, "iat"),
	}

	if scope, ok := raw.String("scope"); ok {
		c.Scope = Some(scope)
	}
	if roles, err := raw.JSON("roles"); err == nil {
		c.Roles = Some(roles)
	}
	if rbac, ok := raw.Flag("is_using_rbac"); ok {
		c.UsingRBAC = Some(rbac)
	}

	// exp of 0 (or absent) means the token never expires
	if c.ExpiresAt != 0 && c.ExpiresAt < now {
		c.Expired = true
		c.Err = expiredError()
	} else {
		c.Valid = true
	}

	return c
}

// firstPresent returns the first claim present among keys. An empty string
// counts as present and stops the search.
func firstPresent(raw claims.Claims, keys ...string) string {
	for _, key := range keys {
		if s, ok := raw.String(key); ok {
			return s
		}
	}
	return ""
}

func intClaim(raw claims.Claims, key string) int64 {
	v, _ := raw.Int64(key)
	return v
}

// Write records c under the jwt.* keys. Optional claims are written only
// when present, and jwt.error only on failure.
func Write(rc attributes.RequestContext, c Claims) {
	rc.SetValid(c.Valid)
	rc.SetSubject(c.Subject)
	rc.SetUsername(c.Username)
	rc.SetClientID(c.ClientID)
	rc.SetIssuer(c.Issuer)
	rc.SetExpiresAt(c.ExpiresAt)
	rc.SetIssuedAt(c.IssuedAt)
	rc.SetExpired(c.Expired)

	if scope, ok := c.Scope.Get(); ok {
		rc.SetScope(scope)
	}
	if roles, ok := c.Roles.Get(); ok {
		rc.SetRoles(roles)
	}
	if rbac, ok := c.UsingRBAC.Get(); ok {
		rc.SetUsingRBAC(rbac)
	}
	if c.Err != nil {
		rc.SetError(c.Err.Error())
	}
}

// Observer receives extraction events.
// Implementations must be safe for concurrent use.
type Observer interface {
	// ClaimsExtracted is called when the payload decoded, expired or not
	ClaimsExtracted(ctx context.Context, c Claims)

	// ExtractionFailed is called for a missing token or a parse failure
	ExtractionFailed(ctx context.Context, err *Error)
}

type noopObserver struct{}

func (noopObserver) ClaimsExtracted(context.Context, Claims)  {}
func (noopObserver) ExtractionFailed(context.Context, *Error) {}

// Extractor applies Extract to a request, using a clock for "now".
type Extractor struct {
	clock    clock.Clock
	observer Observer
}

// Option configures an Extractor
type Option func(*Extractor)

// WithClock sets the clock used for expiry checks
func WithClock(c clock.Clock) Option {
	return func(e *Extractor) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithObserver sets the observer notified by Apply
func WithObserver(o Observer) Option {
	return func(e *Extractor) {
		if o != nil {
			e.observer = o
		}
	}
}

// NewExtractor creates an extractor using the system clock by default.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		clock:    clock.NewSystemClock(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract evaluates token at the extractor's current time.
func (e *Extractor) Extract(token string) Claims {
	return Extract(token, clock.EpochSeconds(e.clock))
}

// Apply extracts the token held in jwt.token and writes the result into rc.
func (e *Extractor) Apply(ctx context.Context, rc attributes.RequestContext) Claims {
	c := e.Extract(rc.Token())
	Write(rc, c)

	if c.Parsed() {
		e.observer.ClaimsExtracted(ctx, c)
	} else {
		e.observer.ExtractionFailed(ctx, c.Err)
	}
	return c
}
