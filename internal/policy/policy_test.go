package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAttrs() map[string]any {
	return map[string]any{
		"is.readonly.request": true,
		"jwt.valid":           true,
		"jwt.sub":             "u1",
		"jwt.username":        "service-account-reporting",
		"jwt.exp":             int64(9999999999),
		"jwt.scope":           "openid read:data",
		"jwt.roles":           `{"realm_access":{"roles":["viewer"]}}`,
		"jwt.expired":         false,
	}
}

func TestNew_EmptyExpressionAllowsAll(t *testing.T) {
	for _, expr := range []string{"", "   "} {
		p, err := New(expr)
		require.NoError(t, err)
		assert.IsType(t, AllowAll{}, p)
		assert.True(t, p.Evaluate(context.Background(), nil).Allowed)
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"syntax error", `attrs["jwt.valid"] ==`},
		{"not bool", `attrs["jwt.sub"] + "x"`},
		{"unknown variable", `claims.sub == "x"`},
		{"unknown function", `isAdmin(attrs)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.expr)
			assert.Error(t, err)
		})
	}
}

func TestCELPolicy_Evaluate(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		attrs   map[string]any
		allowed bool
		failed  bool
	}{
		{
			name:    "valid token",
			expr:    `attrs["jwt.valid"] == true`,
			attrs:   validAttrs(),
			allowed: true,
		},
		{
			name:    "invalid token",
			expr:    `attrs["jwt.valid"] == true`,
			attrs:   map[string]any{"jwt.valid": false},
			allowed: false,
		},
		{
			name:    "missing key is an evaluation error and denies",
			expr:    `attrs["jwt.valid"] == true`,
			attrs:   map[string]any{},
			allowed: false,
			failed:  true,
		},
		{
			name:    "presence test",
			expr:    `!("jwt.error" in attrs)`,
			attrs:   validAttrs(),
			allowed: true,
		},
		{
			name:    "integer comparison",
			expr:    `attrs["jwt.exp"] > 1700000000`,
			attrs:   validAttrs(),
			allowed: true,
		},
		{
			name:    "hasScope matches whole scope tokens",
			expr:    `hasScope(attrs, "read:data") && !hasScope(attrs, "read")`,
			attrs:   validAttrs(),
			allowed: true,
		},
		{
			name:    "hasRole nested realm roles",
			expr:    `hasRole(attrs, "viewer")`,
			attrs:   validAttrs(),
			allowed: true,
		},
		{
			name:    "hasRole plain list",
			expr:    `hasRole(attrs, "admin")`,
			attrs:   map[string]any{"jwt.roles": `["admin","viewer"]`},
			allowed: true,
		},
		{
			name:    "hasRole without roles",
			expr:    `hasRole(attrs, "admin")`,
			attrs:   map[string]any{},
			allowed: false,
		},
		{
			name:    "service account",
			expr:    `isServiceAccount(attrs)`,
			attrs:   validAttrs(),
			allowed: true,
		},
		{
			name:    "safeToString on dyn",
			expr:    `safeToString(attrs["jwt.exp"]) == "9999999999"`,
			attrs:   validAttrs(),
			allowed: true,
		},
		{
			name:    "dyn result that is not bool denies",
			expr:    `attrs["jwt.sub"]`,
			attrs:   validAttrs(),
			allowed: false,
			failed:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.expr)
			require.NoError(t, err)

			d := p.Evaluate(context.Background(), tt.attrs)

			assert.Equal(t, tt.allowed, d.Allowed)
			if tt.failed {
				assert.Error(t, d.Err)
			} else {
				assert.NoError(t, d.Err)
			}
			if tt.allowed {
				assert.Empty(t, d.Reason)
			} else {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestCELPolicy_Expression(t *testing.T) {
	p, err := Compile(`true`)
	require.NoError(t, err)
	assert.Equal(t, "true", p.Expression())
}
