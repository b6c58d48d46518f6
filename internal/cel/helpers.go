package cel

import (
	"encoding/json"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/alechenninger/readgate/internal/attributes"
)

// AttributeHelpersLibrary creates a CEL library with helper functions over
// the request attribute map.
//
// Provides:
//   - hasScope(attrs, scope) - checks if the space-separated jwt.scope contains scope
//   - hasRole(attrs, role) - checks if the jwt.roles JSON document grants role
//   - isServiceAccount(attrs) - checks if jwt.username starts with "service-account-"
//   - safeToString(val) - converts value to string safely (returns empty string if nil)
func AttributeHelpersLibrary() cel.EnvOption {
	return cel.Lib(&attributeHelpersLib{})
}

type attributeHelpersLib struct{}

func (lib *attributeHelpersLib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Function("hasScope",
			cel.Overload("hasScope_map_string",
				[]*cel.Type{cel.DynType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(lib.hasScope),
			),
		),

		cel.Function("hasRole",
			cel.Overload("hasRole_map_string",
				[]*cel.Type{cel.DynType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(lib.hasRole),
			),
		),

		cel.Function("isServiceAccount",
			cel.Overload("isServiceAccount_map",
				[]*cel.Type{cel.DynType},
				cel.BoolType,
				cel.UnaryBinding(lib.isServiceAccount),
			),
		),

		cel.Function("safeToString",
			cel.Overload("safeToString_any",
				[]*cel.Type{cel.DynType},
				cel.StringType,
				cel.UnaryBinding(lib.safeToString),
			),
		),
	}
}

func (lib *attributeHelpersLib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

func stringAttr(attrsVal ref.Val, key string) (string, bool) {
	attrs, ok := attrsVal.Value().(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := attrs[key].(string)
	return s, ok
}

func (lib *attributeHelpersLib) hasScope(attrsVal, scopeVal ref.Val) ref.Val {
	want, ok := scopeVal.Value().(string)
	if !ok {
		return types.Bool(false)
	}
	scope, ok := stringAttr(attrsVal, attributes.KeyScope)
	if !ok {
		return types.Bool(false)
	}
	for _, s := range strings.Fields(scope) {
		if s == want {
			return types.Bool(true)
		}
	}
	return types.Bool(false)
}

// hasRole accepts the shapes identity providers commonly use for roles: a
// list of names, or an object with a "roles" list (optionally nested under
// realm_access).
func (lib *attributeHelpersLib) hasRole(attrsVal, roleVal ref.Val) ref.Val {
	want, ok := roleVal.Value().(string)
	if !ok {
		return types.Bool(false)
	}
	doc, ok := stringAttr(attrsVal, attributes.KeyRoles)
	if !ok {
		return types.Bool(false)
	}

	var roles any
	if err := json.Unmarshal([]byte(doc), &roles); err != nil {
		return types.Bool(false)
	}
	return types.Bool(containsRole(roles, want))
}

func containsRole(roles any, want string) bool {
	switch r := roles.(type) {
	case []any:
		for _, role := range r {
			if s, ok := role.(string); ok && s == want {
				return true
			}
		}
	case map[string]any:
		if nested, ok := r["realm_access"]; ok && containsRole(nested, want) {
			return true
		}
		if list, ok := r["roles"]; ok {
			return containsRole(list, want)
		}
	case string:
		return r == want
	}
	return false
}

func (lib *attributeHelpersLib) isServiceAccount(attrsVal ref.Val) ref.Val {
	username, ok := stringAttr(attrsVal, attributes.KeyUsername)
	if !ok {
		return types.Bool(false)
	}
	return types.Bool(strings.HasPrefix(username, "service-account-"))
}

// safeToString converts a value to string safely
func (lib *attributeHelpersLib) safeToString(val ref.Val) ref.Val {
	if val.Type() == types.NullType {
		return types.String("")
	}

	nativeVal := val.Value()
	if nativeVal == nil {
		return types.String("")
	}

	result := types.DefaultTypeAdapter.NativeToValue(nativeVal).ConvertToType(types.StringType)
	if types.IsError(result) {
		return types.String("")
	}
	return result
}
