package attributes

import "maps"

// Map is an in-memory Store owned by a single request.
// It is not safe for concurrent use; each request gets its own.
type Map map[string]any

var _ Store = Map(nil)

// NewMap creates a store seeded with the gateway's input attributes.
// Empty inputs are left unset so reads fall back to defaults.
func NewMap(verb, pathSuffix, token string) Map {
	m := make(Map, len(OutputKeys)+3)
	if verb != "" {
		m[KeyRequestVerb] = verb
	}
	// proxy.pathsuffix is always present; an empty suffix is a real value
	m[KeyPathSuffix] = pathSuffix
	if token != "" {
		m[KeyToken] = token
	}
	return m
}

// Get implements Store
func (m Map) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// Set implements Store
func (m Map) Set(key string, value any) {
	m[key] = value
}

// Clone returns a shallow copy of the store
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
