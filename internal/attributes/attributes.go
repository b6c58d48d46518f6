// Package attributes models the gateway's request-scoped attribute store.
//
// The gateway hands every request a weakly typed key/value store. The keys
// listed here are the wire contract between readgate and the gateway: the
// classifier and the claims extractor read the input keys and write the
// output keys, and nothing else.
//
// RequestContext wraps a Store with one typed accessor per key so callers
// never handle raw interface values. Reading a key that is missing, or that
// holds a value of the wrong type, yields the zero value.
package attributes

// Input keys, populated by the gateway before the core runs.
const (
	KeyPathSuffix  = "proxy.pathsuffix"
	KeyRequestVerb = "request.verb"
	KeyToken       = "jwt.token"
)

// Output keys, written by the core.
const (
	KeyReadOnlyRequest = "is.readonly.request"
	KeyValid           = "jwt.valid"
	KeySubject         = "jwt.sub"
	KeyUsername        = "jwt.username"
	KeyClientID        = "jwt.client_id"
	KeyIssuer          = "jwt.iss"
	KeyExpiresAt       = "jwt.exp"
	KeyIssuedAt        = "jwt.iat"
	KeyScope           = "jwt.scope"
	KeyRoles           = "jwt.roles"
	KeyUsingRBAC       = "jwt.is_using_rbac"
	KeyExpired         = "jwt.expired"
	KeyError           = "jwt.error"
)

// OutputKeys lists every key the core may write, in a stable order.
var OutputKeys = []string{
	KeyReadOnlyRequest,
	KeyValid,
	KeySubject,
	KeyUsername,
	KeyClientID,
	KeyIssuer,
	KeyExpiresAt,
	KeyIssuedAt,
	KeyScope,
	KeyRoles,
	KeyUsingRBAC,
	KeyExpired,
	KeyError,
}

// Store is the host's attribute store for a single request.
type Store interface {
	// Get returns the value stored under key and whether it was present
	Get(key string) (any, bool)

	// Set stores value under key, replacing any previous value
	Set(key string, value any)
}

// RequestContext is the typed view of a Store that the core works against.
type RequestContext interface {
	PathSuffix() string
	Verb() string
	Token() string

	SetReadOnlyRequest(eligible bool)

	SetValid(valid bool)
	SetSubject(sub string)
	SetUsername(username string)
	SetClientID(clientID string)
	SetIssuer(iss string)
	SetExpiresAt(exp int64)
	SetIssuedAt(iat int64)
	SetScope(scope string)
	SetRoles(rolesJSON string)
	SetUsingRBAC(usingRBAC bool)
	SetExpired(expired bool)
	SetError(msg string)
}

// Context implements RequestContext over any Store.
type Context struct {
	store Store
}

var _ RequestContext = (*Context)(nil)

// New wraps a store with typed accessors.
func New(store Store) *Context {
	return &Context{store: store}
}

// Store returns the underlying store
func (c *Context) Store() Store {
	return c.store
}

func (c *Context) PathSuffix() string { return c.getString(KeyPathSuffix) }
func (c *Context) Verb() string       { return c.getString(KeyRequestVerb) }
func (c *Context) Token() string      { return c.getString(KeyToken) }

func (c *Context) SetReadOnlyRequest(eligible bool) { c.store.Set(KeyReadOnlyRequest, eligible) }

func (c *Context) SetValid(valid bool)         { c.store.Set(KeyValid, valid) }
func (c *Context) SetSubject(sub string)       { c.store.Set(KeySubject, sub) }
func (c *Context) SetUsername(username string) { c.store.Set(KeyUsername, username) }
func (c *Context) SetClientID(clientID string) { c.store.Set(KeyClientID, clientID) }
func (c *Context) SetIssuer(iss string)        { c.store.Set(KeyIssuer, iss) }
func (c *Context) SetExpiresAt(exp int64)      { c.store.Set(KeyExpiresAt, exp) }
func (c *Context) SetIssuedAt(iat int64)       { c.store.Set(KeyIssuedAt, iat) }
func (c *Context) SetScope(scope string)       { c.store.Set(KeyScope, scope) }
func (c *Context) SetRoles(rolesJSON string)   { c.store.Set(KeyRoles, rolesJSON) }
func (c *Context) SetUsingRBAC(usingRBAC bool) { c.store.Set(KeyUsingRBAC, usingRBAC) }
func (c *Context) SetExpired(expired bool)     { c.store.Set(KeyExpired, expired) }
func (c *Context) SetError(msg string)         { c.store.Set(KeyError, msg) }

// ReadOnlyRequest reports the classifier's decision, false if not yet written.
func (c *Context) ReadOnlyRequest() bool {
	v, _ := c.store.Get(KeyReadOnlyRequest)
	b, _ := v.(bool)
	return b
}

// Valid reports jwt.valid, false if not yet written.
func (c *Context) Valid() bool {
	v, _ := c.store.Get(KeyValid)
	b, _ := v.(bool)
	return b
}

func (c *Context) getString(key string) string {
	v, ok := c.store.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Snapshot copies every output key present in the store.
// Absent optional keys stay absent in the result.
func Snapshot(store Store) map[string]any {
	out := make(map[string]any, len(OutputKeys))
	for _, key := range OutputKeys {
		if v, ok := store.Get(key); ok {
			out[key] = v
		}
	}
	return out
}
