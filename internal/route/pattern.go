package route

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern matches a raw request path suffix.
type Pattern interface {
	// Match reports whether path matches. Matching is on the raw string:
	// no decoding, case folding or trailing slash normalization.
	Match(path string) bool

	// String describes the pattern for logs
	String() string
}

// regexpPattern matches with an RE2 expression
type regexpPattern struct {
	source string
	re     *regexp.Regexp
}

func (p *regexpPattern) Match(path string) bool { return p.re.MatchString(path) }
func (p *regexpPattern) String() string         { return p.source }

// prefixPattern matches any path starting with prefix
type prefixPattern struct {
	prefix string
}

func (p *prefixPattern) Match(path string) bool { return strings.HasPrefix(path, p.prefix) }
func (p *prefixPattern) String() string         { return p.prefix + "*" }

// Regexp compiles a raw RE2 expression. The expression is used as given, so
// callers anchor it themselves.
func Regexp(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid path regexp %q: %w", expr, err)
	}
	return &regexpPattern{source: expr, re: re}, nil
}

// Prefix matches the given path and any continuation of it. It is anchored at
// the start only, so "/imagery" also matches "/imagery-archive".
func Prefix(prefix string) (Pattern, error) {
	if prefix == "" {
		return nil, fmt.Errorf("prefix pattern must not be empty")
	}
	return &prefixPattern{prefix: prefix}, nil
}

// Template compiles a path template such as "/v1/users/{id}". Each {name}
// placeholder matches exactly one non-empty segment without '/'; literal text
// matches verbatim. The template is anchored at both ends.
func Template(tmpl string) (Pattern, error) {
	if !strings.HasPrefix(tmpl, "/") {
		return nil, fmt.Errorf("path template %q must start with '/'", tmpl)
	}

	var b strings.Builder
	b.WriteString("^")

	rest := tmpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if strings.ContainsRune(rest, '}') {
				return nil, fmt.Errorf("path template %q has unbalanced '}'", tmpl)
			}
			b.WriteString(regexp.QuoteMeta(rest))
			break
		}
		closeIdx := strings.IndexByte(rest[open:], '}')
		if closeIdx < 0 {
			return nil, fmt.Errorf("path template %q has unclosed '{'", tmpl)
		}
		closeIdx += open

		name := rest[open+1 : closeIdx]
		if name == "" || strings.ContainsAny(name, "/{") {
			return nil, fmt.Errorf("path template %q has invalid placeholder %q", tmpl, name)
		}

		b.WriteString(regexp.QuoteMeta(rest[:open]))
		b.WriteString(`[^/]+`)
		rest = rest[closeIdx+1:]
	}

	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("failed to compile path template %q: %w", tmpl, err)
	}
	return &regexpPattern{source: tmpl, re: re}, nil
}

// DefaultPatterns returns the built-in read-replica routes, in precedence order.
func DefaultPatterns() []Pattern {
	return []Pattern{
		mustPattern(Template("/v1/users/{id}")),
		mustPattern(Template("/v1/data/{id}")),
		mustPattern(Template("/v2/accounts/{id}")),
		// imagery sub-resources are served by replicas too, hence prefix
		mustPattern(Prefix("/remote-sensing/v1/imagery")),
	}
}

func mustPattern(p Pattern, err error) Pattern {
	if err != nil {
		panic(err)
	}
	return p
}

// TrimBasePath derives the proxy path suffix from a raw request path.
// The query string is dropped and basePath is removed on a segment boundary.
// A path that is not under basePath yields "".
func TrimBasePath(basePath, rawPath string) string {
	path := rawPath
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	basePath = strings.TrimSuffix(basePath, "/")
	if basePath == "" {
		return path
	}

	suffix, ok := strings.CutPrefix(path, basePath)
	if !ok {
		return ""
	}
	if suffix != "" && !strings.HasPrefix(suffix, "/") {
		return ""
	}
	return suffix
}
