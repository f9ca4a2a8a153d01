// Package extractor resolves field paths against records. Resolution never
// fails on absent data: an unresolvable path yields value.Missing.
package extractor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Ramsey-B/fern/pkg/value"
)

// Path is a compiled field-access expression. The zero Path is the identity
// accessor and returns the whole record.
type Path struct {
	raw   string
	parts []pathPart
}

// pathPart represents a parsed path segment
type pathPart struct {
	key        string
	hasKey     bool
	indexes    []int
	isWildcard bool
}

// Compile parses a path expression.
// Supported syntax:
// - Simple path: "name", "address.city", "first name"
// - Array access: "items[0]", "data.results[2].value", "0" on an array
// - Wildcard: "users[*].email" collects every match into an array
func Compile(path string) (Path, error) {
	segments, err := splitPath(path)
	if err != nil {
		return Path{}, err
	}

	p := Path{raw: path}
	for _, seg := range segments {
		part, err := parseSegment(seg)
		if err != nil {
			return Path{}, fmt.Errorf("invalid path %q: %w", path, err)
		}
		p.parts = append(p.parts, part)
	}
	return p, nil
}

// MustCompile is Compile for static paths; it panics on a malformed path.
func MustCompile(path string) Path {
	p, err := Compile(path)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source expression.
func (p Path) String() string {
	return p.raw
}

// IsIdentity reports whether the path selects the whole record.
func (p Path) IsIdentity() bool {
	return len(p.parts) == 0
}

// Evaluate resolves the path against record.
func (p Path) Evaluate(record any) any {
	return evaluate(record, p.parts)
}

func evaluate(current any, parts []pathPart) any {
	for i, part := range parts {
		if value.IsMissing(current) {
			return value.Missing
		}

		if part.hasKey {
			current = lookupKey(current, part.key)
			if value.IsMissing(current) {
				return value.Missing
			}
		}

		for _, idx := range part.indexes {
			current = lookupIndex(current, idx)
			if value.IsMissing(current) {
				return value.Missing
			}
		}

		if part.isWildcard {
			arr, ok := toArray(current)
			if !ok {
				return value.Missing
			}
			results := make([]any, 0, len(arr))
			for _, item := range arr {
				v := evaluate(item, parts[i+1:])
				if !value.IsMissing(v) {
					results = append(results, v)
				}
			}
			return results
		}
	}
	return current
}

// Evaluate compiles path and resolves it against record. Malformed paths
// resolve to value.Missing.
func Evaluate(record any, path string) any {
	p, err := Compile(path)
	if err != nil {
		return value.Missing
	}
	return p.Evaluate(record)
}

// ExtractString resolves path and renders scalars as strings.
func ExtractString(record any, path string) (string, bool) {
	return value.ToString(Evaluate(record, path))
}

// ExtractAll returns every value a wildcard path resolves to. Non-wildcard
// paths yield at most one value.
func ExtractAll(record any, path string) []any {
	v := Evaluate(record, path)
	if value.IsMissing(v) {
		return nil
	}
	p, _ := Compile(path)
	for _, part := range p.parts {
		if part.isWildcard {
			arr, _ := v.([]any)
			return arr
		}
	}
	return []any{v}
}

func lookupKey(data any, key string) any {
	switch v := data.(type) {
	case map[string]any:
		val, ok := v[key]
		if !ok {
			return value.Missing
		}
		return val
	case map[string]string:
		val, ok := v[key]
		if !ok {
			return value.Missing
		}
		return val
	}

	// Bare numeric segments index arrays ("0" on a positional record).
	if arr, ok := toArray(data); ok {
		if i, err := strconv.Atoi(key); err == nil {
			return lookupIndex(arr, i)
		}
	}
	return value.Missing
}

func lookupIndex(data any, idx int) any {
	arr, ok := toArray(data)
	if !ok || idx < 0 || idx >= len(arr) {
		return value.Missing
	}
	return arr[idx]
}

// parseSegment splits "key[0][1]" / "key[*]" / "[0]" into a pathPart.
func parseSegment(seg string) (pathPart, error) {
	idx := strings.Index(seg, "[")
	if idx == -1 {
		return pathPart{key: seg, hasKey: true}, nil
	}

	part := pathPart{key: seg[:idx], hasKey: idx > 0}
	rest := seg[idx:]
	for rest != "" {
		if rest[0] != '[' {
			return pathPart{}, fmt.Errorf("unexpected %q after index", rest)
		}
		end := strings.Index(rest, "]")
		if end == -1 {
			return pathPart{}, fmt.Errorf("unterminated bracket in %q", seg)
		}
		inner := rest[1:end]
		rest = rest[end+1:]

		if inner == "*" {
			if rest != "" {
				return pathPart{}, fmt.Errorf("wildcard must close segment %q", seg)
			}
			part.isWildcard = true
			break
		}
		i, err := strconv.Atoi(inner)
		if err != nil {
			return pathPart{}, fmt.Errorf("invalid index %q", inner)
		}
		part.indexes = append(part.indexes, i)
	}
	return part, nil
}

// splitPath splits a dot-notation path, respecting array brackets
func splitPath(path string) ([]string, error) {
	var parts []string
	var current strings.Builder

	inBracket := false
	for _, c := range path {
		switch c {
		case '[':
			if inBracket {
				return nil, fmt.Errorf("nested bracket in path %q", path)
			}
			inBracket = true
			current.WriteRune(c)
		case ']':
			if !inBracket {
				return nil, fmt.Errorf("unbalanced bracket in path %q", path)
			}
			inBracket = false
			current.WriteRune(c)
		case '.':
			if inBracket {
				current.WriteRune(c)
				continue
			}
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(c)
		}
	}
	if inBracket {
		return nil, fmt.Errorf("unterminated bracket in path %q", path)
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts, nil
}

// toArray converts a value to an array
func toArray(v any) ([]any, bool) {
	switch arr := v.(type) {
	case []any:
		return arr, true
	case []string:
		result := make([]any, len(arr))
		for i, s := range arr {
			result[i] = s
		}
		return result, true
	case []map[string]any:
		result := make([]any, len(arr))
		for i, m := range arr {
			result[i] = m
		}
		return result, true
	default:
		return nil, false
	}
}
