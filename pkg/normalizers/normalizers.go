// Package normalizers provides named string normalizations applied to field
// values before blocking and similarity scoring.
package normalizers

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/Ramsey-B/fern/pkg/value"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Normalizer)
)

func init() {
	Register("lowercase", Lowercase)
	Register("uppercase", Uppercase)
	Register("trim", Trim)
	Register("nphone", DigitsOnly)
	Register("nemail", NormalizeEmail)
	Register("remove_whitespace", RemoveWhitespace)
	Register("remove_punctuation", RemovePunctuation)
	Register("nname", NormalizeName)
	Register("naddress", NormalizeAddress)
	Register("digits_only", DigitsOnly)
	Register("alphanumeric", Alphanumeric)
	Register("soundex", Soundex)
	Register("metaphone", Metaphone)
}

// Register adds a normalizer to the registry, replacing any existing entry
// with the same name.
func Register(name string, fn Normalizer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}

// Names lists registered normalizers in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chain is an ordered, resolved list of normalizers.
type Chain struct {
	names []string
	fns   []Normalizer
}

// NewChain resolves names against the registry. Unknown names are an error.
func NewChain(names ...string) (Chain, error) {
	chain := Chain{names: names}
	for _, name := range names {
		fn, ok := Get(name)
		if !ok {
			return Chain{}, fmt.Errorf("unknown normalizer %q", name)
		}
		chain.fns = append(chain.fns, fn)
	}
	return chain, nil
}

// Names returns the configured normalizer names.
func (c Chain) Names() []string {
	return c.names
}

// Empty reports whether the chain does nothing.
func (c Chain) Empty() bool {
	return len(c.fns) == 0
}

// ApplyString runs every normalizer in order.
func (c Chain) ApplyString(s string) string {
	for _, fn := range c.fns {
		s = fn(s)
	}
	return s
}

// Apply normalizes string values and strings inside arrays. Other values,
// including null and value.Missing, pass through unchanged.
func (c Chain) Apply(v any) any {
	if c.Empty() {
		return v
	}
	switch t := v.(type) {
	case string:
		return c.ApplyString(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = c.Apply(item)
		}
		return out
	}
	if value.KindOf(v) == value.KindString {
		s, _ := value.ToString(v)
		return c.ApplyString(s)
	}
	return v
}

// ApplyChain applies named normalizers in sequence, skipping unknown names.
func ApplyChain(s string, names ...string) string {
	for _, name := range names {
		if fn, ok := Get(name); ok {
			s = fn(s)
		}
	}
	return s
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Uppercase converts string to uppercase
func Uppercase(s string) string {
	return strings.ToUpper(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeEmail normalizes an email address (lowercase, trim)
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// RemoveWhitespace removes all whitespace characters
func RemoveWhitespace(s string) string {
	return keep(s, func(r rune) bool { return !unicode.IsSpace(r) })
}

// RemovePunctuation removes all punctuation characters
func RemovePunctuation(s string) string {
	return keep(s, func(r rune) bool { return !unicode.IsPunct(r) })
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	return keep(s, unicode.IsDigit)
}

// Alphanumeric keeps only alphanumeric characters
func Alphanumeric(s string) string {
	return keep(s, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) })
}

func keep(s string, pred func(rune) bool) string {
	var result strings.Builder
	for _, r := range s {
		if pred(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

var nameSuffixes = []string{" jr.", " jr", " sr.", " sr", " iii", " ii", " iv", " phd", " md", " dds"}

// NormalizeName lowercases a person's name, strips common suffixes and
// punctuation, and collapses whitespace.
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	for _, suffix := range nameSuffixes {
		if strings.HasSuffix(s, suffix) {
			s = s[:len(s)-len(suffix)]
		}
	}

	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			result.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) && !prevSpace:
			result.WriteRune(' ')
			prevSpace = true
		}
	}

	return strings.TrimSpace(result.String())
}

var (
	addressAbbreviations = [][2]string{
		{" street", " st"},
		{" avenue", " ave"},
		{" boulevard", " blvd"},
		{" drive", " dr"},
		{" road", " rd"},
		{" lane", " ln"},
		{" court", " ct"},
		{" circle", " cir"},
		{" place", " pl"},
		{" apartment", " apt"},
		{" suite", " ste"},
		{" north", " n"},
		{" south", " s"},
		{" east", " e"},
		{" west", " w"},
	}
	spaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeAddress lowercases an address and abbreviates street designators.
func NormalizeAddress(s string) string {
	s = strings.ToLower(s)
	for _, pair := range addressAbbreviations {
		s = strings.ReplaceAll(s, pair[0], pair[1])
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
