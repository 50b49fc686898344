// Package normalizers provides named string normalizers applied to restaurant
// fields before they are scored.
package normalizers

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

// DefaultScoreChain folds values the way the similarity scorer expects.
var DefaultScoreChain = []string{"nfc", "uppercase"}

func init() {
	Register("uppercase", Uppercase)
	Register("trim", Trim)
	Register("nfc", NFC)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("remove_punctuation", RemovePunctuation)
	Register("nstreet", NormalizeStreet)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value. Unknown names leave the value untouched.
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Chain composes named normalizers into one.
func Chain(names ...string) Normalizer {
	names = append([]string(nil), names...)
	return func(s string) string {
		return ApplyChain(s, names...)
	}
}

// Uppercase converts string to uppercase
func Uppercase(s string) string {
	return strings.ToUpper(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// NFC puts the string in Unicode canonical composition so that visually
// identical names compare equal rune by rune.
func NFC(s string) string {
	return norm.NFC.String(s)
}

var spaceRe = regexp.MustCompile(`\s+`)

// CollapseWhitespace trims and replaces runs of whitespace with a single space
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// RemovePunctuation removes all punctuation characters
func RemovePunctuation(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsPunct(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

var streetSuffixes = map[string]string{
	"STREET":    "ST",
	"AVENUE":    "AVE",
	"BOULEVARD": "BLVD",
	"DRIVE":     "DR",
	"ROAD":      "RD",
	"LANE":      "LN",
	"COURT":     "CT",
	"CIRCLE":    "CIR",
	"PLACE":     "PL",
	"SUITE":     "STE",
	"NORTH":     "N",
	"SOUTH":     "S",
	"EAST":      "E",
	"WEST":      "W",
}

// NormalizeStreet abbreviates common street words token by token, ignoring case
// and a trailing period. Other tokens are kept as written.
func NormalizeStreet(s string) string {
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		key := strings.ToUpper(strings.TrimSuffix(tok, "."))
		if abbr, ok := streetSuffixes[key]; ok {
			tokens[i] = abbr
		}
	}
	return strings.Join(tokens, " ")
}
