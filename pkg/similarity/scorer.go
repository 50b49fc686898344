// Package similarity scores whether two restaurant records describe the same place.
package similarity

import (
	"strings"

	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// Weights and threshold of the linear match model. A pair matches when
// 2.5*building + 2.5*street + 5*name reaches 8.75 out of 10.
const (
	BuildingWeight = 2.5
	StreetWeight   = 2.5
	NameWeight     = 5.0
	MatchThreshold = 8.75
)

// StreetForm selects how the street remainder of an address is rendered before comparison.
type StreetForm string

const (
	// StreetFormLegacy compares the remainder as a serialized token list, e.g. ['ORA', 'DR.'].
	// Existing cluster data was produced with this form.
	StreetFormLegacy StreetForm = "legacy"
	// StreetFormJoined compares the remainder tokens joined by single spaces.
	StreetFormJoined StreetForm = "joined"
)

// Valid reports whether f is a known street form.
func (f StreetForm) Valid() bool {
	return f == StreetFormLegacy || f == StreetFormJoined
}

// Breakdown is the per-component result of scoring one pair.
type Breakdown struct {
	Name     float64 `json:"name"`
	Building float64 `json:"building"`
	Street   float64 `json:"street"`
	Total    float64 `json:"total"`
	Match    bool    `json:"match"`
}

// Scorer provides the string comparison algorithms and the weighted match decision
type Scorer struct {
	streetForm StreetForm
	fold       normalizers.Normalizer
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithStreetForm overrides the street remainder rendering.
func WithStreetForm(form StreetForm) Option {
	return func(s *Scorer) {
		if form.Valid() {
			s.streetForm = form
		}
	}
}

// WithNormalizers replaces the normalizer chain applied to every compared value.
func WithNormalizers(names ...string) Option {
	return func(s *Scorer) {
		if len(names) > 0 {
			s.fold = normalizers.Chain(names...)
		}
	}
}

// NewScorer creates a new Scorer
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		streetForm: StreetFormLegacy,
		fold:       normalizers.Chain(normalizers.DefaultScoreChain...),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns the match decision and weighted total for two name/address pairs.
func (s *Scorer) Score(nameA, addressA, nameB, addressB string) (bool, float64) {
	b := s.Breakdown(nameA, addressA, nameB, addressB)
	return b.Match, b.Total
}

// Breakdown scores two name/address pairs and reports each component.
func (s *Scorer) Breakdown(nameA, addressA, nameB, addressB string) Breakdown {
	// Fixed argument order keeps the score symmetric; greedy Jaro matching is not
	// guaranteed to be.
	if nameA > nameB || (nameA == nameB && addressA > addressB) {
		nameA, addressA, nameB, addressB = nameB, addressB, nameA, addressA
	}

	buildingA, streetA := SplitAddress(addressA)
	buildingB, streetB := SplitAddress(addressB)

	b := Breakdown{
		Name:     s.Jaro(s.fold(nameA), s.fold(nameB)),
		Building: s.JaroWinkler(s.fold(buildingA), s.fold(buildingB)),
		Street:   s.JaroWinkler(s.street(streetA), s.street(streetB)),
	}
	b.Total = BuildingWeight*b.Building + StreetWeight*b.Street + NameWeight*b.Name
	b.Match = b.Total >= MatchThreshold
	return b
}

func (s *Scorer) street(tokens []string) string {
	folded := make([]string, len(tokens))
	for i, tok := range tokens {
		folded[i] = s.fold(tok)
	}
	if s.streetForm == StreetFormJoined {
		return strings.Join(folded, " ")
	}
	return tokenListLiteral(folded)
}

// SplitAddress separates the building token (first whitespace-delimited token)
// from the street remainder.
func SplitAddress(address string) (string, []string) {
	tokens := strings.Fields(address)
	if len(tokens) == 0 {
		return "", nil
	}
	return tokens[0], tokens[1:]
}

// JoinAddress is the inverse of SplitAddress.
func JoinAddress(building string, street []string) string {
	parts := make([]string, 0, len(street)+1)
	if building != "" {
		parts = append(parts, building)
	}
	parts = append(parts, street...)
	return strings.Join(parts, " ")
}

// tokenListLiteral renders tokens as ['A', 'B'], quoting each token with single
// quotes unless it contains one and no double quote.
func tokenListLiteral(tokens []string) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, tok := range tokens {
		if i > 0 {
			sb.WriteString(", ")
		}
		quote := byte('\'')
		if strings.ContainsRune(tok, '\'') && !strings.ContainsRune(tok, '"') {
			quote = '"'
		}
		sb.WriteByte(quote)
		for _, r := range tok {
			switch {
			case r == '\\':
				sb.WriteString(`\\`)
			case r == rune(quote):
				sb.WriteByte('\\')
				sb.WriteRune(r)
			case r == '\n':
				sb.WriteString(`\n`)
			case r == '\r':
				sb.WriteString(`\r`)
			case r == '\t':
				sb.WriteString(`\t`)
			default:
				sb.WriteRune(r)
			}
		}
		sb.WriteByte(quote)
	}
	sb.WriteByte(']')
	return sb.String()
}
