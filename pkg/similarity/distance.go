package similarity

const (
	winklerPrefixLimit = 4
	winklerScaling     = 0.1
	winklerThreshold   = 0.7
)

// Jaro calculates the Jaro similarity between two strings
func (s *Scorer) Jaro(a, b string) float64 {
	return jaro([]rune(a), []rune(b))
}

// JaroWinkler calculates the Jaro-Winkler similarity between two strings.
// The common-prefix boost only applies when the Jaro similarity exceeds 0.7.
func (s *Scorer) JaroWinkler(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	sim := jaro(ra, rb)
	if sim <= winklerThreshold || sim == 1.0 {
		return sim
	}

	limit := min(len(ra), len(rb), winklerPrefixLimit)
	prefixLen := 0
	for prefixLen < limit && ra[prefixLen] == rb[prefixLen] {
		prefixLen++
	}

	return sim + float64(prefixLen)*winklerScaling*(1.0-sim)
}

func jaro(a, b []rune) float64 {
	if string(a) == string(b) {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	// Maximum distance for character matching
	matchDist := max(len(a), len(b))/2 - 1
	if matchDist < 0 {
		matchDist = 0
	}

	aMatches := make([]bool, len(a))
	bMatches := make([]bool, len(b))

	matches := 0
	for i := range a {
		start := max(0, i-matchDist)
		end := min(len(b), i+matchDist+1)

		for j := start; j < end; j++ {
			if bMatches[j] || a[i] != b[j] {
				continue
			}
			aMatches[i] = true
			bMatches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := range a {
		if !aMatches[i] {
			continue
		}
		for !bMatches[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}
	// half-transpositions are truncated
	transpositions /= 2

	m := float64(matches)
	return (m/float64(len(a)) + m/float64(len(b)) + (m-float64(transpositions))/m) / 3
}
