package linkage

import (
	"fmt"
	"strings"
)

// Mode selects the clustering strategy of a clean pass.
type Mode string

const (
	// ModeNaive compares every dirty record against every other dirty record.
	ModeNaive Mode = "naive"
	// ModeBlocked compares records only within (state, zip) blocks and synthesizes canonical rows.
	ModeBlocked Mode = "blocked"
)

// ParseMode accepts naive or blocked, case-insensitively. "fast" is accepted as
// an alias of blocked.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ModeNaive):
		return ModeNaive, nil
	case string(ModeBlocked), "fast":
		return ModeBlocked, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}
