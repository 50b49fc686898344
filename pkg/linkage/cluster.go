package linkage

import (
	"unicode/utf8"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/similarity"
)

// Cluster is one group of records judged to be the same restaurant.
type Cluster struct {
	// Members are in scan order, seed first.
	Members []models.Restaurant
	// PrimaryID is the elected member in the naive path, or the id assigned to
	// the synthesized row once it is persisted in the blocked path.
	PrimaryID int64
	// Canonical is the synthesized row of a blocked-path cluster.
	Canonical *models.Restaurant
}

// MemberIDs returns the member ids in scan order.
func (c *Cluster) MemberIDs() []int64 {
	ids := make([]int64, len(c.Members))
	for i, m := range c.Members {
		ids[i] = m.ID
	}
	return ids
}

// Originals returns the member ids folded into the primary.
func (c *Cluster) Originals() []int64 {
	ids := make([]int64, 0, len(c.Members))
	for _, m := range c.Members {
		if m.ID != c.PrimaryID {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// DirtyIDs returns the ids of members that had not been evaluated yet.
func (c *Cluster) DirtyIDs() []int64 {
	ids := make([]int64, 0, len(c.Members))
	for _, m := range c.Members {
		if !m.Clean {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// Builder forms clusters greedily around a seed record.
type Builder struct {
	scorer *similarity.Scorer
}

// NewBuilder creates a Builder.
func NewBuilder(scorer *similarity.Scorer) *Builder {
	return &Builder{scorer: scorer}
}

// sameBlockKey is the naive-path precondition: records in different states or
// zips are never scored.
func sameBlockKey(a, b models.Restaurant) bool {
	return a.State == b.State && a.Zip == b.Zip
}

func (b *Builder) matches(seed, candidate models.Restaurant) bool {
	match, _ := b.scorer.Score(seed.Name, seed.Address, candidate.Name, candidate.Address)
	return match
}

// gather returns the seed plus every later candidate that matches it.
func (b *Builder) gather(candidates []models.Restaurant, checkKey bool) []models.Restaurant {
	seed := candidates[0]
	members := []models.Restaurant{seed}
	for _, c := range candidates[1:] {
		if checkKey && !sameBlockKey(seed, c) {
			continue
		}
		if b.matches(seed, c) {
			members = append(members, c)
		}
	}
	return members
}

// Naive clusters candidates[0] with every matching candidate of the same state
// and zip. The primary is the member with the strictly longest name, scanning
// left to right, so ties keep the earlier member.
func (b *Builder) Naive(candidates []models.Restaurant) *Cluster {
	if len(candidates) == 0 {
		return nil
	}

	members := b.gather(candidates, true)
	primary := newLongest(members[0].ID, utf8.RuneCountInString(members[0].Name))
	for _, m := range members[1:] {
		primary.observe(m.ID, utf8.RuneCountInString(m.Name))
	}

	return &Cluster{Members: members, PrimaryID: primary.value}
}

// Blocked clusters candidates[0] with every matching candidate of its block and
// synthesizes the canonical row. Block membership already guarantees equal state
// and zip.
func (b *Builder) Blocked(state string, candidates []models.Restaurant) *Cluster {
	if len(candidates) == 0 {
		return nil
	}

	members := b.gather(candidates, false)
	canonical := Synthesize(state, members)
	return &Cluster{Members: members, Canonical: &canonical}
}
