package linkage

import (
	"unicode/utf8"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/similarity"
)

// frequency tracks how often each value was observed and which value leads.
// A challenger replaces the leader only when its count is strictly greater.
type frequency struct {
	counts map[string]int
	leader string
}

func newFrequency(seed string) *frequency {
	return &frequency{counts: map[string]int{seed: 1}, leader: seed}
}

func (f *frequency) observe(v string) {
	f.counts[v]++
	if v != f.leader && f.counts[v] > f.counts[f.leader] {
		f.leader = v
	}
}

// longest keeps the first value of strictly greatest length.
type longest[T any] struct {
	value  T
	length int
}

func newLongest[T any](v T, length int) *longest[T] {
	return &longest[T]{value: v, length: length}
}

func (l *longest[T]) observe(v T, length int) {
	if length > l.length {
		l.value = v
		l.length = length
	}
}

// Synthesize builds the canonical restaurant of a blocked-path cluster from its
// members, seed first:
//   - street number, facility type and city take the most frequent value
//   - name takes the longest value
//   - the street remainder takes the value with the most tokens
//   - location is the centroid of the members that have one
//
// State is the block's state and zip is the seed's.
func Synthesize(state string, members []models.Restaurant) models.Restaurant {
	if len(members) == 0 {
		return models.Restaurant{State: state}
	}

	seed := members[0]
	seedNumber, seedStreet := similarity.SplitAddress(seed.Address)

	number := newFrequency(seedNumber)
	facility := newFrequency(seed.FacilityType)
	city := newFrequency(seed.City)
	name := newLongest(seed.Name, utf8.RuneCountInString(seed.Name))
	street := newLongest(seedStreet, len(seedStreet))
	points := []models.Point{seed.Location}

	for _, m := range members[1:] {
		n, s := similarity.SplitAddress(m.Address)
		number.observe(n)
		facility.observe(m.FacilityType)
		city.observe(m.City)
		name.observe(m.Name, utf8.RuneCountInString(m.Name))
		street.observe(s, len(s))
		points = append(points, m.Location)
	}

	return models.Restaurant{
		Name:         name.value,
		FacilityType: facility.leader,
		Address:      normalizers.CollapseWhitespace(similarity.JoinAddress(number.leader, street.value)),
		City:         city.leader,
		State:        state,
		Zip:          seed.Zip,
		Location:     models.Centroid(points),
		Clean:        true,
	}
}
