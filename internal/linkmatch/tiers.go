package linkmatch

import "fmt"

// GiB is the unit tier ceilings are expressed in.
const GiB int64 = 1 << 30

// MovieTiers are the default size ceilings for movies, largest first.
func MovieTiers() []int64 {
	return []int64{30 * GiB, 17 * GiB, 7 * GiB, 3 * GiB}
}

// SeriesTiers are the default size ceilings for episodes, largest first.
func SeriesTiers() []int64 {
	return []int64{10 * GiB, 5 * GiB, 2 * GiB, 1 * GiB}
}

// ClaimSet holds file ids already attached somewhere in the catalog or earlier
// in the current run.
type ClaimSet map[string]struct{}

// NewClaimSet returns a set containing ids.
func NewClaimSet(ids ...string) ClaimSet {
	set := make(ClaimSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (c ClaimSet) Has(id string) bool {
	_, ok := c[id]
	return ok
}

func (c ClaimSet) Add(id string) {
	c[id] = struct{}{}
}

// Release makes id selectable again, e.g. after its link was deleted.
func (c ClaimSet) Release(id string) {
	delete(c, id)
}

// SelectTiers picks at most one file per ceiling from ranked. For each ceiling
// in order, the first remaining unclaimed candidate whose size fits is taken,
// removed from the pool, and added to claimed. A ceiling with no fit is skipped.
func SelectTiers(ranked []Candidate, ceilings []int64, claimed ClaimSet) []Candidate {
	if claimed == nil {
		claimed = ClaimSet{}
	}
	pool := make([]Candidate, len(ranked))
	copy(pool, ranked)

	selected := make([]Candidate, 0, len(ceilings))
	for _, ceiling := range ceilings {
		for i, candidate := range pool {
			if candidate.Size > ceiling || claimed.Has(candidate.ID) {
				continue
			}
			selected = append(selected, candidate)
			claimed.Add(candidate.ID)
			pool = append(pool[:i], pool[i+1:]...)
			break
		}
	}
	return selected
}

// QualityLabel renders a file size the way links are labelled in the catalog.
func QualityLabel(size int64) string {
	return fmt.Sprintf("%.2f GB", float64(size)/float64(GiB))
}
