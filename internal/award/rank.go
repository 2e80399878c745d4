package award

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// EntityTotal is a per-vendor or per-agency rollup across all of the
// entity's buckets. Recomputed on every aggregation call.
type EntityTotal struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

// Window bounds how many entities and links a visual projection keeps.
// It is a presentation-safety measure, not a data filter: reported
// totals are always computed over the unwindowed filtered set.
type Window struct {
	MaxVendors  int
	MaxAgencies int
	MaxLinks    int
}

// DefaultWindow matches the rendering caps of the graph and matrix views.
var DefaultWindow = Window{MaxVendors: 50, MaxAgencies: 30, MaxLinks: 100}

// newCollator returns a locale-aware comparator for entity names.
// Collators are not safe for concurrent use, so callers build one per pass.
func newCollator() *collate.Collator {
	return collate.New(language.English)
}

// RankEntities returns a copy of entities ordered by the given spec.
// The sort is stable; ties keep input order.
func RankEntities(entities []EntityTotal, spec SortSpec) []EntityTotal {
	ranked := make([]EntityTotal, len(entities))
	copy(ranked, entities)
	sortEntities(ranked, spec)
	return ranked
}

func sortEntities(entities []EntityTotal, spec SortSpec) {
	var less func(a, b EntityTotal) bool
	switch spec.Field {
	case SortByName:
		coll := newCollator()
		less = func(a, b EntityTotal) bool { return coll.CompareString(a.Name, b.Name) < 0 }
	case SortByCount:
		less = func(a, b EntityTotal) bool { return a.Count < b.Count }
	default:
		less = func(a, b EntityTotal) bool { return a.Amount < b.Amount }
	}
	sort.SliceStable(entities, func(i, j int) bool {
		if spec.Desc {
			return less(entities[j], entities[i])
		}
		return less(entities[i], entities[j])
	})
}

// windowEntities selects the top-n entities by descending amount
// (regardless of the user's chosen sort, to keep the biggest flows on
// screen) and then orders the survivors by the active spec.
func windowEntities(entities []EntityTotal, spec SortSpec, n int) []EntityTotal {
	kept := RankEntities(entities, SortSpec{Field: SortByAmount, Desc: true})
	if n > 0 && len(kept) > n {
		kept = kept[:n]
	}
	sortEntities(kept, spec)
	return kept
}
