package award

import (
	"sort"
	"strings"
	"time"
)

// SortField selects the metric an ordering is computed over.
type SortField string

const (
	SortByAmount SortField = "amount"
	SortByCount  SortField = "count"
	SortByName   SortField = "name"
)

// SortSpec is one recognized sort selection, e.g. "amount-desc".
type SortSpec struct {
	Field SortField
	Desc  bool
}

// DefaultSort matches the dashboard's initial state.
var DefaultSort = SortSpec{Field: SortByAmount, Desc: true}

// ParseSortSpec maps the UI sort strings ("amount-desc", "name-asc", ...)
// to a SortSpec. Unrecognized input falls back to the default.
func ParseSortSpec(s string) SortSpec {
	field, dir, ok := strings.Cut(s, "-")
	if !ok {
		return DefaultSort
	}
	switch SortField(field) {
	case SortByAmount, SortByCount, SortByName:
		return SortSpec{Field: SortField(field), Desc: dir != "asc"}
	}
	return DefaultSort
}

// String renders the spec back into its wire form.
func (s SortSpec) String() string {
	dir := "asc"
	if s.Desc {
		dir = "desc"
	}
	return string(s.Field) + "-" + dir
}

// FilterState is an immutable snapshot of the active filter selection,
// passed by value into every filter/aggregation call. Date-range and
// minimum-amount bounds are applied upstream at the data-source boundary;
// this evaluator only re-applies the client-local refinements.
type FilterState struct {
	StartDate time.Time
	EndDate   time.Time
	Query     string
	MinAmount float64
	Vendors   []string
	Agencies  []string
	Sort      SortSpec
}

// ApplyFilters returns the subset of records matching all active
// predicates (AND across dimensions), sorted by the active sort spec.
// Empty input yields empty output; there are no error conditions.
func ApplyFilters(records []ContractRecord, state FilterState) []ContractRecord {
	query := strings.ToLower(strings.TrimSpace(state.Query))
	vendors := toSet(state.Vendors)
	agencies := toSet(state.Agencies)

	out := make([]ContractRecord, 0, len(records))
	for _, rec := range records {
		if query != "" && !matchesQuery(rec, query) {
			continue
		}
		if len(vendors) > 0 {
			if _, ok := vendors[rec.VendorName]; !ok {
				continue
			}
		}
		if len(agencies) > 0 {
			if _, ok := agencies[rec.AgencyName]; !ok {
				continue
			}
		}
		out = append(out, rec)
	}

	SortRecords(out, state.Sort)
	return out
}

// matchesQuery reports whether any of the four searchable text fields
// contains the (already-lowercased) query as a substring.
func matchesQuery(rec ContractRecord, query string) bool {
	for _, field := range []string{rec.VendorName, rec.AgencyName, rec.ShortTitle, rec.AdditionalInfo} {
		if field != "" && strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// SortRecords orders records in place by the given spec. The sort is
// stable so ties keep input order. A per-record "count" sort is not
// meaningful and aliases the amount sort.
func SortRecords(records []ContractRecord, spec SortSpec) {
	switch spec.Field {
	case SortByName:
		coll := newCollator()
		sort.SliceStable(records, func(i, j int) bool {
			cmp := coll.CompareString(records[i].VendorName, records[j].VendorName)
			if spec.Desc {
				return cmp > 0
			}
			return cmp < 0
		})
	default: // amount; "count" degenerates to amount at record level
		sort.SliceStable(records, func(i, j int) bool {
			if spec.Desc {
				return records[i].Amount > records[j].Amount
			}
			return records[i].Amount < records[j].Amount
		})
	}
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
