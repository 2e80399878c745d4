package award

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankEntitiesByName(t *testing.T) {
	entities := []EntityTotal{
		{Name: "zebra Industries"},
		{Name: "Apple Services"},
		{Name: "apple systems"},
		{Name: "Échelon Group"},
		{Name: "Mango Corp"},
	}

	ranked := RankEntities(entities, SortSpec{Field: SortByName, Desc: false})

	// Locale-aware ordering: case and diacritics don't push names to the
	// edges the way a byte comparison would.
	names := make([]string, len(ranked))
	for i, e := range ranked {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"Apple Services", "apple systems", "Échelon Group", "Mango Corp", "zebra Industries"}, names)

	// Descending is the exact reverse.
	desc := RankEntities(entities, SortSpec{Field: SortByName, Desc: true})
	for i := range desc {
		assert.Equal(t, ranked[len(ranked)-1-i].Name, desc[i].Name)
	}
}

func TestRankEntitiesStableTies(t *testing.T) {
	entities := []EntityTotal{
		{Name: "first", Amount: 100},
		{Name: "second", Amount: 100},
		{Name: "third", Amount: 100},
	}
	ranked := RankEntities(entities, SortSpec{Field: SortByAmount, Desc: true})
	assert.Equal(t, "first", ranked[0].Name)
	assert.Equal(t, "second", ranked[1].Name)
	assert.Equal(t, "third", ranked[2].Name)
}

func TestRankEntitiesByCount(t *testing.T) {
	entities := []EntityTotal{
		{Name: "a", Amount: 1, Count: 5},
		{Name: "b", Amount: 99, Count: 2},
		{Name: "c", Amount: 50, Count: 9},
	}
	ranked := RankEntities(entities, SortSpec{Field: SortByCount, Desc: true})
	assert.Equal(t, "c", ranked[0].Name)
	assert.Equal(t, "a", ranked[1].Name)
	assert.Equal(t, "b", ranked[2].Name)
}

func TestWindowingCaps(t *testing.T) {
	// 12 vendors x 10 agencies = 120 buckets, amounts descending with
	// vendor index so the top-by-amount selection is deterministic.
	var records []ContractRecord
	for v := 0; v < 12; v++ {
		for a := 0; a < 10; a++ {
			records = append(records, rec(
				fmt.Sprintf("vendor-%02d", v),
				fmt.Sprintf("agency-%02d", a),
				float64(1000-(v*10+a)),
			))
		}
	}

	agg := Aggregate(records)
	w := Window{MaxVendors: 5, MaxAgencies: 3, MaxLinks: 10}
	data := agg.Sankey(DefaultSort, w)

	require.LessOrEqual(t, len(data.Links), 10)

	// Every node must be referenced by at least one retained link.
	referenced := make(map[int]bool)
	for _, l := range data.Links {
		referenced[l.Source] = true
		referenced[l.Target] = true
	}
	for i, node := range data.Nodes {
		assert.Truef(t, referenced[i], "node %d (%s) has no links", i, node.Name)
	}

	// Entity caps hold on the matrix too.
	m := agg.Matrix(DefaultSort, w)
	assert.Len(t, m.Vendors, 5)
	assert.Len(t, m.Agencies, 3)
	assert.Len(t, m.Cells, 5)
	assert.Len(t, m.RowTotals, 5)
	assert.Len(t, m.ColTotals, 3)
}

// Windowing selects survivors by descending amount even when the user
// sort is something else; the survivors are then shown in the user order.
func TestWindowSelectionIgnoresUserSort(t *testing.T) {
	entities := []EntityTotal{
		{Name: "big", Amount: 1000},
		{Name: "medium", Amount: 500},
		{Name: "tiny-but-alphabetically-first", Amount: 1},
	}
	kept := windowEntities(entities, SortSpec{Field: SortByName, Desc: false}, 2)

	require.Len(t, kept, 2)
	// "tiny" would win a pure name sort but loses the amount-based cut.
	assert.Equal(t, "big", kept[0].Name)
	assert.Equal(t, "medium", kept[1].Name)
}

// Windowing must never leak into reported statistics.
func TestWindowingDoesNotAffectStats(t *testing.T) {
	var records []ContractRecord
	for v := 0; v < 80; v++ {
		records = append(records, rec(fmt.Sprintf("v%d", v), "X", 10))
	}
	agg := Aggregate(records)

	data := agg.Sankey(DefaultSort, Window{MaxVendors: 5, MaxAgencies: 5, MaxLinks: 5})
	assert.Len(t, data.Links, 5)

	stats := agg.Stats()
	assert.Equal(t, 80, stats.ContractCount)
	assert.Equal(t, 80, stats.VendorCount)
	assert.InDelta(t, 800, stats.TotalAmount, 1e-9)
}
