package award

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioRecords() []ContractRecord {
	return []ContractRecord{
		rec("A", "X", 100),
		rec("A", "Y", 50),
		rec("B", "X", 25),
	}
}

func TestAggregateScenario(t *testing.T) {
	agg := Aggregate(scenarioRecords())
	spec := SortSpec{Field: SortByAmount, Desc: true}

	vendors := RankEntities(agg.VendorTotals(), spec)
	require.Len(t, vendors, 2)
	assert.Equal(t, EntityTotal{Name: "A", Amount: 150, Count: 2}, vendors[0])
	assert.Equal(t, EntityTotal{Name: "B", Amount: 25, Count: 1}, vendors[1])

	agencies := RankEntities(agg.AgencyTotals(), spec)
	require.Len(t, agencies, 2)
	assert.Equal(t, EntityTotal{Name: "X", Amount: 125, Count: 2}, agencies[0])
	assert.Equal(t, EntityTotal{Name: "Y", Amount: 50, Count: 1}, agencies[1])

	m := agg.Matrix(spec, DefaultWindow)
	require.Equal(t, []string{"A", "B"}, m.Vendors)
	require.Equal(t, []string{"X", "Y"}, m.Agencies)
	assert.Equal(t, MatrixCell{Amount: 100, Count: 1}, m.Cells[0][0])
	assert.Equal(t, MatrixCell{Amount: 50, Count: 1}, m.Cells[0][1])
	assert.Equal(t, MatrixCell{Amount: 25, Count: 1}, m.Cells[1][0])
	assert.Equal(t, MatrixCell{}, m.Cells[1][1])

	stats := agg.Stats()
	assert.InDelta(t, 175, stats.TotalAmount, 1e-9)
	assert.Equal(t, 3, stats.ContractCount)
	assert.Equal(t, 2, stats.VendorCount)
	assert.Equal(t, 2, stats.AgencyCount)
}

// The core invariant: both projections derive from one grouping pass, so
// their totals must always agree with each other and with the input.
func TestProjectionConsistency(t *testing.T) {
	records := []ContractRecord{
		rec("A", "X", 100), rec("A", "Y", 50), rec("B", "X", 25),
		rec("B", "Z", 12.5), rec("C", "Y", 7.25), rec("A", "X", 3),
	}
	var inputSum float64
	for _, r := range records {
		inputSum += r.Amount
	}

	agg := Aggregate(records)
	spec := SortSpec{Field: SortByCount, Desc: false}

	var linkSum float64
	for _, l := range agg.Sankey(spec, DefaultWindow).Links {
		linkSum += l.Amount
	}

	var cellSum float64
	for _, row := range agg.Matrix(spec, DefaultWindow).Cells {
		for _, cell := range row {
			cellSum += cell.Amount
		}
	}

	assert.InDelta(t, inputSum, linkSum, 1e-9)
	assert.InDelta(t, inputSum, cellSum, 1e-9)
	assert.InDelta(t, inputSum, agg.Stats().TotalAmount, 1e-9)
}

func TestAggregateIdempotent(t *testing.T) {
	records := scenarioRecords()
	spec := SortSpec{Field: SortByAmount, Desc: true}

	first := Aggregate(records)
	second := Aggregate(records)

	assert.Equal(t, first.Sankey(spec, DefaultWindow), second.Sankey(spec, DefaultWindow))
	assert.Equal(t, first.Matrix(spec, DefaultWindow), second.Matrix(spec, DefaultWindow))
	assert.Equal(t, first.Stats(), second.Stats())
}

func TestAggregateUnknownBucket(t *testing.T) {
	records := []ContractRecord{
		{VendorName: UnknownVendor, AgencyName: UnknownAgency, Amount: 42},
		rec("A", "X", 10),
	}
	agg := Aggregate(records)

	buckets := agg.Buckets()
	require.Len(t, buckets, 2)
	assert.Equal(t, UnknownVendor, buckets[0].Vendor)
	assert.Equal(t, UnknownAgency, buckets[0].Agency)
	assert.Equal(t, 42.0, buckets[0].Amount)

	vendors := agg.VendorTotals()
	assert.Equal(t, UnknownVendor, vendors[0].Name)
	assert.Equal(t, 42.0, vendors[0].Amount)
}

func TestAggregateEmptyInput(t *testing.T) {
	agg := Aggregate(nil)
	spec := DefaultSort

	sankey := agg.Sankey(spec, DefaultWindow)
	assert.Empty(t, sankey.Nodes)
	assert.Empty(t, sankey.Links)

	m := agg.Matrix(spec, DefaultWindow)
	assert.Empty(t, m.Vendors)
	assert.Empty(t, m.Agencies)
	assert.Empty(t, m.Cells)

	assert.Equal(t, Stats{}, agg.Stats())
}

func TestSankeyNodeOrdering(t *testing.T) {
	agg := Aggregate(scenarioRecords())
	data := agg.Sankey(SortSpec{Field: SortByAmount, Desc: true}, DefaultWindow)

	// Vendor nodes come first (left column), then agency nodes.
	require.Len(t, data.Nodes, 4)
	assert.Equal(t, NodeVendor, data.Nodes[0].Kind)
	assert.Equal(t, "A", data.Nodes[0].Name)
	assert.Equal(t, NodeVendor, data.Nodes[1].Kind)
	assert.Equal(t, "B", data.Nodes[1].Name)
	assert.Equal(t, NodeAgency, data.Nodes[2].Kind)
	assert.Equal(t, "X", data.Nodes[2].Name)
	assert.Equal(t, NodeAgency, data.Nodes[3].Kind)
	assert.Equal(t, "Y", data.Nodes[3].Name)

	// Links are ordered by descending amount and index into Nodes.
	require.Len(t, data.Links, 3)
	assert.Equal(t, 100.0, data.Links[0].Amount)
	assert.Equal(t, "A", data.Nodes[data.Links[0].Source].Name)
	assert.Equal(t, "X", data.Nodes[data.Links[0].Target].Name)
	assert.Len(t, data.Links[0].Records, 1)
}

func TestSankeyBucketAccumulation(t *testing.T) {
	records := []ContractRecord{
		rec("A", "X", 100), rec("A", "X", 50), rec("A", "X", 25),
	}
	data := Aggregate(records).Sankey(DefaultSort, DefaultWindow)

	require.Len(t, data.Links, 1)
	assert.Equal(t, 175.0, data.Links[0].Amount)
	assert.Equal(t, 3, data.Links[0].Count)
	assert.Len(t, data.Links[0].Records, 3)
}
