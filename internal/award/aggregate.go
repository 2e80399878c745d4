package award

import "sort"

// Bucket is the aggregate accumulator for one (vendor, agency) pair.
// Amount and count are accumulated in a single pass over the filtered
// record set and never recomputed incrementally.
type Bucket struct {
	Vendor  string           `json:"vendor"`
	Agency  string           `json:"agency"`
	Amount  float64          `json:"amount"`
	Count   int              `json:"count"`
	Records []ContractRecord `json:"records,omitempty"`
}

type pairKey struct {
	vendor string
	agency string
}

// Aggregation is the shared grouping both projections derive from.
// Building graph and matrix views from one bucket map is what guarantees
// they never disagree on totals for the same input and sort.
type Aggregation struct {
	buckets      map[pairKey]*Bucket
	bucketOrder  []pairKey
	vendorTotals map[string]*EntityTotal
	vendorOrder  []string
	agencyTotals map[string]*EntityTotal
	agencyOrder  []string
	stats        Stats
}

// Stats summarizes the unwindowed filtered set for the dashboard's
// summary strip. Windowing never affects these numbers.
type Stats struct {
	TotalAmount   float64 `json:"total_amount"`
	ContractCount int     `json:"contract_count"`
	VendorCount   int     `json:"vendor_count"`
	AgencyCount   int     `json:"agency_count"`
	AverageAmount float64 `json:"average_amount"`
}

// Aggregate groups the filtered records into vendor-agency buckets and
// per-entity rollups in one pass. First-seen order is preserved so
// repeated calls on identical input produce structurally identical output.
func Aggregate(records []ContractRecord) *Aggregation {
	a := &Aggregation{
		buckets:      make(map[pairKey]*Bucket),
		vendorTotals: make(map[string]*EntityTotal),
		agencyTotals: make(map[string]*EntityTotal),
	}

	for _, rec := range records {
		key := pairKey{vendor: rec.VendorName, agency: rec.AgencyName}
		b, ok := a.buckets[key]
		if !ok {
			b = &Bucket{Vendor: rec.VendorName, Agency: rec.AgencyName}
			a.buckets[key] = b
			a.bucketOrder = append(a.bucketOrder, key)
		}
		b.Amount += rec.Amount
		b.Count++
		b.Records = append(b.Records, rec)

		v, ok := a.vendorTotals[rec.VendorName]
		if !ok {
			v = &EntityTotal{Name: rec.VendorName}
			a.vendorTotals[rec.VendorName] = v
			a.vendorOrder = append(a.vendorOrder, rec.VendorName)
		}
		v.Amount += rec.Amount
		v.Count++

		g, ok := a.agencyTotals[rec.AgencyName]
		if !ok {
			g = &EntityTotal{Name: rec.AgencyName}
			a.agencyTotals[rec.AgencyName] = g
			a.agencyOrder = append(a.agencyOrder, rec.AgencyName)
		}
		g.Amount += rec.Amount
		g.Count++

		a.stats.TotalAmount += rec.Amount
		a.stats.ContractCount++
	}

	a.stats.VendorCount = len(a.vendorOrder)
	a.stats.AgencyCount = len(a.agencyOrder)
	if a.stats.ContractCount > 0 {
		a.stats.AverageAmount = a.stats.TotalAmount / float64(a.stats.ContractCount)
	}
	return a
}

// Stats reports the rollup over the full (unwindowed) input.
func (a *Aggregation) Stats() Stats { return a.stats }

// VendorTotals returns per-vendor rollups in first-seen order.
func (a *Aggregation) VendorTotals() []EntityTotal {
	return collectTotals(a.vendorOrder, a.vendorTotals)
}

// AgencyTotals returns per-agency rollups in first-seen order.
func (a *Aggregation) AgencyTotals() []EntityTotal {
	return collectTotals(a.agencyOrder, a.agencyTotals)
}

// Buckets returns all vendor-agency buckets in first-seen order.
func (a *Aggregation) Buckets() []Bucket {
	out := make([]Bucket, 0, len(a.bucketOrder))
	for _, key := range a.bucketOrder {
		out = append(out, *a.buckets[key])
	}
	return out
}

func collectTotals(order []string, totals map[string]*EntityTotal) []EntityTotal {
	out := make([]EntityTotal, 0, len(order))
	for _, name := range order {
		out = append(out, *totals[name])
	}
	return out
}

// NodeKind tags a graph node as a vendor (left column) or agency
// (right column).
type NodeKind string

const (
	NodeVendor NodeKind = "vendor"
	NodeAgency NodeKind = "agency"
)

// SankeyNode is one entity in the flow diagram, carrying its full
// (unwindowed) total.
type SankeyNode struct {
	Name   string   `json:"name"`
	Kind   NodeKind `json:"kind"`
	Amount float64  `json:"amount"`
	Count  int      `json:"count"`
}

// SankeyLink is one weighted vendor→agency edge. Source and Target index
// into SankeyData.Nodes.
type SankeyLink struct {
	Source  int              `json:"source"`
	Target  int              `json:"target"`
	Amount  float64          `json:"amount"`
	Count   int              `json:"count"`
	Records []ContractRecord `json:"records"`
}

// SankeyData is the graph projection. Vendor nodes come first in ranked
// order, then agency nodes in ranked order; the flow renderer lays out
// its left column from the vendor order and its right column from the
// agency order.
type SankeyData struct {
	Nodes []SankeyNode `json:"nodes"`
	Links []SankeyLink `json:"links"`
}

// Sankey derives the graph projection under the given sort and window.
// Links are capped by descending amount and nodes are restricted to
// entities referenced by a retained link.
func (a *Aggregation) Sankey(spec SortSpec, w Window) SankeyData {
	vendors := windowEntities(a.VendorTotals(), spec, w.MaxVendors)
	agencies := windowEntities(a.AgencyTotals(), spec, w.MaxAgencies)

	keptVendors := nameSet(vendors)
	keptAgencies := nameSet(agencies)

	links := make([]Bucket, 0, len(a.bucketOrder))
	for _, key := range a.bucketOrder {
		if _, ok := keptVendors[key.vendor]; !ok {
			continue
		}
		if _, ok := keptAgencies[key.agency]; !ok {
			continue
		}
		links = append(links, *a.buckets[key])
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].Amount > links[j].Amount })
	if w.MaxLinks > 0 && len(links) > w.MaxLinks {
		links = links[:w.MaxLinks]
	}

	referenced := make(map[string]struct{}, len(links)*2)
	for _, l := range links {
		referenced["v:"+l.Vendor] = struct{}{}
		referenced["a:"+l.Agency] = struct{}{}
	}

	data := SankeyData{Nodes: []SankeyNode{}, Links: []SankeyLink{}}
	index := make(map[string]int, len(vendors)+len(agencies))
	for _, v := range vendors {
		if _, ok := referenced["v:"+v.Name]; !ok {
			continue
		}
		index["v:"+v.Name] = len(data.Nodes)
		data.Nodes = append(data.Nodes, SankeyNode{Name: v.Name, Kind: NodeVendor, Amount: v.Amount, Count: v.Count})
	}
	for _, g := range agencies {
		if _, ok := referenced["a:"+g.Name]; !ok {
			continue
		}
		index["a:"+g.Name] = len(data.Nodes)
		data.Nodes = append(data.Nodes, SankeyNode{Name: g.Name, Kind: NodeAgency, Amount: g.Amount, Count: g.Count})
	}

	for _, l := range links {
		data.Links = append(data.Links, SankeyLink{
			Source:  index["v:"+l.Vendor],
			Target:  index["a:"+l.Agency],
			Amount:  l.Amount,
			Count:   l.Count,
			Records: l.Records,
		})
	}
	return data
}

// MatrixCell holds the accumulated amount and count for one
// vendor-agency pair; zero/zero when the pair has no contracts.
type MatrixCell struct {
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

// MatrixData is the dense grid projection: Cells is indexed
// [vendor-order-position][agency-order-position], with row and column
// totals following the same ordering. Totals are full entity rollups,
// unaffected by which cells survive the window.
type MatrixData struct {
	Vendors   []string       `json:"vendors"`
	Agencies  []string       `json:"agencies"`
	Cells     [][]MatrixCell `json:"cells"`
	RowTotals []MatrixCell   `json:"row_totals"`
	ColTotals []MatrixCell   `json:"col_totals"`
}

// Matrix derives the grid projection from the same bucket map as Sankey,
// under the same ranking and windowing policy.
func (a *Aggregation) Matrix(spec SortSpec, w Window) MatrixData {
	vendors := windowEntities(a.VendorTotals(), spec, w.MaxVendors)
	agencies := windowEntities(a.AgencyTotals(), spec, w.MaxAgencies)

	data := MatrixData{
		Vendors:   make([]string, len(vendors)),
		Agencies:  make([]string, len(agencies)),
		Cells:     make([][]MatrixCell, len(vendors)),
		RowTotals: make([]MatrixCell, len(vendors)),
		ColTotals: make([]MatrixCell, len(agencies)),
	}

	for j, g := range agencies {
		data.Agencies[j] = g.Name
		data.ColTotals[j] = MatrixCell{Amount: g.Amount, Count: g.Count}
	}

	for i, v := range vendors {
		data.Vendors[i] = v.Name
		data.RowTotals[i] = MatrixCell{Amount: v.Amount, Count: v.Count}
		data.Cells[i] = make([]MatrixCell, len(agencies))
		for j, g := range agencies {
			if b, ok := a.buckets[pairKey{vendor: v.Name, agency: g.Name}]; ok {
				data.Cells[i][j] = MatrixCell{Amount: b.Amount, Count: b.Count}
			}
		}
	}
	return data
}

func nameSet(entities []EntityTotal) map[string]struct{} {
	set := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		set[e.Name] = struct{}{}
	}
	return set
}
