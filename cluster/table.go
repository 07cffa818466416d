// Package cluster consolidates barcode clusters produced by the external
// clustering step. Clusters are grouped by center length; starting from the
// nominal length, clusters of every other length are merged into the
// accepted set when the edit distance and their relative abundance suggest
// that they are sequencing errors of an accepted cluster. An optional final
// pass folds everything near a high-abundance spike-in into it.
package cluster

import (
	"fmt"
	"sort"

	"github.com/djross22/NISTBartender-sub000/encoding/clustertable"
	"github.com/grailbio/base/errors"
)

// Key identifies a cluster. Cluster IDs are only unique within a group of
// clusters with the same center length.
type Key struct {
	Len, ID int
}

func (k Key) String() string { return fmt.Sprintf("%d/%d", k.Len, k.ID) }

// Cluster is a barcode cluster. Center is immutable once loaded and Count only
// grows, by absorbing merged clusters.
type Cluster struct {
	ID     int
	Center string
	Score  string
	Count  int

	// mergedInto is set once the cluster has been absorbed.
	mergedInto *Cluster
}

// Key returns the cluster's key.
func (c *Cluster) Key() Key { return Key{len(c.Center), c.ID} }

// Live reports whether the cluster has not been merged away.
func (c *Cluster) Live() bool { return c.mergedInto == nil }

// Table holds the clusters and the barcode-to-cluster assignments of one
// clustering run.
type Table struct {
	header, barcodeHeader string

	clusters []*Cluster // in file order
	byKey    map[Key]*Cluster
	groups   map[int][]*Cluster

	barcodes []clustertable.BarcodeRow
	// assigned[i] is the current cluster of barcodes[i].
	assigned []*Cluster
	// members lists the barcode indices assigned to each cluster.
	members map[*Cluster][]int
}

// NewTable builds a table from the external cluster and barcode tables. A
// barcode refers to the cluster with its ID among the clusters whose centers
// have the barcode's length; if there is none, a cluster with that ID is used
// only if it is unique across all lengths.
func NewTable(ct clustertable.ClusterTable, bt clustertable.BarcodeTable) (*Table, error) {
	t := &Table{
		header:        ct.Header,
		barcodeHeader: bt.Header,
		byKey:         make(map[Key]*Cluster, len(ct.Rows)),
		groups:        map[int][]*Cluster{},
		barcodes:      bt.Rows,
		assigned:      make([]*Cluster, len(bt.Rows)),
		members:       make(map[*Cluster][]int, len(ct.Rows)),
	}
	byID := map[int][]*Cluster{}
	for _, row := range ct.Rows {
		c := &Cluster{ID: row.ID, Center: row.Center, Score: row.Score, Count: row.Count}
		if c.Center == "" {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("cluster %d has an empty center", c.ID))
		}
		if _, ok := t.byKey[c.Key()]; ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("duplicate cluster %v", c.Key()))
		}
		t.byKey[c.Key()] = c
		t.clusters = append(t.clusters, c)
		t.groups[len(c.Center)] = append(t.groups[len(c.Center)], c)
		byID[c.ID] = append(byID[c.ID], c)
	}
	for i, row := range bt.Rows {
		c, ok := t.byKey[Key{len(row.Seq), row.ClusterID}]
		if !ok {
			if cs := byID[row.ClusterID]; len(cs) == 1 {
				c, ok = cs[0], true
			}
		}
		if !ok {
			return nil, errors.E(errors.Invalid,
				fmt.Sprintf("barcode %s refers to unknown cluster %d", row.Seq, row.ClusterID))
		}
		t.assigned[i] = c
		t.members[c] = append(t.members[c], i)
	}
	return t, nil
}

// Lengths returns the distinct center lengths, ascending.
func (t *Table) Lengths() []int {
	lengths := make([]int, 0, len(t.groups))
	for n := range t.groups {
		lengths = append(lengths, n)
	}
	sort.Ints(lengths)
	return lengths
}

// Group returns the clusters whose centers have length n, in file order.
func (t *Table) Group(n int) []*Cluster { return t.groups[n] }

// Lookup returns the cluster with the given key.
func (t *Table) Lookup(k Key) (*Cluster, bool) {
	c, ok := t.byKey[k]
	return c, ok
}

// absorb merges src into dst: dst gains src's count and barcodes.
func (t *Table) absorb(src, dst *Cluster) {
	dst.Count += src.Count
	src.mergedInto = dst
	for _, i := range t.members[src] {
		t.assigned[i] = dst
	}
	t.members[dst] = append(t.members[dst], t.members[src]...)
	delete(t.members, src)
}

// Assigned returns the current cluster of the i'th barcode row.
func (t *Table) Assigned(i int) *Cluster { return t.assigned[i] }

// Live returns the clusters that have not been merged away, ordered by center
// length and then file order.
func (t *Table) Live() []*Cluster {
	var live []*Cluster
	for _, c := range t.clusters {
		if c.Live() {
			live = append(live, c)
		}
	}
	sort.SliceStable(live, func(i, j int) bool { return len(live[i].Center) < len(live[j].Center) })
	return live
}

// OutputIDs numbers the live clusters 0, 1, ... in Live order. Input IDs are
// only unique within a length group, and a barcode may now belong to a
// cluster of another length, so the merged tables use these IDs instead.
func (t *Table) OutputIDs() map[*Cluster]int {
	live := t.Live()
	ids := make(map[*Cluster]int, len(live))
	for i, c := range live {
		ids[c] = i
	}
	return ids
}

// ClusterTable returns the live clusters in the external table schema, with
// IDs from OutputIDs.
func (t *Table) ClusterTable() clustertable.ClusterTable {
	ids := t.OutputIDs()
	tbl := clustertable.ClusterTable{Header: t.header}
	for _, c := range t.Live() {
		tbl.Rows = append(tbl.Rows, clustertable.ClusterRow{ID: ids[c], Center: c.Center, Score: c.Score, Count: c.Count})
	}
	return tbl
}

// BarcodeTable returns the barcode assignments, in input order, pointing at
// the OutputIDs of the clusters that absorbed their original clusters.
func (t *Table) BarcodeTable() clustertable.BarcodeTable {
	ids := t.OutputIDs()
	tbl := clustertable.BarcodeTable{Header: t.barcodeHeader, Rows: make([]clustertable.BarcodeRow, len(t.barcodes))}
	for i, row := range t.barcodes {
		row.ClusterID = ids[t.assigned[i]]
		tbl.Rows[i] = row
	}
	return tbl
}

// Validate checks that every barcode is assigned to a live cluster.
func (t *Table) Validate() error {
	for i, c := range t.assigned {
		if !c.Live() {
			return errors.E(errors.Integrity,
				fmt.Sprintf("barcode %s is assigned to merged cluster %v", t.barcodes[i].Seq, c.Key()))
		}
	}
	return nil
}
