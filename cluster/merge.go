package cluster

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/djross22/NISTBartender-sub000/encoding/clustertable"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Opts configures the merge phase.
type Opts struct {
	// NominalLength is the expected barcode length. Its clusters seed the
	// output set.
	NominalLength int
	// IndelProb is the minority-fraction table of Rule; index 0 is edit
	// distance 1.
	IndelProb []float64
	// SubstringMerge enables the substring rule.
	SubstringMerge bool
	// SpikeInCount is the count a cluster must exceed to be a spike-in.
	SpikeInCount int
	// SpikeInDistance is the edit distance within which clusters are folded
	// into a spike-in. Zero disables the spike-in pass.
	SpikeInDistance int
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	NominalLength:   38,
	IndelProb:       []float64{0.1, 0.01, 0.001},
	SubstringMerge:  true,
	SpikeInCount:    100000,
	SpikeInDistance: 0,
}

// Validate checks opts before any data is read.
func (o Opts) Validate() error {
	if o.NominalLength <= 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("nominal barcode length must be positive, got %d", o.NominalLength))
	}
	for i, p := range o.IndelProb {
		if p < 0 || p > 1 {
			return errors.E(errors.Invalid, fmt.Sprintf("indel probability %d (%v) is not in [0, 1]", i+1, p))
		}
	}
	if o.SpikeInDistance < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("negative spike-in distance %d", o.SpikeInDistance))
	}
	return nil
}

// ParseProbTable parses a comma-separated list of probabilities, e.g.
// "0.1,0.01". An empty string yields an empty table.
func ParseProbTable(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var table []float64
	for _, f := range strings.Split(s, ",") {
		p, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("indel probability table %q", s))
		}
		table = append(table, p)
	}
	return table, nil
}

// Paths returns the output paths of the merge phase for prefix.
func Paths(prefix string) (clusterPath, barcodePath, eventPath string) {
	return prefix + "_merged_cluster.csv", prefix + "_merged_barcode.csv", prefix + "_merge_events.csv"
}

// Summary describes a merge run.
type Summary struct {
	Clusters, Live int
	Merges         map[Basis]int
	ClusterDigest  uint64
	BarcodeDigest  uint64
}

// Merge reads the cluster and barcode tables, merges clusters per opts, and
// writes the merged tables and the merge events next to outPrefix.
func Merge(ctx context.Context, opts Opts, clusterPath, barcodePath, outPrefix string) (Summary, error) {
	var s Summary
	if err := opts.Validate(); err != nil {
		return s, err
	}
	ct, err := clustertable.ReadClusters(ctx, clusterPath)
	if err != nil {
		return s, errors.E(err, "read clusters")
	}
	bt, err := clustertable.ReadBarcodes(ctx, barcodePath)
	if err != nil {
		return s, errors.E(err, "read barcodes")
	}
	log.Printf("read %d clusters from %s, %d barcodes from %s", len(ct.Rows), clusterPath, len(bt.Rows), barcodePath)
	t, err := NewTable(ct, bt)
	if err != nil {
		return s, err
	}
	p, err := NewPlanner(t, opts.NominalLength, Rule{IndelProb: opts.IndelProb, SubstringMerge: opts.SubstringMerge})
	if err != nil {
		return s, err
	}
	p.Run()
	p.SpikeIn(opts.SpikeInCount, opts.SpikeInDistance)
	if err := t.Validate(); err != nil {
		return s, err
	}

	s.Clusters = len(ct.Rows)
	s.Live = len(p.Output())
	s.Merges = map[Basis]int{}
	for _, ev := range p.Events() {
		s.Merges[ev.Basis]++
	}
	outCluster, outBarcode, outEvents := Paths(outPrefix)
	if s.ClusterDigest, err = clustertable.WriteClusters(ctx, outCluster, t.ClusterTable()); err != nil {
		return s, err
	}
	if s.BarcodeDigest, err = clustertable.WriteBarcodes(ctx, outBarcode, t.BarcodeTable()); err != nil {
		return s, err
	}
	if err := WriteEvents(ctx, outEvents, p.Events()); err != nil {
		return s, err
	}
	log.Printf("merged %d clusters into %d (substring %d, distance %d, spike-in %d)",
		s.Clusters, s.Live, s.Merges[Substring], s.Merges[Distance], s.Merges[SpikeIn])
	return s, nil
}

// WriteEvents writes merge events as a comma-separated table.
func WriteEvents(ctx context.Context, path string, events []MergeEvent) error {
	w, err := clustertable.Create(ctx, path)
	if err != nil {
		return err
	}
	w.WriteLine("source.length", "source.id", "source.center", "target.length", "target.id", "target.center",
		"basis", "source.count", "target.count.before", "target.count.after")
	for _, ev := range events {
		w.WriteLine(
			strconv.Itoa(ev.Source.Len), strconv.Itoa(ev.Source.ID), ev.SourceCenter,
			strconv.Itoa(ev.Target.Len), strconv.Itoa(ev.Target.ID), ev.TargetCenter,
			ev.Basis.String(),
			strconv.Itoa(ev.SourceCount), strconv.Itoa(ev.TargetCountBefore), strconv.Itoa(ev.TargetCountAfter))
	}
	_, err = w.Close(ctx)
	return err
}
