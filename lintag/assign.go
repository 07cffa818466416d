package lintag

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/djross22/NISTBartender-sub000/encoding/clustertable"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
)

// AssignOpts lists the inputs and the output of Assign.
type AssignOpts struct {
	// FwdTags and RevTags are the lineage tag files written by Extract.
	FwdTags, RevTags string
	// FwdBarcodes and RevBarcodes are the merged barcode tables of the
	// forward and reverse lineage tags.
	FwdBarcodes, RevBarcodes string
	// Output is the path of the assignment table.
	Output string
}

// AssignStats counts the pairs seen by Assign.
type AssignStats struct {
	// Pairs is the # of lineage tag pairs read.
	Pairs int
	// Assigned is the # of pairs written.
	Assigned int
	// MissingFwd and MissingRev are the # of pairs skipped because the
	// forward (or, failing that, the reverse) tag is not in its barcode table,
	// typically because it was below the clustering abundance cutoff.
	MissingFwd, MissingRev int
}

type lintagRecord struct {
	Tag, Label string
}

// AssignHeader is the header of the assignment table.
const AssignHeader = "sample,umi.fwd,umi.rev,cluster.fwd,cluster.rev"

func readBarcodeMap(ctx context.Context, path string) (map[string]int, error) {
	bt, err := clustertable.ReadBarcodes(ctx, path)
	if err != nil {
		return nil, errors.E(err, "read barcodes")
	}
	m := make(map[string]int, len(bt.Rows))
	for _, row := range bt.Rows {
		m[row.Seq] = row.ClusterID
	}
	return m, nil
}

// splitLabel splits a "sample_UMIfwd_UMIrev" label. The sample itself may
// contain underscores.
func splitLabel(label string) (sample, umiFwd, umiRev string, ok bool) {
	j := strings.LastIndexByte(label, '_')
	if j < 0 {
		return "", "", "", false
	}
	i := strings.LastIndexByte(label[:j], '_')
	if i < 0 {
		return "", "", "", false
	}
	return label[:i], label[i+1 : j], label[j+1:], true
}

func openLintags(ctx context.Context, path string) (file.File, *tsv.Reader, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, "open lineage tags", path)
	}
	r := tsv.NewReader(in.Reader(ctx))
	r.Comma = ','
	return in, r, nil
}

// Assign maps every extracted lineage tag pair to its forward and reverse
// clusters. The two lineage tag files are read in lock step; a line pair whose
// labels differ means the files are out of sync, and Assign fails with an
// Integrity error. Pairs whose tags are missing from the barcode tables are
// counted and skipped.
func Assign(ctx context.Context, opts AssignOpts) (stats AssignStats, err error) {
	fwdMap, err := readBarcodeMap(ctx, opts.FwdBarcodes)
	if err != nil {
		return stats, err
	}
	revMap, err := readBarcodeMap(ctx, opts.RevBarcodes)
	if err != nil {
		return stats, err
	}
	fwdIn, fwd, err := openLintags(ctx, opts.FwdTags)
	if err != nil {
		return stats, err
	}
	defer fwdIn.Close(ctx) // nolint: errcheck
	revIn, rev, err := openLintags(ctx, opts.RevTags)
	if err != nil {
		return stats, err
	}
	defer revIn.Close(ctx) // nolint: errcheck

	w, err := clustertable.Create(ctx, opts.Output)
	if err != nil {
		return stats, err
	}
	remove := func() {
		if e := file.Remove(ctx, opts.Output); e != nil {
			log.Error.Printf("remove %s: %v", opts.Output, e)
		}
	}
	fail := func(err error) (AssignStats, error) {
		_, _ = w.Close(ctx)
		remove()
		return stats, err
	}
	w.WriteLine(strings.Split(AssignHeader, ",")...)
	for line := 1; ; line++ {
		var f, r lintagRecord
		errF := fwd.Read(&f)
		errR := rev.Read(&r)
		if errF == io.EOF && errR == io.EOF {
			break
		}
		if errF == io.EOF || errR == io.EOF {
			return fail(errors.E(errors.Integrity,
				fmt.Sprintf("lineage tag files %s and %s have different lengths (line %d)", opts.FwdTags, opts.RevTags, line)))
		}
		if errF != nil {
			return fail(errors.E(errors.Invalid, errF, fmt.Sprintf("%s:%d", opts.FwdTags, line)))
		}
		if errR != nil {
			return fail(errors.E(errors.Invalid, errR, fmt.Sprintf("%s:%d", opts.RevTags, line)))
		}
		stats.Pairs++
		if f.Label != r.Label {
			return fail(errors.E(errors.Integrity,
				fmt.Sprintf("line %d: forward label %s does not match reverse label %s", line, f.Label, r.Label)))
		}
		sample, umiFwd, umiRev, ok := splitLabel(f.Label)
		if !ok {
			return fail(errors.E(errors.Invalid, fmt.Sprintf("%s:%d: malformed label %q", opts.FwdTags, line, f.Label)))
		}
		fc, ok := fwdMap[f.Tag]
		if !ok {
			stats.MissingFwd++
			continue
		}
		rc, ok := revMap[r.Tag]
		if !ok {
			stats.MissingRev++
			continue
		}
		w.WriteLine(sample, umiFwd, umiRev, strconv.Itoa(fc), strconv.Itoa(rc))
		stats.Assigned++
	}
	digest, err := w.Close(ctx)
	if err != nil {
		remove()
		return stats, err
	}
	log.Printf("%s: assigned %d of %d pairs (%d forward, %d reverse tags not in barcode tables), digest %x",
		opts.Output, stats.Assigned, stats.Pairs, stats.MissingFwd, stats.MissingRev, digest)
	return stats, nil
}
