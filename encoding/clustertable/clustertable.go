// Package clustertable reads and writes the comma-separated tables exchanged
// with the external barcode clustering step:
//
//   *_cluster.csv   header, then "id,center,score,count" rows
//   *_barcode.csv   header, then "sequence,frequency,clusterId" rows
//
// Values are trimmed of surrounding whitespace on read. The header line is
// kept verbatim so that merged tables can be written with the same schema.
package clustertable

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// ClusterRow is one row of a cluster table.
type ClusterRow struct {
	ID     int
	Center string
	// Score is passed through unmodified.
	Score string
	Count int
}

// BarcodeRow is one row of a barcode assignment table.
type BarcodeRow struct {
	Seq       string
	Frequency int
	ClusterID int
}

// ClusterTable is the contents of a cluster table file.
type ClusterTable struct {
	Header string
	Rows   []ClusterRow
}

// BarcodeTable is the contents of a barcode assignment table file.
type BarcodeTable struct {
	Header string
	Rows   []BarcodeRow
}

const (
	// DefaultClusterHeader is written when a table has no header of its own.
	DefaultClusterHeader = "Cluster.ID,Center,Cluster.Score,time_point_1"
	// DefaultBarcodeHeader is written when a table has no header of its own.
	DefaultBarcodeHeader = "Unique.reads,Frequency,Cluster.ID"
)

type clusterRecord struct {
	ID, Center, Score, Count string
}

type barcodeRecord struct {
	Seq, Frequency, ClusterID string
}

func newReader(r io.Reader) *tsv.Reader {
	tr := tsv.NewReader(r)
	tr.Comma = ','
	tr.TrimLeadingSpace = true
	return tr
}

func joinHeader(fields ...string) string {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return strings.Join(fields, ",")
}

func atoi(path string, line int, name, s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrapf(err, "%s:%d: %s", path, line, name)
	}
	return v, nil
}

// ReadClusters reads a cluster table from path.
func ReadClusters(ctx context.Context, path string) (tbl ClusterTable, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return tbl, errors.Wrapf(err, "open cluster table")
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	r := newReader(in.Reader(ctx))
	for line := 1; ; line++ {
		var rec clusterRecord
		if err := r.Read(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return tbl, errors.Wrapf(err, "%s:%d", path, line)
		}
		if line == 1 {
			tbl.Header = joinHeader(rec.ID, rec.Center, rec.Score, rec.Count)
			continue
		}
		row := ClusterRow{
			Center: strings.TrimSpace(rec.Center),
			Score:  strings.TrimSpace(rec.Score),
		}
		if row.ID, err = atoi(path, line, "cluster id", rec.ID); err != nil {
			return tbl, err
		}
		if row.Count, err = atoi(path, line, "cluster count", rec.Count); err != nil {
			return tbl, err
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl, nil
}

// ReadBarcodes reads a barcode assignment table from path.
func ReadBarcodes(ctx context.Context, path string) (tbl BarcodeTable, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return tbl, errors.Wrapf(err, "open barcode table")
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	r := newReader(in.Reader(ctx))
	for line := 1; ; line++ {
		var rec barcodeRecord
		if err := r.Read(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return tbl, errors.Wrapf(err, "%s:%d", path, line)
		}
		if line == 1 {
			tbl.Header = joinHeader(rec.Seq, rec.Frequency, rec.ClusterID)
			continue
		}
		row := BarcodeRow{Seq: strings.TrimSpace(rec.Seq)}
		if row.Frequency, err = atoi(path, line, "frequency", rec.Frequency); err != nil {
			return tbl, err
		}
		if row.ClusterID, err = atoi(path, line, "cluster id", rec.ClusterID); err != nil {
			return tbl, err
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl, nil
}
