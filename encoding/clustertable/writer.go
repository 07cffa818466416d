package clustertable

import (
	"bufio"
	"context"
	"hash"
	"io"
	"strconv"
	"strings"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

var newline = []byte{'\n'}

// Writer writes comma-separated rows to a file and keeps a seahash digest of
// everything written, so that two runs can be compared cheaply.
type Writer struct {
	path string
	out  file.File
	buf  *bufio.Writer
	h    hash.Hash64
	w    io.Writer
	err  error
}

// Create opens path for writing.
func Create(ctx context.Context, path string) (*Writer, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create", path)
	}
	w := &Writer{path: path, out: out, buf: bufio.NewWriterSize(out.Writer(ctx), 1<<20), h: seahash.New()}
	w.w = io.MultiWriter(w.buf, w.h)
	return w, nil
}

// WriteLine writes fields joined by commas, followed by a newline. Errors are
// sticky and reported by Close.
func (w *Writer) WriteLine(fields ...string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, strings.Join(fields, ","))
	if w.err == nil {
		_, w.err = w.w.Write(newline)
	}
}

// Close flushes and closes the file. It returns the digest of the bytes
// written.
func (w *Writer) Close(ctx context.Context) (uint64, error) {
	once := errors.Once{}
	once.Set(w.err)
	once.Set(w.buf.Flush())
	once.Set(w.out.Close(ctx))
	if err := once.Err(); err != nil {
		return 0, errors.E(err, "write", w.path)
	}
	sum := w.h.Sum64()
	log.Printf("wrote %s (seahash %016x)", w.path, sum)
	return sum, nil
}

func header(h, def string) string {
	if h == "" {
		return def
	}
	return h
}

// WriteClusters writes a cluster table to path.
func WriteClusters(ctx context.Context, path string, tbl ClusterTable) (uint64, error) {
	w, err := Create(ctx, path)
	if err != nil {
		return 0, err
	}
	w.WriteLine(header(tbl.Header, DefaultClusterHeader))
	for _, row := range tbl.Rows {
		w.WriteLine(strconv.Itoa(row.ID), row.Center, row.Score, strconv.Itoa(row.Count))
	}
	return w.Close(ctx)
}

// WriteBarcodes writes a barcode assignment table to path.
func WriteBarcodes(ctx context.Context, path string, tbl BarcodeTable) (uint64, error) {
	w, err := Create(ctx, path)
	if err != nil {
		return 0, err
	}
	w.WriteLine(header(tbl.Header, DefaultBarcodeHeader))
	for _, row := range tbl.Rows {
		w.WriteLine(row.Seq, strconv.Itoa(row.Frequency), strconv.Itoa(row.ClusterID))
	}
	return w.Close(ctx)
}
