package fastq

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
)

// ReadPair is a forward/reverse read pair. Index is 1-based.
type ReadPair struct {
	Index           int
	FwdSeq, FwdQual string
	RevSeq, RevQual string
}

// PairStream reads two FASTQ streams in lock step. It stops as soon as either
// stream is exhausted; record counts are assumed to be synchronized and read
// headers are not compared. PairStream is not threadsafe.
type PairStream struct {
	r1, r2 *Scanner
	n      int
	err    error

	// Set by OpenPairStream.
	path1, path2 string
	in1, in2     file.File
	gz1, gz2     *gzip.Reader
}

// NewPairStream creates a stream over uncompressed R1 and R2 readers.
func NewPairStream(r1, r2 io.Reader) *PairStream {
	return &PairStream{r1: NewScanner(r1), r2: NewScanner(r2)}
}

// OpenPairStream opens a pair of FASTQ files. Files whose name ends in ".gz"
// are gunzipped. The caller must call Close.
func OpenPairStream(ctx context.Context, r1Path, r2Path string) (*PairStream, error) {
	p := &PairStream{path1: r1Path, path2: r2Path}
	var (
		err      error
		in1, in2 io.Reader
	)
	if p.in1, in1, p.gz1, err = openFASTQ(ctx, r1Path); err != nil {
		return nil, err
	}
	if p.in2, in2, p.gz2, err = openFASTQ(ctx, r2Path); err != nil {
		_ = p.in1.Close(ctx)
		return nil, err
	}
	p.r1, p.r2 = NewScanner(in1), NewScanner(in2)
	return p, nil
}

func openFASTQ(ctx context.Context, path string) (file.File, io.Reader, *gzip.Reader, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, nil, errors.E(err, "open fastq", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return in, in.Reader(ctx), nil, nil
	}
	gz, err := gzip.NewReader(in.Reader(ctx))
	if err != nil {
		_ = in.Close(ctx)
		return nil, nil, nil, errors.E(err, "gunzip", path)
	}
	return in, gz, gz, nil
}

// Scan reads the next pair into pair. It returns false at the end of either
// stream or on error; check Err afterwards.
func (p *PairStream) Scan(pair *ReadPair) bool {
	if p.err != nil {
		return false
	}
	var r1, r2 Read
	ok1 := p.r1.Scan(&r1)
	ok2 := p.r2.Scan(&r2)
	if !ok1 || !ok2 {
		if ok1 != ok2 {
			log.Error.Printf("fastq pair %s, %s: one file ended after %d pairs, ignoring the rest of the other",
				p.path1, p.path2, p.n)
		}
		if p.err = p.r1.Err(); p.err == nil {
			p.err = p.r2.Err()
		}
		if p.err == nil {
			p.err = errEOF
		}
		return false
	}
	p.n++
	*pair = ReadPair{
		Index:   p.n,
		FwdSeq:  r1.Seq,
		FwdQual: r1.Qual,
		RevSeq:  r2.Seq,
		RevQual: r2.Qual,
	}
	return true
}

// N returns the number of pairs read so far.
func (p *PairStream) N() int { return p.n }

// Err returns the scanning error, if any. It should be checked after Scan
// returns false.
func (p *PairStream) Err() error {
	if p.err == errEOF {
		return nil
	}
	return p.err
}

// Close releases the files opened by OpenPairStream.
func (p *PairStream) Close(ctx context.Context) error {
	once := errors.Once{}
	if p.gz1 != nil {
		once.Set(p.gz1.Close())
	}
	if p.gz2 != nil {
		once.Set(p.gz2.Close())
	}
	if p.in1 != nil {
		once.Set(p.in1.Close(ctx))
	}
	if p.in2 != nil {
		once.Set(p.in2.Close(ctx))
	}
	return once.Err()
}
