package lintag

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/djross22/NISTBartender-sub000/tagmatch"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// OptsVersion is the version of the Opts record. It is bumped whenever a field
// is added, removed or changes meaning.
const OptsVersion = 1

// Opts configures lineage tag extraction.
type Opts struct {
	// Version must be OptsVersion.
	Version int

	// FwdTags and RevTags are the multiplex tags expected at the start of the
	// forward and reverse reads, in matching order.
	FwdTags, RevTags []tagmatch.Tag
	// Samples maps "fwdName_revName" (see tagmatch.Tag.Name) to a sample
	// label.
	Samples map[string]string

	// UMIMin and UMIMax bound the length of the UMI preceding the multiplex
	// tag.
	UMIMin, UMIMax int

	// MultiFlank is the sequence following the multiplex tag.
	MultiFlank string
	// MultiFlankLength is the number of bases skipped after the start of the
	// flank before the quality and lineage tag region begins. Zero means
	// len(MultiFlank).
	MultiFlankLength int

	// LineageFlank1 and LineageFlank2 surround the lineage tag.
	LineageFlank1, LineageFlank2 string
	// LineageFlank1Length and LineageFlank2Length are trimmed off the start
	// and end of the lineage pattern match. Zero means the length of the
	// corresponding flank.
	LineageFlank1Length, LineageFlank2Length int
	// LineagePattern is the regular expression matched against the lineage
	// region. If empty, it is built from the two flanks, each allowing one
	// substitution, with a non-empty tag between them.
	LineagePattern string

	// MinQuality is the threshold the mean Phred quality of the lineage region
	// must exceed on both reads.
	MinQuality float64
	// MaxMismatch caps the distance of a fallback multiplex tag match.
	MaxMismatch int
	// ReadLength is the usable read length; bases past it are ignored. Zero
	// means the whole read.
	ReadLength int

	// Parallelism is the number of classification workers.
	Parallelism int
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	Version:     OptsVersion,
	UMIMin:      8,
	UMIMax:      8,
	MinQuality:  30,
	MaxMismatch: tagmatch.DefaultMaxMismatch,
	ReadLength:  0,
	Parallelism: 0, // GOMAXPROCS
}

// ParseUMIRange parses a UMI length given as "N" or "N-M".
func ParseUMIRange(s string) (min, max int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) > 2 {
		return 0, 0, errors.E(errors.Invalid, fmt.Sprintf("malformed UMI length range %q", s))
	}
	if min, err = strconv.Atoi(strings.TrimSpace(parts[0])); err != nil {
		return 0, 0, errors.E(errors.Invalid, err, fmt.Sprintf("malformed UMI length range %q", s))
	}
	max = min
	if len(parts) == 2 {
		if max, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
			return 0, 0, errors.E(errors.Invalid, err, fmt.Sprintf("malformed UMI length range %q", s))
		}
	}
	if min < 0 || max < min {
		return 0, 0, errors.E(errors.Invalid, fmt.Sprintf("malformed UMI length range %q", s))
	}
	return min, max, nil
}

func (o Opts) multiFlankLength() int {
	if o.MultiFlankLength > 0 {
		return o.MultiFlankLength
	}
	return len(o.MultiFlank)
}

func (o Opts) lineageTrim() (int, int) {
	n1, n2 := o.LineageFlank1Length, o.LineageFlank2Length
	if n1 == 0 {
		n1 = len(o.LineageFlank1)
	}
	if n2 == 0 {
		n2 = len(o.LineageFlank2)
	}
	return n1, n2
}

func (o Opts) lineagePattern() string {
	if o.LineagePattern != "" {
		return o.LineagePattern
	}
	return tagmatch.OneSnip(o.LineageFlank1) + "[ACGTN]+?" + tagmatch.OneSnip(o.LineageFlank2)
}

// Validate checks the options before any read is processed.
func (o Opts) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return errors.E(errors.Invalid, fmt.Sprintf(format, args...))
	}
	switch {
	case o.Version != OptsVersion:
		return invalid("options version %d, expected %d", o.Version, OptsVersion)
	case len(o.FwdTags) == 0:
		return invalid("no forward multiplex tags")
	case len(o.RevTags) == 0:
		return invalid("no reverse multiplex tags")
	case o.UMIMin < 0 || o.UMIMax < o.UMIMin:
		return invalid("malformed UMI length range %d-%d", o.UMIMin, o.UMIMax)
	case o.MultiFlank == "":
		return invalid("empty multiplex flank")
	case o.MultiFlankLength < 0:
		return invalid("negative multiplex flank length %d", o.MultiFlankLength)
	case o.LineageFlank1Length < 0 || o.LineageFlank2Length < 0:
		return invalid("negative lineage flank length")
	case o.LineagePattern == "" && (o.LineageFlank1 == "" || o.LineageFlank2 == ""):
		return invalid("either a lineage tag pattern or both lineage flanks must be set")
	case o.MaxMismatch <= 0:
		return invalid("fallback mismatch cap must be positive, got %d", o.MaxMismatch)
	case o.ReadLength < 0:
		return invalid("negative read length %d", o.ReadLength)
	case o.Parallelism < 0:
		return invalid("negative parallelism %d", o.Parallelism)
	}
	return nil
}

type tagRecord struct {
	Seq, Label string
}

// ReadTags reads a multiplex tag list: one "sequence<TAB>label" row per tag,
// lines starting with '#' ignored. The label column may be empty or absent.
func ReadTags(ctx context.Context, path string) (tags []tagmatch.Tag, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open tag list", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	r := tsv.NewReader(in.Reader(ctx))
	r.Comment = '#'
	// Rows have one or two columns, so records are read raw rather than
	// into a struct.
	r.FieldsPerRecord = -1
	for {
		row, err := r.Reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(errors.Invalid, err, path)
		}
		var rec tagRecord
		switch len(row) {
		case 2:
			rec.Label = row[1]
			fallthrough
		case 1:
			rec.Seq = row[0]
		default:
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: tag row %v: want 1 or 2 columns, got %d", path, row, len(row)))
		}
		tag, err := tagmatch.NewTag(rec.Seq, rec.Label)
		if err != nil {
			return nil, errors.E(errors.Invalid, err, path)
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil, errors.E(errors.Invalid, "no tags in", path)
	}
	return tags, nil
}

type sampleRecord struct {
	Fwd, Rev, Sample string
}

// ReadSamples reads the sample table: one "fwdName<TAB>revName<TAB>sample" row
// per sample, where the names are multiplex tag labels (or sequences, for
// unlabeled tags). It returns the map keyed by SampleKey.
func ReadSamples(ctx context.Context, path string) (samples map[string]string, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open sample table", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	r := tsv.NewReader(in.Reader(ctx))
	r.Comment = '#'
	samples = map[string]string{}
	for {
		var rec sampleRecord
		if err := r.Read(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(errors.Invalid, err, path)
		}
		key := SampleKey(strings.TrimSpace(rec.Fwd), strings.TrimSpace(rec.Rev))
		if prev, ok := samples[key]; ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: tag pair %s assigned to both %s and %s", path, key, prev, rec.Sample))
		}
		samples[key] = strings.TrimSpace(rec.Sample)
	}
	return samples, nil
}

// SampleKey returns the sample table key of a forward/reverse tag name pair.
func SampleKey(fwd, rev string) string { return fwd + "_" + rev }
