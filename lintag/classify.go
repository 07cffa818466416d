// Package lintag extracts lineage tags (DNA barcodes) from paired reads.
//
// Each read starts with a UMI, a multiplex tag identifying the sample and a
// flank. The bases following the flank hold the lineage tag, surrounded by
// two more flanks. A read pair is accepted only if both reads carry a known
// multiplex tag, the tag pair names a known sample, both lineage regions have
// a mean quality above the threshold, and the lineage tag is found on both
// reads.
package lintag

import (
	"fmt"
	"regexp"

	"github.com/djross22/NISTBartender-sub000/encoding/fastq"
	"github.com/djross22/NISTBartender-sub000/tagmatch"
	"github.com/grailbio/base/errors"
)

// Outcome is the terminal state of classifying one read pair. The states are
// ordered: a pair that reaches a state has passed every check before it.
type Outcome int

const (
	// MultiplexUnmatched means no multiplex tag was found on one of the reads.
	MultiplexUnmatched Outcome = iota
	// SampleInvalid means the multiplex tag pair is not in the sample table.
	// The later checks still run; see Result.LineageOutcome.
	SampleInvalid
	// QualityFailed means the mean quality of a lineage region is too low.
	QualityFailed
	// LineageUnmatched means the lineage tag was not found on one of the reads.
	LineageUnmatched
	// Accepted means the lineage tags were extracted.
	Accepted
)

var outcomeNames = [...]string{"multiplex-unmatched", "sample-invalid", "quality-failed", "lineage-unmatched", "accepted"}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// Result is the classification of one read pair. Results are not modified
// once produced.
type Result struct {
	Outcome Outcome
	// Fwd and Rev are the multiplex tag matches. Rev is unset if Fwd failed.
	Fwd, Rev tagmatch.Match
	// Sample is the sample label, or "unexpected_<key>" for tag pairs missing
	// from the sample table.
	Sample string
	// LineageOutcome is the result of the quality and lineage checks:
	// QualityFailed, LineageUnmatched or Accepted. It is set for every pair
	// whose multiplex tags matched, including SampleInvalid pairs.
	LineageOutcome Outcome
	// FwdLineage and RevLineage are the extracted lineage tags, set when
	// LineageOutcome is Accepted.
	FwdLineage, RevLineage string
	// Pair is the raw read pair.
	Pair fastq.ReadPair
}

// Label returns the "sample_UMIfwd_UMIrev" label of the pair.
func (r *Result) Label() string {
	return r.Sample + "_" + r.Fwd.UMI + "_" + r.Rev.UMI
}

// Classifier classifies read pairs. It is immutable once built and safe for
// concurrent use.
type Classifier struct {
	opts       Opts
	fwd, rev   *tagmatch.TagSet
	lineage    *regexp.Regexp
	skip       int
	trim1      int
	trim2      int
	minQuality float64
}

// NewClassifier builds the matchers for opts.
func NewClassifier(opts Opts) (*Classifier, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	scorer := tagmatch.DefaultScorer
	scorer.Cap = opts.MaxMismatch
	c := &Classifier{opts: opts, skip: opts.multiFlankLength(), minQuality: opts.MinQuality}
	c.trim1, c.trim2 = opts.lineageTrim()
	var err error
	if c.fwd, err = tagmatch.NewTagSet(opts.FwdTags, opts.MultiFlank, opts.UMIMin, opts.UMIMax, scorer); err != nil {
		return nil, errors.E(errors.Invalid, err, "forward multiplex tags")
	}
	if c.rev, err = tagmatch.NewTagSet(opts.RevTags, opts.MultiFlank, opts.UMIMin, opts.UMIMax, scorer); err != nil {
		return nil, errors.E(errors.Invalid, err, "reverse multiplex tags")
	}
	if c.lineage, err = regexp.Compile(opts.lineagePattern()); err != nil {
		return nil, errors.E(errors.Invalid, err, "lineage tag pattern")
	}
	return c, nil
}

// MeanQuality returns the mean Phred quality of qual, encoded with offset 33.
// It returns false for an empty string.
func MeanQuality(qual string) (float64, bool) {
	if len(qual) == 0 {
		return 0, false
	}
	sum := 0
	for i := 0; i < len(qual); i++ {
		sum += int(qual[i]) - 33
	}
	return float64(sum) / float64(len(qual)), true
}

// region returns the bounds of the lineage region of a read whose multiplex
// flank starts at flankStart.
func (c *Classifier) region(seq string, flankStart int) (start, end int) {
	start = flankStart + c.skip
	end = len(seq)
	if c.opts.ReadLength > 0 && c.opts.ReadLength < end {
		end = c.opts.ReadLength
	}
	if start > end {
		start = end
	}
	return start, end
}

func (c *Classifier) qualityPassed(seq, qual string, flankStart int) bool {
	start, end := c.region(seq, flankStart)
	if end > len(qual) {
		end = len(qual)
	}
	if start >= end {
		return false
	}
	q, ok := MeanQuality(qual[start:end])
	return ok && q > c.minQuality
}

// lineageTag finds the lineage pattern in the lineage region and returns the
// match with the flanks trimmed off.
func (c *Classifier) lineageTag(seq string, flankStart int) (string, bool) {
	start, end := c.region(seq, flankStart)
	region := seq[start:end]
	loc := c.lineage.FindStringIndex(region)
	if loc == nil {
		return "", false
	}
	from, to := loc[0]+c.trim1, loc[1]-c.trim2
	if from >= to {
		return "", false
	}
	return region[from:to], true
}

// checkLineage runs the quality and lineage checks of a pair whose multiplex
// tags matched, filling in the lineage tags on success.
func (c *Classifier) checkLineage(r *Result) Outcome {
	pair := r.Pair
	if !c.qualityPassed(pair.FwdSeq, pair.FwdQual, r.Fwd.FlankStart) ||
		!c.qualityPassed(pair.RevSeq, pair.RevQual, r.Rev.FlankStart) {
		return QualityFailed
	}
	fwd, ok := c.lineageTag(pair.FwdSeq, r.Fwd.FlankStart)
	if !ok {
		return LineageUnmatched
	}
	rev, ok := c.lineageTag(pair.RevSeq, r.Rev.FlankStart)
	if !ok {
		return LineageUnmatched
	}
	r.FwdLineage, r.RevLineage = fwd, rev
	return Accepted
}

// Classify runs the classification of one pair. It never fails: every
// failure to match is reported as an Outcome. A pair whose tag pair is not in
// the sample table ends as SampleInvalid, but it still goes through the
// quality and lineage checks; their result is in LineageOutcome.
func (c *Classifier) Classify(pair fastq.ReadPair) Result {
	r := Result{Outcome: MultiplexUnmatched, Pair: pair}
	var ok bool
	if r.Fwd, ok = c.fwd.Match(pair.FwdSeq); !ok {
		return r
	}
	if r.Rev, ok = c.rev.Match(pair.RevSeq); !ok {
		return r
	}
	key := SampleKey(r.Fwd.Tag.Name(), r.Rev.Tag.Name())
	var valid bool
	if r.Sample, valid = c.opts.Samples[key]; !valid {
		r.Sample = "unexpected_" + key
	}
	r.LineageOutcome = c.checkLineage(&r)
	r.Outcome = r.LineageOutcome
	if !valid {
		r.Outcome = SampleInvalid
	}
	return r
}
