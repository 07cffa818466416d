package lintag

import (
	"strings"
	"testing"

	"github.com/djross22/NISTBartender-sub000/encoding/fastq"
	"github.com/djross22/NISTBartender-sub000/tagmatch"
	"github.com/grailbio/base/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testFlank     = "GATC"
	testLinFlank1 = "CCTAG"
	testLinFlank2 = "AGGAC"
	fwdLintag     = "TTTTCCCCGG"
	revLintag     = "GGGGAAAATT"
)

func mustTag(t *testing.T, seq, label string) tagmatch.Tag {
	tag, err := tagmatch.NewTag(seq, label)
	require.NoError(t, err)
	return tag
}

func testOpts(t *testing.T) Opts {
	opts := DefaultOpts
	opts.FwdTags = []tagmatch.Tag{mustTag(t, "ACGTAC", "F1"), mustTag(t, "TGCATG", "F2")}
	opts.RevTags = []tagmatch.Tag{mustTag(t, "GGCCAA", "R1"), mustTag(t, "TTAACC", "R2")}
	opts.Samples = map[string]string{"F1_R1": "s1", "F2_R2": "s2"}
	opts.UMIMin, opts.UMIMax = 4, 4
	opts.MultiFlank = testFlank
	opts.LineageFlank1, opts.LineageFlank2 = testLinFlank1, testLinFlank2
	opts.Parallelism = 1
	return opts
}

// read builds a read: umi, multiplex tag, flank, lineage tag with its flanks
// and a short tail.
func read(umi, tag, lintag string) string {
	return umi + tag + testFlank + testLinFlank1 + lintag + testLinFlank2 + "TT"
}

func qual(seq string, c byte) string { return strings.Repeat(string(c), len(seq)) }

func pair(fwd, rev string) fastq.ReadPair {
	return fastq.ReadPair{Index: 1, FwdSeq: fwd, FwdQual: qual(fwd, 'I'), RevSeq: rev, RevQual: qual(rev, 'I')}
}

func newTestClassifier(t *testing.T, opts Opts) *Classifier {
	c, err := NewClassifier(opts)
	require.NoError(t, err)
	return c
}

func TestMeanQuality(t *testing.T) {
	q, ok := MeanQuality("++++")
	assert.True(t, ok)
	assert.Equal(t, 10.0, q)
	q, ok = MeanQuality("+I")
	assert.True(t, ok)
	assert.Equal(t, 25.0, q)
	_, ok = MeanQuality("")
	assert.False(t, ok)
}

func TestClassifyAccepted(t *testing.T) {
	c := newTestClassifier(t, testOpts(t))
	r := c.Classify(pair(read("AAAA", "ACGTAC", fwdLintag), read("CCCC", "GGCCAA", revLintag)))
	require.Equal(t, Accepted, r.Outcome)
	assert.Equal(t, "s1", r.Sample)
	assert.Equal(t, "s1_AAAA_CCCC", r.Label())
	assert.Equal(t, fwdLintag, r.FwdLineage)
	assert.Equal(t, revLintag, r.RevLineage)
	assert.Equal(t, "ACGTAC", r.Fwd.Actual)
	assert.False(t, r.Fwd.Fallback)
	assert.Equal(t, 10, r.Fwd.FlankStart)
}

func TestClassifyOneSubstitution(t *testing.T) {
	c := newTestClassifier(t, testOpts(t))
	// One substitution in the tag, in the multiplex flank and in each lineage
	// flank.
	fwd := "AAAA" + "ACGTTC" + "GTTC" + "CCAAG" + fwdLintag + "AGCAC" + "TT"
	r := c.Classify(pair(fwd, read("CCCC", "GGCCAA", revLintag)))
	require.Equal(t, Accepted, r.Outcome)
	assert.Equal(t, "ACGTTC", r.Fwd.Actual)
	assert.Equal(t, "F1", r.Fwd.Tag.Name())
	assert.Equal(t, fwdLintag, r.FwdLineage)
}

func TestClassifyFallback(t *testing.T) {
	c := newTestClassifier(t, testOpts(t))
	r := c.Classify(pair(read("AAAA", "TTGTAC", fwdLintag), read("CCCC", "GGCCAA", revLintag)))
	require.Equal(t, Accepted, r.Outcome)
	assert.True(t, r.Fwd.Fallback)
	assert.Equal(t, "F1", r.Fwd.Tag.Label)
	assert.Equal(t, "TTGTAC", r.Fwd.Actual)
	assert.Equal(t, "AAAA", r.Fwd.UMI)
}

func TestClassifyOutcomes(t *testing.T) {
	c := newTestClassifier(t, testOpts(t))
	good := read("AAAA", "ACGTAC", fwdLintag)
	goodRev := read("CCCC", "GGCCAA", revLintag)

	r := c.Classify(pair(read("AAAA", "TTTTTT", fwdLintag), goodRev))
	assert.Equal(t, MultiplexUnmatched, r.Outcome)

	r = c.Classify(pair(good, read("CCCC", "CATCAT", revLintag)))
	assert.Equal(t, MultiplexUnmatched, r.Outcome)
	assert.Equal(t, "F1", r.Fwd.Tag.Name())

	r = c.Classify(pair(good, read("CCCC", "TTAACC", revLintag)))
	assert.Equal(t, SampleInvalid, r.Outcome)
	assert.Equal(t, "unexpected_F1_R2", r.Sample)
	assert.Equal(t, "unexpected_F1_R2_AAAA_CCCC", r.Label())
	assert.Equal(t, Accepted, r.LineageOutcome)
	assert.Equal(t, fwdLintag, r.FwdLineage)
	assert.Equal(t, revLintag, r.RevLineage)

	p := pair(good, goodRev)
	p.RevQual = qual(goodRev, '+')
	r = c.Classify(p)
	assert.Equal(t, QualityFailed, r.Outcome)

	noFlank := "AAAA" + "ACGTAC" + testFlank + testLinFlank1 + fwdLintag + "TTTTT"
	r = c.Classify(pair(noFlank, goodRev))
	assert.Equal(t, LineageUnmatched, r.Outcome)
	assert.Equal(t, "", r.FwdLineage)
}

func TestClassifyUnexpectedSample(t *testing.T) {
	c := newTestClassifier(t, testOpts(t))
	fwd, rev := read("GGGG", "TGCATG", fwdLintag), read("TTTT", "GGCCAA", revLintag)

	r := c.Classify(pair(fwd, rev))
	assert.Equal(t, SampleInvalid, r.Outcome)
	assert.Equal(t, "unexpected_F2_R1_GGGG_TTTT", r.Label())
	assert.Equal(t, Accepted, r.LineageOutcome)
	assert.Equal(t, fwdLintag, r.FwdLineage)
	assert.Equal(t, revLintag, r.RevLineage)

	p := pair(fwd, rev)
	p.FwdQual = qual(fwd, '+')
	r = c.Classify(p)
	assert.Equal(t, SampleInvalid, r.Outcome)
	assert.Equal(t, QualityFailed, r.LineageOutcome)
	assert.Equal(t, "", r.FwdLineage)

	noFlank := "GGGG" + "TGCATG" + testFlank + testLinFlank1 + fwdLintag + "TTTTT"
	r = c.Classify(pair(noFlank, rev))
	assert.Equal(t, SampleInvalid, r.Outcome)
	assert.Equal(t, LineageUnmatched, r.LineageOutcome)

	var stats Stats
	stats.Add(c.Classify(pair(fwd, rev)).Outcome)
	assert.Equal(t, Stats{Total: 1, MultiplexMatched: 1}, stats)
}

func TestQualityThresholdIsStrict(t *testing.T) {
	opts := testOpts(t)
	opts.MinQuality = 10
	c := newTestClassifier(t, opts)
	fwd, rev := read("AAAA", "ACGTAC", fwdLintag), read("CCCC", "GGCCAA", revLintag)
	p := fastq.ReadPair{FwdSeq: fwd, FwdQual: qual(fwd, '+'), RevSeq: rev, RevQual: qual(rev, 'I')}
	assert.Equal(t, QualityFailed, c.Classify(p).Outcome)
	p.FwdQual = qual(fwd, ',')
	assert.Equal(t, Accepted, c.Classify(p).Outcome)
}

func TestReadLength(t *testing.T) {
	fwd, rev := read("AAAA", "ACGTAC", fwdLintag), read("CCCC", "GGCCAA", revLintag)
	opts := testOpts(t)
	// Low-quality bases past the usable read length are ignored.
	opts.ReadLength = len(fwd) - 2
	c := newTestClassifier(t, opts)
	p := pair(fwd, rev)
	p.FwdQual = qual(fwd[:len(fwd)-2], 'I') + "##"
	assert.Equal(t, Accepted, c.Classify(p).Outcome)

	// The second lineage flank is cut off.
	opts.ReadLength = len(fwd) - 4
	c = newTestClassifier(t, opts)
	assert.Equal(t, LineageUnmatched, c.Classify(p).Outcome)

	// Empty lineage region.
	opts.ReadLength = 12
	c = newTestClassifier(t, opts)
	assert.Equal(t, QualityFailed, c.Classify(p).Outcome)
}

func TestClassifyDeterministic(t *testing.T) {
	c := newTestClassifier(t, testOpts(t))
	pairs := []fastq.ReadPair{
		pair(read("AAAA", "ACGTAC", fwdLintag), read("CCCC", "GGCCAA", revLintag)),
		pair(read("GTGT", "TTGTAC", fwdLintag), read("CCCC", "GGCCAA", revLintag)),
		pair(read("AAAA", "TGCATG", fwdLintag), read("ACAC", "TTAACC", revLintag)),
	}
	for _, p := range pairs {
		assert.Equal(t, c.Classify(p), c.Classify(p))
	}
}

func TestLineagePattern(t *testing.T) {
	opts := testOpts(t)
	opts.LineageFlank1, opts.LineageFlank2 = "", ""
	opts.LineagePattern = "CCTAG[ACGT]{10}AGGAC"
	opts.LineageFlank1Length, opts.LineageFlank2Length = 5, 5
	c := newTestClassifier(t, opts)
	r := c.Classify(pair(read("AAAA", "ACGTAC", fwdLintag), read("CCCC", "GGCCAA", revLintag)))
	require.Equal(t, Accepted, r.Outcome)
	assert.Equal(t, fwdLintag, r.FwdLineage)

	opts.LineagePattern = "CCTAG[ACGT"
	_, err := NewClassifier(opts)
	assert.True(t, errors.Is(errors.Invalid, err))
}

func TestOptsValidate(t *testing.T) {
	opts := testOpts(t)
	require.NoError(t, opts.Validate())
	for _, mod := range []func(o *Opts){
		func(o *Opts) { o.Version = 0 },
		func(o *Opts) { o.FwdTags = nil },
		func(o *Opts) { o.UMIMin, o.UMIMax = 5, 4 },
		func(o *Opts) { o.MultiFlank = "" },
		func(o *Opts) { o.LineageFlank2 = "" },
		func(o *Opts) { o.MaxMismatch = 0 },
		func(o *Opts) { o.ReadLength = -1 },
	} {
		o := testOpts(t)
		mod(&o)
		err := o.Validate()
		assert.Error(t, err)
		assert.True(t, errors.Is(errors.Invalid, err), "%v", err)
	}
}

func TestParseUMIRange(t *testing.T) {
	for _, test := range []struct {
		s        string
		min, max int
		ok       bool
	}{
		{"8", 8, 8, true},
		{"7-9", 7, 9, true},
		{" 0-2 ", 0, 2, true},
		{"9-7", 0, 0, false},
		{"a", 0, 0, false},
		{"1-2-3", 0, 0, false},
		{"-1", 0, 0, false},
	} {
		min, max, err := ParseUMIRange(test.s)
		if !test.ok {
			assert.True(t, errors.Is(errors.Invalid, err), "%q", test.s)
			continue
		}
		require.NoError(t, err, test.s)
		assert.Equal(t, test.min, min)
		assert.Equal(t, test.max, max)
	}
}

func TestStats(t *testing.T) {
	var a, b Stats
	for _, o := range []Outcome{MultiplexUnmatched, SampleInvalid, QualityFailed, LineageUnmatched, Accepted, Accepted} {
		a.Add(o)
	}
	b.Add(Accepted)
	b.Add(MultiplexUnmatched)
	s := a.Merge(b)
	assert.Equal(t, Stats{Total: 8, MultiplexMatched: 6, SampleValid: 5, QualityPassed: 4, LineageMatched: 3}, s)
	assert.True(t, s.LineageMatched <= s.QualityPassed && s.QualityPassed <= s.SampleValid &&
		s.SampleValid <= s.MultiplexMatched && s.MultiplexMatched <= s.Total)

	var buf strings.Builder
	require.NoError(t, s.WriteSummary(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "total\t8\t100.00\t100.00", lines[1])
	assert.Equal(t, "multiplex_matched\t6\t75.00\t75.00", lines[2])
	assert.Equal(t, "lineage_matched\t3\t37.50\t75.00", lines[5])

	require.NoError(t, Stats{}.WriteSummary(&buf))
	assert.Equal(t, "accepted", Accepted.String())
}
