package tagmatch

import (
	"regexp"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneSnip(t *testing.T) {
	re := regexp.MustCompile("^" + OneSnip("ACGT") + "$")
	for _, s := range []string{"ACGT", "NCGT", "ANGT", "ACNT", "ACGN", "TCGT", "ACGA"} {
		assert.True(t, re.MatchString(s), "%s should match", s)
	}
	for _, s := range []string{"ANNT", "NNGT", "TGCA", "ACG", "ACGTA"} {
		assert.False(t, re.MatchString(s), "%s should not match", s)
	}
	assert.Equal(t, "", OneSnip(""))
}

func TestNewTag(t *testing.T) {
	tag, err := NewTag(" acgtn ", " s1 ")
	require.NoError(t, err)
	assert.Equal(t, Tag{Seq: "ACGTN", Label: "s1"}, tag)
	assert.Equal(t, "s1", tag.Name())
	assert.Equal(t, "ACGTN", Tag{Seq: "ACGTN"}.Name())

	_, err = NewTag("ACXT", "")
	assert.True(t, errors.Is(errors.Invalid, err))
	_, err = NewTag("", "x")
	assert.True(t, errors.Is(errors.Invalid, err))
}

func TestTagMatcher(t *testing.T) {
	m, err := NewTagMatcher(Tag{Seq: "ACGT"}, "TTGG", 2, 3)
	require.NoError(t, err)

	tests := []struct {
		seq        string
		ok         bool
		umi        string
		actual     string
		flankStart int
	}{
		{"GGACGTTTGGAAAA", true, "GG", "ACGT", 6},
		{"GGACCTTTGGAAAA", true, "GG", "ACCT", 6},
		{"GGCACGTTAGGAAA", true, "GGC", "ACGT", 7},
		{"GGACCATTGGAAAA", false, "", "", 0},
		{"ACGTTTGG", false, "", "", 0},
	}
	for _, test := range tests {
		umi, actual, flankStart, ok := m.Match(test.seq)
		assert.Equal(t, test.ok, ok, test.seq)
		assert.Equal(t, test.umi, umi, test.seq)
		assert.Equal(t, test.actual, actual, test.seq)
		assert.Equal(t, test.flankStart, flankStart, test.seq)
	}

	_, err = NewTagMatcher(Tag{Seq: "ACGT"}, "TTGG", 3, 2)
	assert.True(t, errors.Is(errors.Invalid, err))
}

func TestFlankMatcher(t *testing.T) {
	m, err := NewFlankMatcher("TTGG", 6, 7)
	require.NoError(t, err)
	prefix, ok := m.Match("GGACCATTGGAAAA")
	assert.True(t, ok)
	assert.Equal(t, "GGACCA", prefix)

	_, ok = m.Match("GGATTGGAAAA")
	assert.False(t, ok)

	_, err = NewFlankMatcher("", 1, 2)
	assert.True(t, errors.Is(errors.Invalid, err))
	_, err = NewFlankMatcher("TTGG", 3, 2)
	assert.True(t, errors.Is(errors.Invalid, err))
	_, err = NewTagSet([]Tag{{Seq: "ACGT"}}, "TTGG", 3, 2, DefaultScorer)
	assert.True(t, errors.Is(errors.Invalid, err))
}

func TestScorer(t *testing.T) {
	tags := []Tag{{Seq: "ACGT"}, {Seq: "TTTT"}, {Seq: "ACGA"}}

	tests := []struct {
		scorer Scorer
		query  string
		best   int
		dist   int
		ok     bool
	}{
		{DefaultScorer, "GGACGT", 0, 0, true},
		{DefaultScorer, "GGACCA", 2, 1, true},
		{DefaultScorer, "ANGA", 2, 0, true},     // N matches anything.
		{DefaultScorer, "GGTGCC", -1, 3, false}, // every tag is >= 3 away.
		{DefaultScorer, "AC", -1, 3, false},     // query shorter than every tag.
		{Scorer{Cap: 3, Metric: Hamming}, "ANGT", 0, 1, true},
		{Scorer{Cap: 3, Metric: Hamming}, "GGACGT", -1, 3, false}, // no trimming, lengths differ.
		{Scorer{Cap: 3, Metric: Levenshtein}, "ACGTT", 0, 1, true},
	}
	for _, test := range tests {
		best, dist, ok := test.scorer.Best(test.query, tags)
		assert.Equal(t, test.ok, ok, test.query)
		assert.Equal(t, test.best, best, test.query)
		assert.Equal(t, test.dist, dist, test.query)
	}

	_, _, ok := DefaultScorer.Best("ACGT", nil)
	assert.False(t, ok)
}

func TestTagSet(t *testing.T) {
	tags := []Tag{{Seq: "ACGT", Label: "f1"}, {Seq: "TTTT", Label: "f2"}}
	s, err := NewTagSet(tags, "TTGG", 2, 3, DefaultScorer)
	require.NoError(t, err)
	assert.Equal(t, tags, s.Tags())

	m, ok := s.Match("GGACGTTTGGAAAA")
	require.True(t, ok)
	assert.Equal(t, Match{Tag: tags[0], Actual: "ACGT", UMI: "GG", FlankStart: 6}, m)

	// Two substitutions in the tag defeat the fast matchers; the fallback
	// finds the flank and scores the prefix.
	m, ok = s.Match("GGACCATTGGAAAA")
	require.True(t, ok)
	assert.Equal(t, Match{Tag: tags[0], Actual: "ACCA", UMI: "GG", FlankStart: 6, Fallback: true}, m)

	_, ok = s.Match("GGGGGGGGGGGGGG")
	assert.False(t, ok)
}
