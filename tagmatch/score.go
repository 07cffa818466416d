package tagmatch

import (
	"fmt"
	"strings"

	"github.com/djross22/NISTBartender-sub000/util"
	"github.com/grailbio/base/errors"
)

var alphabetWithNMap = map[byte]bool{
	'A': true,
	'C': true,
	'G': true,
	'T': true,
	'N': true,
}

// Tag is a known sequence with an optional label.
type Tag struct {
	Seq   string
	Label string
}

// Name returns the label of the tag, or its sequence if it has no label.
func (t Tag) Name() string {
	if t.Label != "" {
		return t.Label
	}
	return t.Seq
}

// NewTag upper-cases seq and checks that it consists of ACGTN.
func NewTag(seq, label string) (Tag, error) {
	seq = strings.ToUpper(strings.TrimSpace(seq))
	if seq == "" {
		return Tag{}, errors.E(errors.Invalid, fmt.Sprintf("tagmatch: empty tag sequence (label %q)", label))
	}
	for i := 0; i < len(seq); i++ {
		if !alphabetWithNMap[seq[i]] {
			return Tag{}, errors.E(errors.Invalid, fmt.Sprintf("tagmatch: invalid base %c in tag %v", seq[i], seq))
		}
	}
	return Tag{Seq: seq, Label: strings.TrimSpace(label)}, nil
}

// Metric selects the distance used by a Scorer.
type Metric int

const (
	// Hamming counts substitutions between equal-length sequences.
	Hamming Metric = iota
	// Levenshtein counts substitutions, insertions and deletions.
	Levenshtein
)

// DefaultMaxMismatch is the default Scorer cap.
const DefaultMaxMismatch = 3

// Scorer finds the known tag closest to a query sequence.
type Scorer struct {
	// Cap is the exclusive upper bound on an acceptable distance. Hamming
	// counting stops once it is reached.
	Cap int
	// IgnoreN treats 'N' on either side as matching anything (Hamming only).
	IgnoreN bool
	// TrimToTag compares each tag against the last len(tag) bases of the
	// query, which strips a leading UMI of unknown length.
	TrimToTag bool
	Metric    Metric
}

// DefaultScorer is the scorer used for multiplex tag fallback matching.
var DefaultScorer = Scorer{Cap: DefaultMaxMismatch, IgnoreN: true, TrimToTag: true, Metric: Hamming}

// Best returns the index of the tag closest to query and its distance. The
// first tag wins ties. ok is false if tags is empty or the smallest distance
// is >= s.Cap.
func (s Scorer) Best(query string, tags []Tag) (best, dist int, ok bool) {
	best, dist = -1, s.Cap
	for i, tag := range tags {
		q := query
		if s.TrimToTag {
			if len(q) < len(tag.Seq) {
				continue
			}
			q = q[len(q)-len(tag.Seq):]
		}
		var d int
		switch s.Metric {
		case Levenshtein:
			d = util.Levenshtein(q, tag.Seq)
		default:
			if len(q) != len(tag.Seq) {
				continue
			}
			d = util.Hamming(q, tag.Seq, s.Cap, s.IgnoreN)
		}
		if d < dist {
			best, dist = i, d
			if d == 0 {
				break
			}
		}
	}
	if best < 0 {
		return -1, s.Cap, false
	}
	return best, dist, true
}
