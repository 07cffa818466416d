package cluster

import (
	"strings"

	"github.com/djross22/NISTBartender-sub000/util"
)

// Basis is the reason a cluster was merged.
type Basis int

const (
	// Substring means one center is a substring of the other.
	Substring Basis = iota
	// Distance means the edit distance and abundance rule accepted the merge.
	Distance
	// SpikeIn means the cluster was folded into a nearby spike-in.
	SpikeIn
)

func (b Basis) String() string {
	switch b {
	case Substring:
		return "substring"
	case Distance:
		return "distance"
	case SpikeIn:
		return "spike-in"
	}
	return "unknown"
}

// Rule decides whether a candidate cluster should merge into a target.
type Rule struct {
	// IndelProb[d-1] is the largest minority fraction N2/(N1+N2) that is
	// explained as sequencing error at edit distance d. Distances beyond the
	// end of the table never merge.
	IndelProb []float64
	// SubstringMerge merges a candidate whenever the shorter of the two
	// centers occurs in the longer one, regardless of abundance.
	SubstringMerge bool
}

// Decide reports whether cand merges into target and why. The substring test,
// if enabled, takes precedence over the distance test.
func (r Rule) Decide(cand, target *Cluster) (Basis, bool) {
	if r.SubstringMerge {
		short, long := cand.Center, target.Center
		if len(short) > len(long) {
			short, long = long, short
		}
		if strings.Contains(long, short) {
			return Substring, true
		}
	}
	d := util.Levenshtein(cand.Center, target.Center)
	if d < 1 || d > len(r.IndelProb) {
		return Distance, false
	}
	n1, n2 := cand.Count, target.Count
	if n2 > n1 {
		n1, n2 = n2, n1
	}
	if n1+n2 <= 0 {
		return Distance, false
	}
	return Distance, float64(n2)/float64(n1+n2) <= r.IndelProb[d-1]
}
