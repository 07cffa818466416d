package cluster

import (
	"fmt"
	"sort"

	"github.com/djross22/NISTBartender-sub000/util"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// MergeEvent records one merge. It is informational only.
type MergeEvent struct {
	Source, Target    Key
	SourceCenter      string
	TargetCenter      string
	Basis             Basis
	SourceCount       int
	TargetCountBefore int
	TargetCountAfter  int
}

// GroupOrder returns the order in which length groups other than nominal are
// visited: longer lengths ascending, then shorter lengths descending. For
// nominal 20 and lengths {18,...,22} it returns [21 22 19 18].
func GroupOrder(nominal int, lengths []int) []int {
	var longer, shorter []int
	seen := map[int]bool{}
	for _, n := range lengths {
		if seen[n] {
			continue
		}
		seen[n] = true
		switch {
		case n > nominal:
			longer = append(longer, n)
		case n < nominal:
			shorter = append(shorter, n)
		}
	}
	sort.Ints(longer)
	sort.Sort(sort.Reverse(sort.IntSlice(shorter)))
	return append(longer, shorter...)
}

// Planner merges the clusters of a Table, one length group per round.
//
// Each round sees an immutable view of the output set as it was at the start
// of the round. Candidates that merge nowhere are collected separately and
// appended to the output set when the round ends, so they are visible to
// later rounds but not to other candidates of the same length. Planner is
// single-threaded; every round depends on the settled state of the previous
// one.
type Planner struct {
	t       *Table
	rule    Rule
	nominal int
	output  []*Cluster
	events  []MergeEvent
}

// NewPlanner seeds the output set with the clusters of the nominal length. It
// fails if there are none, since no seed set can be built.
func NewPlanner(t *Table, nominal int, rule Rule) (*Planner, error) {
	seed := t.Group(nominal)
	if len(seed) == 0 {
		return nil, errors.E(errors.Precondition,
			fmt.Sprintf("no cluster with the nominal barcode length %d (lengths present: %v)", nominal, t.Lengths()))
	}
	return &Planner{
		t:       t,
		rule:    rule,
		nominal: nominal,
		output:  append([]*Cluster(nil), seed...),
	}, nil
}

// Output returns the current output set in iteration order.
func (p *Planner) Output() []*Cluster { return p.output }

// Events returns the merges performed so far.
func (p *Planner) Events() []MergeEvent { return p.events }

// Run merges every non-nominal length group in GroupOrder.
func (p *Planner) Run() {
	for _, n := range GroupOrder(p.nominal, p.t.Lengths()) {
		group := p.t.Group(n)
		before := len(p.events)
		added := p.round(p.output, group)
		next := make([]*Cluster, 0, len(p.output)+len(added))
		next = append(next, p.output...)
		p.output = append(next, added...)
		log.Printf("length %d: %d clusters, %d merged, %d added; %d clusters in output",
			n, len(group), len(p.events)-before, len(added), len(p.output))
	}
}

// round evaluates every candidate against targets, which is not modified.
// The first target accepted by the rule absorbs the candidate. It returns the
// candidates that were not merged.
func (p *Planner) round(targets []*Cluster, candidates []*Cluster) (added []*Cluster) {
	for _, cand := range candidates {
		merged := false
		for _, target := range targets {
			if basis, ok := p.rule.Decide(cand, target); ok {
				p.merge(cand, target, basis)
				merged = true
				break
			}
		}
		if !merged {
			added = append(added, cand)
		}
	}
	return added
}

func (p *Planner) merge(src, dst *Cluster, basis Basis) {
	ev := MergeEvent{
		Source:            src.Key(),
		Target:            dst.Key(),
		SourceCenter:      src.Center,
		TargetCenter:      dst.Center,
		Basis:             basis,
		SourceCount:       src.Count,
		TargetCountBefore: dst.Count,
	}
	p.t.absorb(src, dst)
	ev.TargetCountAfter = dst.Count
	p.events = append(p.events, ev)
	log.Debug.Printf("merge %v %s (%d) into %v %s: %v, count %d -> %d",
		ev.Source, ev.SourceCenter, ev.SourceCount, ev.Target, ev.TargetCenter, basis,
		ev.TargetCountBefore, ev.TargetCountAfter)
}

// SpikeIn folds clusters into high-abundance spike-ins. The spike-ins are the
// output clusters with count > countThreshold, frozen before any folding
// starts. For each spike-in in output order, every other cluster within
// maxDist edits is folded into it and the output set is rebuilt from the
// rest, so a cluster folded into one spike-in is not seen by later ones. A
// spike-in that was itself folded into an earlier one is skipped. maxDist <= 0
// disables the pass.
func (p *Planner) SpikeIn(countThreshold, maxDist int) {
	if maxDist <= 0 {
		return
	}
	var frozen []*Cluster
	for _, c := range p.output {
		if c.Count > countThreshold {
			frozen = append(frozen, c)
		}
	}
	log.Printf("spike-in: %d candidates with count > %d", len(frozen), countThreshold)
	for _, s := range frozen {
		if !s.Live() {
			log.Printf("spike-in %v %s was folded into an earlier spike-in, skipping", s.Key(), s.Center)
			continue
		}
		next := make([]*Cluster, 0, len(p.output))
		folded := 0
		for _, c := range p.output {
			if c != s && util.Levenshtein(c.Center, s.Center) <= maxDist {
				p.merge(c, s, SpikeIn)
				folded++
				continue
			}
			next = append(next, c)
		}
		p.output = next
		log.Printf("spike-in %v %s: folded %d clusters, count %d", s.Key(), s.Center, folded, s.Count)
	}
}
