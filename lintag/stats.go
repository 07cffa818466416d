package lintag

import (
	"fmt"
	"io"
)

// Stats counts read pairs by how far they got through classification. Each
// count includes the pairs of every later stage, so
// LineageMatched <= QualityPassed <= SampleValid <= MultiplexMatched <= Total.
type Stats struct {
	// Total is the # of read pairs classified.
	Total int
	// MultiplexMatched is the # of pairs with a multiplex tag on both reads.
	MultiplexMatched int
	// SampleValid is the # of pairs whose tag pair is in the sample table.
	SampleValid int
	// QualityPassed is the # of pairs whose lineage regions pass the quality
	// threshold.
	QualityPassed int
	// LineageMatched is the # of pairs with a lineage tag on both reads.
	LineageMatched int
}

// Add counts one classified pair.
func (s *Stats) Add(o Outcome) {
	s.Total++
	if o >= SampleInvalid {
		s.MultiplexMatched++
	}
	if o >= QualityFailed {
		s.SampleValid++
	}
	if o >= LineageUnmatched {
		s.QualityPassed++
	}
	if o >= Accepted {
		s.LineageMatched++
	}
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Total += o.Total
	s.MultiplexMatched += o.MultiplexMatched
	s.SampleValid += o.SampleValid
	s.QualityPassed += o.QualityPassed
	s.LineageMatched += o.LineageMatched
	return s
}

func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return 100 * float64(n) / float64(d)
}

// WriteSummary writes the counters and the percentage of each relative to
// the total and to the previous stage.
func (s Stats) WriteSummary(w io.Writer) error {
	rows := []struct {
		name    string
		n, prev int
	}{
		{"total", s.Total, s.Total},
		{"multiplex_matched", s.MultiplexMatched, s.Total},
		{"sample_valid", s.SampleValid, s.MultiplexMatched},
		{"quality_passed", s.QualityPassed, s.SampleValid},
		{"lineage_matched", s.LineageMatched, s.QualityPassed},
	}
	if _, err := fmt.Fprintf(w, "stage\tcount\tpercent_of_total\tpercent_of_previous\n"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\n", r.name, r.n, percent(r.n, s.Total), percent(r.n, r.prev)); err != nil {
			return err
		}
	}
	return nil
}

func (s Stats) String() string {
	return fmt.Sprintf("%d pairs, %d multiplex matched (%.2f%%), %d sample valid, %d quality passed, %d lineage matched (%.2f%%)",
		s.Total, s.MultiplexMatched, percent(s.MultiplexMatched, s.Total), s.SampleValid, s.QualityPassed,
		s.LineageMatched, percent(s.LineageMatched, s.Total))
}
