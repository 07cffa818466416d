package lintag

import (
	"bufio"
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Paths lists the output files of an extraction run.
type Paths struct {
	// Fwd and Rev hold one "lineageTag,sample_UMIfwd_UMIrev" line per
	// accepted pair, in the same order. Pairs of unexpected samples whose
	// lineage tags were found are included under their "unexpected_" label.
	Fwd, Rev string
	// Multiplex holds "tag,actual" lines for the forward and reverse multiplex
	// matches of each accepted or sample-invalid pair, one blank-line
	// terminated block per pair.
	Multiplex string
	// Unmatched holds the raw forward and reverse sequences of pairs that
	// failed the sample or lineage checks, one blank-line terminated block per
	// pair.
	Unmatched string
	// Summary holds the run counters.
	Summary string
}

// OutputPaths returns the output paths for prefix.
func OutputPaths(prefix string) Paths {
	return Paths{
		Fwd:       prefix + "_forward_lintags.txt",
		Rev:       prefix + "_reverse_lintags.txt",
		Multiplex: prefix + "_multiplex_tags.txt",
		Unmatched: prefix + "_unmatched.txt",
		Summary:   prefix + "_summary.txt",
	}
}

const (
	outFwd = iota
	outRev
	outMultiplex
	outUnmatched
	numOutputs
)

// Sink writes classification results. It is owned by a single goroutine, so
// the lines of one result are always written together.
type Sink struct {
	paths Paths
	out   [numOutputs]file.File
	w     [numOutputs]*bufio.Writer
	// written lists the outputs this sink closed, and so put in place.
	written []string
	err     errors.Once
}

// NewSink creates the output files for prefix.
func NewSink(ctx context.Context, prefix string) (*Sink, error) {
	s := &Sink{paths: OutputPaths(prefix)}
	for i, path := range []string{s.paths.Fwd, s.paths.Rev, s.paths.Multiplex, s.paths.Unmatched} {
		out, err := file.Create(ctx, path)
		if err != nil {
			s.Abort(ctx)
			return nil, errors.E(err, "create", path)
		}
		s.out[i] = out
		s.w[i] = bufio.NewWriterSize(out.Writer(ctx), 1<<20)
	}
	return s, nil
}

// Paths returns the paths written by s.
func (s *Sink) Paths() Paths { return s.paths }

func (s *Sink) line(i int, fields ...string) {
	w := s.w[i]
	for j, f := range fields {
		if j > 0 {
			w.WriteByte(',')
		}
		w.WriteString(f)
	}
	if err := w.WriteByte('\n'); err != nil {
		s.err.Set(err)
	}
}

// Write writes the lines of one result. Pairs that failed the multiplex or
// quality checks produce no output.
func (s *Sink) Write(r *Result) {
	switch r.Outcome {
	case Accepted:
		label := r.Label()
		s.line(outFwd, r.FwdLineage, label)
		s.line(outRev, r.RevLineage, label)
		s.multiplex(r)
	case LineageUnmatched:
		s.unmatched(r)
	case SampleInvalid:
		if r.LineageOutcome == Accepted {
			label := r.Label()
			s.line(outFwd, r.FwdLineage, label)
			s.line(outRev, r.RevLineage, label)
		}
		s.line(outMultiplex, r.Label())
		s.multiplex(r)
		s.unmatched(r)
	}
}

func (s *Sink) multiplex(r *Result) {
	s.line(outMultiplex, r.Fwd.Tag.Seq, r.Fwd.Actual)
	s.line(outMultiplex, r.Rev.Tag.Seq, r.Rev.Actual)
	s.line(outMultiplex)
}

func (s *Sink) unmatched(r *Result) {
	s.line(outUnmatched, r.Pair.FwdSeq)
	s.line(outUnmatched, r.Pair.RevSeq)
	s.line(outUnmatched)
}

// Run writes every batch received from in until it is closed.
func (s *Sink) Run(ctx context.Context, in <-chan []Result) error {
	for batch := range in {
		for i := range batch {
			s.Write(&batch[i])
		}
		if err := s.err.Err(); err != nil {
			return err
		}
	}
	return s.err.Err()
}

// Close flushes the outputs and writes the summary for stats.
func (s *Sink) Close(ctx context.Context, stats Stats) error {
	for i, out := range s.out {
		s.err.Set(s.w[i].Flush())
		if err := out.Close(ctx); err != nil {
			s.err.Set(errors.E(err, "close", out.Name()))
		} else {
			s.written = append(s.written, out.Name())
		}
		s.out[i] = nil
	}
	if err := s.err.Err(); err != nil {
		return err
	}
	out, err := file.Create(ctx, s.paths.Summary)
	if err != nil {
		return errors.E(err, "create", s.paths.Summary)
	}
	w := bufio.NewWriter(out.Writer(ctx))
	s.err.Set(stats.WriteSummary(w))
	s.err.Set(w.Flush())
	if err := out.Close(ctx); err != nil {
		s.err.Set(err)
	} else {
		s.written = append(s.written, s.paths.Summary)
	}
	return s.err.Err()
}

// Abort discards the outputs after a fatal error, so that an incomplete run
// does not leave plausible-looking files behind. Files this sink did not
// create, such as the outputs of an earlier run, are left alone.
func (s *Sink) Abort(ctx context.Context) {
	for i, out := range s.out {
		if out == nil {
			continue
		}
		out.Discard(ctx)
		s.out[i] = nil
	}
	for _, path := range s.written {
		if err := file.Remove(ctx, path); err != nil && !errors.Is(errors.NotExist, err) {
			log.Error.Printf("remove %s: %v", path, err)
		}
	}
	s.written = nil
}
