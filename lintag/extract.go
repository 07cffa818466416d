package lintag

import (
	"context"
	"runtime"
	"sync"

	"github.com/djross22/NISTBartender-sub000/encoding/fastq"
	"github.com/grailbio/base/log"
	"golang.org/x/sync/errgroup"
)

const (
	batchSize = 1024
	// Progress is logged every progressInterval pairs.
	progressInterval = 1 << 20
)

// Extract classifies the read pairs of the FASTQ files r1Path and r2Path and
// writes the lineage tags and the diagnostic outputs next to outPrefix (see
// OutputPaths). If it fails, the outputs are removed.
func Extract(ctx context.Context, opts Opts, r1Path, r2Path, outPrefix string) (stats Stats, err error) {
	c, err := NewClassifier(opts)
	if err != nil {
		return stats, err
	}
	stream, err := fastq.OpenPairStream(ctx, r1Path, r2Path)
	if err != nil {
		return stats, err
	}
	defer func() {
		if e := stream.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	sink, err := NewSink(ctx, outPrefix)
	if err != nil {
		return stats, err
	}
	log.Printf("extracting lineage tags from %s, %s: %d forward tags, %d reverse tags, %d samples",
		r1Path, r2Path, len(opts.FwdTags), len(opts.RevTags), len(opts.Samples))
	if stats, err = Run(ctx, c, stream, sink, opts.Parallelism); err != nil {
		sink.Abort(ctx)
		return stats, err
	}
	if err = sink.Close(ctx, stats); err != nil {
		sink.Abort(ctx)
		return stats, err
	}
	log.Printf("%s: %v", outPrefix, stats)
	return stats, nil
}

// Run feeds the pairs of stream to parallelism classification workers and the
// results to sink. The stream is read by one goroutine and the sink is written
// by another. With parallelism 1 the outputs are in input order; otherwise
// the order of pairs in the outputs is unspecified. Parallelism 0 means
// runtime.NumCPU().
func Run(ctx context.Context, c *Classifier, stream *fastq.PairStream, sink *Sink, parallelism int) (Stats, error) {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	g, ctx := errgroup.WithContext(ctx)
	pairs := make(chan []fastq.ReadPair, parallelism)
	results := make(chan []Result, parallelism)

	g.Go(func() error {
		defer close(pairs)
		batch := make([]fastq.ReadPair, 0, batchSize)
		var pair fastq.ReadPair
		for stream.Scan(&pair) {
			batch = append(batch, pair)
			if len(batch) == batchSize {
				select {
				case pairs <- batch:
				case <-ctx.Done():
					return ctx.Err()
				}
				batch = make([]fastq.ReadPair, 0, batchSize)
			}
			if n := stream.N(); n%progressInterval == 0 {
				log.Printf("read %d pairs", n)
			}
		}
		if len(batch) > 0 {
			select {
			case pairs <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return stream.Err()
	})

	workerStats := make([]Stats, parallelism)
	var wg sync.WaitGroup
	for i := range workerStats {
		st := &workerStats[i]
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for batch := range pairs {
				out := make([]Result, 0, len(batch))
				for _, pair := range batch {
					r := c.Classify(pair)
					st.Add(r.Outcome)
					switch r.Outcome {
					case Accepted, LineageUnmatched, SampleInvalid:
						out = append(out, r)
					}
				}
				select {
				case results <- out:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		wg.Wait()
		close(results)
		return nil
	})
	g.Go(func() error { return sink.Run(ctx, results) })

	err := g.Wait()
	var stats Stats
	for _, st := range workerStats {
		stats = stats.Merge(st)
	}
	return stats, err
}
