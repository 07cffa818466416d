package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/djross22/NISTBartender-sub000/cluster"
	"github.com/djross22/NISTBartender-sub000/lintag"
	"github.com/grailbio/base/errors"
)

type extractFlags struct {
	fwdTags, revTags, samples          string
	umiLength                          string
	multiFlank                         string
	multiFlankLength                   int
	lineageFlank1, lineageFlank2       string
	lineageFlank1Len, lineageFlank2Len int
	lineagePattern                     string
	minQuality                         float64
	maxMismatch                        int
	readLength                         int
	parallelism                        int
}

func registerExtractFlags(fs *flag.FlagSet) *extractFlags {
	d := lintag.DefaultOpts
	f := &extractFlags{}
	fs.StringVar(&f.fwdTags, "fwd-tags", "", "Forward multiplex tag list (TSV: sequence, label). Required.")
	fs.StringVar(&f.revTags, "rev-tags", "", "Reverse multiplex tag list (TSV: sequence, label). Required.")
	fs.StringVar(&f.samples, "samples", "", "Sample table (TSV: forward label, reverse label, sample).")
	fs.StringVar(&f.umiLength, "umi-length", fmt.Sprintf("%d-%d", d.UMIMin, d.UMIMax), "UMI length, either N or N-M")
	fs.StringVar(&f.multiFlank, "multi-flank", "", "Flank sequence following the multiplex tag. Required.")
	fs.IntVar(&f.multiFlankLength, "multi-flank-length", d.MultiFlankLength,
		"Number of bases from the start of the multiplex flank to the lineage region; 0 means the flank length")
	fs.StringVar(&f.lineageFlank1, "lineage-flank1", "", "Flank sequence preceding the lineage tag")
	fs.StringVar(&f.lineageFlank2, "lineage-flank2", "", "Flank sequence following the lineage tag")
	fs.IntVar(&f.lineageFlank1Len, "lineage-flank1-length", d.LineageFlank1Length,
		"Bases trimmed off the start of a lineage pattern match; 0 means the length of -lineage-flank1")
	fs.IntVar(&f.lineageFlank2Len, "lineage-flank2-length", d.LineageFlank2Length,
		"Bases trimmed off the end of a lineage pattern match; 0 means the length of -lineage-flank2")
	fs.StringVar(&f.lineagePattern, "lineage-pattern", d.LineagePattern,
		"Regular expression matching the lineage tag with its flanks. By default it is built from the two flanks.")
	fs.Float64Var(&f.minQuality, "min-quality", d.MinQuality, "Mean Phred quality of the lineage region must exceed this value")
	fs.IntVar(&f.maxMismatch, "max-mismatch", d.MaxMismatch, "Multiplex tags at this Hamming distance or more are not matched by the fallback")
	fs.IntVar(&f.readLength, "read-length", d.ReadLength, "Usable read length; 0 means the whole read")
	fs.IntVar(&f.parallelism, "parallelism", d.Parallelism, "Number of classification workers; 0 = runtime.NumCPU()")
	return f
}

// opts builds the extraction options, reading the tag lists and the sample
// table.
func (f *extractFlags) opts(ctx context.Context) (lintag.Opts, error) {
	opts := lintag.DefaultOpts
	var err error
	if f.fwdTags == "" || f.revTags == "" {
		return opts, errors.E(errors.Invalid, "-fwd-tags and -rev-tags are required")
	}
	if opts.UMIMin, opts.UMIMax, err = lintag.ParseUMIRange(f.umiLength); err != nil {
		return opts, err
	}
	if opts.FwdTags, err = lintag.ReadTags(ctx, f.fwdTags); err != nil {
		return opts, err
	}
	if opts.RevTags, err = lintag.ReadTags(ctx, f.revTags); err != nil {
		return opts, err
	}
	opts.Samples = map[string]string{}
	if f.samples != "" {
		if opts.Samples, err = lintag.ReadSamples(ctx, f.samples); err != nil {
			return opts, err
		}
	}
	opts.MultiFlank = strings.ToUpper(f.multiFlank)
	opts.MultiFlankLength = f.multiFlankLength
	opts.LineageFlank1 = strings.ToUpper(f.lineageFlank1)
	opts.LineageFlank2 = strings.ToUpper(f.lineageFlank2)
	opts.LineageFlank1Length = f.lineageFlank1Len
	opts.LineageFlank2Length = f.lineageFlank2Len
	opts.LineagePattern = f.lineagePattern
	opts.MinQuality = f.minQuality
	opts.MaxMismatch = f.maxMismatch
	opts.ReadLength = f.readLength
	opts.Parallelism = f.parallelism
	return opts, opts.Validate()
}

type mergeFlags struct {
	nominalLength   int
	indelProb       string
	substringMerge  bool
	spikeInCount    int
	spikeInDistance int
}

func registerMergeFlags(fs *flag.FlagSet) *mergeFlags {
	d := cluster.DefaultOpts
	f := &mergeFlags{}
	probs := make([]string, len(d.IndelProb))
	for i, p := range d.IndelProb {
		probs[i] = fmt.Sprint(p)
	}
	fs.IntVar(&f.nominalLength, "nominal-length", d.NominalLength, "Expected barcode length")
	fs.StringVar(&f.indelProb, "indel-prob", strings.Join(probs, ","),
		"Comma-separated largest minority fraction accepted at edit distance 1, 2, ...")
	fs.BoolVar(&f.substringMerge, "substring-merge", d.SubstringMerge, "Merge clusters whose centers are substrings of one another")
	fs.IntVar(&f.spikeInCount, "spike-in-count", d.SpikeInCount, "Clusters with a larger count are spike-ins")
	fs.IntVar(&f.spikeInDistance, "spike-in-distance", d.SpikeInDistance,
		"Clusters within this edit distance of a spike-in are folded into it; 0 disables spike-in folding")
	return f
}

func (f *mergeFlags) opts() (cluster.Opts, error) {
	opts := cluster.Opts{
		NominalLength:   f.nominalLength,
		SubstringMerge:  f.substringMerge,
		SpikeInCount:    f.spikeInCount,
		SpikeInDistance: f.spikeInDistance,
	}
	var err error
	if opts.IndelProb, err = cluster.ParseProbTable(f.indelProb); err != nil {
		return opts, err
	}
	return opts, opts.Validate()
}
