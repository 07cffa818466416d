package cmd

import (
	"fmt"
	"os"

	"github.com/djross22/NISTBartender-sub000/cluster"
	"github.com/djross22/NISTBartender-sub000/lintag"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"
)

func newCmdExtract() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "extract",
		Short:    "Extract lineage tags from paired FASTQ files",
		ArgsName: "r1path r2path outprefix",
		Long: `
Extract classifies every read pair of the two FASTQ files (gzipped if the name
ends in .gz) and writes

  outprefix_forward_lintags.txt  "lineageTag,sample_UMIfwd_UMIrev" per accepted pair
  outprefix_reverse_lintags.txt  same, for the reverse read, in the same order
  outprefix_multiplex_tags.txt   matched multiplex tags, one block per pair
  outprefix_unmatched.txt        reads that failed the sample or lineage checks
  outprefix_summary.txt          counters

Tag lists are tab-separated "sequence<TAB>label" rows. The sample table has
"fwdLabel<TAB>revLabel<TAB>sample" rows.`,
	}
	flags := registerExtractFlags(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 {
			return env.UsageErrorf("extract takes r1path r2path outprefix, but got %v", argv)
		}
		ctx := vcontext.Background()
		opts, err := flags.opts(ctx)
		if err != nil {
			return err
		}
		stats, err := lintag.Extract(ctx, opts, argv[0], argv[1], argv[2])
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Stdout, stats.String())
		return nil
	})
	return cmd
}

func newCmdMerge() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "merge",
		Short:    "Merge barcode clusters of different lengths",
		ArgsName: "clusterpath barcodepath outprefix",
		Long: `
Merge reads a cluster table and a barcode table written by the external
clustering step, merges clusters that are likely sequencing errors of one
another and writes outprefix_merged_cluster.csv, outprefix_merged_barcode.csv
and outprefix_merge_events.csv.`,
	}
	flags := registerMergeFlags(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 {
			return env.UsageErrorf("merge takes clusterpath barcodepath outprefix, but got %v", argv)
		}
		opts, err := flags.opts()
		if err != nil {
			return err
		}
		s, err := cluster.Merge(vcontext.Background(), opts, argv[0], argv[1], argv[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "%d clusters, %d after merging\n", s.Clusters, s.Live)
		return nil
	})
	return cmd
}

func newCmdAssign() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "assign",
		Short:    "Assign extracted lineage tag pairs to merged clusters",
		ArgsName: "fwdtags revtags fwdbarcodes revbarcodes outpath",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 5 {
			return env.UsageErrorf("assign takes fwdtags revtags fwdbarcodes revbarcodes outpath, but got %v", argv)
		}
		stats, err := lintag.Assign(vcontext.Background(), lintag.AssignOpts{
			FwdTags:     argv[0],
			RevTags:     argv[1],
			FwdBarcodes: argv[2],
			RevBarcodes: argv[3],
			Output:      argv[4],
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "%d pairs, %d assigned\n", stats.Pairs, stats.Assigned)
		return nil
	})
	return cmd
}

func newRoot() *cmdline.Command {
	return &cmdline.Command{
		Name:     "bio-bartender",
		Short:    "Lineage tag extraction and barcode cluster consolidation",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdExtract(),
			newCmdMerge(),
			newCmdAssign(),
		},
	}
}

// Run runs the command named by os.Args and returns the exit code.
func Run() int {
	cmdline.HideGlobalFlagsExcept()
	env := cmdline.EnvFromOS()
	err := cmdline.ParseAndRun(newRoot(), env, os.Args[1:])
	return cmdline.ExitCode(err, env.Stderr)
}
