// bio-bartender extracts lineage tags (DNA barcodes) from paired FASTQ files
// and consolidates the barcode clusters found by an external clustering step.
//
// A typical run:
//
//   bio-bartender extract -fwd-tags=fwd.tsv -rev-tags=rev.tsv -samples=samples.tsv \
//       -multi-flank=GATC -lineage-flank1=... -lineage-flank2=... R1.fastq.gz R2.fastq.gz run
//   (cluster run_forward_lintags.txt and run_reverse_lintags.txt externally)
//   bio-bartender merge -nominal-length=38 fwd_cluster.csv fwd_barcode.csv fwd
//   bio-bartender merge -nominal-length=38 rev_cluster.csv rev_barcode.csv rev
//   bio-bartender assign run_forward_lintags.txt run_reverse_lintags.txt \
//       fwd_merged_barcode.csv rev_merged_barcode.csv run_assigned.csv
package main

import (
	"os"

	"github.com/djross22/NISTBartender-sub000/cmd/bio-bartender/cmd"
	"github.com/grailbio/base/grail"
)

func main() {
	shutdown := grail.Init()
	code := cmd.Run()
	shutdown()
	os.Exit(code)
}
