package lintag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/djross22/NISTBartender-sub000/cluster"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLabel(t *testing.T) {
	sample, f, r, ok := splitLabel("my_sample_AAAA_CCCC")
	assert.True(t, ok)
	assert.Equal(t, "my_sample", sample)
	assert.Equal(t, "AAAA", f)
	assert.Equal(t, "CCCC", r)

	sample, f, r, ok = splitLabel("s1__")
	assert.True(t, ok)
	assert.Equal(t, []string{"s1", "", ""}, []string{sample, f, r})

	_, _, _, ok = splitLabel("s1_AAAA")
	assert.False(t, ok)
}

func TestAssign(t *testing.T) {
	ctx := context.Background()
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	write := func(name, data string) string {
		path := filepath.Join(tmpdir, name)
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))
		return path
	}
	opts := AssignOpts{
		FwdTags: write("fwd.txt", `TTTTCCCCGG,s1_AAAA_CCCC
TTTTCCCCGA,s2_ACAC_GTGT
TTTTCCCCAA,s1_GGGG_TTTT
TTTTCCCCGG,s1_ACGT_ACGT
`),
		RevTags: write("rev.txt", `GGGGAAAATT,s1_AAAA_CCCC
GGGGAAAATA,s2_ACAC_GTGT
GGGGAAAATT,s1_GGGG_TTTT
GGGGAAAAAA,s1_ACGT_ACGT
`),
		FwdBarcodes: write("fwd_merged_barcode.csv", `Unique.reads,Frequency,Cluster.ID
TTTTCCCCGG,10,0
TTTTCCCCGA,3,0
`),
		RevBarcodes: write("rev_merged_barcode.csv", `Unique.reads,Frequency,Cluster.ID
GGGGAAAATT,10,4
GGGGAAAATA,3,5
`),
		Output: filepath.Join(tmpdir, "run_assigned.csv"),
	}
	stats, err := Assign(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, AssignStats{Pairs: 4, Assigned: 2, MissingFwd: 1, MissingRev: 1}, stats)
	data, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, AssignHeader+"\ns1,AAAA,CCCC,0,4\ns2,ACAC,GTGT,0,5\n", string(data))

	// Labels out of sync.
	bad := opts
	bad.RevTags = write("rev_bad.txt", `GGGGAAAATT,s1_AAAA_CCCC
GGGGAAAATA,s2_ACAC_GTGG
`)
	_, err = Assign(ctx, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Integrity, err))
	assert.Contains(t, err.Error(), "s2_ACAC_GTGT")
	assert.Contains(t, err.Error(), "s2_ACAC_GTGG")
	_, err = os.Stat(bad.Output)
	assert.True(t, os.IsNotExist(err))

	// Different lengths.
	bad.RevTags = write("rev_short.txt", "GGGGAAAATT,s1_AAAA_CCCC\n")
	_, err = Assign(ctx, bad)
	assert.True(t, errors.Is(errors.Integrity, err))

	bad.RevTags = filepath.Join(tmpdir, "missing.txt")
	_, err = Assign(ctx, bad)
	assert.Error(t, err)
}

func TestAssignMergedClusters(t *testing.T) {
	ctx := context.Background()
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	write := func(name, data string) string {
		path := filepath.Join(tmpdir, name)
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))
		return path
	}
	// Cluster ID 0 names a different cluster at each length; 9/1 merges into
	// 8/0.
	fwdClusters := write("fwd_cluster.csv", `Cluster.ID,Center,Cluster.Score,time_point_1
0,ACGTACGT,0.9,95
0,TTTTTTTTT,0.9,50
1,ACGTACGTA,0.8,5
`)
	fwdBarcodes := write("fwd_barcode.csv", `Unique.reads,Frequency,Cluster.ID
ACGTACGT,95,0
TTTTTTTTT,50,0
ACGTACGTA,5,1
`)
	revClusters := write("rev_cluster.csv", "Cluster.ID,Center,Cluster.Score,time_point_1\n0,GGGGAAAA,0.9,150\n")
	revBarcodes := write("rev_barcode.csv", "Unique.reads,Frequency,Cluster.ID\nGGGGAAAA,150,0\n")

	mopts := cluster.DefaultOpts
	mopts.NominalLength = 8
	mopts.IndelProb = []float64{0.1}
	mopts.SubstringMerge = false
	fwdPrefix, revPrefix := filepath.Join(tmpdir, "fwd"), filepath.Join(tmpdir, "rev")
	_, err := cluster.Merge(ctx, mopts, fwdClusters, fwdBarcodes, fwdPrefix)
	require.NoError(t, err)
	_, err = cluster.Merge(ctx, mopts, revClusters, revBarcodes, revPrefix)
	require.NoError(t, err)
	_, fwdMerged, _ := cluster.Paths(fwdPrefix)
	_, revMerged, _ := cluster.Paths(revPrefix)

	opts := AssignOpts{
		FwdTags: write("fwd.txt", `ACGTACGT,s1_AAAA_CCCC
TTTTTTTTT,s1_GGGG_TTTT
ACGTACGTA,s2_ACAC_GTGT
`),
		RevTags: write("rev.txt", `GGGGAAAA,s1_AAAA_CCCC
GGGGAAAA,s1_GGGG_TTTT
GGGGAAAA,s2_ACAC_GTGT
`),
		FwdBarcodes: fwdMerged,
		RevBarcodes: revMerged,
		Output:      filepath.Join(tmpdir, "run_assigned.csv"),
	}
	stats, err := Assign(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, AssignStats{Pairs: 3, Assigned: 3}, stats)
	data, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, AssignHeader+"\ns1,AAAA,CCCC,0,0\ns1,GGGG,TTTT,1,0\ns2,ACAC,GTGT,0,0\n", string(data))
}
