package util

import "fmt"

// matrix represents a 2 dimensional matrix.
type matrix struct {
	nRow, nCol int
	data       []int // row-major nRow*nCol array.
}

// matrix returns an n x m matrix.
func newMatrix(n, m int) (x matrix) {
	return matrix{
		nRow: n,
		nCol: m,
		data: make([]int, n*m),
	}
}

func (m matrix) at(i, j int) int { return m.data[i*m.nCol+j] }

func (m matrix) set(i, j, v int) { m.data[i*m.nCol+j] = v }

// Levenshtein computes the Levenshtein distance between two sequences: the
// number of insertions, deletions and substitutions it takes to transform s1
// into s2. Unlike Hamming, s1 and s2 may differ in length. The cost is
// O(len(s1)*len(s2)), so it is only used where indel tolerance is required,
// e.g. when merging barcode clusters of different lengths.
func Levenshtein(s1, s2 string) int {
	rows := len(s1)
	cols := len(s2)
	if rows == 0 {
		return cols
	}
	if cols == 0 {
		return rows
	}
	m := newMatrix(rows+1, cols+1)
	for i := 0; i <= rows; i++ {
		m.set(i, 0, i)
	}
	for j := 0; j <= cols; j++ {
		m.set(0, j, j)
	}
	for i := 1; i <= rows; i++ {
		for j := 1; j <= cols; j++ {
			if s1[i-1] == s2[j-1] {
				m.set(i, j, m.at(i-1, j-1))
				continue
			}
			v := m.at(i-1, j) + 1 // deletion
			if d := m.at(i-1, j-1) + 1; d < v {
				v = d
			}
			if r := m.at(i, j-1) + 1; r < v {
				v = r
			}
			m.set(i, j, v)
		}
	}
	return m.at(rows, cols)
}

// Hamming counts the mismatching positions of two equal-length sequences.
// Counting stops once the count reaches maxMismatch, so the result is
// min(distance, maxMismatch); pass maxMismatch <= 0 to disable the cap. When
// ignoreN is set, an 'N' on either side never counts as a mismatch.
//
// REQUIRES: len(s1) == len(s2).
func Hamming(s1, s2 string, maxMismatch int, ignoreN bool) int {
	if len(s1) != len(s2) {
		panic(fmt.Sprintf("s1 and s2 must have equal length: '%s', '%s'", s1, s2))
	}
	n := 0
	for i := 0; i < len(s1); i++ {
		c1, c2 := s1[i], s2[i]
		if c1 == c2 {
			continue
		}
		if ignoreN && (c1 == 'N' || c2 == 'N') {
			continue
		}
		n++
		if maxMismatch > 0 && n >= maxMismatch {
			return n
		}
	}
	return n
}
