// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package dict

import (
	"cmp"

	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/offsets"
)

// Join equi-joins two dictionary encoded columns without decompressing them.
// It returns matching row pairs ordered by left row, then by right row, the
// same result column.Join produces on the decompressed columns.
//
// estimate is a hint for the number of result rows.
func Join[T cmp.Ordered](lo *offsets.Array, lv *Dictionary[T], ro *offsets.Array, rv *Dictionary[T], lcand, rcand column.Candidates, nilMatches bool, estimate int) ([]int64, []int64, error) {
	if lv == rv {
		exclude := -1
		if !nilMatches {
			exclude = lv.NullOffset()
		}
		operations.WithLabelValues(opJoin, pathShared).Inc()
		r0, r1 := joinOffsets(lo, ro, lcand, rcand, lv.Len(), exclude, estimate)
		return r0, r1, nil
	}

	m0, m1 := column.Join(lv.values, rv.values, nil, nil, nilMatches)
	if !distinct(m0, lv.Len()) || !distinct(m1, rv.Len()) {
		return nil, nil, column.Errorf(opJoin, column.ErrMalformedInput, "dictionaries joined on duplicate entries")
	}

	if aligned(m0, m1, lv.Len(), rv.Len()) {
		operations.WithLabelValues(opJoin, pathAligned).Inc()
		r0, r1 := joinOffsets(lo, ro, lcand, rcand, min(lv.Len(), rv.Len()), -1, estimate)
		return r0, r1, nil
	}

	operations.WithLabelValues(opJoin, pathRenumber).Inc()
	if lo.Len() < ro.Len() {
		lr, err := Renumber(lo, m0, m1, lv.Len(), rv.Len())
		if err != nil {
			return nil, nil, column.Wrap(opJoin, err)
		}
		r0, r1 := joinOffsets(lr, ro, lcand, rcand, rv.Len(), -1, estimate)
		return r0, r1, nil
	}
	rr, err := Renumber(ro, m1, m0, rv.Len(), lv.Len())
	if err != nil {
		return nil, nil, column.Wrap(opJoin, err)
	}
	r0, r1 := joinOffsets(lo, rr, lcand, rcand, lv.Len(), -1, estimate)
	return r0, r1, nil
}

// aligned reports whether entry i of one dictionary equals entry i of the
// other for every i below the smaller cardinality, and no other entries match.
func aligned(m0, m1 []int64, n0, n1 int) bool {
	if len(m0) != min(n0, n1) {
		return false
	}
	for i := range m0 {
		if m0[i] != int64(i) || m1[i] != int64(i) {
			return false
		}
	}
	return true
}

func distinct(pos []int64, n int) bool {
	seen := make([]bool, n)
	for _, p := range pos {
		if seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}

// joinOffsets equi-joins two offset arrays addressing the same n entries.
// Offsets equal to exclude or at least n never match.
func joinOffsets(lo, ro *offsets.Array, lcand, rcand column.Candidates, n, exclude, estimate int) ([]int64, []int64) {
	// bucket the right rows by offset: rows of offset x are rows[start[x]:start[x+1]]
	start := make([]int, n+1)
	rc := column.All(rcand, ro.Len())
	for p := range rc.All() {
		if x := ro.At(int(p)); x < n {
			start[x+1]++
		}
	}
	for x := 1; x <= n; x++ {
		start[x] += start[x-1]
	}
	rows := make([]int64, start[n])
	fill := make([]int, n)
	copy(fill, start[:n])
	for p := range rc.All() {
		if x := ro.At(int(p)); x < n {
			rows[fill[x]] = p
			fill[x]++
		}
	}

	estimate = max(estimate, 0)
	r0 := make([]int64, 0, estimate)
	r1 := make([]int64, 0, estimate)
	for p := range column.All(lcand, lo.Len()).All() {
		x := lo.At(int(p))
		if x >= n || x == exclude {
			continue
		}
		for _, q := range rows[start[x]:start[x+1]] {
			r0 = append(r0, p)
			r1 = append(r1, q)
		}
	}
	rowsProcessed.WithLabelValues(opJoin).Add(float64(lo.Len() + ro.Len()))
	return r0, r1
}
