// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package column

import "cmp"

// Join is an equi-join of the candidate rows of l and r. It returns matching
// position pairs ordered by left position, then by right position.
// Null rows match each other only if nilMatches is set. NaN rows always
// match each other.
func Join[T cmp.Ordered](l, r *Column[T], lcand, rcand Candidates, nilMatches bool) ([]int64, []int64) {
	build := make(map[T][]int64)
	var nulls, nans []int64
	for p := range All(rcand, r.Len()).All() {
		v, ok := r.Value(int(p))
		switch {
		case !ok:
			nulls = append(nulls, p)
		case IsNaN(v):
			nans = append(nans, p)
		default:
			build[v] = append(build[v], p)
		}
	}
	if !nilMatches {
		nulls = nil
	}

	var r0, r1 []int64
	for p := range All(lcand, l.Len()).All() {
		v, ok := l.Value(int(p))
		matches := nulls
		switch {
		case ok && IsNaN(v):
			matches = nans
		case ok:
			matches = build[v]
		}
		for _, q := range matches {
			r0 = append(r0, p)
			r1 = append(r1, q)
		}
	}
	return r0, r1
}
