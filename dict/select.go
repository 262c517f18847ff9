// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package dict

import (
	"cmp"
	"slices"
	"sort"

	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/offsets"
)

// SelectFastPathMax is the largest dictionary that range and ordered theta
// selects resolve by binary search on the dictionary itself.
const SelectFastPathMax = 1 << 12

// fastPath reports whether a select resolves on the dictionary directly.
// Equality probes the hash index at any size.
func fastPath[T cmp.Ordered](lv *Dictionary[T], ordered bool) bool {
	if !ordered {
		return true
	}
	return lv.Len() <= SelectFastPathMax && lv.Sorted()
}

// Select returns the candidate rows of lo whose value lies in the range
// between low and high, with the semantics of column.Select on the
// decompressed column.
func Select[T cmp.Ordered](lo *offsets.Array, lc column.Candidates, lv *Dictionary[T], low, high *T, li, hi, anti, unknown bool) (column.Candidates, error) {
	if !fastPath(lv, true) {
		operations.WithLabelValues(opSelect, pathFallback).Inc()
		bn := column.Select(lv.values, nil, low, high, li, hi, anti, unknown)
		return semijoinDictionary(opSelect, lo, lc, lv.Len(), bn)
	}
	operations.WithLabelValues(opSelect, pathFast).Inc()

	n := lv.Len()
	nullOff := lv.NullOffset()
	match := make([]bool, n)
	if low == nil && high == nil && li && hi {
		for x := range match {
			match[x] = (x == nullOff) != anti
		}
		return semijoin(lo, lc, match), nil
	}

	// in a sorted dictionary the null entry, if any, is the first one
	start := nullOff + 1
	dv := lv.values.Values()[start:]
	from, to := 0, len(dv)
	if low != nil {
		from = lowerBound(dv, *low, !li)
	}
	if high != nil {
		to = lowerBound(dv, *high, hi)
	}
	for i := range dv {
		match[start+i] = (i >= from && i < to) != anti
	}
	if nullOff >= 0 {
		match[nullOff] = anti && unknown
	}
	return semijoin(lo, lc, match), nil
}

// lowerBound returns the index of the first element of the sorted, distinct
// dv not less than v, or greater than v if after is set.
func lowerBound[T cmp.Ordered](dv []T, v T, after bool) int {
	i, found := slices.BinarySearch(dv, v)
	if found && after {
		i++
	}
	return i
}

// ThetaSelect returns the candidate rows of lo where "value op v" holds,
// with the semantics of column.ThetaSelect on the decompressed column.
func ThetaSelect[T cmp.Ordered](lo *offsets.Array, lc column.Candidates, lv *Dictionary[T], v *T, op column.Op) (column.Candidates, error) {
	n := lv.Len()
	nullOff := lv.NullOffset()
	if v == nil {
		match := make([]bool, n)
		switch op {
		case column.OpEq:
			if nullOff >= 0 {
				match[nullOff] = true
			}
		case column.OpNe:
			for x := range match {
				match[x] = x != nullOff
			}
		}
		return semijoin(lo, lc, match), nil
	}
	if !fastPath(lv, op.Ordered()) {
		operations.WithLabelValues(opThetaSelect, pathFallback).Inc()
		bn := column.ThetaSelect(lv.values, nil, v, op)
		return semijoinDictionary(opThetaSelect, lo, lc, n, bn)
	}
	operations.WithLabelValues(opThetaSelect, pathFast).Inc()

	var from, to int
	switch op {
	case column.OpEq, column.OpNe:
		p, ok := lv.Probe(*v)
		if !ok {
			from, to = n, n
		} else {
			from, to = p, p+1
		}
	default:
		dv := lv.values.Values()
		p := sort.Search(n, func(i int) bool {
			return column.Compare(dv[i], i == nullOff, *v, false) >= 0
		})
		exact := p < n && p != nullOff && cmp.Compare(dv[p], *v) == 0
		switch op {
		case column.OpLt:
			from, to = 0, p
		case column.OpLe:
			from, to = 0, p
			if exact {
				to++
			}
		case column.OpGt:
			// a miss leaves p on the first greater entry, which > then keeps
			from, to = p, n
			if exact {
				from++
			}
		case column.OpGe:
			from, to = p, n
		}
	}

	match := make([]bool, n)
	for x := range match {
		match[x] = (x >= from && x < to) != (op == column.OpNe)
	}
	res := semijoin(lo, lc, match)
	if op == column.OpEq || nullOff < 0 {
		return res, nil
	}

	// nulls satisfy no comparison, drop rows encoding the null entry
	nulls := make([]bool, n)
	nulls[nullOff] = true
	return column.Complement(semijoin(lo, lc, nulls), res), nil
}

// semijoinDictionary keeps the candidate rows of lo whose offset is one of
// the dictionary positions in bn.
func semijoinDictionary(op string, lo *offsets.Array, lc column.Candidates, n int, bn column.Candidates) (column.Candidates, error) {
	w := lo.Width()
	if !w.Fits(n - 1) {
		w = offsets.Short
	}
	conv, err := ConvertCandidates(bn, w, 0)
	if err != nil {
		return nil, column.Wrap(op, err)
	}
	match := make([]bool, n)
	for i := range conv.Len() {
		match[conv.At(i)] = true
	}
	return semijoin(lo, lc, match), nil
}

// semijoin returns the candidate rows of lo whose offset x has match[x] set.
// Offsets outside match never qualify.
func semijoin(lo *offsets.Array, lc column.Candidates, match []bool) column.Candidates {
	b := column.NewCandidatesBuilder(0)
	for p := range column.All(lc, lo.Len()).All() {
		if x := lo.At(int(p)); x < len(match) && match[x] {
			b.Add(p)
		}
	}
	return b.Build()
}
