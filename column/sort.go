// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package column

import (
	"cmp"
	"slices"
)

// Sort returns a stably sorted copy of c, nulls first, and the source
// position of every row of the result.
func Sort[T cmp.Ordered](c *Column[T]) (*Column[T], []int64) {
	order := make([]int64, c.Len())
	for i := range order {
		order[i] = int64(i)
	}
	if !c.Props.Sorted {
		slices.SortStableFunc(order, func(a, b int64) int {
			av, aok := c.Value(int(a))
			bv, bok := c.Value(int(b))
			return Compare(av, !aok, bv, !bok)
		})
	}
	res := Project(order, c)
	res.Props.Sorted = true
	res.Props.RevSorted = res.Len() <= 1
	res.Props.Key = c.Props.Key
	if n := res.Len(); n > 0 {
		res.Props.MaxPos = n - 1
		res.Props.MinPos = 0
		if res.HasNulls() {
			res.Props.MinPos = -1
			for i := range n {
				if !res.IsNull(i) {
					res.Props.MinPos = i
					break
				}
			}
			if res.IsNull(n - 1) {
				res.Props.MaxPos = -1
			}
		}
	}
	return res, order
}

// Unique returns the position of the first occurrence of every distinct value
// among the candidate rows of c, in ascending order. All nulls count as one
// value, as do all NaNs.
func Unique[T cmp.Ordered](c *Column[T], cand Candidates) []int64 {
	seen := make(map[T]struct{})
	sawNull, sawNaN := false, false
	res := make([]int64, 0)
	for p := range All(cand, c.Len()).All() {
		v, ok := c.Value(int(p))
		if !ok {
			if !sawNull {
				sawNull = true
				res = append(res, p)
			}
			continue
		}
		if IsNaN(v) {
			if !sawNaN {
				sawNaN = true
				res = append(res, p)
			}
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		res = append(res, p)
	}
	return res
}

// Project gathers the rows at pos from c into a new column.
func Project[T cmp.Ordered](pos []int64, c *Column[T]) *Column[T] {
	values := make([]T, len(pos))
	var nulls []bool
	if c.HasNulls() {
		nulls = make([]bool, len(pos))
	}
	for i, p := range pos {
		values[i] = c.values[p]
		if nulls != nil {
			nulls[i] = c.nulls[p]
		}
	}
	res := &Column[T]{values: values, Props: UnknownProps()}
	if nulls != nil && slices.Contains(nulls, true) {
		res.nulls = nulls
	}
	res.Props.Nil = res.nulls != nil
	res.Props.NoNil = !res.Props.Nil
	return res
}
