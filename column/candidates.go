// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package column

import (
	"cmp"
	"iter"
	"slices"
)

// RowRange is a run of consecutive row positions starting at From.
type RowRange struct {
	From  int64
	Count int64
}

func (r RowRange) End() int64 {
	return r.From + r.Count
}

// Candidates is a sorted list of non-overlapping row ranges. Operators that
// take a candidate list treat a nil list as "every row"; operators that
// produce one never return nil, an empty result is an empty, non-nil list.
type Candidates []RowRange

// Dense returns the candidate list of count consecutive rows starting at from.
func Dense(from, count int64) Candidates {
	if count <= 0 {
		return Candidates{}
	}
	return Candidates{{From: from, Count: count}}
}

// All returns the candidates for every row of a column of n rows, or cand itself if it is set.
func All(cand Candidates, n int) Candidates {
	if cand != nil {
		return cand
	}
	return Dense(0, int64(n))
}

// FromPositions builds a candidate list from row positions in any order.
func FromPositions(pos []int64) Candidates {
	pos = slices.Clone(pos)
	slices.Sort(pos)
	b := NewCandidatesBuilder(0)
	for i, p := range pos {
		if i > 0 && pos[i-1] == p {
			continue
		}
		b.Add(p)
	}
	return b.Build()
}

// Len returns the number of rows in the candidate list.
func (c Candidates) Len() int64 {
	var n int64
	for _, r := range c {
		n += r.Count
	}
	return n
}

// IsDense reports whether the candidates form a single run.
func (c Candidates) IsDense() bool {
	return len(c) <= 1
}

// All iterates the row positions in ascending order.
func (c Candidates) All() iter.Seq[int64] {
	return func(yield func(int64) bool) {
		for _, r := range c {
			for p := r.From; p < r.End(); p++ {
				if !yield(p) {
					return
				}
			}
		}
	}
}

func (c Candidates) Positions() []int64 {
	res := make([]int64, 0, c.Len())
	for p := range c.All() {
		res = append(res, p)
	}
	return res
}

// CandidatesBuilder accumulates ascending row positions into ranges.
type CandidatesBuilder struct {
	rr Candidates
}

func NewCandidatesBuilder(capacity int) *CandidatesBuilder {
	return &CandidatesBuilder{rr: make(Candidates, 0, capacity)}
}

// Add appends p, which must be greater than every position added before.
func (b *CandidatesBuilder) Add(p int64) {
	if n := len(b.rr); n > 0 && b.rr[n-1].End() == p {
		b.rr[n-1].Count++
		return
	}
	b.rr = append(b.rr, RowRange{From: p, Count: 1})
}

func (b *CandidatesBuilder) Build() Candidates {
	return b.rr
}

// Limit keeps the first limit rows of rr.
func Limit(limit int64, rr Candidates) Candidates {
	res := make(Candidates, 0, len(rr))
	cur := int64(0)
	for i := range rr {
		if cur+rr[i].Count > limit {
			res = append(res, RowRange{From: rr[i].From, Count: limit - cur})
			break
		}
		res = append(res, rr[i])
		cur += rr[i].Count
	}
	return Simplify(res)
}

// Intersect returns the rows present in both lhs and rhs.
// It assumes that lhs and rhs are simplified and returns a simplified result.
// It operates in O(l+r) time by cursoring through ranges with a two pointer approach.
func Intersect(lhs, rhs Candidates) Candidates {
	res := make(Candidates, 0, min(len(lhs), len(rhs)))
	for l, r := 0, 0; l < len(lhs) && r < len(rhs); {
		al, bl := lhs[l].From, lhs[l].End()
		ar, br := rhs[r].From, rhs[r].End()

		if al <= br && ar <= bl {
			os, oe := max(al, ar), min(bl, br)
			res = append(res, RowRange{From: os, Count: oe - os})
		}

		// advance the cursor of the range that ends first
		if bl <= br {
			l++
		} else {
			r++
		}
	}
	return Simplify(res)
}

// Complement returns the rows that are in rhs but not in lhs.
// For example, if you have:
// lhs: [{From: 1, Count: 3}]  // represents rows 1,2,3
// rhs: [{From: 0, Count: 5}]  // represents rows 0,1,2,3,4
// The complement is [{From: 0, Count: 1}, {From: 4, Count: 1}].
//
// lhs and rhs must be simplified, the result is simplified.
func Complement(lhs, rhs Candidates) Candidates {
	res := make(Candidates, 0, len(lhs)+len(rhs))

	// rhs is modified in place, to make it concurrency safe we need to clone it
	rhs = slices.Clone(rhs)

	l, r := 0, 0
	for l < len(lhs) && r < len(rhs) {
		al, bl := lhs[l].From, lhs[l].End()
		ar, br := rhs[r].From, rhs[r].End()

		switch {
		case al > br || ar > bl:
			if bl <= br {
				l++
			} else {
				res = append(res, RowRange{From: ar, Count: br - ar})
				r++
			}
		case al < ar && bl > br:
			// l contains r
			r++
		case al < ar && bl <= br:
			// l covers the bottom of r
			oe := min(bl, br)
			rhs[r].From += oe - ar
			rhs[r].Count -= oe - ar
			l++
		case al >= ar && bl > br:
			// l covers the top of r
			os := max(al, ar)
			res = append(res, RowRange{From: ar, Count: os - ar})
			r++
		case al >= ar && bl <= br:
			// l is inside r
			os, oe := max(al, ar), min(bl, br)
			res = append(res, RowRange{From: rhs[r].From, Count: os - rhs[r].From})
			rhs[r].From = oe
			rhs[r].Count = br - oe
			l++
		}
	}

	for ; r < len(rhs); r++ {
		res = append(res, rhs[r])
	}

	return Simplify(res)
}

// Simplify sorts rr and merges overlapping or adjacent ranges, dropping empty ones.
func Simplify(rr Candidates) Candidates {
	if len(rr) == 0 {
		return Candidates{}
	}

	// rr is modified in place, to make it concurrency safe we need to clone it
	rr = slices.Clone(rr)

	slices.SortFunc(rr, func(a, b RowRange) int {
		return cmp.Compare(a.From, b.From)
	})

	tmp := make(Candidates, 0, len(rr))
	l := rr[0]
	for i := 1; i < len(rr); i++ {
		r := rr[i]
		al, bl := l.From, l.End()
		ar, br := r.From, r.End()
		if bl < ar {
			tmp = append(tmp, l)
			l = r
			continue
		}

		from := min(al, ar)
		count := max(bl, br) - from
		if count == 0 {
			continue
		}
		l = RowRange{From: from, Count: count}
	}

	tmp = append(tmp, l)
	res := make(Candidates, 0, len(tmp))
	for i := range tmp {
		if tmp[i].Count != 0 {
			res = append(res, tmp[i])
		}
	}
	return res
}
