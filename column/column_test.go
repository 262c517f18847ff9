// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package column

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestComputeProps(t *testing.T) {
	for _, tt := range []struct {
		c      *Column[int64]
		expect Props
	}{
		{
			c:      New([]int64{1, 2, 3}),
			expect: Props{Sorted: true, Key: true, NoNil: true, MinPos: 0, MaxPos: 2},
		},
		{
			c:      New([]int64{3, 3, 1}),
			expect: Props{RevSorted: true, NoNil: true, MinPos: 2, MaxPos: 0},
		},
		{
			c:      NewNullable([]int64{0, 4, 2}, []bool{true, false, false}),
			expect: Props{Nil: true, MinPos: 2, MaxPos: 1},
		},
		{
			c:      NewNullable([]int64{0, 2, 4}, []bool{true, false, false}),
			expect: Props{Sorted: true, Key: true, Nil: true, MinPos: 1, MaxPos: 2},
		},
	} {
		t.Run("", func(t *testing.T) {
			if tt.c.Props != tt.expect {
				t.Fatalf("Expected %+v to match %+v", tt.c.Props, tt.expect)
			}
		})
	}
}

func TestAppendKeepsSortedness(t *testing.T) {
	c := Empty[string](4)
	c.Append("a")
	c.Append("b")
	if !c.Props.Sorted {
		t.Fatalf("Expected column to stay sorted")
	}
	c.Append("a")
	if c.Props.Sorted {
		t.Fatalf("Expected column to lose sortedness")
	}
	c.AppendNull()
	if !c.Props.Nil || c.Props.NoNil || !c.IsNull(3) || c.IsNull(2) {
		t.Fatalf("Expected trailing null, got props %+v", c.Props)
	}
}

func TestSort(t *testing.T) {
	c := NewNullable([]string{"c", "", "a", "b"}, []bool{false, true, false, false})
	s, order := Sort(c)
	if !slices.Equal(order, []int64{1, 2, 3, 0}) {
		t.Fatalf("Expected order %v, got %v", []int64{1, 2, 3, 0}, order)
	}
	if !s.IsNull(0) || s.Values()[1] != "a" || s.Values()[3] != "c" {
		t.Fatalf("Unexpected sort result %v %v", s.Values(), s.Nulls())
	}
	if s.Props.MinPos != 1 || s.Props.MaxPos != 3 {
		t.Fatalf("Unexpected min/max positions %d/%d", s.Props.MinPos, s.Props.MaxPos)
	}
}

func TestUnique(t *testing.T) {
	c := NewNullable([]int64{5, 0, 5, 7, 0, 7}, []bool{false, true, false, false, true, false})
	if res := Unique(c, nil); !slices.Equal(res, []int64{0, 1, 3}) {
		t.Fatalf("Expected %v to match %v", res, []int64{0, 1, 3})
	}
	if res := Unique(c, Dense(2, 4)); !slices.Equal(res, []int64{2, 3, 4}) {
		t.Fatalf("Expected %v to match %v", res, []int64{2, 3, 4})
	}
}

func TestSelect(t *testing.T) {
	c := NewNullable([]int64{1, 0, 3, 5, 7}, []bool{false, true, false, false, false})
	for _, tt := range []struct {
		name                  string
		cand                  Candidates
		low, high             *int64
		li, hi, anti, unknown bool
		expect                []int64
	}{
		{name: "closed", low: ptr[int64](3), high: ptr[int64](5), li: true, hi: true, expect: []int64{2, 3}},
		{name: "half open", low: ptr[int64](3), high: ptr[int64](5), li: true, expect: []int64{2}},
		{name: "open low", high: ptr[int64](3), hi: true, expect: []int64{0, 2}},
		{name: "open high", low: ptr[int64](3), expect: []int64{3, 4}},
		{name: "anti", low: ptr[int64](3), high: ptr[int64](5), li: true, hi: true, anti: true, expect: []int64{0, 4}},
		{name: "anti unknown", low: ptr[int64](3), high: ptr[int64](5), li: true, hi: true, anti: true, unknown: true, expect: []int64{0, 1, 4}},
		{name: "nulls", li: true, hi: true, expect: []int64{1}},
		{name: "non-nulls", li: true, hi: true, anti: true, expect: []int64{0, 2, 3, 4}},
		{name: "unbounded", expect: []int64{0, 2, 3, 4}},
		{name: "candidates", cand: Candidates{{From: 3, Count: 2}}, low: ptr[int64](0), li: true, expect: []int64{3, 4}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			res := Select(c, tt.cand, tt.low, tt.high, tt.li, tt.hi, tt.anti, tt.unknown)
			if got := res.Positions(); !slices.Equal(got, tt.expect) {
				t.Fatalf("Expected %v to match %v", got, tt.expect)
			}
		})
	}
}

func TestThetaSelect(t *testing.T) {
	c := NewNullable([]string{"b", "", "a", "c", "b"}, []bool{false, true, false, false, false})
	for _, tt := range []struct {
		v      *string
		op     Op
		expect []int64
	}{
		{v: ptr("b"), op: OpEq, expect: []int64{0, 4}},
		{v: ptr("b"), op: OpNe, expect: []int64{2, 3}},
		{v: ptr("b"), op: OpLt, expect: []int64{2}},
		{v: ptr("b"), op: OpLe, expect: []int64{0, 2, 4}},
		{v: ptr("b"), op: OpGt, expect: []int64{3}},
		{v: ptr("b"), op: OpGe, expect: []int64{0, 3, 4}},
		{v: nil, op: OpEq, expect: []int64{1}},
		{v: nil, op: OpNe, expect: []int64{0, 2, 3, 4}},
		{v: nil, op: OpLt, expect: []int64{}},
	} {
		t.Run(tt.op.String(), func(t *testing.T) {
			if got := ThetaSelect(c, nil, tt.v, tt.op).Positions(); !slices.Equal(got, tt.expect) {
				t.Fatalf("Expected %v to match %v", got, tt.expect)
			}
		})
	}
}

func TestParseOp(t *testing.T) {
	for _, s := range []string{"=", "==", "!=", "<>", "<", "<=", ">", ">="} {
		if _, err := ParseOp(s); err != nil {
			t.Fatalf("unable to parse %q: %s", s, err)
		}
	}
	_, err := ParseOp("~")
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("Expected malformed input, got %v", err)
	}
	var oe *OpError
	if !errors.As(err, &oe) || oe.Op != "parse op" {
		t.Fatalf("Expected an operator error, got %v", err)
	}
}

func TestJoin(t *testing.T) {
	l := NewNullable([]int64{1, 0, 2, 3}, []bool{false, true, false, false})
	r := NewNullable([]int64{2, 1, 0, 2}, []bool{false, false, true, false})

	r0, r1 := Join(l, r, nil, nil, false)
	if !slices.Equal(r0, []int64{0, 2, 2}) || !slices.Equal(r1, []int64{1, 0, 3}) {
		t.Fatalf("Unexpected join result %v %v", r0, r1)
	}

	r0, r1 = Join(l, r, nil, nil, true)
	if !slices.Equal(r0, []int64{0, 1, 2, 2}) || !slices.Equal(r1, []int64{1, 2, 0, 3}) {
		t.Fatalf("Unexpected join result %v %v", r0, r1)
	}

	r0, r1 = Join(l, r, Dense(2, 2), Dense(0, 1), false)
	if !slices.Equal(r0, []int64{2}) || !slices.Equal(r1, []int64{0}) {
		t.Fatalf("Unexpected join result %v %v", r0, r1)
	}
}

func TestNaN(t *testing.T) {
	nan := math.NaN()
	c := NewNullable([]float64{1.5, nan, 2.5, nan, 0, 1.5}, []bool{false, false, false, false, true, false})

	if pos := Unique(c, nil); !slices.Equal(pos, []int64{0, 1, 2, 4}) {
		t.Fatalf("Expected one entry for all NaNs, got %v", pos)
	}
	if c.Props.MinPos != 1 || c.Props.MaxPos != 2 {
		t.Fatalf("Expected NaN as minimum and 2.5 as maximum, got %+v", c.Props)
	}

	r := New([]float64{nan, 2.5, nan})
	r0, r1 := Join(c, r, nil, nil, false)
	if !slices.Equal(r0, []int64{1, 1, 2, 3, 3}) || !slices.Equal(r1, []int64{0, 2, 1, 0, 2}) {
		t.Fatalf("Expected NaN rows to join, got %v %v", r0, r1)
	}

	if res := ThetaSelect(c, nil, &nan, OpEq); !slices.Equal(res.Positions(), []int64{1, 3}) {
		t.Fatalf("Expected NaN rows, got %v", res.Positions())
	}
}
