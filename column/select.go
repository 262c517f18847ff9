// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package column

import (
	"cmp"
	"fmt"
)

// Op is a comparison operator of a theta select.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Ordered reports whether o is one of <, <=, >, >=.
func (o Op) Ordered() bool {
	return o >= OpLt
}

func ParseOp(s string) (Op, error) {
	switch s {
	case "=", "==":
		return OpEq, nil
	case "!=", "<>":
		return OpNe, nil
	case "<":
		return OpLt, nil
	case "<=":
		return OpLe, nil
	case ">":
		return OpGt, nil
	case ">=":
		return OpGe, nil
	}
	return 0, Errorf("parse op", ErrMalformedInput, "unknown operator %q", s)
}

// Select returns the candidate rows of c with a value in the range between
// low and high. A nil bound leaves that side open. li and hi make the
// respective bound inclusive.
//
// Nulls never satisfy a range. The one exception is low and high both nil
// with li and hi set, which selects the null rows themselves. With anti the
// selection is inverted for non-null rows; null rows are then included only
// if unknown is set.
func Select[T cmp.Ordered](c *Column[T], cand Candidates, low, high *T, li, hi, anti, unknown bool) Candidates {
	match := RangeMatcher(low, high, li, hi, anti, unknown)
	b := NewCandidatesBuilder(0)
	for p := range All(cand, c.Len()).All() {
		v, ok := c.Value(int(p))
		if match(v, !ok) {
			b.Add(p)
		}
	}
	return b.Build()
}

// RangeMatcher returns the row predicate implementing Select.
func RangeMatcher[T cmp.Ordered](low, high *T, li, hi, anti, unknown bool) func(v T, null bool) bool {
	if low == nil && high == nil && li && hi {
		return func(_ T, null bool) bool {
			return null != anti
		}
	}
	return func(v T, null bool) bool {
		if null {
			return anti && unknown
		}
		in := true
		if low != nil {
			d := cmp.Compare(v, *low)
			in = d > 0 || (li && d == 0)
		}
		if in && high != nil {
			d := cmp.Compare(v, *high)
			in = d < 0 || (hi && d == 0)
		}
		return in != anti
	}
}

// ThetaSelect returns the candidate rows of c where "value op v" holds.
// A nil v compares as null: = selects null rows, != selects non-null rows and
// the ordered operators select nothing.
func ThetaSelect[T cmp.Ordered](c *Column[T], cand Candidates, v *T, op Op) Candidates {
	switch op {
	case OpEq:
		if v == nil {
			return Select(c, cand, nil, nil, true, true, false, false)
		}
		return Select(c, cand, v, v, true, true, false, false)
	case OpNe:
		if v == nil {
			return Select(c, cand, nil, nil, true, true, true, false)
		}
		return Select(c, cand, v, v, true, true, true, false)
	}
	if v == nil {
		return Candidates{}
	}
	switch op {
	case OpLt:
		return Select(c, cand, nil, v, false, false, false, false)
	case OpLe:
		return Select(c, cand, nil, v, false, true, false, false)
	case OpGt:
		return Select(c, cand, v, nil, false, false, false, false)
	default:
		return Select(c, cand, v, nil, true, false, false, false)
	}
}
