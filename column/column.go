// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package column

import (
	"cmp"
	"slices"
)

// Props are derived properties of a column. A false flag means "not known",
// never "known to be false", with the exception of Nil and NoNil which are
// kept exact by every producer in this module.
type Props struct {
	Sorted    bool
	RevSorted bool
	Key       bool
	Nil       bool
	NoNil     bool

	// MinPos and MaxPos are positions of a known minimum and maximum element, -1 if unknown.
	MinPos int
	MaxPos int
}

func UnknownProps() Props {
	return Props{MinPos: -1, MaxPos: -1}
}

// Negate drops every ordering and uniqueness property, keeping nullability.
func (p *Props) Negate() {
	p.Sorted = false
	p.RevSorted = false
	p.Key = false
	p.MinPos = -1
	p.MaxPos = -1
}

// Column is an ordered sequence of values of one type, addressed by position.
// Nulls are kept in a separate mask which is nil if the column never held a null.
type Column[T cmp.Ordered] struct {
	Hseqbase int64
	Props    Props

	values []T
	nulls  []bool
}

// New returns a null-free column over values and computes its properties.
// The column takes ownership of values.
func New[T cmp.Ordered](values []T) *Column[T] {
	c := &Column[T]{values: values}
	c.ComputeProps()
	return c
}

// NewNullable returns a column where nulls[i] marks row i as null.
func NewNullable[T cmp.Ordered](values []T, nulls []bool) *Column[T] {
	c := &Column[T]{values: values}
	if slices.Contains(nulls, true) {
		c.nulls = nulls
	}
	c.ComputeProps()
	return c
}

// NewWithProps is NewNullable without the pass over the values: the column
// carries p, with Nil and NoNil taken from the mask.
func NewWithProps[T cmp.Ordered](values []T, nulls []bool, p Props) *Column[T] {
	c := &Column[T]{values: values, Props: p}
	if slices.Contains(nulls, true) {
		c.nulls = nulls
	}
	c.Props.Nil = c.nulls != nil
	c.Props.NoNil = !c.Props.Nil
	return c
}

// Empty returns an empty column with room for n values.
func Empty[T cmp.Ordered](n int) *Column[T] {
	return &Column[T]{
		values: make([]T, 0, n),
		Props:  Props{Sorted: true, RevSorted: true, Key: true, NoNil: true, MinPos: -1, MaxPos: -1},
	}
}

func (c *Column[T]) Len() int {
	return len(c.values)
}

// Value returns the value at row i and whether it is non-null.
func (c *Column[T]) Value(i int) (T, bool) {
	if c.nulls != nil && c.nulls[i] {
		var zero T
		return zero, false
	}
	return c.values[i], true
}

func (c *Column[T]) IsNull(i int) bool {
	return c.nulls != nil && c.nulls[i]
}

func (c *Column[T]) HasNulls() bool {
	return c.nulls != nil
}

// Values exposes the backing values. Entries at null rows are zero values.
func (c *Column[T]) Values() []T {
	return c.values
}

// Nulls exposes the null mask, nil if the column has no nulls.
func (c *Column[T]) Nulls() []bool {
	return c.nulls
}

// Append adds a value and keeps cheap properties up to date.
func (c *Column[T]) Append(v T) {
	c.appendRow(v, false)
}

func (c *Column[T]) AppendNull() {
	var zero T
	c.appendRow(zero, true)
}

func (c *Column[T]) appendRow(v T, null bool) {
	n := len(c.values)
	if n > 0 {
		last, lastOK := c.Value(n - 1)
		d := Compare(last, !lastOK, v, null)
		c.Props.Sorted = c.Props.Sorted && d <= 0
		c.Props.RevSorted = c.Props.RevSorted && d >= 0
		c.Props.Key = false
		c.Props.MinPos, c.Props.MaxPos = -1, -1
	}
	c.values = append(c.values, v)
	if null {
		if c.nulls == nil {
			c.nulls = make([]bool, n, cap(c.values))
		}
		c.Props.Nil = true
		c.Props.NoNil = false
	}
	if c.nulls != nil {
		c.nulls = append(c.nulls, null)
	}
}

// Set overwrites row i. Every ordering property is dropped.
func (c *Column[T]) Set(i int, v T, null bool) {
	c.values[i] = v
	if null && c.nulls == nil {
		c.nulls = make([]bool, len(c.values))
	}
	if c.nulls != nil {
		c.nulls[i] = null
	}
	c.Props.Negate()
	c.Props.Nil = c.nulls != nil && slices.Contains(c.nulls, true)
	c.Props.NoNil = !c.Props.Nil
}

func (c *Column[T]) Clone() *Column[T] {
	return &Column[T]{
		Hseqbase: c.Hseqbase,
		Props:    c.Props,
		values:   slices.Clone(c.values),
		nulls:    slices.Clone(c.nulls),
	}
}

// Concat appends all rows of o to c.
func (c *Column[T]) Concat(o *Column[T]) {
	for i := range o.Len() {
		v, ok := o.Value(i)
		c.appendRow(v, !ok)
	}
}

// ComputeProps recomputes every property with one pass over the column.
func (c *Column[T]) ComputeProps() {
	p := Props{Sorted: true, RevSorted: true, MinPos: -1, MaxPos: -1}
	for i := range c.values {
		v, ok := c.Value(i)
		if !ok {
			p.Nil = true
		} else {
			if p.MinPos < 0 || cmp.Less(v, c.values[p.MinPos]) {
				p.MinPos = i
			}
			if p.MaxPos < 0 || cmp.Less(c.values[p.MaxPos], v) {
				p.MaxPos = i
			}
		}
		if i == 0 {
			continue
		}
		prev, prevOK := c.Value(i - 1)
		d := Compare(prev, !prevOK, v, !ok)
		if d > 0 {
			p.Sorted = false
		}
		if d < 0 {
			p.RevSorted = false
		}
	}
	p.NoNil = !p.Nil
	p.Key = len(c.values) <= 1 || ((p.Sorted || p.RevSorted) && strictlyMonotonic(c))
	c.Props = p
}

func strictlyMonotonic[T cmp.Ordered](c *Column[T]) bool {
	for i := 1; i < c.Len(); i++ {
		a, aok := c.Value(i - 1)
		b, bok := c.Value(i)
		if Compare(a, !aok, b, !bok) == 0 {
			return false
		}
	}
	return true
}

// Compare orders two possibly-null values, nulls first.
func Compare[T cmp.Ordered](a T, aNull bool, b T, bNull bool) int {
	switch {
	case aNull && bNull:
		return 0
	case aNull:
		return -1
	case bNull:
		return 1
	}
	return cmp.Compare(a, b)
}

// IsNaN reports whether v is a floating point NaN. NaNs compare equal to each
// other under cmp.Compare but never match as map keys.
func IsNaN[T cmp.Ordered](v T) bool {
	return v != v
}
