// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package offsets

import (
	"slices"

	"github.com/thanos-io/column-codec/column"
)

// Array is a column of unsigned offsets stored in one of two widths.
// Exactly one of the backing slices is in use, selected by the width.
type Array struct {
	Hseqbase int64
	Props    column.Props

	width  Width
	bytes  []uint8
	shorts []uint16
}

// New returns a zeroed array of n offsets.
func New(w Width, n int) *Array {
	a := &Array{width: w, Props: column.UnknownProps()}
	switch w {
	case Byte:
		a.bytes = make([]uint8, n)
	default:
		a.width = Short
		a.shorts = make([]uint16, n)
	}
	return a
}

// Make returns an empty array with room for n offsets.
func Make(w Width, n int) *Array {
	a := New(w, 0)
	if a.width == Byte {
		a.bytes = slices.Grow(a.bytes, n)
	} else {
		a.shorts = slices.Grow(a.shorts, n)
	}
	return a
}

func FromBytes(b []uint8) *Array {
	return &Array{width: Byte, bytes: b, Props: column.UnknownProps()}
}

func FromShorts(s []uint16) *Array {
	return &Array{width: Short, shorts: s, Props: column.UnknownProps()}
}

func (a *Array) Width() Width {
	return a.width
}

func (a *Array) Len() int {
	if a.width == Byte {
		return len(a.bytes)
	}
	return len(a.shorts)
}

// Bytes returns the backing slice of a byte array, nil otherwise.
func (a *Array) Bytes() []uint8 {
	return a.bytes
}

// Shorts returns the backing slice of a short array, nil otherwise.
func (a *Array) Shorts() []uint16 {
	return a.shorts
}

func (a *Array) At(i int) int {
	if a.width == Byte {
		return int(a.bytes[i])
	}
	return int(a.shorts[i])
}

// Set stores v at i. v must fit the width of the array.
func (a *Array) Set(i, v int) {
	if a.width == Byte {
		a.bytes[i] = uint8(v)
		return
	}
	a.shorts[i] = uint16(v)
}

// Append adds v, which must fit the width of the array.
func (a *Array) Append(v int) {
	if a.width == Byte {
		a.bytes = append(a.bytes, uint8(v))
		return
	}
	a.shorts = append(a.shorts, uint16(v))
}

// Concat appends every offset of b. b must not be wider than a.
func (a *Array) Concat(b *Array) error {
	if b.width > a.width {
		return column.Errorf("offsets concat", column.ErrMalformedInput, "cannot append %s offsets to %s offsets", b.width, a.width)
	}
	if a.width == b.width {
		if a.width == Byte {
			a.bytes = append(a.bytes, b.bytes...)
		} else {
			a.shorts = append(a.shorts, b.shorts...)
		}
	} else {
		for _, x := range b.bytes {
			a.shorts = append(a.shorts, uint16(x))
		}
	}
	a.Props.Negate()
	a.Props.Nil = a.Props.Nil || b.Props.Nil
	a.Props.NoNil = a.Props.NoNil && b.Props.NoNil
	return nil
}

// Widen returns a copy of a in width w. Widening to the current width copies.
func (a *Array) Widen(w Width) (*Array, error) {
	if w < a.width {
		return nil, column.Errorf("offsets widen", column.ErrMalformedInput, "cannot narrow %s offsets to %s", a.width, w)
	}
	if w == a.width {
		return a.Clone(), nil
	}
	res := &Array{Hseqbase: a.Hseqbase, Props: a.Props, width: Short, shorts: make([]uint16, len(a.bytes), cap(a.bytes))}
	for i, x := range a.bytes {
		res.shorts[i] = uint16(x)
	}
	return res, nil
}

func (a *Array) Clone() *Array {
	return &Array{
		Hseqbase: a.Hseqbase,
		Props:    a.Props,
		width:    a.width,
		bytes:    slices.Clone(a.bytes),
		shorts:   slices.Clone(a.shorts),
	}
}

// Ints returns the offsets as ints.
func (a *Array) Ints() []int {
	res := make([]int, a.Len())
	for i := range res {
		res[i] = a.At(i)
	}
	return res
}
