// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package offsets

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"

	"github.com/thanos-io/column-codec/column"
)

// Width is the storage width of one offset.
type Width uint8

const (
	Byte  Width = 1
	Short Width = 2
)

const (
	// ByteCeiling and ShortCeiling are the largest offsets a width can hold,
	// and so bound the cardinality of a dictionary using that width.
	ByteCeiling  = math.MaxUint8
	ShortCeiling = math.MaxUint16

	// ByteRange and ShortRange bound the value range of a frame of reference
	// and the candidate positions that survive conversion with order intact.
	ByteRange  = math.MaxInt8
	ShortRange = math.MaxInt16
)

func (w Width) String() string {
	switch w {
	case Byte:
		return "byte"
	case Short:
		return "short"
	}
	return fmt.Sprintf("Width(%d)", uint8(w))
}

// Ceiling is the largest offset w can hold.
func (w Width) Ceiling() int {
	if w == Byte {
		return ByteCeiling
	}
	return ShortCeiling
}

// Range is the largest value span a frame of reference of width w can hold.
func (w Width) Range() int {
	if w == Byte {
		return ByteRange
	}
	return ShortRange
}

func (w Width) Fits(v int) bool {
	return v >= 0 && v <= w.Ceiling()
}

// CardinalityWidth picks the narrowest width able to address n dictionary entries.
func CardinalityWidth(n int) (Width, error) {
	switch {
	case n <= ByteCeiling:
		return Byte, nil
	case n <= ShortCeiling:
		return Short, nil
	}
	return 0, column.Errorf("cardinality width", column.ErrCapacity, "%d distinct values do not fit a short offset", n)
}

// Span returns hi-lo without overflowing the type of the operands. hi must not be less than lo.
func Span[T constraints.Integer](lo, hi T) uint64 {
	return uint64(hi) - uint64(lo)
}

// RangeWidth picks the narrowest width able to hold every value of [lo, hi] relative to lo.
func RangeWidth[T constraints.Integer](lo, hi T) (Width, error) {
	if hi < lo {
		return 0, column.Errorf("range width", column.ErrMalformedInput, "minimum %d above maximum %d", lo, hi)
	}
	switch span := Span(lo, hi); {
	case span <= ByteRange:
		return Byte, nil
	case span <= ShortRange:
		return Short, nil
	}
	return 0, column.Errorf("range width", column.ErrCapacity, "range [%d, %d] does not fit a short offset", lo, hi)
}
