// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package offsets

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/thanos-io/column-codec/column"
)

func TestCardinalityWidth(t *testing.T) {
	for _, tt := range []struct {
		n      int
		expect Width
		err    error
	}{
		{n: 0, expect: Byte},
		{n: 255, expect: Byte},
		{n: 256, expect: Short},
		{n: 65535, expect: Short},
		{n: 65536, err: column.ErrCapacity},
	} {
		t.Run("", func(t *testing.T) {
			w, err := CardinalityWidth(tt.n)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Expected error %v, got %v", tt.err, err)
			}
			if err == nil && w != tt.expect {
				t.Fatalf("Expected %s to match %s", w, tt.expect)
			}
		})
	}
}

func TestRangeWidth(t *testing.T) {
	for _, tt := range []struct {
		lo, hi int64
		expect Width
		err    error
	}{
		{lo: 99, hi: 150, expect: Byte},
		{lo: 0, hi: 127, expect: Byte},
		{lo: 0, hi: 128, expect: Short},
		{lo: -100, hi: 32667, expect: Short},
		{lo: 0, hi: 32768, err: column.ErrCapacity},
		{lo: math.MinInt64, hi: math.MaxInt64, err: column.ErrCapacity},
		{lo: 5, hi: 4, err: column.ErrMalformedInput},
	} {
		t.Run("", func(t *testing.T) {
			w, err := RangeWidth(tt.lo, tt.hi)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Expected error %v, got %v", tt.err, err)
			}
			if err == nil && w != tt.expect {
				t.Fatalf("Expected %s to match %s", w, tt.expect)
			}
		})
	}
}

func TestRangeWidthSmallTypes(t *testing.T) {
	if w, err := RangeWidth[int8](-128, -1); err != nil || w != Byte {
		t.Fatalf("Expected byte width, got %s (%v)", w, err)
	}
	if w, err := RangeWidth[int8](-128, 127); err != nil || w != Short {
		t.Fatalf("Expected short width, got %s (%v)", w, err)
	}
	if w, err := RangeWidth[uint16](0, math.MaxUint16); err == nil {
		t.Fatalf("Expected capacity error, got %s", w)
	}
}

func TestWiden(t *testing.T) {
	a := FromBytes([]uint8{0, 7, 255})
	a.Hseqbase = 10

	w, err := a.Widen(Short)
	if err != nil {
		t.Fatalf("unable to widen: %s", err)
	}
	if w.Width() != Short || w.Hseqbase != 10 || !slices.Equal(w.Shorts(), []uint16{0, 7, 255}) {
		t.Fatalf("Unexpected widened array %v", w.Shorts())
	}
	if w.Bytes() != nil {
		t.Fatalf("Expected no byte storage after widening")
	}

	w.Append(300)
	if a.Len() != 3 {
		t.Fatalf("Expected source to be untouched, got %d rows", a.Len())
	}

	if _, err := w.Widen(Byte); !errors.Is(err, column.ErrMalformedInput) {
		t.Fatalf("Expected narrowing to fail, got %v", err)
	}
}

func TestConcat(t *testing.T) {
	a := FromShorts([]uint16{1000})
	if err := a.Concat(FromBytes([]uint8{1, 2})); err != nil {
		t.Fatalf("unable to concat: %s", err)
	}
	if !slices.Equal(a.Ints(), []int{1000, 1, 2}) {
		t.Fatalf("Unexpected offsets %v", a.Ints())
	}
	if err := FromBytes(nil).Concat(a); !errors.Is(err, column.ErrMalformedInput) {
		t.Fatalf("Expected concat of wider offsets to fail, got %v", err)
	}
}
