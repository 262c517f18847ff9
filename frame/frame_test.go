// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package frame

import (
	"errors"
	"math"
	"slices"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"

	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/offsets"
)

func TestCompress(t *testing.T) {
	o, minimum, err := Compress(column.New([]int64{100, 103, 99, 150}))
	if err != nil {
		t.Fatalf("unable to compress: %s", err)
	}
	if minimum != 99 || o.Width() != offsets.Byte {
		t.Fatalf("Expected minimum 99 in byte width, got %d %s", minimum, o.Width())
	}
	if !slices.Equal(o.Ints(), []int{1, 4, 0, 51}) {
		t.Fatalf("Unexpected offsets %v", o.Ints())
	}
	if o.Props.MinPos != 2 || o.Props.MaxPos != 3 || !o.Props.NoNil {
		t.Fatalf("Unexpected props %+v", o.Props)
	}

	res := Decompress[int64](o, minimum)
	if !slices.Equal(res.Values(), []int64{100, 103, 99, 150}) {
		t.Fatalf("Unexpected values %v", res.Values())
	}
}

func TestCompressErrors(t *testing.T) {
	for _, tt := range []struct {
		name string
		src  *column.Column[int32]
		err  error
	}{
		{name: "empty", src: column.New([]int32{}), err: column.ErrMalformedInput},
		{name: "nulls", src: column.NewNullable([]int32{1, 0}, []bool{false, true}), err: column.ErrCapacity},
		{name: "range", src: column.New([]int32{0, 40000}), err: column.ErrCapacity},
		{name: "extremes", src: column.New([]int32{math.MinInt32, math.MaxInt32}), err: column.ErrCapacity},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Compress(tt.src); !errors.Is(err, tt.err) {
				t.Fatalf("Expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestCompressWidths(t *testing.T) {
	for _, tt := range []struct {
		values []int16
		expect offsets.Width
	}{
		{values: []int16{-5, 122}, expect: offsets.Byte},
		{values: []int16{-5, 123}, expect: offsets.Short},
		{values: []int16{math.MinInt16, -1}, expect: offsets.Short},
		{values: []int16{7}, expect: offsets.Byte},
	} {
		t.Run("", func(t *testing.T) {
			o, minimum, err := Compress(column.New(tt.values))
			if err != nil {
				t.Fatalf("unable to compress: %s", err)
			}
			if o.Width() != tt.expect {
				t.Fatalf("Expected %s to match %s", o.Width(), tt.expect)
			}
			if res := Decompress[int16](o, minimum); !slices.Equal(res.Values(), tt.values) {
				t.Fatalf("Expected %v to match %v", res.Values(), tt.values)
			}
		})
	}
}

func TestDecompressWidens(t *testing.T) {
	o, minimum, err := Compress(column.New([]int8{-100, 20}))
	if err != nil {
		t.Fatalf("unable to compress: %s", err)
	}
	if res := Decompress[int64](o, minimum); !slices.Equal(res.Values(), []int64{-100, 20}) {
		t.Fatalf("Unexpected values %v", res.Values())
	}
}

func TestPrepareAppend(t *testing.T) {
	for _, tt := range []struct {
		name   string
		values *column.Column[int64]
		ok     bool
		expect []int
	}{
		{name: "fits", values: column.New([]int64{99, 226}), ok: true, expect: []int{0, 127}},
		{name: "empty", values: column.New([]int64{}), ok: true, expect: []int{}},
		{name: "below minimum", values: column.New([]int64{98}), ok: false},
		{name: "beyond range", values: column.New([]int64{227}), ok: false},
		{name: "null", values: column.NewNullable([]int64{100, 0}, []bool{false, true}), ok: false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			o, ok := PrepareAppend(tt.values, int64(99), offsets.Byte)
			if ok != tt.ok {
				t.Fatalf("Expected %v, got %v", tt.ok, ok)
			}
			if ok && !slices.Equal(o.Ints(), tt.expect) {
				t.Fatalf("Expected %v to match %v", o.Ints(), tt.expect)
			}
		})
	}
}

func FuzzRoundTrip(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		fz := fuzz.NewConsumer(data)

		var in []int32
		fz.CreateSlice(&in)

		o, minimum, err := Compress(column.New(in))
		if err != nil {
			if len(in) == 0 || errors.Is(err, column.ErrCapacity) {
				return
			}
			t.Fatalf("unable to compress: %s", err)
		}
		if w, _ := offsets.RangeWidth(slices.Min(in), slices.Max(in)); w != o.Width() {
			t.Fatalf("Expected minimal width %s, got %s", w, o.Width())
		}
		if res := Decompress[int32](o, minimum); slices.Compare(res.Values(), in) != 0 {
			t.Fatalf("decoded %v did not match expected %v", res.Values(), in)
		}
	})
}
