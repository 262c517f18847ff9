// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

// Package frame implements frame of reference encoding of integer columns:
// every value is stored as its distance to the column minimum.
package frame

import (
	"golang.org/x/exp/constraints"

	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/offsets"
)

// Compress encodes src relative to its minimum in the narrowest width able
// to hold the value range. Columns with nulls cannot be encoded.
func Compress[T constraints.Integer](src *column.Column[T]) (*offsets.Array, T, error) {
	var zero T
	if src.Len() == 0 {
		return nil, zero, column.Errorf("for compress", column.ErrMalformedInput, "empty column")
	}
	if src.HasNulls() {
		return nil, zero, column.Errorf("for compress", column.ErrCapacity, "nulls cannot be encoded")
	}

	values := src.Values()
	minPos, maxPos := 0, 0
	for i, v := range values {
		if v < values[minPos] {
			minPos = i
		}
		if v > values[maxPos] {
			maxPos = i
		}
	}
	minimum := values[minPos]
	w, err := offsets.RangeWidth(minimum, values[maxPos])
	if err != nil {
		encodeRejected.WithLabelValues(reasonRange).Inc()
		return nil, zero, column.Wrap("for compress", err)
	}

	o := offsets.New(w, len(values))
	for i, v := range values {
		o.Set(i, int(offsets.Span(minimum, v)))
	}
	o.Hseqbase = src.Hseqbase
	o.Props = column.Props{
		Sorted:    src.Props.Sorted,
		RevSorted: src.Props.RevSorted,
		Key:       src.Props.Key,
		NoNil:     true,
		MinPos:    minPos,
		MaxPos:    maxPos,
	}
	rowsEncoded.WithLabelValues(w.String()).Add(float64(len(values)))
	return o, minimum, nil
}

// Decompress restores the values o encodes relative to minimum as type R.
// R must be able to hold every encoded value.
func Decompress[R, T constraints.Integer](o *offsets.Array, minimum T) *column.Column[R] {
	values := make([]R, o.Len())
	base := R(minimum)
	switch o.Width() {
	case offsets.Byte:
		for i, x := range o.Bytes() {
			values[i] = base + R(x)
		}
	case offsets.Short:
		for i, x := range o.Shorts() {
			values[i] = base + R(x)
		}
	}
	res := column.New(values)
	res.Hseqbase = o.Hseqbase
	return res
}
