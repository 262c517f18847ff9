// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package frame

import (
	"golang.org/x/exp/constraints"

	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/offsets"
)

// PrepareAppend encodes values against an existing frame of reference.
// It returns false if any value is null, lies below minimum or lies beyond
// the range of w; the column must then be decompressed.
func PrepareAppend[T constraints.Integer](values *column.Column[T], minimum T, w offsets.Width) (*offsets.Array, bool) {
	if values.Len() == 0 {
		return offsets.New(w, 0), true
	}
	if values.HasNulls() {
		encodeRejected.WithLabelValues(reasonNull).Inc()
		return nil, false
	}
	vs := values.Values()
	hi := vs[0]
	for _, v := range vs {
		if v < minimum {
			encodeRejected.WithLabelValues(reasonBelowMinimum).Inc()
			return nil, false
		}
		hi = max(hi, v)
	}
	if offsets.Span(minimum, hi) > uint64(w.Range()) {
		encodeRejected.WithLabelValues(reasonRange).Inc()
		return nil, false
	}

	o := offsets.New(w, len(vs))
	for i, v := range vs {
		o.Set(i, int(offsets.Span(minimum, v)))
	}
	o.Props.NoNil = true
	rowsEncoded.WithLabelValues(w.String()).Add(float64(len(vs)))
	return o, true
}
