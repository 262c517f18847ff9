// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package dict

import (
	"cmp"

	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/offsets"
)

// Compress dictionary encodes src. The offsets use the narrowest width able
// to address the dictionary, or able to address src.Len() entries if
// forceFullWidth is set and the distinct values fit a short offset.
func Compress[T cmp.Ordered](src *column.Column[T], ordered, persist, forceFullWidth bool) (*offsets.Array, *Dictionary[T], error) {
	d, err := BuildUnique(src, ordered, persist)
	if err != nil {
		return nil, nil, column.Wrap(opCompress, err)
	}
	w, err := offsets.CardinalityWidth(d.Len())
	if err != nil {
		return nil, nil, column.Wrap(opCompress, err)
	}
	if forceFullWidth {
		if fw, err := offsets.CardinalityWidth(src.Len()); err != nil || fw > w {
			w = offsets.Short
		}
	}

	o := offsets.New(w, src.Len())
	o.Hseqbase = src.Hseqbase
	o.Props = column.UnknownProps()
	top := d.Len() - 1
	for i := range src.Len() {
		v, ok := src.Value(i)
		p, found := d.ProbeValue(v, !ok)
		if !found {
			return nil, nil, column.Errorf(opCompress, column.ErrMalformedInput, "value at %d missing from its own dictionary", i)
		}
		o.Set(i, p)
		if p == 0 && o.Props.MinPos < 0 {
			o.Props.MinPos = i
		}
		if p == top && o.Props.MaxPos < 0 {
			o.Props.MaxPos = i
		}
	}

	// Nil and NoNil describe the encoded values, the offsets themselves are never null.
	o.Props.Nil = src.HasNulls()
	o.Props.NoNil = !o.Props.Nil
	o.Props.Sorted = d.Sorted() && src.Props.Sorted
	o.Props.Key = src.Props.Key

	operations.WithLabelValues(opCompress, pathFast).Inc()
	rowsProcessed.WithLabelValues(opCompress).Add(float64(src.Len()))
	return o, d, nil
}

// Decompress expands o back into the values it encodes.
func Decompress[T cmp.Ordered](o *offsets.Array, d *Dictionary[T]) (*column.Column[T], error) {
	n := d.Len()
	values := make([]T, o.Len())
	var nulls []bool
	if d.NullOffset() >= 0 {
		nulls = make([]bool, o.Len())
	}

	dv := d.values.Values()
	gather := func(i, x int) error {
		if x >= n {
			return column.Errorf(opDecompress, column.ErrMalformedInput, "offset %d at row %d outside dictionary of %d entries", x, i, n)
		}
		values[i] = dv[x]
		if nulls != nil {
			nulls[i] = x == d.nullPos
		}
		return nil
	}
	switch o.Width() {
	case offsets.Byte:
		for i, x := range o.Bytes() {
			if err := gather(i, int(x)); err != nil {
				return nil, err
			}
		}
	case offsets.Short:
		for i, x := range o.Shorts() {
			if err := gather(i, int(x)); err != nil {
				return nil, err
			}
		}
	}

	res := column.NewWithProps(values, nulls, decompressedProps(o, d))
	res.Hseqbase = o.Hseqbase
	operations.WithLabelValues(opDecompress, pathFast).Inc()
	rowsProcessed.WithLabelValues(opDecompress).Add(float64(o.Len()))
	return res, nil
}

// decompressedProps drops ordering and uniqueness. The cached min and max
// positions of o survive if d is sorted and they still address its first and
// last non-null entries.
func decompressedProps[T cmp.Ordered](o *offsets.Array, d *Dictionary[T]) column.Props {
	p := column.UnknownProps()
	if !d.Sorted() || d.Len() == 0 {
		return p
	}
	first, last := 0, d.Len()-1
	if d.nullPos == first {
		first++
	}
	if mp := o.Props.MinPos; mp >= 0 && mp < o.Len() && first <= last && o.At(mp) == first {
		p.MinPos = mp
	}
	if mp := o.Props.MaxPos; mp >= 0 && mp < o.Len() && last != d.nullPos && o.At(mp) == last {
		p.MaxPos = mp
	}
	return p
}

// ConvertCandidates turns candidate positions, as produced by a select on
// a dictionary, into an offset array of width w. Positions beyond the signed
// half range of w still convert but leave the result without ordering
// properties. Positions beyond the ceiling of w fail.
func ConvertCandidates(cand column.Candidates, w offsets.Width, hseqbase int64) (*offsets.Array, error) {
	o := offsets.Make(w, int(cand.Len()))
	o.Hseqbase = hseqbase
	broken := false
	for p := range cand.All() {
		x := int(p - hseqbase)
		if !w.Fits(x) {
			return nil, column.Errorf("convert candidates", column.ErrCapacity, "position %d does not fit a %s offset", p, w)
		}
		if x > w.Range() {
			broken = true
		}
		o.Append(x)
	}
	o.Props = column.Props{
		Sorted: !broken,
		Key:    !broken,
		NoNil:  true,
		MinPos: -1,
		MaxPos: -1,
	}
	return o, nil
}
