// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package dict

import (
	"cmp"
	"maps"

	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/offsets"
)

// Dictionary is the column of distinct values an offset array indexes into,
// bundled with a hash index from value to position. Null and NaN each hold at
// most one entry, tracked outside the index.
// Positions are stable: the dictionary only ever grows at its end.
//
// A Dictionary is not safe for concurrent mutation.
type Dictionary[T cmp.Ordered] struct {
	values  *column.Column[T]
	index   map[T]int
	nullPos int
	nanPos  int
}

// NewDictionary wraps values, which must be distinct, into a dictionary.
// The dictionary takes ownership of values.
func NewDictionary[T cmp.Ordered](values *column.Column[T]) (*Dictionary[T], error) {
	if values.Len() > offsets.ShortCeiling {
		return nil, column.Errorf("dictionary", column.ErrCapacity, "%d entries exceed %d", values.Len(), offsets.ShortCeiling)
	}
	d := &Dictionary[T]{values: values}
	if err := d.RebuildIndex(); err != nil {
		return nil, err
	}
	values.Props.Key = true
	return d, nil
}

// Len is the cardinality of the dictionary.
func (d *Dictionary[T]) Len() int {
	return d.values.Len()
}

// Values exposes the dictionary entries. Callers must not modify them.
func (d *Dictionary[T]) Values() *column.Column[T] {
	return d.values
}

// At returns the entry at offset i and whether it is non-null.
func (d *Dictionary[T]) At(i int) (T, bool) {
	return d.values.Value(i)
}

// Sorted reports whether the entries are in ascending order, null first.
func (d *Dictionary[T]) Sorted() bool {
	return d.values.Props.Sorted
}

// NullOffset is the offset of the null entry, -1 if there is none.
func (d *Dictionary[T]) NullOffset() int {
	return d.nullPos
}

// Probe returns the offset of v.
func (d *Dictionary[T]) Probe(v T) (int, bool) {
	if column.IsNaN(v) {
		return d.nanPos, d.nanPos >= 0
	}
	p, ok := d.index[v]
	return p, ok
}

// ProbeValue probes for v, or for the null entry if null is set.
func (d *Dictionary[T]) ProbeValue(v T, null bool) (int, bool) {
	if null {
		return d.nullPos, d.nullPos >= 0
	}
	return d.Probe(v)
}

// ProbeOrGrow returns the offset of v, appending it first if it is absent.
func (d *Dictionary[T]) ProbeOrGrow(v T, null bool) (int, error) {
	if p, ok := d.ProbeValue(v, null); ok {
		return p, nil
	}
	if d.Len() >= offsets.ShortCeiling {
		return 0, column.Errorf("dictionary grow", column.ErrCapacity, "dictionary full at %d entries", d.Len())
	}
	p := d.Len()
	switch {
	case null:
		d.values.AppendNull()
		d.nullPos = p
	case column.IsNaN(v):
		d.values.Append(v)
		d.nanPos = p
	default:
		d.values.Append(v)
		d.index[v] = p
	}
	d.values.Props.Key = true
	dictionaryGrowth.Inc()
	return p, nil
}

// RebuildIndex recomputes the hash index from the entries.
func (d *Dictionary[T]) RebuildIndex() error {
	d.index = make(map[T]int, d.values.Len())
	d.nullPos, d.nanPos = -1, -1
	for i := range d.values.Len() {
		v, ok := d.values.Value(i)
		if !ok {
			if d.nullPos >= 0 {
				return column.Errorf("dictionary index", column.ErrMalformedInput, "duplicate null at %d", i)
			}
			d.nullPos = i
			continue
		}
		if column.IsNaN(v) {
			if d.nanPos >= 0 {
				return column.Errorf("dictionary index", column.ErrMalformedInput, "duplicate NaN at %d", i)
			}
			d.nanPos = i
			continue
		}
		if _, dup := d.index[v]; dup {
			return column.Errorf("dictionary index", column.ErrMalformedInput, "duplicate value %v at %d", v, i)
		}
		d.index[v] = i
	}
	return nil
}

// Clone returns a deep copy that can grow independently.
func (d *Dictionary[T]) Clone() *Dictionary[T] {
	return &Dictionary[T]{values: d.values.Clone(), index: maps.Clone(d.index), nullPos: d.nullPos, nanPos: d.nanPos}
}

// BuildUnique builds a dictionary from the distinct values of src, null
// counting as one value. Entries are sorted if ordered is set, otherwise in
// order of first occurrence. A persistent dictionary owns storage sized to
// its entries and never shares memory with src.
func BuildUnique[T cmp.Ordered](src *column.Column[T], ordered, persistent bool) (*Dictionary[T], error) {
	pos := column.Unique(src, nil)
	if len(pos) > offsets.ShortCeiling {
		return nil, column.Errorf("dictionary build", column.ErrCapacity, "%d distinct values exceed %d", len(pos), offsets.ShortCeiling)
	}
	u := column.Project(pos, src)
	if ordered {
		u, _ = column.Sort(u)
	} else {
		u.ComputeProps()
	}
	if persistent {
		u = u.Clone()
	}
	return NewDictionary(u)
}
