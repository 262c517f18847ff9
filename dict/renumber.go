// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package dict

import (
	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/offsets"
)

// offsetMap maps offsets of one dictionary to offsets of another.
type offsetMap struct {
	slots []int32
}

func newOffsetMap(keys, vals []int64, n, target int) (*offsetMap, error) {
	m := &offsetMap{slots: make([]int32, n)}
	for i := range m.slots {
		m.slots[i] = -1
	}
	for i, k := range keys {
		if k < 0 || int(k) >= n {
			return nil, column.Errorf("renumber", column.ErrMalformedInput, "key %d outside dictionary of %d entries", k, n)
		}
		if vals[i] < 0 || int(vals[i]) >= target {
			return nil, column.Errorf("renumber", column.ErrMalformedInput, "value %d outside dictionary of %d entries", vals[i], target)
		}
		if m.slots[k] >= 0 {
			return nil, column.Errorf("renumber", column.ErrMalformedInput, "key %d mapped twice", k)
		}
		m.slots[k] = int32(vals[i])
	}
	return m, nil
}

func (m *offsetMap) get(x int) (int, bool) {
	if x >= len(m.slots) || m.slots[x] < 0 {
		return 0, false
	}
	return int(m.slots[x]), true
}

// Renumber rewrites o, which addresses a dictionary of n entries, so that
// every offset keys[i] becomes vals[i]. Offsets without a mapping become
// target, the cardinality of the dictionary vals address, which matches no
// entry there. keys need not be sorted but must be distinct.
// The result is as wide as o unless target needs a short offset.
func Renumber(o *offsets.Array, keys, vals []int64, n, target int) (*offsets.Array, error) {
	if len(keys) != len(vals) {
		return nil, column.Errorf("renumber", column.ErrMalformedInput, "%d keys for %d values", len(keys), len(vals))
	}
	m, err := newOffsetMap(keys, vals, n, target)
	if err != nil {
		return nil, err
	}

	w := o.Width()
	if !w.Fits(target) {
		w = offsets.Short
		if !w.Fits(target) {
			return nil, column.Errorf("renumber", column.ErrCapacity, "target dictionary of %d entries exceeds a short offset", target)
		}
	}

	res := offsets.New(w, o.Len())
	res.Hseqbase = o.Hseqbase
	res.Props = column.UnknownProps()
	res.Props.NoNil = true
	for i := range o.Len() {
		if x, ok := m.get(o.At(i)); ok {
			res.Set(i, x)
		} else {
			res.Set(i, target)
		}
	}
	rowsProcessed.WithLabelValues(pathRenumber).Add(float64(o.Len()))
	return res, nil
}
