// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package dict

import (
	"cmp"

	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/offsets"
)

// PrepareAppend encodes values against d, growing d with every value it does
// not hold yet. The offsets start out in byte width while d has room for
// byte offsets and switch to short width the moment d outgrows it.
//
// It returns false if d would have to grow beyond a short offset; the column
// must then be decompressed. Entries added before that point stay in d.
func PrepareAppend[T cmp.Ordered](values *column.Column[T], d *Dictionary[T]) (*offsets.Array, bool) {
	w := offsets.Byte
	if d.Len() > offsets.ByteCeiling {
		w = offsets.Short
	}
	res := offsets.Make(w, values.Len())
	for i := range values.Len() {
		v, ok := values.Value(i)
		p, found := d.ProbeValue(v, !ok)
		if !found {
			if d.Len() >= offsets.ShortCeiling {
				appendsRejected.Inc()
				return nil, false
			}
			if res.Width() == offsets.Byte && d.Len() >= offsets.ByteCeiling {
				// growing past 255 entries needs short offsets
				wide, err := res.Widen(offsets.Short)
				if err != nil {
					return nil, false
				}
				res = wide
				appendsWidened.Inc()
			}
			var err error
			if p, err = d.ProbeOrGrow(v, !ok); err != nil {
				return nil, false
			}
		}
		res.Append(p)
	}
	res.Props.Nil = values.HasNulls()
	res.Props.NoNil = !res.Props.Nil
	return res, true
}
