// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package dict

import (
	"slices"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"

	"github.com/thanos-io/column-codec/column"
)

func FuzzCompressRoundTrip(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		fz := fuzz.NewConsumer(data)

		var (
			in      []string
			extra   []string
			ordered bool
		)
		fz.CreateSlice(&in)
		fz.CreateSlice(&extra)
		ordered, _ = fz.GetBool()

		o, d, err := Compress(column.New(in), ordered, false, false)
		if err != nil {
			t.Fatalf("unable to compress: %s", err)
		}
		app, ok := PrepareAppend(column.New(extra), d)
		if !ok {
			t.Skip("dictionary overflow")
		}
		if wide, err := o.Widen(max(o.Width(), app.Width())); err != nil {
			t.Fatalf("unable to widen: %s", err)
		} else {
			o = wide
		}
		if err := o.Concat(app); err != nil {
			t.Fatalf("unable to concat: %s", err)
		}

		res, err := Decompress(o, d)
		if err != nil {
			t.Fatalf("unable to decompress: %s", err)
		}
		if expect := append(slices.Clone(in), extra...); slices.Compare(res.Values(), expect) != 0 {
			t.Fatalf("decoded %q did not match expected %q", res.Values(), expect)
		}
	})
}
