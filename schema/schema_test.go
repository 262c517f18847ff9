// Copyright (c) 2025 Cloudflare, Inc.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package schema

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/oklog/ulid/v2"
	"github.com/parquet-go/parquet-go"

	"github.com/thanos-io/column-codec/offsets"
)

func TestSplitColumnPath(t *testing.T) {
	for _, tt := range []struct {
		name   string
		table  string
		column string
		file   string
		ok     bool
	}{
		{name: "orders/price/meta.json", table: "orders", column: "price", file: MetaFile, ok: true},
		{name: OffsetsPfileNameForColumn("t", "c"), table: "t", column: "c", file: OffsetsFile, ok: true},
		{name: "orders/price", ok: false},
		{name: "orders/price/x/meta.json", ok: false},
		{name: "1orders/price/meta.json", ok: false},
		{name: "orders//meta.json", ok: false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			table, column, file, ok := SplitColumnPath(tt.name)
			if ok != tt.ok {
				t.Fatalf("Expected %v to match %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if table != tt.table || column != tt.column || file != tt.file {
				t.Fatalf("Unexpected split %q %q %q", table, column, file)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	if v, err := ParseValue[int8]("-12"); err != nil || v != -12 {
		t.Fatalf("Unexpected %v %v", v, err)
	}
	if _, err := ParseValue[int8]("300"); err == nil {
		t.Fatalf("Expected out of range value to fail")
	}
	if v, err := ParseValue[float64]("1.5"); err != nil || v != 1.5 {
		t.Fatalf("Unexpected %v %v", v, err)
	}
	if v, err := ParseValue[string]("abc"); err != nil || v != "abc" {
		t.Fatalf("Unexpected %v %v", v, err)
	}
	if vt, err := ValueTypeOf[int16](); err != nil || vt != Int16 {
		t.Fatalf("Unexpected %v %v", vt, err)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	m := Meta{
		ID:               ulid.Make(),
		Table:            "orders",
		Column:           "region",
		Type:             String,
		Storage:          Dict,
		Rows:             1000,
		Width:            offsets.Byte,
		DictionaryRows:   12,
		DictionarySorted: true,
		UpdatedMs:        1700000000000,
	}
	bs, err := EncodeMeta(m)
	if err != nil {
		t.Fatalf("unable to encode meta: %s", err)
	}
	got, err := DecodeMeta(bs)
	if err != nil {
		t.Fatalf("unable to decode meta: %s", err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Fatalf("unexpected meta (-want +got):\n%s", diff)
	}
}

func TestMetaValidate(t *testing.T) {
	for _, tt := range []struct {
		name string
		meta Meta
		ok   bool
	}{
		{name: "plain", meta: Meta{Table: "t", Column: "c", Type: Float64, Storage: Plain, Rows: 3}, ok: true},
		{name: "for", meta: Meta{Table: "t", Column: "c", Type: Int32, Storage: FOR, Width: offsets.Short, Minimum: -4}, ok: true},
		{name: "for on strings", meta: Meta{Table: "t", Column: "c", Type: String, Storage: FOR, Width: offsets.Byte}},
		{name: "dict without width", meta: Meta{Table: "t", Column: "c", Type: Int8, Storage: Dict, DictionaryRows: 3}},
		{name: "plain with width", meta: Meta{Table: "t", Column: "c", Type: Int8, Storage: Plain, Width: offsets.Byte}},
		{name: "bad name", meta: Meta{Table: "t/x", Column: "c", Type: Int8, Storage: Plain}},
		{name: "unknown type", meta: Meta{Table: "t", Column: "c", Type: "uint8", Storage: Plain}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.meta.Validate(); (err == nil) != tt.ok {
				t.Fatalf("Expected valid=%v, got %v", tt.ok, err)
			}
		})
	}
}

func TestValuesSchemaRoundTrip(t *testing.T) {
	v0, v2 := "a", "c"
	rows := []ValueRow[string]{{Value: &v0}, {}, {Value: &v2}}

	buf := bytes.NewBuffer(nil)
	w := parquet.NewGenericWriter[ValueRow[string]](buf, ValuesSchema[string]())
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("unable to write rows: %s", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unable to close writer: %s", err)
	}

	got, err := parquet.Read[ValueRow[string]](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("unable to read rows: %s", err)
	}
	if diff := cmp.Diff(rows, got); diff != "" {
		t.Fatalf("unexpected rows (-want +got):\n%s", diff)
	}
}
