// Copyright (c) 2025 Cloudflare, Inc.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package schema

import (
	"cmp"
	"fmt"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// StorageKind is how the values of a column are laid out.
type StorageKind string

const (
	Plain StorageKind = "plain"
	Dict  StorageKind = "dict"
	FOR   StorageKind = "for"
)

type ValueType string

const (
	Int8    ValueType = "int8"
	Int16   ValueType = "int16"
	Int32   ValueType = "int32"
	Int64   ValueType = "int64"
	Float64 ValueType = "float64"
	String  ValueType = "string"
)

var ValueTypes = []ValueType{Int8, Int16, Int32, Int64, Float64, String}

func ParseValueType(s string) (ValueType, error) {
	for _, vt := range ValueTypes {
		if string(vt) == s {
			return vt, nil
		}
	}
	return "", fmt.Errorf("unknown value type %q", s)
}

// Integer reports whether columns of this type can be frame of reference encoded.
func (vt ValueType) Integer() bool {
	switch vt {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

// ValueTypeOf returns the value type stored for Go type T.
func ValueTypeOf[T cmp.Ordered]() (ValueType, error) {
	switch any(*new(T)).(type) {
	case int8:
		return Int8, nil
	case int16:
		return Int16, nil
	case int32:
		return Int32, nil
	case int64:
		return Int64, nil
	case float64:
		return Float64, nil
	case string:
		return String, nil
	}
	var zero T
	return "", fmt.Errorf("unsupported value type %T", zero)
}

// ParseValue parses s as a value of type T.
func ParseValue[T cmp.Ordered](s string) (T, error) {
	var (
		res any
		err error
	)
	switch any(*new(T)).(type) {
	case int8:
		var v int64
		v, err = strconv.ParseInt(s, 10, 8)
		res = int8(v)
	case int16:
		var v int64
		v, err = strconv.ParseInt(s, 10, 16)
		res = int16(v)
	case int32:
		var v int64
		v, err = strconv.ParseInt(s, 10, 32)
		res = int32(v)
	case int64:
		res, err = strconv.ParseInt(s, 10, 64)
	case float64:
		res, err = strconv.ParseFloat(s, 64)
	case string:
		res = s
	default:
		var zero T
		return zero, fmt.Errorf("unsupported value type %T", zero)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("unable to parse %q: %w", s, err)
	}
	return res.(T), nil
}

// OffsetRow is one row of an offsets file.
type OffsetRow struct {
	Offset int32 `parquet:"offset"`
}

// ValueRow is one row of a dictionary or values file, nil for null.
type ValueRow[T cmp.Ordered] struct {
	Value *T `parquet:"value,optional"`
}

func OffsetsSchema() *parquet.Schema {
	return WithCompression(parquet.SchemaOf(OffsetRow{}))
}

func ValuesSchema[T cmp.Ordered]() *parquet.Schema {
	return WithCompression(parquet.SchemaOf(ValueRow[T]{}))
}

func WithCompression(s *parquet.Schema) *parquet.Schema {
	g := make(parquet.Group)

	for _, c := range s.Columns() {
		lc, _ := s.Lookup(c...)
		g[lc.Path[0]] = parquet.Compressed(lc.Node, &zstd.Codec{Level: zstd.SpeedBetterCompression, Concurrency: 4})
	}

	return parquet.NewSchema("compressed", g)
}
