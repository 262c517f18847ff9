// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"
	"github.com/thanos-io/objstore/providers/filesystem"

	"github.com/thanos-io/column-codec/catalog"
	"github.com/thanos-io/column-codec/offsets"
	"github.com/thanos-io/column-codec/schema"
)

type sourceRow struct {
	Status *string `parquet:"status,optional"`
	Qty    int32   `parquet:"qty"`
	Small  int16   `parquet:"small"`
	Price  float32 `parquet:"price"`
}

func writeSourceFile(t *testing.T, rows []sourceRow) string {
	t.Helper()

	name := filepath.Join(t.TempDir(), "source.parquet")
	f, err := os.Create(name)
	require.NoError(t, err)
	defer f.Close()

	w := parquet.NewGenericWriter[sourceRow](f, parquet.MaxRowsPerRowGroup(3))
	_, err = w.Write(rows)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return name
}

func TestInferValueType(t *testing.T) {
	s := parquet.SchemaOf(sourceRow{})
	for _, tt := range []struct {
		column string
		want   schema.ValueType
	}{
		{column: "status", want: schema.String},
		{column: "qty", want: schema.Int32},
		{column: "small", want: schema.Int16},
		{column: "price", want: schema.Float64},
	} {
		t.Run(tt.column, func(t *testing.T) {
			lc, ok := s.Lookup(tt.column)
			require.True(t, ok)

			vt, err := inferValueType(lc.Node)
			require.NoError(t, err)
			require.Equal(t, tt.want, vt)
		})
	}
}

func TestIntValueRange(t *testing.T) {
	_, err := intValue[int8](parquet.Int32Value(128))
	require.ErrorIs(t, err, errValueRange)

	v, err := intValue[int8](parquet.Int32Value(-128))
	require.NoError(t, err)
	require.Equal(t, int8(-128), v)

	_, err = intValue[int32](parquet.ByteArrayValue([]byte("1")))
	require.Error(t, err)
}

func TestCompressAndVerify(t *testing.T) {
	ctx := t.Context()
	log := discardLogger()

	str := func(s string) *string { return &s }
	source := writeSourceFile(t, []sourceRow{
		{Status: str("open"), Qty: 100, Small: 1, Price: 1.5},
		{Status: str("closed"), Qty: 102, Small: 2, Price: 2.5},
		{Status: nil, Qty: 101, Small: 3, Price: 1.5},
		{Status: str("open"), Qty: 100, Small: 4, Price: 3},
		{Status: str("open"), Qty: 150, Small: 5, Price: 1.5},
	})

	dir := t.TempDir()
	bkt, err := filesystem.NewBucket(dir)
	require.NoError(t, err)

	cat, err := setupCatalog(log, bkt, catalogOpts{persistConcurrency: 2, rowGroupSize: 2, pageBufferSize: 4096})
	require.NoError(t, err)
	require.NoError(t, cat.CreateTable("orders"))

	for _, c := range []string{"status", "qty", "price"} {
		require.NoError(t, importColumn(log, cat, "orders", c, sourceOpts{file: source, column: c, readBufferSize: 4096}))
	}
	require.NoError(t, cat.CompressDict(ctx, "orders", "status", true))
	require.NoError(t, cat.CompressFOR(ctx, "orders", "qty"))
	require.NoError(t, cat.Flush(ctx))

	status, err := cat.Meta("orders", "status")
	require.NoError(t, err)
	require.Equal(t, schema.Dict, status.Storage)
	require.Equal(t, int64(5), status.Rows)
	require.Equal(t, int64(3), status.DictionaryRows)
	require.Equal(t, offsets.Byte, status.Width)

	qty, err := cat.Meta("orders", "qty")
	require.NoError(t, err)
	require.Equal(t, schema.FOR, qty.Storage)
	require.Equal(t, int64(100), qty.Minimum)

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	defer db.Close()

	reloaded, err := catalog.New(bkt)
	require.NoError(t, err)
	require.NoError(t, reloaded.Load(ctx))

	for _, c := range []string{"status", "qty", "price"} {
		m, err := reloaded.Meta("orders", c)
		require.NoError(t, err)
		require.NoError(t, verifyColumn(ctx, db, filepath.Join(dir, schema.ColumnPath("orders", c)), m), c)
	}

	t.Run("mismatching meta", func(t *testing.T) {
		m := status
		m.DictionaryRows = 2
		require.Error(t, verifyColumn(ctx, db, filepath.Join(dir, schema.ColumnPath("orders", "status")), m))
	})
	t.Run("download", func(t *testing.T) {
		tmp := t.TempDir()
		require.NoError(t, downloadColumn(ctx, bkt, "orders", "status", tmp, 2))
		require.NoError(t, verifyColumn(ctx, db, filepath.Join(tmp, schema.ColumnPath("orders", "status")), status))
	})
}
