// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/alecthomas/units"
	"github.com/parquet-go/parquet-go"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/thanos-io/column-codec/catalog"
	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/internal/slogerrcapture"
	"github.com/thanos-io/column-codec/schema"
)

type compressOpts struct {
	bucket  bucketOpts
	catalog catalogOpts
	source  sourceOpts

	table   string
	column  string
	storage string
	ordered bool
}

type sourceOpts struct {
	file           string
	column         string
	valueType      string
	readBufferSize units.Base2Bytes
}

func (opts *compressOpts) registerFlags(cmd *kingpin.CmdClause) {
	opts.bucket.registerFlags(cmd)
	opts.catalog.registerFlags(cmd)
	opts.source.registerFlags(cmd)

	cmd.Flag("compress.table", "table to add the column to, created if missing").Required().StringVar(&opts.table)
	cmd.Flag("compress.column", "name of the column in the catalog, defaults to the source column").StringVar(&opts.column)
	cmd.Flag("compress.storage", "storage of the persisted column").Default(string(schema.Dict)).EnumVar(&opts.storage, string(schema.Plain), string(schema.Dict), string(schema.FOR))
	cmd.Flag("compress.ordered", "keep the dictionary sorted so offsets compare like values").Default("true").BoolVar(&opts.ordered)
}

func (opts *sourceOpts) registerFlags(cmd *kingpin.CmdClause) {
	types := make([]string, 0, len(schema.ValueTypes))
	for _, vt := range schema.ValueTypes {
		types = append(types, string(vt))
	}
	cmd.Flag("source.file", "parquet file to read the column from").Required().ExistingFileVar(&opts.file)
	cmd.Flag("source.column", "column path in the parquet file").Required().StringVar(&opts.column)
	cmd.Flag("source.type", "value type of the column, inferred from the parquet schema if empty").EnumVar(&opts.valueType, types...)
	cmd.Flag("source.read-buffer-size", "read buffer size for the parquet file").Default("2MiB").BytesVar(&opts.readBufferSize)
}

func registerCompressApp(app *kingpin.Application) (*kingpin.CmdClause, func(context.Context, *slog.Logger, *prometheus.Registry) error) {
	cmd := app.Command("compress", "load a column from a parquet file, encode it and persist it to the catalog")

	var opts compressOpts
	opts.registerFlags(cmd)

	return cmd, func(ctx context.Context, log *slog.Logger, _ *prometheus.Registry) error {
		if opts.column == "" {
			opts.column = opts.source.column
		}

		bkt, err := setupBucket(log, opts.bucket)
		if err != nil {
			return fmt.Errorf("unable to setup bucket: %w", err)
		}
		defer slogerrcapture.Do(log, bkt.Close, "closing bucket")

		cat, err := setupCatalog(log, bkt, opts.catalog)
		if err != nil {
			return fmt.Errorf("unable to setup catalog: %w", err)
		}
		if err := cat.Load(ctx); err != nil {
			return fmt.Errorf("unable to load catalog: %w", err)
		}
		if !slices.Contains(cat.Tables(), opts.table) {
			if err := cat.CreateTable(opts.table); err != nil {
				return fmt.Errorf("unable to create table: %w", err)
			}
		}

		if err := importColumn(log, cat, opts.table, opts.column, opts.source); err != nil {
			return fmt.Errorf("unable to import column: %w", err)
		}

		switch schema.StorageKind(opts.storage) {
		case schema.Dict:
			err = cat.CompressDict(ctx, opts.table, opts.column, opts.ordered)
		case schema.FOR:
			err = cat.CompressFOR(ctx, opts.table, opts.column)
		}
		if err != nil {
			return fmt.Errorf("unable to compress column: %w", err)
		}
		if err := cat.Flush(ctx); err != nil {
			return fmt.Errorf("unable to persist catalog: %w", err)
		}

		m, err := cat.Meta(opts.table, opts.column)
		if err != nil {
			return fmt.Errorf("unable to read column meta: %w", err)
		}
		log.Info("Compressed column",
			slog.String("table", m.Table),
			slog.String("column", m.Column),
			slog.String("type", string(m.Type)),
			slog.String("storage", string(m.Storage)),
			slog.Int64("rows", m.Rows),
			slog.Int64("dictionary_rows", m.DictionaryRows),
			slog.String("width", m.Width.String()),
		)
		return nil
	}
}

func importColumn(log *slog.Logger, cat *catalog.Catalog, table, col string, opts sourceOpts) error {
	f, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("unable to open parquet file: %w", err)
	}
	defer slogerrcapture.Do(log, f.Close, "closing parquet file %s", opts.file)

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("unable to stat parquet file: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size(),
		parquet.ReadBufferSize(int(opts.readBufferSize)),
		parquet.SkipBloomFilters(true),
	)
	if err != nil {
		return fmt.Errorf("unable to read parquet file: %w", err)
	}

	lc, ok := pf.Schema().Lookup(opts.column)
	if !ok {
		return fmt.Errorf("column %q not found in %s", opts.column, opts.file)
	}
	if lc.MaxRepetitionLevel > 0 {
		return fmt.Errorf("column %q is repeated", opts.column)
	}

	vt := schema.ValueType(opts.valueType)
	if vt == "" {
		if vt, err = inferValueType(lc.Node); err != nil {
			return err
		}
	}
	log.Info("Importing column", slog.String("source", opts.column), slog.String("type", string(vt)), slog.Int64("rows", pf.NumRows()))

	switch vt {
	case schema.Int8:
		return importAs(log, cat, table, col, pf, lc.ColumnIndex, intValue[int8])
	case schema.Int16:
		return importAs(log, cat, table, col, pf, lc.ColumnIndex, intValue[int16])
	case schema.Int32:
		return importAs(log, cat, table, col, pf, lc.ColumnIndex, intValue[int32])
	case schema.Int64:
		return importAs(log, cat, table, col, pf, lc.ColumnIndex, intValue[int64])
	case schema.Float64:
		return importAs(log, cat, table, col, pf, lc.ColumnIndex, floatValue)
	case schema.String:
		return importAs(log, cat, table, col, pf, lc.ColumnIndex, stringValue)
	}
	return fmt.Errorf("unsupported value type %q", vt)
}

func inferValueType(n parquet.Node) (schema.ValueType, error) {
	typ := n.Type()
	switch typ.Kind() {
	case parquet.Int32:
		if lt := typ.LogicalType(); lt != nil && lt.Integer != nil {
			switch lt.Integer.BitWidth {
			case 8:
				return schema.Int8, nil
			case 16:
				return schema.Int16, nil
			}
		}
		return schema.Int32, nil
	case parquet.Int64:
		return schema.Int64, nil
	case parquet.Float, parquet.Double:
		return schema.Float64, nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return schema.String, nil
	}
	return "", fmt.Errorf("unable to infer value type of parquet kind %s", typ.Kind())
}

var errValueRange = errors.New("value out of range")

func intValue[T int8 | int16 | int32 | int64](v parquet.Value) (T, error) {
	var x int64
	switch v.Kind() {
	case parquet.Int32:
		x = int64(v.Int32())
	case parquet.Int64:
		x = v.Int64()
	default:
		return 0, fmt.Errorf("unable to read %s as integer", v.Kind())
	}
	var lo, hi int64
	switch any(T(0)).(type) {
	case int8:
		lo, hi = math.MinInt8, math.MaxInt8
	case int16:
		lo, hi = math.MinInt16, math.MaxInt16
	case int32:
		lo, hi = math.MinInt32, math.MaxInt32
	default:
		lo, hi = math.MinInt64, math.MaxInt64
	}
	if x < lo || x > hi {
		return 0, fmt.Errorf("%w: %d", errValueRange, x)
	}
	return T(x), nil
}

func floatValue(v parquet.Value) (float64, error) {
	switch v.Kind() {
	case parquet.Float:
		return float64(v.Float()), nil
	case parquet.Double:
		return v.Double(), nil
	}
	return 0, fmt.Errorf("unable to read %s as float", v.Kind())
}

func stringValue(v parquet.Value) (string, error) {
	switch v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray()), nil
	}
	return "", fmt.Errorf("unable to read %s as string", v.Kind())
}

func importAs[T cmp.Ordered](log *slog.Logger, cat *catalog.Catalog, table, col string, pf *parquet.File, columnIndex int, conv func(parquet.Value) (T, error)) error {
	c, err := readColumn(log, pf, columnIndex, conv)
	if err != nil {
		return err
	}
	return catalog.AddColumn(cat, table, col, c)
}

func readColumn[T cmp.Ordered](log *slog.Logger, pf *parquet.File, columnIndex int, conv func(parquet.Value) (T, error)) (*column.Column[T], error) {
	var (
		values = make([]T, 0, pf.NumRows())
		nulls  = make([]bool, 0, pf.NumRows())
		buf    = make([]parquet.Value, 1024)
	)
	for _, rg := range pf.RowGroups() {
		if err := func() error {
			pgs := rg.ColumnChunks()[columnIndex].Pages()
			defer slogerrcapture.Do(log, pgs.Close, "column chunk pages close")

			for {
				pg, err := pgs.ReadPage()
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return fmt.Errorf("unable to read page: %w", err)
				}
				if err := readPage(pg, buf, conv, &values, &nulls); err != nil {
					parquet.Release(pg)
					return err
				}
				parquet.Release(pg)
			}
		}(); err != nil {
			return nil, err
		}
	}
	return column.NewNullable(values, nulls), nil
}

func readPage[T cmp.Ordered](pg parquet.Page, buf []parquet.Value, conv func(parquet.Value) (T, error), values *[]T, nulls *[]bool) error {
	vr := pg.Values()
	for {
		n, err := vr.ReadValues(buf)
		for _, v := range buf[:n] {
			if v.IsNull() {
				var zero T
				*values = append(*values, zero)
				*nulls = append(*nulls, true)
				continue
			}
			x, cerr := conv(v)
			if cerr != nil {
				return cerr
			}
			*values = append(*values, x)
			*nulls = append(*nulls, false)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("unable to read page values: %w", err)
		}
	}
}
