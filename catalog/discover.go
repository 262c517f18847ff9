// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package catalog

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/sourcegraph/conc/pool"
	"github.com/thanos-io/objstore"

	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/dict"
	"github.com/thanos-io/column-codec/internal/slogerrcapture"
	"github.com/thanos-io/column-codec/offsets"
	"github.com/thanos-io/column-codec/schema"
)

// Load discovers every persisted column in the bucket and loads it. Columns
// with changes that were not flushed yet keep their in-memory state.
func (c *Catalog) Load(ctx context.Context) error {
	type columnRef struct {
		table, column string
	}
	refs := make([]columnRef, 0)

	err := c.bkt.Iter(ctx, "", func(n string) error {
		table, col, file, ok := schema.SplitColumnPath(n)
		if !ok || file != schema.MetaFile {
			return nil
		}
		refs = append(refs, columnRef{table: table, column: col})
		return nil
	}, objstore.WithRecursiveIter())
	if err != nil {
		return fmt.Errorf("unable to iterate bucket: %w", err)
	}

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError().WithMaxGoroutines(c.concurrency)
	for _, ref := range refs {
		p.Go(func(ctx context.Context) error {
			if err := c.loadColumn(ctx, ref.table, ref.column); err != nil {
				return fmt.Errorf("unable to load column %s/%s: %w", ref.table, ref.column, err)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}
	syncLastSuccessfulTime.SetToCurrentTime()
	return nil
}

// loadColumn reads one column; concurrent loads of the same column share one read.
func (c *Catalog) loadColumn(ctx context.Context, tableName, columnName string) error {
	_, err, _ := c.sf.Do(schema.ColumnPath(tableName, columnName), func() (any, error) {
		m, err := readMetaFile(ctx, c.bkt, tableName, columnName, c.l)
		if err != nil {
			return nil, err
		}
		if m.Table != tableName || m.Column != columnName {
			return nil, column.Errorf("load", column.ErrMalformedInput, "meta file of %s/%s describes %s/%s", tableName, columnName, m.Table, m.Column)
		}
		st, err := loadStorage(ctx, c.bkt, m, c.l)
		if err != nil {
			return nil, err
		}
		c.install(m, st)
		return nil, nil
	})
	return err
}

func (c *Catalog) install(m schema.Meta, st storage) {
	c.mu.Lock()
	t, ok := c.tables[m.Table]
	if !ok {
		t = &table{columns: make(map[string]*entry)}
		c.tables[m.Table] = t
	}
	c.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.columns[m.Column]
	if !ok {
		e = &entry{table: m.Table, column: m.Column}
		t.columns[m.Column] = e
		columnsTotal.Inc()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dirty.Load() {
		c.l.Warn("Keeping unflushed column over persisted state", slog.String("table", m.Table), slog.String("column", m.Column))
		return
	}
	e.id, e.st, e.updated = m.ID, st, time.UnixMilli(m.UpdatedMs)
	columnsLoaded.WithLabelValues(string(m.Storage)).Inc()
}

func loadStorage(ctx context.Context, bkt objstore.Bucket, m schema.Meta, l *slog.Logger) (storage, error) {
	switch m.Type {
	case schema.Int8:
		return load[int8](ctx, bkt, m, l)
	case schema.Int16:
		return load[int16](ctx, bkt, m, l)
	case schema.Int32:
		return load[int32](ctx, bkt, m, l)
	case schema.Int64:
		return load[int64](ctx, bkt, m, l)
	case schema.Float64:
		return load[float64](ctx, bkt, m, l)
	case schema.String:
		return load[string](ctx, bkt, m, l)
	}
	return nil, column.Errorf("load", column.ErrMalformedInput, "unknown value type %q", m.Type)
}

func load[T cmp.Ordered](ctx context.Context, bkt objstore.Bucket, m schema.Meta, l *slog.Logger) (storage, error) {
	st, err := loadState[T](ctx, bkt, m, l)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func loadState[T cmp.Ordered](ctx context.Context, bkt objstore.Bucket, m schema.Meta, l *slog.Logger) (*state[T], error) {
	st := newState[T](nil)

	if m.Storage == schema.Plain {
		rows, err := readParquet[schema.ValueRow[T]](ctx, bkt, schema.ValuesPfileNameForColumn(m.Table, m.Column), l)
		if err != nil {
			return nil, err
		}
		if int64(len(rows)) != m.Rows {
			return nil, column.Errorf("load", column.ErrMalformedInput, "read %d values, meta has %d", len(rows), m.Rows)
		}
		st.plain = columnOf(rows)
		return st, nil
	}

	orows, err := readParquet[schema.OffsetRow](ctx, bkt, schema.OffsetsPfileNameForColumn(m.Table, m.Column), l)
	if err != nil {
		return nil, err
	}
	if int64(len(orows)) != m.Rows {
		return nil, column.Errorf("load", column.ErrMalformedInput, "read %d offsets, meta has %d", len(orows), m.Rows)
	}
	limit := m.Width.Ceiling()
	if m.Storage == schema.FOR {
		limit = m.Width.Range()
	}
	o := offsets.New(m.Width, len(orows))
	for i, r := range orows {
		if r.Offset < 0 || int(r.Offset) > limit {
			return nil, column.Errorf("load", column.ErrMalformedInput, "offset %d at row %d exceeds %d", r.Offset, i, limit)
		}
		o.Set(i, int(r.Offset))
	}
	st.offsets = o

	switch m.Storage {
	case schema.Dict:
		drows, err := readParquet[schema.ValueRow[T]](ctx, bkt, schema.DictionaryPfileNameForColumn(m.Table, m.Column), l)
		if err != nil {
			return nil, err
		}
		if int64(len(drows)) != m.DictionaryRows {
			return nil, column.Errorf("load", column.ErrMalformedInput, "read %d dictionary entries, meta has %d", len(drows), m.DictionaryRows)
		}
		values := columnOf(drows)
		if m.DictionarySorted && !values.Props.Sorted {
			return nil, column.Errorf("load", column.ErrMalformedInput, "dictionary of %s/%s is not sorted", m.Table, m.Column)
		}
		if !m.DictionarySorted {
			values.Props.Sorted = false
		}
		d, err := dict.NewDictionary(values)
		if err != nil {
			return nil, err
		}
		for i := range o.Len() {
			if o.At(i) >= d.Len() {
				return nil, column.Errorf("load", column.ErrMalformedInput, "offset %d at row %d exceeds dictionary of %d entries", o.At(i), i, d.Len())
			}
		}
		st.kind, st.dict = schema.Dict, d
		st.refreshNulls()
	case schema.FOR:
		if st.frame == nil {
			return nil, column.Errorf("load", column.ErrMalformedInput, "%s columns cannot be frame of reference encoded", m.Type)
		}
		st.kind, st.minimum = schema.FOR, st.frame.fromInt64(m.Minimum)
		o.Props.NoNil = true
	}
	return st, nil
}

func columnOf[T cmp.Ordered](rows []schema.ValueRow[T]) *column.Column[T] {
	values := make([]T, len(rows))
	nulls := make([]bool, len(rows))
	for i, r := range rows {
		if r.Value == nil {
			nulls[i] = true
			continue
		}
		values[i] = *r.Value
	}
	return column.NewNullable(values, nulls)
}

func readParquet[R any](ctx context.Context, bkt objstore.Bucket, name string, l *slog.Logger) ([]R, error) {
	rdr, err := bkt.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("unable to get %s: %w", name, err)
	}
	defer slogerrcapture.Do(l, rdr.Close, "closing parquet file reader %s", name)

	bs, err := io.ReadAll(rdr)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", name, err)
	}
	rows, err := parquet.Read[R](bytes.NewReader(bs), int64(len(bs)))
	if err != nil {
		return nil, fmt.Errorf("unable to read rows of %s: %w", name, err)
	}
	return rows, nil
}

func readMetaFile(ctx context.Context, bkt objstore.Bucket, tableName, columnName string, l *slog.Logger) (schema.Meta, error) {
	mfile := schema.MetaFileNameForColumn(tableName, columnName)
	rdr, err := bkt.Get(ctx, mfile)
	if err != nil {
		return schema.Meta{}, fmt.Errorf("unable to get %s: %w", mfile, err)
	}
	defer slogerrcapture.Do(l, rdr.Close, "closing meta file reader %s", mfile)

	bs, err := io.ReadAll(rdr)
	if err != nil {
		return schema.Meta{}, fmt.Errorf("unable to read %s: %w", mfile, err)
	}
	m, err := schema.DecodeMeta(bs)
	if err != nil {
		return schema.Meta{}, fmt.Errorf("unable to decode %s: %w", mfile, err)
	}
	return m, nil
}
