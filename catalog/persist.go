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
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/parquet-go/parquet-go"
	"github.com/thanos-io/objstore"
	"golang.org/x/sync/errgroup"

	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/schema"
)

// Flush persists every column that changed since it was last persisted.
// Failing columns stay marked as changed and are retried by the next flush.
func (c *Catalog) Flush(ctx context.Context) error {
	var (
		mu   sync.Mutex
		merr *multierror.Error
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, e := range c.entries() {
		if !e.dirty.Load() {
			continue
		}
		g.Go(func() error {
			e.mu.RLock()
			defer e.mu.RUnlock()

			if err := c.persistEntry(ctx, e); err != nil {
				mu.Lock()
				merr = multierror.Append(merr, fmt.Errorf("unable to persist %s/%s: %w", e.table, e.column, err))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return merr.ErrorOrNil()
}

// persistEntry writes the data files of the column followed by its meta file.
// Callers hold a lock on the entry.
func (c *Catalog) persistEntry(ctx context.Context, e *entry) error {
	start := time.Now()
	if !e.dirty.Swap(false) {
		return nil
	}
	m := e.meta()
	if err := e.st.persist(ctx, c, e.table, e.column); err != nil {
		e.dirty.Store(true)
		persistFailures.Inc()
		return err
	}
	if err := c.writeMetaFile(ctx, m); err != nil {
		e.dirty.Store(true)
		persistFailures.Inc()
		return err
	}
	persistDuration.WithLabelValues(string(m.Storage)).Observe(time.Since(start).Seconds())
	return nil
}

func (s *state[T]) persist(ctx context.Context, c *Catalog, tableName, columnName string) error {
	var (
		keep  []string
		files = []string{
			schema.ValuesPfileNameForColumn(tableName, columnName),
			schema.OffsetsPfileNameForColumn(tableName, columnName),
			schema.DictionaryPfileNameForColumn(tableName, columnName),
		}
	)
	switch s.kind {
	case schema.Plain:
		if err := writeParquet(ctx, c, files[0], schema.ValuesSchema[T](), valueRows(s.plain)); err != nil {
			return fmt.Errorf("unable to write values: %w", err)
		}
		keep = files[:1]
	case schema.Dict:
		if err := writeParquet(ctx, c, files[1], schema.OffsetsSchema(), offsetRows(s.offsets.Ints())); err != nil {
			return fmt.Errorf("unable to write offsets: %w", err)
		}
		if err := writeParquet(ctx, c, files[2], schema.ValuesSchema[T](), valueRows(s.dict.Values())); err != nil {
			return fmt.Errorf("unable to write dictionary: %w", err)
		}
		keep = files[1:]
	case schema.FOR:
		if err := writeParquet(ctx, c, files[1], schema.OffsetsSchema(), offsetRows(s.offsets.Ints())); err != nil {
			return fmt.Errorf("unable to write offsets: %w", err)
		}
		keep = files[1:2]
	}
	for _, f := range files {
		if slices.Contains(keep, f) {
			continue
		}
		if err := removeIfExists(ctx, c.bkt, f); err != nil {
			return fmt.Errorf("unable to remove stale %s: %w", f, err)
		}
	}
	return nil
}

func removeIfExists(ctx context.Context, bkt objstore.Bucket, name string) error {
	ok, err := bkt.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return bkt.Delete(ctx, name)
}

func valueRows[T cmp.Ordered](values *column.Column[T]) []schema.ValueRow[T] {
	rows := make([]schema.ValueRow[T], values.Len())
	vs := values.Values()
	for i := range rows {
		if values.IsNull(i) {
			continue
		}
		rows[i].Value = &vs[i]
	}
	return rows
}

func offsetRows(os []int) []schema.OffsetRow {
	rows := make([]schema.OffsetRow, len(os))
	for i, o := range os {
		rows[i].Offset = int32(o)
	}
	return rows
}

func writeParquet[R any](ctx context.Context, c *Catalog, name string, s *parquet.Schema, rows []R) error {
	out := c.bufferPool.GetBuffer()
	defer c.bufferPool.PutBuffer(out)

	writer := parquet.NewGenericWriter[R](out, s)
	for i := 0; i < len(rows); i += c.rowGroupSize {
		if _, err := writer.Write(rows[i:min(i+c.rowGroupSize, len(rows))]); err != nil {
			return fmt.Errorf("unable to write rows: %w", err)
		}
		if err := writer.Flush(); err != nil {
			return fmt.Errorf("unable to flush row group: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("unable to close writer: %w", err)
	}
	if _, err := out.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("unable to rewind temporary buffer: %w", err)
	}
	if err := c.bkt.Upload(ctx, name, out); err != nil {
		return fmt.Errorf("unable to upload parquet file: %w", err)
	}
	return nil
}

func (c *Catalog) writeMetaFile(ctx context.Context, m schema.Meta) error {
	bs, err := schema.EncodeMeta(m)
	if err != nil {
		return err
	}
	if err := c.bkt.Upload(ctx, schema.MetaFileNameForColumn(m.Table, m.Column), bytes.NewReader(bs)); err != nil {
		return fmt.Errorf("unable to upload meta file: %w", err)
	}
	return nil
}
