// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package catalog

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"

	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/internal/log"
	"github.com/thanos-io/column-codec/internal/tracing"
)

// CompressDict dictionary encodes a column and persists the encoding.
func (c *Catalog) CompressDict(ctx context.Context, tableName, columnName string, ordered bool) error {
	return c.compress(ctx, tableName, columnName, "dict compress", func(st storage) error {
		return st.compressDict(ordered)
	})
}

// CompressFOR frame of reference encodes an integer column and persists the encoding.
func (c *Catalog) CompressFOR(ctx context.Context, tableName, columnName string) error {
	return c.compress(ctx, tableName, columnName, "for compress", func(st storage) error {
		return st.compressFOR()
	})
}

// Decompress stores a column plain again and persists it.
func (c *Catalog) Decompress(ctx context.Context, tableName, columnName string) error {
	return c.compress(ctx, tableName, columnName, "decompress", func(st storage) error {
		return st.decompress(reasonRequest)
	})
}

func (c *Catalog) compress(ctx context.Context, tableName, columnName, op string, f func(storage) error) error {
	ctx, span := tracing.Tracer().Start(ctx, op)
	defer span.End()

	h, err := c.Bind(tableName, columnName, ReadWrite)
	if err != nil {
		return err
	}
	defer h.Release()

	if err := f(h.e.st); err != nil {
		return column.Wrap(op, err)
	}
	h.e.touch()

	m := h.e.meta()
	log.Ctx(ctx).Info("Column encoding changed",
		slog.String("table", tableName),
		slog.String("column", columnName),
		slog.String("storage", string(m.Storage)),
		slog.Int64("rows", m.Rows),
		slog.String("width", m.Width.String()),
	)
	if err := c.persistEntry(ctx, h.e); err != nil {
		return fmt.Errorf("unable to persist encoding of %s/%s: %w", tableName, columnName, err)
	}
	return nil
}

// Append adds values to the end of a column. Encoded columns stay encoded
// while the values fit the encoding and are decompressed otherwise.
func Append[T cmp.Ordered](ctx context.Context, c *Catalog, tableName, columnName string, values *column.Column[T]) error {
	_, span := tracing.Tracer().Start(ctx, "Append")
	defer span.End()

	h, err := c.Bind(tableName, columnName, ReadWrite)
	if err != nil {
		return err
	}
	defer h.Release()

	st, err := stateOf[T]("append", h)
	if err != nil {
		return err
	}
	if err := st.append(values); err != nil {
		return column.Wrap("append", err)
	}
	h.e.touch()
	rowsAppended.Add(float64(values.Len()))
	return nil
}

// Update overwrites the rows tids with values.
func Update[T cmp.Ordered](ctx context.Context, c *Catalog, tableName, columnName string, tids []int64, values *column.Column[T]) error {
	_, span := tracing.Tracer().Start(ctx, "Update")
	defer span.End()

	h, err := c.Bind(tableName, columnName, ReadWrite)
	if err != nil {
		return err
	}
	defer h.Release()

	st, err := stateOf[T]("update", h)
	if err != nil {
		return err
	}
	if err := st.update(tids, values); err != nil {
		return column.Wrap("update", err)
	}
	h.e.touch()
	rowsUpdated.Add(float64(len(tids)))
	return nil
}
