// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package catalog

import (
	"cmp"
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/dict"
	"github.com/thanos-io/column-codec/internal/tracing"
	"github.com/thanos-io/column-codec/schema"
)

// Values materializes the column bound by h.
func Values[T cmp.Ordered](h *Handle) (*column.Column[T], error) {
	st, err := stateOf[T]("values", h)
	if err != nil {
		return nil, err
	}
	res, err := st.materialize()
	if err != nil {
		return nil, err
	}
	if st.kind == schema.Plain {
		return res.Clone(), nil
	}
	return res, nil
}

// Select returns the candidates of the column whose values lie between low and
// high, see column.Select for the meaning of the flags.
func Select[T cmp.Ordered](ctx context.Context, c *Catalog, tableName, columnName string, cand column.Candidates, low, high *T, li, hi, anti, unknown bool) (column.Candidates, error) {
	_, span := tracing.Tracer().Start(ctx, "Select")
	defer span.End()

	h, err := c.Bind(tableName, columnName, ReadOnly)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	st, err := stateOf[T]("select", h)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("column.storage", string(st.kind)))

	quota := c.queryQuota()
	if err := reserve("select", quota, st.rows()); err != nil {
		return nil, err
	}
	queriesTotal.WithLabelValues(opSelect, string(st.kind)).Inc()

	if st.kind == schema.Dict {
		return dict.Select(st.offsets, cand, st.dict, low, high, li, hi, anti, unknown)
	}
	values, err := st.materialize()
	if err != nil {
		return nil, err
	}
	return column.Select(values, cand, low, high, li, hi, anti, unknown), nil
}

// ThetaSelect returns the candidates of the column that compare to v with op.
func ThetaSelect[T cmp.Ordered](ctx context.Context, c *Catalog, tableName, columnName string, cand column.Candidates, v *T, op column.Op) (column.Candidates, error) {
	_, span := tracing.Tracer().Start(ctx, "ThetaSelect")
	defer span.End()

	h, err := c.Bind(tableName, columnName, ReadOnly)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	st, err := stateOf[T]("thetaselect", h)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("column.storage", string(st.kind)), attribute.String("op", op.String()))

	quota := c.queryQuota()
	if err := reserve("thetaselect", quota, st.rows()); err != nil {
		return nil, err
	}
	queriesTotal.WithLabelValues(opThetaSelect, string(st.kind)).Inc()

	if st.kind == schema.Dict {
		return dict.ThetaSelect(st.offsets, cand, st.dict, v, op)
	}
	values, err := st.materialize()
	if err != nil {
		return nil, err
	}
	return column.ThetaSelect(values, cand, v, op), nil
}

// Join returns the matching row pairs of two columns holding values of the same type.
func Join[T cmp.Ordered](ctx context.Context, c *Catalog, lt, lc, rt, rc string, nilMatches bool) ([]int64, []int64, error) {
	_, span := tracing.Tracer().Start(ctx, "Join")
	defer span.End()

	lh, rh, err := c.bindPair(lt, lc, rt, rc)
	if err != nil {
		return nil, nil, err
	}
	defer lh.Release()
	if rh != lh {
		defer rh.Release()
	}

	l, err := stateOf[T]("join", lh)
	if err != nil {
		return nil, nil, err
	}
	r, err := stateOf[T]("join", rh)
	if err != nil {
		return nil, nil, err
	}

	quota := c.queryQuota()
	if err := reserve("join", quota, l.rows()+r.rows()); err != nil {
		return nil, nil, err
	}

	if l.kind == schema.Dict && r.kind == schema.Dict {
		queriesTotal.WithLabelValues(opJoin, string(schema.Dict)).Inc()
		return dict.Join(l.offsets, l.dict, r.offsets, r.dict, nil, nil, nilMatches, max(l.rows(), r.rows()))
	}
	queriesTotal.WithLabelValues(opJoin, string(schema.Plain)).Inc()

	lv, err := l.materialize()
	if err != nil {
		return nil, nil, err
	}
	rv, err := r.materialize()
	if err != nil {
		return nil, nil, err
	}
	r0, r1 := column.Join(lv, rv, nil, nil, nilMatches)
	return r0, r1, nil
}

// bindPair binds two columns for reading in a fixed order. A self join binds once.
func (c *Catalog) bindPair(lt, lc, rt, rc string) (*Handle, *Handle, error) {
	if lt == rt && lc == rc {
		h, err := c.Bind(lt, lc, ReadOnly)
		return h, h, err
	}
	swap := schema.ColumnPath(rt, rc) < schema.ColumnPath(lt, lc)
	if swap {
		lt, lc, rt, rc = rt, rc, lt, lc
	}
	first, err := c.Bind(lt, lc, ReadOnly)
	if err != nil {
		return nil, nil, err
	}
	second, err := c.Bind(rt, rc, ReadOnly)
	if err != nil {
		first.Release()
		return nil, nil, err
	}
	if swap {
		return second, first, nil
	}
	return first, second, nil
}
