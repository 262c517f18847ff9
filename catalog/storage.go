// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package catalog

import (
	"cmp"
	"context"

	"golang.org/x/exp/constraints"

	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/dict"
	"github.com/thanos-io/column-codec/frame"
	"github.com/thanos-io/column-codec/offsets"
	"github.com/thanos-io/column-codec/schema"
)

// storage is the type erased view of a state.
type storage interface {
	valueType() schema.ValueType
	meta() schema.Meta
	rows() int

	compressDict(ordered bool) error
	compressFOR() error
	decompress(reason string) error

	persist(ctx context.Context, c *Catalog, table, column string) error
}

// state holds a column in exactly one storage kind.
type state[T cmp.Ordered] struct {
	kind schema.StorageKind

	// plain
	plain *column.Column[T]

	// dict and for
	offsets *offsets.Array
	dict    *dict.Dictionary[T]
	minimum T

	frame *frameCodec[T]
}

func newState[T cmp.Ordered](values *column.Column[T]) *state[T] {
	return &state[T]{kind: schema.Plain, plain: values, frame: frameCodecOf[T]()}
}

// frameCodec binds the frame of reference codec to an ordered type that is
// known to be an integer.
type frameCodec[T cmp.Ordered] struct {
	compress      func(*column.Column[T]) (*offsets.Array, T, error)
	decompress    func(*offsets.Array, T) *column.Column[T]
	prepareAppend func(*column.Column[T], T, offsets.Width) (*offsets.Array, bool)
	toInt64       func(T) int64
	fromInt64     func(int64) T
}

func integerCodec[T constraints.Integer]() *frameCodec[T] {
	return &frameCodec[T]{
		compress:      frame.Compress[T],
		decompress:    frame.Decompress[T, T],
		prepareAppend: frame.PrepareAppend[T],
		toInt64:       func(v T) int64 { return int64(v) },
		fromInt64:     func(v int64) T { return T(v) },
	}
}

// frameCodecOf returns nil for types that cannot be frame of reference encoded.
func frameCodecOf[T cmp.Ordered]() *frameCodec[T] {
	var c any
	switch any(*new(T)).(type) {
	case int8:
		c = integerCodec[int8]()
	case int16:
		c = integerCodec[int16]()
	case int32:
		c = integerCodec[int32]()
	case int64:
		c = integerCodec[int64]()
	default:
		return nil
	}
	return c.(*frameCodec[T])
}

func (s *state[T]) valueType() schema.ValueType {
	vt, _ := schema.ValueTypeOf[T]()
	return vt
}

func (s *state[T]) rows() int {
	if s.kind == schema.Plain {
		return s.plain.Len()
	}
	return s.offsets.Len()
}

func (s *state[T]) meta() schema.Meta {
	m := schema.Meta{
		Type:    s.valueType(),
		Storage: s.kind,
		Rows:    int64(s.rows()),
	}
	switch s.kind {
	case schema.Dict:
		m.Width = s.offsets.Width()
		m.DictionaryRows = int64(s.dict.Len())
		m.DictionarySorted = s.dict.Sorted()
	case schema.FOR:
		m.Width = s.offsets.Width()
		m.Minimum = s.frame.toInt64(s.minimum)
	}
	return m
}

// materialize returns the plain values of the column. Plain columns are
// returned as is and must not be modified.
func (s *state[T]) materialize() (*column.Column[T], error) {
	switch s.kind {
	case schema.Dict:
		return dict.Decompress(s.offsets, s.dict)
	case schema.FOR:
		return s.frame.decompress(s.offsets, s.minimum), nil
	}
	return s.plain, nil
}

func (s *state[T]) setPlain(values *column.Column[T]) {
	s.kind = schema.Plain
	s.plain = values
	s.offsets = nil
	s.dict = nil
	var zero T
	s.minimum = zero
}

func (s *state[T]) compressDict(ordered bool) error {
	values, err := s.materialize()
	if err != nil {
		return err
	}
	o, d, err := dict.Compress(values, ordered, true, false)
	if err != nil {
		return err
	}
	s.setPlain(nil)
	s.kind, s.offsets, s.dict = schema.Dict, o, d
	return nil
}

func (s *state[T]) compressFOR() error {
	if s.frame == nil {
		return column.Errorf("for compress", column.ErrMalformedInput, "%s columns cannot be frame of reference encoded", s.valueType())
	}
	values, err := s.materialize()
	if err != nil {
		return err
	}
	o, minimum, err := s.frame.compress(values)
	if err != nil {
		return err
	}
	s.setPlain(nil)
	s.kind, s.offsets, s.minimum = schema.FOR, o, minimum
	return nil
}

// decompress turns the column back into a plain column.
func (s *state[T]) decompress(reason string) error {
	if s.kind == schema.Plain {
		return nil
	}
	values, err := s.materialize()
	if err != nil {
		return err
	}
	decompressions.WithLabelValues(string(s.kind), reason).Inc()
	s.setPlain(values)
	return nil
}

func (s *state[T]) append(values *column.Column[T]) error {
	switch s.kind {
	case schema.Dict:
		o, ok := dict.PrepareAppend(values, s.dict)
		if !ok {
			if err := s.decompress(reasonAppend); err != nil {
				return err
			}
			break
		}
		return s.concatOffsets(o)
	case schema.FOR:
		o, ok := s.frame.prepareAppend(values, s.minimum, s.offsets.Width())
		if !ok {
			if err := s.decompress(reasonAppend); err != nil {
				return err
			}
			break
		}
		return s.concatOffsets(o)
	}
	s.plain.Concat(values)
	return nil
}

func (s *state[T]) concatOffsets(o *offsets.Array) error {
	if o.Width() > s.offsets.Width() {
		wide, err := s.offsets.Widen(o.Width())
		if err != nil {
			return err
		}
		s.offsets = wide
	}
	return s.offsets.Concat(o)
}

func (s *state[T]) update(tids []int64, values *column.Column[T]) error {
	if len(tids) != values.Len() {
		return column.Errorf("update", column.ErrMalformedInput, "%d row ids for %d values", len(tids), values.Len())
	}
	n := s.rows()
	for _, tid := range tids {
		if tid < 0 || tid >= int64(n) {
			return column.Errorf("update", column.ErrMalformedInput, "row id %d out of range [0, %d)", tid, n)
		}
	}

	var (
		o  *offsets.Array
		ok bool
	)
	switch s.kind {
	case schema.Dict:
		o, ok = dict.PrepareAppend(values, s.dict)
	case schema.FOR:
		o, ok = s.frame.prepareAppend(values, s.minimum, s.offsets.Width())
	}
	if s.kind != schema.Plain && !ok {
		if err := s.decompress(reasonUpdate); err != nil {
			return err
		}
	}

	if s.kind == schema.Plain {
		for i, tid := range tids {
			v, ok := values.Value(i)
			s.plain.Set(int(tid), v, !ok)
		}
		return nil
	}

	if o.Width() > s.offsets.Width() {
		wide, err := s.offsets.Widen(o.Width())
		if err != nil {
			return err
		}
		s.offsets = wide
	}
	for i, tid := range tids {
		s.offsets.Set(int(tid), o.At(i))
	}
	s.offsets.Props.Negate()
	s.refreshNulls()
	return nil
}

// refreshNulls recomputes the null properties of dict offsets.
func (s *state[T]) refreshNulls() {
	p := &s.offsets.Props
	p.Nil, p.NoNil = false, true
	if s.kind != schema.Dict || s.dict.NullOffset() < 0 {
		return
	}
	null := s.dict.NullOffset()
	for i := range s.offsets.Len() {
		if s.offsets.At(i) == null {
			p.Nil, p.NoNil = true, false
			return
		}
	}
}
