// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

// Package catalog keeps tables of columns in memory, each stored plain, dict
// or frame of reference encoded, and persists them to object storage.
//
// Columns are used through handles: Bind acquires a column for reading or
// writing and Release gives it back. Writers of one column are serialized.
package catalog

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/oklog/ulid/v2"
	"github.com/parquet-go/parquet-go"
	"github.com/thanos-io/objstore"
	"golang.org/x/sync/singleflight"

	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/internal/limits"
	"github.com/thanos-io/column-codec/internal/util"
	"github.com/thanos-io/column-codec/schema"
)

type catalogConfig struct {
	l               *slog.Logger
	allocationQuota int64
	concurrency     int
	rowGroupSize    int
	bufferPool      parquet.BufferPool
}

func (cfg catalogConfig) validate() error {
	return validation.ValidateStruct(&cfg,
		validation.Field(&cfg.allocationQuota, validation.Min(int64(0))),
		validation.Field(&cfg.concurrency, validation.Min(1)),
		validation.Field(&cfg.rowGroupSize, validation.Min(1)),
	)
}

type Option func(*catalogConfig)

func Logger(l *slog.Logger) Option {
	return func(cfg *catalogConfig) {
		cfg.l = l
	}
}

// AllocationQuota limits the rows a single query may materialize, 0 is unlimited.
func AllocationQuota(rows int64) Option {
	return func(cfg *catalogConfig) {
		cfg.allocationQuota = rows
	}
}

// PersistConcurrency bounds the columns that are read or written concurrently.
func PersistConcurrency(n int) Option {
	return func(cfg *catalogConfig) {
		cfg.concurrency = n
	}
}

func RowGroupSize(n int) Option {
	return func(cfg *catalogConfig) {
		cfg.rowGroupSize = n
	}
}

func BufferPool(p parquet.BufferPool) Option {
	return func(cfg *catalogConfig) {
		cfg.bufferPool = p
	}
}

type Catalog struct {
	bkt objstore.Bucket
	l   *slog.Logger

	allocationQuota int64
	concurrency     int
	rowGroupSize    int
	bufferPool      parquet.BufferPool

	sf singleflight.Group

	mu     sync.RWMutex
	tables map[string]*table
}

type table struct {
	mu      sync.RWMutex
	columns map[string]*entry
}

type entry struct {
	table, column string

	mu sync.RWMutex
	id ulid.ULID
	st storage

	dirty   atomic.Bool
	updated time.Time
}

func New(bkt objstore.Bucket, opts ...Option) (*Catalog, error) {
	cfg := catalogConfig{
		l:            slog.Default(),
		concurrency:  1,
		rowGroupSize: 1_000_000,
		bufferPool:   parquet.NewBufferPool(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog options: %w", err)
	}
	return &Catalog{
		bkt:             bkt,
		l:               cfg.l,
		allocationQuota: cfg.allocationQuota,
		concurrency:     cfg.concurrency,
		rowGroupSize:    cfg.rowGroupSize,
		bufferPool:      cfg.bufferPool,
		tables:          make(map[string]*table),
	}, nil
}

func (c *Catalog) CreateTable(name string) error {
	if err := schema.ValidateName(name); err != nil {
		return column.Errorf("create table", column.ErrMalformedInput, "invalid table name %q: %s", name, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tables[name]; ok {
		return column.Errorf("create table", column.ErrMalformedInput, "table %q exists", name)
	}
	c.tables[name] = &table{columns: make(map[string]*entry)}
	return nil
}

func (c *Catalog) Tables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return util.SortUnique(slices.Collect(maps.Keys(c.tables)))
}

func (c *Catalog) Columns(name string) ([]string, error) {
	t, err := c.table("columns", name)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	return util.SortUnique(slices.Collect(maps.Keys(t.columns))), nil
}

// Meta describes the current in-memory state of a column.
func (c *Catalog) Meta(tableName, columnName string) (schema.Meta, error) {
	h, err := c.Bind(tableName, columnName, ReadOnly)
	if err != nil {
		return schema.Meta{}, err
	}
	defer h.Release()

	return h.Meta(), nil
}

// AddColumn adds a plain column to an existing table.
func AddColumn[T cmp.Ordered](c *Catalog, tableName, columnName string, values *column.Column[T]) error {
	if err := schema.ValidateName(columnName); err != nil {
		return column.Errorf("add column", column.ErrMalformedInput, "invalid column name %q: %s", columnName, err)
	}
	if _, err := schema.ValueTypeOf[T](); err != nil {
		return column.Errorf("add column", column.ErrMalformedInput, "%s", err)
	}
	t, err := c.table("add column", tableName)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.columns[columnName]; ok {
		return column.Errorf("add column", column.ErrMalformedInput, "column %q exists in table %q", columnName, tableName)
	}
	e := &entry{table: tableName, column: columnName, id: ulid.Make(), st: newState(values.Clone())}
	e.touch()
	t.columns[columnName] = e
	columnsTotal.Inc()
	return nil
}

func (c *Catalog) table(op, name string) (*table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tables[name]
	if !ok {
		return nil, column.Errorf(op, column.ErrResourceMissing, "table %q", name)
	}
	return t, nil
}

func (c *Catalog) entry(op, tableName, columnName string) (*entry, error) {
	t, err := c.table(op, tableName)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.columns[columnName]
	if !ok {
		return nil, column.Errorf(op, column.ErrResourceMissing, "column %q in table %q", columnName, tableName)
	}
	return e, nil
}

func (c *Catalog) entries() []*entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]*entry, 0)
	for _, t := range c.tables {
		t.mu.RLock()
		for _, e := range t.columns {
			res = append(res, e)
		}
		t.mu.RUnlock()
	}
	return res
}

// touch marks the entry as changed. Callers hold the write lock.
func (e *entry) touch() {
	e.updated = time.Now()
	e.dirty.Store(true)
}

func (e *entry) meta() schema.Meta {
	m := e.st.meta()
	m.ID = e.id
	m.Table = e.table
	m.Column = e.column
	m.UpdatedMs = e.updated.UnixMilli()
	return m
}

type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

// Handle is a bound column. It must be released exactly once.
type Handle struct {
	e        *entry
	mode     Mode
	released atomic.Bool
}

// Bind acquires a column. ReadOnly handles share the column with other
// readers, a ReadWrite handle is exclusive.
func (c *Catalog) Bind(tableName, columnName string, mode Mode) (*Handle, error) {
	e, err := c.entry("bind", tableName, columnName)
	if err != nil {
		return nil, err
	}
	if mode == ReadWrite {
		e.mu.Lock()
	} else {
		e.mu.RLock()
	}
	return &Handle{e: e, mode: mode}, nil
}

func (h *Handle) Release() {
	if !h.released.CompareAndSwap(false, true) {
		panic("BUG: handle released twice")
	}
	if h.mode == ReadWrite {
		h.e.mu.Unlock()
	} else {
		h.e.mu.RUnlock()
	}
}

func (h *Handle) Meta() schema.Meta {
	return h.e.meta()
}

func stateOf[T cmp.Ordered](op string, h *Handle) (*state[T], error) {
	st, ok := h.e.st.(*state[T])
	if !ok {
		want, _ := schema.ValueTypeOf[T]()
		return nil, column.Errorf(op, column.ErrMalformedInput, "column %q holds %s values, not %s", h.e.column, h.e.st.valueType(), want)
	}
	return st, nil
}

func (c *Catalog) queryQuota() *limits.Quota {
	return limits.NewQuota(c.allocationQuota)
}

func reserve(op string, q *limits.Quota, rows int) error {
	if err := q.Reserve(int64(rows)); err != nil {
		if limits.IsResourceExhausted(err) {
			quotaExhausted.Inc()
			return column.Errorf(op, column.ErrAllocation, "%s", err)
		}
		return column.Wrap(op, err)
	}
	return nil
}
