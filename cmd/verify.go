// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	_ "github.com/marcboeker/go-duckdb/v2" // database/sql driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/thanos-io/objstore"
	"golang.org/x/sync/errgroup"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/thanos-io/column-codec/internal/slogerrcapture"
	"github.com/thanos-io/column-codec/schema"
)

type verifyOpts struct {
	bucket  bucketOpts
	catalog catalogOpts

	tempDir             string
	downloadConcurrency int
}

func (opts *verifyOpts) registerFlags(cmd *kingpin.CmdClause) {
	opts.bucket.registerFlags(cmd)
	opts.catalog.registerFlags(cmd)

	cmd.Flag("verify.tempdir", "directory to download column files to").Default(os.TempDir()).StringVar(&opts.tempDir)
	cmd.Flag("verify.download.concurrency", "concurrency for downloading column files").Default("4").IntVar(&opts.downloadConcurrency)
}

func registerVerifyApp(app *kingpin.Application) (*kingpin.CmdClause, func(context.Context, *slog.Logger, *prometheus.Registry) error) {
	cmd := app.Command("verify", "re-read persisted columns with duckdb and compare them with their meta")

	var opts verifyOpts
	opts.registerFlags(cmd)

	return cmd, func(ctx context.Context, log *slog.Logger, _ *prometheus.Registry) error {
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

		dir, err := os.MkdirTemp(opts.tempDir, "verify-*")
		if err != nil {
			return fmt.Errorf("unable to create temp dir: %w", err)
		}
		defer slogerrcapture.Do(log, func() error { return os.RemoveAll(dir) }, "removing %s", dir)

		db, err := sql.Open("duckdb", "")
		if err != nil {
			return fmt.Errorf("open duckdb: %w", err)
		}
		defer slogerrcapture.Do(log, db.Close, "closing duckdb")

		var merr *multierror.Error
		for _, t := range cat.Tables() {
			cols, err := cat.Columns(t)
			if err != nil {
				return fmt.Errorf("unable to list columns: %w", err)
			}
			for _, c := range cols {
				m, err := cat.Meta(t, c)
				if err != nil {
					return fmt.Errorf("unable to read meta: %w", err)
				}
				if err := downloadColumn(ctx, bkt, t, c, dir, opts.downloadConcurrency); err != nil {
					return fmt.Errorf("unable to download column %s/%s: %w", t, c, err)
				}
				if err := verifyColumn(ctx, db, filepath.Join(dir, schema.ColumnPath(t, c)), m); err != nil {
					log.Warn("Column does not match its meta", slog.String("table", t), slog.String("column", c), slog.Any("err", err))
					merr = multierror.Append(merr, fmt.Errorf("%s/%s: %w", t, c, err))
					continue
				}
				log.Info("Verified column", slog.String("table", t), slog.String("column", c), slog.String("storage", string(m.Storage)), slog.Int64("rows", m.Rows))
			}
		}
		return merr.ErrorOrNil()
	}
}

func downloadColumn(ctx context.Context, bkt objstore.BucketReader, table, column, dir string, concurrency int) error {
	src := schema.ColumnPath(table, column)
	dst := filepath.Join(dir, src)

	if err := os.MkdirAll(dst, 0750); err != nil {
		return fmt.Errorf("unable to create column directory: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	err := bkt.Iter(ctx, src, func(name string) error {
		g.Go(func() error {
			if strings.HasSuffix(name, objstore.DirDelim) {
				return nil
			}
			rc, err := bkt.Get(ctx, name)
			if err != nil {
				return fmt.Errorf("unable to get file %q: %w", name, err)
			}
			defer rc.Close()

			f, err := os.Create(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("unable to create file %q: %w", name, err)
			}
			defer f.Close()

			if _, err := io.Copy(f, rc); err != nil {
				return fmt.Errorf("unable to copy file %q: %w", name, err)
			}
			return f.Close()
		})
		return nil
	}, objstore.WithRecursiveIter())
	if err != nil {
		return fmt.Errorf("unable to iter bucket: %w", err)
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("unable to download column: %w", err)
	}
	return nil
}

func readParquetExpr(dir, file string) string {
	return "read_parquet('" + strings.ReplaceAll(filepath.Join(dir, file), "'", "''") + "')"
}

// verifyColumn checks the row counts of the persisted files and the offset
// bounds implied by the meta.
func verifyColumn(ctx context.Context, db *sql.DB, dir string, m schema.Meta) error {
	if m.Storage == schema.Plain {
		var rows int64
		if err := db.QueryRowContext(ctx, "SELECT count(*) FROM "+readParquetExpr(dir, schema.ValuesFile)).Scan(&rows); err != nil {
			return fmt.Errorf("query values: %w", err)
		}
		if rows != m.Rows {
			return fmt.Errorf("values file has %d rows, meta has %d", rows, m.Rows)
		}
		return nil
	}

	var rows, lo, hi int64
	q := `SELECT count(*), coalesce(min("offset"), 0), coalesce(max("offset"), 0) FROM ` + readParquetExpr(dir, schema.OffsetsFile)
	if err := db.QueryRowContext(ctx, q).Scan(&rows, &lo, &hi); err != nil {
		return fmt.Errorf("query offsets: %w", err)
	}
	if rows != m.Rows {
		return fmt.Errorf("offsets file has %d rows, meta has %d", rows, m.Rows)
	}
	if lo < 0 {
		return fmt.Errorf("negative offset %d", lo)
	}

	switch m.Storage {
	case schema.FOR:
		if hi >= int64(m.Width.Range()) {
			return fmt.Errorf("offset %d does not fit width %s", hi, m.Width)
		}
	case schema.Dict:
		var entries, distinct, nonNull int64
		q := "SELECT count(*), count(DISTINCT value), count(value) FROM " + readParquetExpr(dir, schema.DictionaryFile)
		if err := db.QueryRowContext(ctx, q).Scan(&entries, &distinct, &nonNull); err != nil {
			return fmt.Errorf("query dictionary: %w", err)
		}
		if entries != m.DictionaryRows {
			return fmt.Errorf("dictionary file has %d rows, meta has %d", entries, m.DictionaryRows)
		}
		if nulls := entries - nonNull; distinct != nonNull || nulls > 1 {
			return fmt.Errorf("dictionary holds duplicate entries")
		}
		if rows > 0 && hi >= entries {
			return fmt.Errorf("offset %d beyond dictionary of %d entries", hi, entries)
		}
	}
	return nil
}
