// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/alecthomas/kingpin.v2"

	ccgrpc "github.com/thanos-io/column-codec/api/grpc"
	cchttp "github.com/thanos-io/column-codec/api/http"
	"github.com/thanos-io/column-codec/catalog"
)

type serveOpts struct {
	bucket  bucketOpts
	tracing tracingOpts
	catalog catalogOpts
	sync    syncOpts

	query       queryOpts
	columnAPI   apiOpts
	healthAPI   apiOpts
	internalAPI apiOpts
}

func (opts *serveOpts) registerFlags(cmd *kingpin.CmdClause) {
	opts.bucket.registerFlags(cmd)
	opts.tracing.registerFlags(cmd)
	opts.catalog.registerFlags(cmd)
	opts.sync.registerFlags(cmd)
	opts.query.registerServeFlags(cmd)
	opts.columnAPI.registerServeColumnAPIFlags(cmd)
	opts.healthAPI.registerServeHealthAPIFlags(cmd)
	opts.internalAPI.registerServeInternalAPIFlags(cmd)
}

type queryOpts struct {
	defaultTimeout       time.Duration
	concurrentQueryQuota int
	corsAllowedOrigins   []string
}

func (opts *queryOpts) registerServeFlags(cmd *kingpin.CmdClause) {
	cmd.Flag("query.timeout", "default timeout for queries").Default("30s").DurationVar(&opts.defaultTimeout)
	cmd.Flag("query.limits.queries.max-concurrent", "the amount of concurrent queries we can execute").Default("100").IntVar(&opts.concurrentQueryQuota)
	cmd.Flag("query.cors.allowed-origin", "origin allowed to query the column api, '*' allows all").StringsVar(&opts.corsAllowedOrigins)
}

func (opts *apiOpts) registerServeColumnAPIFlags(cmd *kingpin.CmdClause) {
	cmd.Flag("http.columns.port", "port to host the column HTTP api").Default("9000").IntVar(&opts.port)
	cmd.Flag("http.columns.shutdown-timeout", "timeout on shutdown").Default("10s").DurationVar(&opts.shutdownTimeout)
}

func (opts *apiOpts) registerServeHealthAPIFlags(cmd *kingpin.CmdClause) {
	cmd.Flag("grpc.health.port", "port to host the gRPC health api").Default("9001").IntVar(&opts.port)
	cmd.Flag("grpc.health.shutdown-timeout", "timeout on shutdown").Default("10s").DurationVar(&opts.shutdownTimeout)
}

func (opts *apiOpts) registerServeInternalAPIFlags(cmd *kingpin.CmdClause) {
	cmd.Flag("http.internal.port", "port to host query api").Default("6060").IntVar(&opts.port)
	cmd.Flag("http.internal.shutdown-timeout", "timeout on shutdown").Default("10s").DurationVar(&opts.shutdownTimeout)
}

func registerServeApp(app *kingpin.Application) (*kingpin.CmdClause, func(context.Context, *slog.Logger, *prometheus.Registry) error) {
	cmd := app.Command("serve", "serve encoded columns from object storage over HTTP")

	var opts serveOpts
	opts.registerFlags(cmd)

	return cmd, func(ctx context.Context, log *slog.Logger, reg *prometheus.Registry) error {
		var g run.Group

		setupInterrupt(ctx, &g, log)

		if err := setupTracing(ctx, opts.tracing); err != nil {
			return fmt.Errorf("unable to setup tracing: %w", err)
		}

		bkt, err := setupBucket(log, opts.bucket)
		if err != nil {
			return fmt.Errorf("unable to setup bucket: %w", err)
		}

		cat, err := setupCatalog(log, bkt, opts.catalog)
		if err != nil {
			return fmt.Errorf("unable to setup catalog: %w", err)
		}

		hs := ccgrpc.NewHealthServer(cat)
		if err := setupSync(ctx, &g, log, cat, opts.sync, hs.Update); err != nil {
			return fmt.Errorf("unable to setup sync: %w", err)
		}

		setupColumnAPI(&g, log, cat, opts.columnAPI, opts.query)
		setupHealthAPI(&g, log, hs, opts.healthAPI)
		setupInternalAPI(&g, log, reg, opts.internalAPI)

		return g.Run()
	}
}

func setupColumnAPI(g *run.Group, log *slog.Logger, cat *catalog.Catalog, opts apiOpts, qOpts queryOpts) {
	handler := cchttp.NewAPI(cat,
		cchttp.ColumnOptions(
			cchttp.DefaultTimeout(qOpts.defaultTimeout),
			cchttp.ConcurrentQueryQuota(qOpts.concurrentQueryQuota),
		),
		cchttp.CORSAllowedOrigins(qOpts.corsAllowedOrigins),
	)

	server := &http.Server{Addr: fmt.Sprintf(":%d", opts.port), Handler: handler}
	g.Add(func() error {
		log.Info("Serving column api", slog.Int("port", opts.port))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	}, func(error) {
		log.Info("Shutting down column api", slog.Int("port", opts.port))
		ctx, cancel := context.WithTimeout(context.Background(), opts.shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("Error shutting down column server", slog.Any("err", err))
		}
	})
}

func setupHealthAPI(g *run.Group, log *slog.Logger, hs *ccgrpc.HealthServer, opts apiOpts) {
	server := ccgrpc.NewServer(hs)

	g.Add(func() error {
		log.Info("Serving health api", slog.Int("port", opts.port))

		l, err := net.Listen("tcp", fmt.Sprintf(":%d", opts.port))
		if err != nil {
			return fmt.Errorf("unable to listen: %w", err)
		}
		return server.Serve(l)
	}, func(error) {
		log.Info("Shutting down health api", slog.Int("port", opts.port))
		hs.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), opts.shutdownTimeout)
		defer cancel()

		stopped := make(chan struct{})
		go func() {
			server.GracefulStop()
			close(stopped)
		}()

		select {
		case <-ctx.Done():
			server.Stop()
			return
		case <-stopped:
			cancel()
		}
	})
}
