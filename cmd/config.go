// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"regexp"
	"time"

	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger" //nolint:staticcheck
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/alecthomas/units"
	"github.com/oklog/run"
	"github.com/parquet-go/parquet-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thanos-io/objstore"
	"github.com/thanos-io/objstore/client"
	"github.com/thanos-io/thanos/pkg/runutil"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/thanos-io/column-codec/catalog"
	"github.com/thanos-io/column-codec/pkg/version"
)

func setupInterrupt(ctx context.Context, g *run.Group, log *slog.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	g.Add(func() error {
		<-ctx.Done()
		log.Info("Canceling actors")
		return nil
	}, func(error) {
		cancel()
	})
}

var envParens = regexp.MustCompile(`\$\(([A-Za-z_][A-Za-z0-9_]*)\)`)

// ExpandEnvParens replaces $(NAME) with the value of the environment variable NAME.
func ExpandEnvParens(b []byte) []byte {
	return envParens.ReplaceAllFunc(b, func(m []byte) []byte {
		return []byte(os.Getenv(string(envParens.FindSubmatch(m)[1])))
	})
}

type bucketOpts struct {
	objStoreConfigFile string
	objStoreConfig     string
}

func (opts *bucketOpts) registerFlags(cmd *kingpin.CmdClause) {
	cmd.Flag("catalog.objstore-config-file", "YAML file that contains object store configuration. See format details: https://thanos.io/tip/thanos/storage.md/#configuration").StringVar(&opts.objStoreConfigFile)
	cmd.Flag("catalog.objstore-config", "Alternative to 'catalog.objstore-config-file'. YAML content for object store configuration.").StringVar(&opts.objStoreConfig)
}

func setupBucket(log *slog.Logger, opts bucketOpts) (objstore.Bucket, error) {
	var confContentYaml []byte
	var err error

	if opts.objStoreConfigFile != "" {
		confContentYaml, err = os.ReadFile(opts.objStoreConfigFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read objstore config file: %w", err)
		}
	} else if opts.objStoreConfig != "" {
		confContentYaml = []byte(opts.objStoreConfig)
	} else {
		return nil, fmt.Errorf("objstore config is required (use --catalog.objstore-config or --catalog.objstore-config-file)")
	}

	confContentYaml = ExpandEnvParens(confContentYaml)
	if len(confContentYaml) == 0 {
		return nil, fmt.Errorf("objstore config is required")
	}

	bkt, err := client.NewBucket(slogAdapter{log}, confContentYaml, version.Program, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create bucket client: %w", err)
	}

	return bkt, nil
}

type slogAdapter struct {
	log *slog.Logger
}

func (s slogAdapter) Log(args ...any) error {
	s.log.Debug("", args...)
	return nil
}

type catalogOpts struct {
	allocationQuota    int64
	persistConcurrency int
	rowGroupSize       int
	pageBufferSize     units.Base2Bytes
}

func (opts *catalogOpts) registerFlags(cmd *kingpin.CmdClause) {
	cmd.Flag("catalog.limits.allocation-rows", "the amount of rows a single query can touch. (0 is unlimited)").Default("0").Int64Var(&opts.allocationQuota)
	cmd.Flag("catalog.persist.concurrency", "concurrency for writing and loading columns").Default("4").IntVar(&opts.persistConcurrency)
	cmd.Flag("catalog.persist.row-group-size", "rows per parquet row group").Default("1000000").IntVar(&opts.rowGroupSize)
	cmd.Flag("catalog.persist.page-buffer-size", "size of pooled parquet page buffers").Default("256KiB").BytesVar(&opts.pageBufferSize)
}

func setupCatalog(log *slog.Logger, bkt objstore.Bucket, opts catalogOpts) (*catalog.Catalog, error) {
	return catalog.New(bkt,
		catalog.Logger(log),
		catalog.AllocationQuota(opts.allocationQuota),
		catalog.PersistConcurrency(opts.persistConcurrency),
		catalog.RowGroupSize(opts.rowGroupSize),
		catalog.BufferPool(parquet.NewChunkBufferPool(int(opts.pageBufferSize))),
	)
}

type tracingOpts struct {
	exporterType string

	// jaeger opts
	jaegerEndpoint string

	samplingParam float64
	samplingType  string
}

func (opts *tracingOpts) registerFlags(cmd *kingpin.CmdClause) {
	cmd.Flag("tracing.exporter.type", "type of tracing exporter").Default("STDOUT").EnumVar(&opts.exporterType, "JAEGER", "STDOUT")
	cmd.Flag("tracing.jaeger.endpoint", "endpoint to send traces, eg. https://example.com:4318/v1/traces").StringVar(&opts.jaegerEndpoint)
	cmd.Flag("tracing.sampling.param", "sample of traces to send").Default("0.1").Float64Var(&opts.samplingParam)
	cmd.Flag("tracing.sampling.type", "type of sampling").Default("PROBABILISTIC").EnumVar(&opts.samplingType, "PROBABILISTIC", "ALWAYS", "NEVER")
}

func setupTracing(ctx context.Context, opts tracingOpts) error {
	var (
		exporter trace.SpanExporter
		err      error
	)
	switch opts.exporterType {
	case "JAEGER":
		exporter, err = jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(opts.jaegerEndpoint)))
		if err != nil {
			return err
		}
	case "STDOUT":
		exporter, err = stdouttrace.New()
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid exporter type %s", opts.exporterType)
	}
	var sampler trace.Sampler
	switch opts.samplingType {
	case "PROBABILISTIC":
		sampler = trace.TraceIDRatioBased(opts.samplingParam)
	case "ALWAYS":
		sampler = trace.AlwaysSample()
	case "NEVER":
		sampler = trace.NeverSample()
	default:
		return fmt.Errorf("invalid sampling type %s", opts.samplingType)
	}
	r, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(version.Program),
			semconv.ServiceVersion(version.Short()),
		),
	)
	if err != nil {
		return err
	}

	tracerProvider := trace.NewTracerProvider(
		trace.WithSampler(trace.ParentBased(sampler)),
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())
	return nil
}

type apiOpts struct {
	port int

	shutdownTimeout time.Duration
}

func setupInternalAPI(g *run.Group, log *slog.Logger, reg *prometheus.Registry, opts apiOpts) {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	mux.HandleFunc("/-/healthy", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "OK")
	})
	mux.HandleFunc("/-/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "OK")
	})

	server := &http.Server{Addr: fmt.Sprintf(":%d", opts.port), Handler: mux}
	g.Add(func() error {
		log.Info("Serving internal api", slog.Int("port", opts.port))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	}, func(error) {
		log.Info("Shutting down internal api", slog.Int("port", opts.port))
		ctx, cancel := context.WithTimeout(context.Background(), opts.shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("Error shutting down internal server", slog.Any("err", err))
		}
	})
}

type syncOpts struct {
	loadInterval  time.Duration
	flushInterval time.Duration
}

func (opts *syncOpts) registerFlags(cmd *kingpin.CmdClause) {
	cmd.Flag("catalog.load.interval", "interval to pick up columns written by other processes").Default("1m").DurationVar(&opts.loadInterval)
	cmd.Flag("catalog.flush.interval", "interval to persist modified columns").Default("30s").DurationVar(&opts.flushInterval)
}

// setupSync loads the catalog once and then keeps it in sync with object storage.
// onLoad runs after every successful load.
func setupSync(ctx context.Context, g *run.Group, log *slog.Logger, cat *catalog.Catalog, opts syncOpts, onLoad func()) error {
	log.Info("Running initial load")

	iterCtx, iterCancel := context.WithTimeout(ctx, opts.loadInterval)
	defer iterCancel()
	if err := cat.Load(iterCtx); err != nil {
		return fmt.Errorf("unable to run initial load: %w", err)
	}
	onLoad()

	ctx, cancel := context.WithCancel(context.Background())
	g.Add(func() error {
		return runutil.Repeat(opts.loadInterval, ctx.Done(), func() error {
			log.Debug("Running load")

			iterCtx, iterCancel := context.WithTimeout(ctx, opts.loadInterval)
			defer iterCancel()
			if err := cat.Load(iterCtx); err != nil {
				log.Warn("Unable to load columns", slog.Any("err", err))
				return nil
			}
			onLoad()
			return nil
		})
	}, func(error) {
		log.Info("Stopping load")
		cancel()
	})

	flushCtx, flushCancel := context.WithCancel(context.Background())
	g.Add(func() error {
		return runutil.Repeat(opts.flushInterval, flushCtx.Done(), func() error {
			log.Debug("Running flush")

			iterCtx, iterCancel := context.WithTimeout(flushCtx, opts.flushInterval)
			defer iterCancel()
			if err := cat.Flush(iterCtx); err != nil {
				log.Warn("Unable to flush columns", slog.Any("err", err))
			}
			return nil
		})
	}, func(error) {
		log.Info("Stopping flush, persisting remaining columns")
		flushCancel()

		finalCtx, finalCancel := context.WithTimeout(context.Background(), opts.flushInterval)
		defer finalCancel()
		if err := cat.Flush(finalCtx); err != nil {
			log.Error("Unable to persist columns on shutdown", slog.Any("err", err))
		}
	})
	return nil
}
