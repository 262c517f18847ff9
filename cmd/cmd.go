// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/thanos-io/column-codec/api/grpc"
	"github.com/thanos-io/column-codec/api/http"
	"github.com/thanos-io/column-codec/catalog"
	"github.com/thanos-io/column-codec/dict"
	"github.com/thanos-io/column-codec/frame"
	"github.com/thanos-io/column-codec/internal/log"
	"github.com/thanos-io/column-codec/pkg/version"
)

var logLevelMap = map[string]slog.Level{
	"DEBUG": slog.LevelDebug,
	"INFO":  slog.LevelInfo,
	"WARN":  slog.LevelWarn,
	"ERROR": slog.LevelError,
}

func main() {
	app := kingpin.New("column-codec", "dictionary and frame of reference encoded columns")
	app.Version(version.Print())
	memratio := app.Flag("memlimit.ratio", "gomemlimit ratio").Default("0.9").Float()
	logLevel := app.Flag("logger.level", "log level").Default("INFO").Enum("DEBUG", "INFO", "WARN", "ERROR")
	metricsPrefix := app.Flag("metrics.prefix", "prefix for all metrics").Default("column_codec_").String()

	compress, compressF := registerCompressApp(app)
	verify, verifyF := registerVerifyApp(app)
	serve, serveF := registerServeApp(app)
	parsed := kingpin.MustParse(app.Parse(os.Args[1:]))

	l := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevelMap[*logLevel],
	}))
	log.SetDefaultLogger(l)

	memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(*memratio),
		memlimit.WithProvider(
			memlimit.ApplyFallback(
				memlimit.FromCgroup,
				memlimit.FromSystem,
			),
		),
	)

	reg, err := setupPrometheusRegistry(*metricsPrefix)
	if err != nil {
		l.Error("Could not setup prometheus", slog.Any("err", err))
		return
	}

	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, syscall.SIGTERM, syscall.SIGINT)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		s := <-sigC
		l.Warn("Caught signal, canceling context", slog.String("signal", s.String()))
		cancel()
	}()

	switch parsed {
	case compress.FullCommand():
		l.Info("Running compress")
		if err := compressF(ctx, l, reg); err != nil {
			l.Error("Error compressing column", slog.Any("err", err))
			os.Exit(1)
		}
	case verify.FullCommand():
		l.Info("Running verify")
		if err := verifyF(ctx, l, reg); err != nil {
			l.Error("Error verifying columns", slog.Any("err", err))
			os.Exit(1)
		}
	case serve.FullCommand():
		l.Info("Running serve")
		if err := serveF(ctx, l, reg); err != nil {
			l.Error("Error running serve", slog.Any("err", err))
			os.Exit(1)
		}
	}
	l.Info("Done")
}

func setupPrometheusRegistry(metricsPrefix string) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	registerer := prometheus.WrapRegistererWithPrefix(metricsPrefix, reg)

	if err := errors.Join(
		reg.Register(version.Collector()),
		catalog.RegisterMetrics(prometheus.WrapRegistererWithPrefix("catalog_", registerer)),
		dict.RegisterMetrics(prometheus.WrapRegistererWithPrefix("dict_", registerer)),
		frame.RegisterMetrics(prometheus.WrapRegistererWithPrefix("frame_", registerer)),
		http.RegisterMetrics(prometheus.WrapRegistererWithPrefix("http_", registerer)),
		grpc.RegisterMetrics(prometheus.WrapRegistererWithPrefix("grpc_", registerer)),
	); err != nil {
		return nil, fmt.Errorf("unable to register metrics: %w", err)
	}
	return reg, nil
}
