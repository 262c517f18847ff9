// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package grpc

import (
	"errors"

	grpc_prom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ServerMetrics = grpc_prom.NewServerMetrics(
		grpc_prom.WithServerHandlingTimeHistogram(
			grpc_prom.WithHistogramOpts(&prometheus.HistogramOpts{
				Buckets: prometheus.ExponentialBucketsRange(0.0005, 5, 15),
			}),
		),
	)
	servingTables = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "health_serving_tables",
		Help: "Tables reported as serving by the health service",
	})
)

func RegisterMetrics(reg prometheus.Registerer) error {
	return errors.Join(
		reg.Register(ServerMetrics),
		reg.Register(servingTables),
	)
}
