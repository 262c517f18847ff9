// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package grpc

import (
	"math"

	_ "github.com/mostynb/go-grpc-compression/snappy"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/propagators/autoprop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/thanos-io/column-codec/catalog"
)

const tableServicePrefix = "column-codec.table."

// TableService is the health service name reporting on a single table.
func TableService(table string) string {
	return tableServicePrefix + table
}

// HealthServer reports the catalog as serving once it has been loaded,
// and every loaded table under its own service name.
type HealthServer struct {
	*health.Server

	cat *catalog.Catalog
}

func NewHealthServer(cat *catalog.Catalog) *HealthServer {
	s := &HealthServer{Server: health.NewServer(), cat: cat}
	s.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Update marks the catalog and all of its tables as serving.
func (s *HealthServer) Update() {
	tables := s.cat.Tables()
	for _, t := range tables {
		s.SetServingStatus(TableService(t), healthpb.HealthCheckResponse_SERVING)
	}
	s.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	servingTables.Set(float64(len(tables)))
}

func NewServer(hs *HealthServer) *grpc.Server {
	server := grpc.NewServer(
		grpc.MaxSendMsgSize(math.MaxInt32),
		grpc.MaxRecvMsgSize(math.MaxInt32),
		grpc.StatsHandler(otelgrpc.NewServerHandler(otelgrpc.WithPropagators(autoprop.NewTextMapPropagator()))),
		grpc.UnaryInterceptor(ServerMetrics.UnaryServerInterceptor()),
		grpc.StreamInterceptor(ServerMetrics.StreamServerInterceptor()),
	)
	healthpb.RegisterHealthServer(server, hs)
	reflection.Register(server)
	ServerMetrics.InitializeMetrics(server)
	return server
}
