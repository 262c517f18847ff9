// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thanos-io/objstore/providers/filesystem"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/thanos-io/column-codec/catalog"
	"github.com/thanos-io/column-codec/column"
)

func TestHealthServer(t *testing.T) {
	bkt, err := filesystem.NewBucket(t.TempDir())
	require.NoError(t, err)
	cat, err := catalog.New(bkt)
	require.NoError(t, err)
	require.NoError(t, cat.CreateTable("orders"))
	require.NoError(t, catalog.AddColumn(cat, "orders", "qty", column.New([]int32{1, 2})))

	hs := NewHealthServer(cat)
	srv := NewServer(hs)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client := healthpb.NewHealthClient(conn)
	check := func(service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
		res, err := client.Check(t.Context(), &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			return 0, err
		}
		return res.GetStatus(), nil
	}

	st, err := check("")
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)

	_, err = check(TableService("orders"))
	require.Equal(t, codes.NotFound, status.Code(err))

	hs.Update()

	st, err = check("")
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, st)

	st, err = check(TableService("orders"))
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, st)
}
