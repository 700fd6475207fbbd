package server

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/pranayab18/Data-Extraction/internal/common"
)

func startHealth(t *testing.T) (*Health, healthpb.HealthClient) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	h := NewHealth(nil)
	go func() { _ = h.Serve(lis) }()
	t.Cleanup(h.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return h, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, c healthpb.HealthClient, svc string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := c.Check(t.Context(), &healthpb.HealthCheckRequest{Service: svc})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealth_ServingStatus(t *testing.T) {
	h, client := startHealth(t)

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ""))
	h.SetServing(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ServicePipeline))
	h.SetServing(false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ServicePipeline))

	_, err := client.Check(t.Context(), &healthpb.HealthCheckRequest{Service: "nope"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestHealth_MonitorLedger(t *testing.T) {
	h, client := startHealth(t)

	var down atomic.Bool
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.MonitorLedger(ctx, 10*time.Millisecond, func(context.Context) error {
			if down.Load() {
				return errors.New("ledger unreachable")
			}
			return nil
		})
	}()

	assert.Eventually(t, func() bool {
		return check(t, client, ServiceLedger) == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	down.Store(true)
	assert.Eventually(t, func() bool {
		return check(t, client, ServiceLedger) == healthpb.HealthCheckResponse_NOT_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestUnaryInterceptor_MapsErrors(t *testing.T) {
	h := NewHealth(nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/Do"}

	_, err := h.unaryInterceptor(t.Context(), nil, info, func(context.Context, any) (any, error) {
		return nil, common.NewAppError("DOC_GET", "abc", common.ErrNotFound)
	})
	assert.Equal(t, codes.NotFound, status.Code(err))

	resp, err := h.unaryInterceptor(t.Context(), nil, info, func(context.Context, any) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	h := NewHealth(nil)
	ctx, cancel := context.WithCancel(t.Context())
	errc := make(chan error, 1)
	go func() { errc <- h.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
