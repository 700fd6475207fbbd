package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/pranayab18/Data-Extraction/internal/common"
)

// Service names reported by the health endpoint besides the overall "".
const (
	ServicePipeline = "pipeline"
	ServiceLedger   = "ledger"
)

// Health is the daemon's gRPC surface: the standard health service plus
// reflection for grpcurl. Everything reports NOT_SERVING until
// SetServing(true).
type Health struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

func NewHealth(logger *slog.Logger) *Health {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Health{health: health.NewServer(), logger: logger}
	h.grpc = grpc.NewServer(grpc.ChainUnaryInterceptor(h.unaryInterceptor))
	healthpb.RegisterHealthServer(h.grpc, h.health)
	reflection.Register(h.grpc)

	for _, svc := range []string{"", ServicePipeline, ServiceLedger} {
		h.health.SetServingStatus(svc, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return h
}

// SetServing flips the overall and pipeline status.
func (h *Health) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", st)
	h.health.SetServingStatus(ServicePipeline, st)
	h.logger.Info("server.health.status", "serving", ok)
}

// MonitorLedger runs check every interval until ctx ends and reports the
// result under the "ledger" service.
func (h *Health) MonitorLedger(ctx context.Context, interval time.Duration, check func(context.Context) error) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	last := healthpb.HealthCheckResponse_UNKNOWN
	probe := func() {
		st := healthpb.HealthCheckResponse_SERVING
		if err := check(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			st = healthpb.HealthCheckResponse_NOT_SERVING
			if last != st {
				h.logger.Warn("server.health.ledger_down", "error", err)
			}
		}
		if last != st {
			h.health.SetServingStatus(ServiceLedger, st)
			last = st
		}
	}

	probe()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			probe()
		}
	}
}

// Serve blocks serving on lis until Stop.
func (h *Health) Serve(lis net.Listener) error {
	h.logger.Info("server.listening", "addr", lis.Addr().String())
	if err := h.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and serves until ctx ends.
func (h *Health) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return common.NewAppError("LISTEN", addr, err)
	}
	errc := make(chan error, 1)
	go func() { errc <- h.Serve(lis) }()

	select {
	case <-ctx.Done():
		h.Stop()
		<-errc
		return nil
	case err := <-errc:
		return err
	}
}

// Stop marks everything NOT_SERVING and stops gracefully.
func (h *Health) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}

func (h *Health) unaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		err = common.ToStatus(err)
		h.logger.Warn("server.rpc.failed",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
	h.logger.Debug("server.rpc.ok", "method", info.FullMethod, "elapsed_ms", time.Since(start).Milliseconds())
	return resp, nil
}
