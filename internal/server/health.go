package server

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService serves the standard gRPC health protocol so orchestrators can
// check the process. It implements Service.
type HealthService struct {
	addr   string
	logger *zap.Logger
	grpc   *grpc.Server
	health *health.Server

	mu  sync.Mutex
	lis net.Listener
}

// NewHealthService creates a HealthService that will listen on addr.
//
// Precondition: logger must be non-nil.
func NewHealthService(addr string, logger *zap.Logger) *HealthService {
	gs := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	return &HealthService{addr: addr, logger: logger, grpc: gs, health: hs}
}

// Listen binds the listener ahead of Start. Calling it again returns the
// address already bound.
//
// Postcondition: Returns the bound address or the listen error.
func (h *HealthService) Listen() (net.Addr, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lis != nil {
		return h.lis.Addr(), nil
	}
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", h.addr, err)
	}
	h.lis = lis
	return lis.Addr(), nil
}

// SetServing reports service (empty for the whole process) as serving or not.
func (h *HealthService) SetServing(service string, serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(service, status)
}

// Start serves health checks until Stop is called.
func (h *HealthService) Start(context.Context) error {
	addr, err := h.Listen()
	if err != nil {
		return err
	}
	h.SetServing("", true)
	h.logger.Info("health server listening", zap.String("addr", addr.String()))
	h.mu.Lock()
	lis := h.lis
	h.mu.Unlock()
	return h.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight checks, forcing
// the server closed when ctx expires.
func (h *HealthService) Stop(ctx context.Context) error {
	h.health.Shutdown()
	done := make(chan struct{})
	go func() {
		h.grpc.GracefulStop()
		h.mu.Lock()
		if h.lis != nil {
			// already closed when Serve was running
			_ = h.lis.Close()
		}
		h.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		h.grpc.Stop()
		return ctx.Err()
	}
}
