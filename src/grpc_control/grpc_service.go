package grpc_control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"

	"network-monitor/src/config"
	"network-monitor/src/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServicePrefix namespaces the per-endpoint health entries.
const ServicePrefix = "network-monitor."

// -----------------------------------------------------------------------------
// GRPCService exposes grpc.health.v1 reflecting the state of every monitored
// connection
// -----------------------------------------------------------------------------

type GRPCService struct {
	name     string
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
	config   *config.Config
	logger   *logger.Logger
	running  atomic.Bool
}

// -----------------------------------------------------------------------------

// NewGRPCService binds grpc_host:grpc_port. Port 0 picks a free port.
func NewGRPCService(config *config.Config, logger *logger.Logger) (*GRPCService, error) {
	address := net.JoinHostPort(config.GRPC_Host, strconv.Itoa(config.GRPC_Port))

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	serverOptions := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(1024 * 1024),
		grpc.MaxSendMsgSize(1024 * 1024),
	}
	server := grpc.NewServer(serverOptions...)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	// overall status stays NOT_SERVING until the monitor reports an open connection
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &GRPCService{
		name:     "GRPCService",
		server:   server,
		health:   healthServer,
		listener: listener,
		config:   config,
		logger:   logger,
	}, nil
}

// -----------------------------------------------------------------------------

// Start serves in the background and returns immediately.
func (g *GRPCService) Start() error {
	if !g.running.CompareAndSwap(false, true) {
		return fmt.Errorf("%s : already running", g.name)
	}

	go func() {
		if err := g.server.Serve(g.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			g.logger.Error("%s : gRPC server failed: %v", g.name, err)
		}
		g.running.Store(false)
	}()

	g.logger.Info("%s : health service listening on %s", g.name, g.Addr())
	return nil
}

// -----------------------------------------------------------------------------

// Stop gracefully stops the server, forcing it down when ctx expires.
func (g *GRPCService) Stop(ctx context.Context) error {
	g.logger.Info("%s : stopping gRPC service", g.name)

	g.health.Shutdown()

	done := make(chan struct{})
	go func() {
		g.server.GracefulStop()
		close(done)
	}()

	select {
	case <-ctx.Done():
		g.logger.Warning("%s : graceful shutdown timed out, forcing stop", g.name)
		g.server.Stop()
		<-done
	case <-done:
	}

	g.running.Store(false)
	g.logger.Info("%s : gRPC service stopped", g.name)
	return nil
}

// -----------------------------------------------------------------------------

// SetServingStatus records the health of one endpoint. An empty endpoint name
// sets the overall status.
func (g *GRPCService) SetServingStatus(endpoint string, serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus(HealthServiceName(endpoint), status)
}

// -----------------------------------------------------------------------------

// HealthServiceName maps an endpoint name to its grpc.health.v1 service name.
func HealthServiceName(endpoint string) string {
	if endpoint == "" {
		return ""
	}
	return ServicePrefix + endpoint
}

// -----------------------------------------------------------------------------

// IsRunning reports whether the server is accepting connections.
func (g *GRPCService) IsRunning() bool {
	return g.running.Load()
}

// Addr returns the bound listener address
func (g *GRPCService) Addr() string {
	return g.listener.Addr().String()
}
