package grpc_control

import (
	"context"
	"testing"
	"time"

	"network-monitor/src/config"
	"network-monitor/src/logger"
	"network-monitor/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

func TestGRPCService_Health(t *testing.T) {
	cfg := &config.Config{MConfig: &models.MConfig{Name: "test", GRPC_Host: "127.0.0.1", GRPC_Port: 0}}
	svc, err := NewGRPCService(cfg, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("NewGRPCService: %v", err)
	}
	if err := svc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		svc.Stop(ctx)
	}()
	if err := svc.Start(); err == nil {
		t.Error("second Start should fail")
	}

	conn, err := grpc.NewClient(svc.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer conn.Close()
	client := grpc_health_v1.NewHealthClient(conn)

	check := func(service string) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
		if err != nil {
			return grpc_health_v1.HealthCheckResponse_UNKNOWN, err
		}
		return resp.GetStatus(), nil
	}

	if got, err := check(""); err != nil || got != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Errorf("overall status = %v (err=%v), want NOT_SERVING", got, err)
	}

	svc.SetServingStatus("ltnm", true)
	svc.SetServingStatus("", true)
	if got, err := check("network-monitor.ltnm"); err != nil || got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("ltnm status = %v (err=%v), want SERVING", got, err)
	}
	if got, err := check(""); err != nil || got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("overall status = %v (err=%v), want SERVING", got, err)
	}

	svc.SetServingStatus("ltnm", false)
	if got, _ := check("network-monitor.ltnm"); got != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Errorf("ltnm status = %v, want NOT_SERVING", got)
	}

	if _, err := check("network-monitor.unknown"); status.Code(err) != codes.NotFound {
		t.Errorf("unknown service error = %v, want NotFound", err)
	}
}

func TestHealthServiceName(t *testing.T) {
	if HealthServiceName("") != "" || HealthServiceName("echo") != "network-monitor.echo" {
		t.Error("unexpected health service names")
	}
}
