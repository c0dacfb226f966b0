package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"network-monitor/src/config"
	"network-monitor/src/grpc_control"
	"network-monitor/src/logger"
	"network-monitor/src/monitor"
)

func main() {
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewLogger(config, config.Name)

	networkMonitor, err := monitor.NewMonitor(config, appLogger)
	if err != nil {
		appLogger.Critical("failed to create monitor: %v", err)
		os.Exit(1)
	}

	healthService, err := grpc_control.NewGRPCService(config, appLogger)
	if err != nil {
		appLogger.Critical("failed to create health service: %v", err)
		os.Exit(1)
	}
	networkMonitor.Health = healthService

	if err := healthService.Start(); err != nil {
		appLogger.Critical("health service error: %v", err)
		os.Exit(1)
	}

	if err := networkMonitor.Start(); err != nil {
		appLogger.Critical("failed to start monitor: %v", err)
		shutdown(appLogger, networkMonitor, healthService)
		os.Exit(1)
	}

	appLogger.Info("network monitor running, gRPC health on %s", healthService.Addr())
	appLogger.Info("Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("shutting down...")
	shutdown(appLogger, networkMonitor, healthService)
}

// shutdown stops the monitor first so the health service reports the final
// NOT_SERVING states before it goes away.
func shutdown(log *logger.Logger, m *monitor.Monitor, health *grpc_control.GRPCService) {
	if err := m.Stop(); err != nil {
		log.Error("failed to stop monitor: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	health.Stop(ctx)
}
