package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"exista-mqtt-bridge/pkg/builder"
	"exista-mqtt-bridge/pkg/config"
	bridgeerrors "exista-mqtt-bridge/pkg/errors"
	"exista-mqtt-bridge/pkg/logger"
)

func main() {
	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Parse command line arguments
	configPath := ""
	diagnosticMode := false

	for i, arg := range os.Args[1:] {
		if arg == "--help" || arg == "-h" {
			fmt.Printf("Usage: %s [config_path] [--diagnostic]\n", os.Args[0])
			fmt.Printf("  config_path: Path to configuration file (optional)\n")
			fmt.Printf("  --diagnostic: Probe the device and print one reading, then exit\n")
			return
		} else if arg == "--diagnostic" {
			diagnosticMode = true
		} else if i == 0 { // First argument is config path
			configPath = arg
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		bridgeerrors.Handle(err)
		os.Exit(1)
	}
	logger.Setup(&cfg.Logging)
	logger.LogStartup("🚀 Exista MQTT bridge %s starting (serial %s, broker %s:%d)",
		builder.Version, cfg.Modbus.Port, cfg.MQTT.Broker, cfg.MQTT.Port)

	app, err := builder.NewApplicationBuilder(cfg).Build()
	if err != nil {
		logger.LogError("Application creation error: %v", err)
		os.Exit(1)
	}

	if diagnosticMode {
		err := app.DiagnosticMode(ctx)
		app.Stop()
		if err != nil {
			logger.LogError("Diagnostic failed: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := app.Run(ctx); err != nil {
		bridgeerrors.Handle(err)
		logger.LogError("💥 Exiting with diagnostic code %d, supervisor will restart the bridge",
			bridgeerrors.GetDiagnosticCode(err))
		os.Exit(1)
	}
	logger.LogInfo("📢 Stop signal received, bridge stopped")
}
