package main

import (
	"github.com/wfunc/radarserver/config"
	"github.com/wfunc/radarserver/logger"
	"github.com/wfunc/radarserver/monitor"
	"github.com/wfunc/radarserver/persistence"
	"github.com/wfunc/radarserver/server"
	"github.com/wfunc/radarserver/services"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize telemetry store (optional; rooms are memory-only either way)
	var store persistence.TelemetryStore
	if cfg.Database.Enabled {
		pg := cfg.Database.Postgres
		switch cfg.Database.Driver {
		case "postgres":
			store, err = persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		default:
			store, err = persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		}
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		defer store.Close()
		logger.Log.Info("Telemetry store connected.")
	} else {
		logger.Log.Info("Telemetry persistence disabled.")
	}
	telemetry := services.NewTelemetryService(store)

	// Initialize monitoring
	metrics := monitor.NewMonitor("radar")
	metrics.StartServer(cfg.Server.MonitorAddress)

	// Initialize Radar Server
	radarServer := server.NewRadarServer(cfg.Server.HTTPAddress, cfg.Server.RPCAddress, telemetry, metrics)

	// Start Server
	logger.Log.Infof("Starting radar server on %s", cfg.Server.HTTPAddress)
	if err := radarServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
