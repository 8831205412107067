// DevSpace Core - IoT device space visualiser.
//
// This is the main entry point for the DevSpace Core service. It keeps an
// in-memory space of devices (Raspberry Pi hubs, LEDs, bulbs, lamps and
// sensors), lays them out for browsers connected over WebSocket, and turns
// the console output of a program running on the board into device status.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/devspace-core/internal/api"
	"github.com/nerrad567/devspace-core/internal/infrastructure/config"
	"github.com/nerrad567/devspace-core/internal/infrastructure/database"
	"github.com/nerrad567/devspace-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/devspace-core/internal/infrastructure/logging"
	"github.com/nerrad567/devspace-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/devspace-core/internal/layout"
	"github.com/nerrad567/devspace-core/internal/output"
	"github.com/nerrad567/devspace-core/internal/remote"
	"github.com/nerrad567/devspace-core/internal/space"
	"github.com/nerrad567/devspace-core/internal/telemetry"
	"github.com/nerrad567/devspace-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// historyPruneInterval is how often expired status history is deleted.
const historyPruneInterval = time.Hour

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // startup wiring: one step per component
	log := logging.Default()
	log.Info("starting DevSpace Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	session := telemetry.NewSessionID()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Space, layout and rendering. Everything below is wired before the
	// loop starts, so no task can observe a half-built space.
	loop := space.NewLoop(0)
	loop.SetLogger(log.Component("loop"))

	mgr := space.NewManager()
	mgr.SetLogger(log.Component("space"))

	engine := layout.New(mgr, float64(cfg.Space.ContainerWidth), float64(cfg.Space.ContainerHeight))
	engine.SetLogger(log.Component("layout"))
	engine.SetScheduler(loop.Post, cfg.ResizeDebounce())
	defer engine.Stop()
	mgr.SetLayout(engine)

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	hub.SetIndexer(mgr.IndexOf)
	mgr.SetRenderer(hub)
	engine.SetCanvas(hub)
	mgr.Subscribe(hub.Observe)

	// Telemetry
	history := telemetry.NewSQLiteHistoryRepository(db.DB)
	sink := telemetry.NewSink(cfg.Space.EventBuffer, session)
	sink.SetLogger(log.Component("telemetry"))
	sink.SetHistory(history)
	if mqttClient != nil {
		sink.SetPublisher(mqttClient)
	}
	if influxClient != nil {
		sink.SetWriter(influxClient)
	}
	registry.MustRegister(sink.Collectors()...)
	mgr.Subscribe(sink.Observe)

	// Output interpretation and accessories
	table := output.NewAccessoryTable()
	outputMetrics := output.NewMetrics()
	registry.MustRegister(outputMetrics.Collectors()...)

	interp := output.NewInterpreter(mgr, table)
	interp.SetLogger(log.Component("output"))
	interp.SetMetrics(outputMetrics)

	prov := output.NewProvisioner(mgr, table)
	prov.SetLogger(log.Component("accessories"))
	prov.SetStore(output.NewSQLiteAccessoryRepository(db.DB))

	// Background workers stop after the API server, in reverse order.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	go loop.Run(loopCtx)
	defer func() {
		stopLoop()
		<-loop.Done()
		log.Info("space loop stopped")
	}()

	sinkCtx, stopSink := context.WithCancel(context.Background())
	sinkDone := make(chan struct{})
	go func() {
		defer close(sinkDone)
		sink.Run(sinkCtx)
	}()
	defer func() {
		stopSink()
		<-sinkDone
	}()

	if err := restoreSpace(ctx, cfg.Space, loop, mgr, prov, log); err != nil {
		return fmt.Errorf("restoring space: %w", err)
	}

	if retention := cfg.HistoryRetention(); retention > 0 {
		go pruneHistory(ctx, history, retention, log)
	}

	onOutput := func(sum output.Summary) {
		if influxClient != nil {
			influxClient.WriteOutputSummary(sum.Applied, sum.Ignored, sum.Failed)
		}
	}
	applyChunk := func(chunk string) {
		err := loop.Post(func() {
			sum := interp.HandleOutputChunk(chunk)
			hub.Broadcast(api.ChannelOutput, sum)
			onOutput(sum)
		})
		if err != nil {
			log.Warn("output chunk dropped", "error", err)
		}
	}

	// Remote program output sources
	var runner *remote.Runner
	if cfg.Remote.Command != "" {
		runner = remote.NewRunner(remote.Config{
			Name:               "remote",
			Command:            cfg.Remote.Command,
			Args:               cfg.Remote.Args,
			WorkDir:            cfg.Remote.WorkDir,
			RestartOnFailure:   cfg.Remote.RestartOnFailure,
			RestartDelay:       time.Duration(cfg.Remote.RestartDelaySeconds) * time.Second,
			MaxRestartAttempts: cfg.Remote.MaxRestartAttempts,
		}, applyChunk)
		runner.SetLogger(log.Component("remote"))
		if err := runner.Start(ctx); err != nil {
			return fmt.Errorf("starting remote program: %w", err)
		}
		defer func() {
			log.Info("stopping remote program")
			if stopErr := runner.Stop(); stopErr != nil {
				log.Error("error stopping remote program", "error", stopErr)
			}
		}()
	}

	if mqttClient != nil && cfg.Remote.Topic != "" {
		feed := remote.NewFeed(mqttClient, cfg.Remote.Topic, byte(cfg.MQTT.QoS), applyChunk) //nolint:gosec // qos validated to 0-2
		feed.SetLogger(log.Component("remote"))
		if err := feed.Start(); err != nil {
			return fmt.Errorf("subscribing to remote output: %w", err)
		}
		defer func() {
			if stopErr := feed.Stop(); stopErr != nil {
				log.Error("error stopping remote feed", "error", stopErr)
			}
		}()
	}

	// API server
	deps := api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log.Component("api"),
		Loop:        loop,
		Space:       mgr,
		Layout:      engine,
		Interpreter: interp,
		Provisioner: prov,
		Hub:         hub,
		History:     history,
		Sink:        sink,
		Runner:      runner,
		DB:          db.DB,
		Gatherer:    registry,
		OnOutput:    onOutput,
		Session:     session,
		Version:     version,
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal", "session", session)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// loadConfig reads the configuration file. When no path is configured and
// the default file is absent, built-in defaults are used.
func loadConfig() (*config.Config, string, error) {
	path := getConfigPath()
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), "(defaults)", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// getConfigPath returns the configuration file path.
// Uses DEVSPACE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv(config.EnvPrefix + "CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// restoreSpace seeds the hub and replays the saved accessory table. The
// table is saved again afterwards because restored devices get new IDs
// and collection indexes.
func restoreSpace(ctx context.Context, cfg config.SpaceConfig, loop *space.Loop, mgr *space.Manager, prov *output.Provisioner, log *logging.Logger) error {
	entries, err := prov.Load(ctx)
	if err != nil {
		return err
	}

	err = loop.Do(ctx, func() error {
		if cfg.SeedHub && len(mgr.Hubs()) == 0 {
			hub, err := mgr.AddDevice(space.KindRPI)
			if err != nil {
				return fmt.Errorf("seeding hub: %w", err)
			}
			log.Info("hub seeded", "id", hub.ID)
		}
		restored := prov.Restore(entries)
		log.Info("accessories restored", "restored", restored, "stored", len(entries))
		return nil
	})
	if err != nil {
		return err
	}

	return prov.Save(ctx)
}

// pruneHistory deletes expired status history until ctx is cancelled.
func pruneHistory(ctx context.Context, history telemetry.HistoryRepository, retention time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(historyPruneInterval)
	defer ticker.Stop()

	for {
		n, err := history.PruneHistory(ctx, retention)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warn("pruning status history failed", "error", err)
		case n > 0:
			log.Info("status history pruned", "deleted", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// healthCheck verifies all infrastructure connections are healthy. The MQTT
// and InfluxDB clients may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
