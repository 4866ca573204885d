package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/tuya-ce-core/internal/activity"
	"github.com/nerrad567/tuya-ce-core/internal/api"
	"github.com/nerrad567/tuya-ce-core/internal/bridge"
	"github.com/nerrad567/tuya-ce-core/internal/capability"
	"github.com/nerrad567/tuya-ce-core/internal/catalog"
	"github.com/nerrad567/tuya-ce-core/internal/device"
	"github.com/nerrad567/tuya-ce-core/internal/gapanalysis"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/config"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/database"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/logging"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/mqtt"
	_ "github.com/nerrad567/tuya-ce-core/migrations"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MQTT bridge and HTTP API",
		Long: `Run the bridge: load the capability catalog, publish Home Assistant
discovery for every device the listener reports, normalise status updates,
and serve the HTTP API and WebSocket until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(false)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
}

// run is the actual application logic, separated from the command for testability.
// It returns nil on clean shutdown, or an error describing the failure.
func run(ctx context.Context, cfg *config.Config) error {
	log := logging.New(cfg.Logging, version)
	log.Info("starting tuyace",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	recorder := activity.NewRecorder(activity.NewSQLiteRepository(db.DB), log)

	// Load the catalog. Without any copy the bridge still tracks devices
	// and discovery follows once a refresh succeeds.
	store := newCatalogStore(db, cfg, log)
	if loadErr := store.Load(ctx, cfg.Catalog.RefreshOnStart); loadErr != nil {
		log.Warn("catalog unavailable, continuing with an empty table", "error", loadErr)
	}

	deviceRegistry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	deviceRegistry.SetLogger(log)
	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", deviceRegistry.GetDeviceCount())

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
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

	// The API server owns the WebSocket hub the bridge broadcasts through,
	// so it is created first and started after the bridge.
	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = newAPIServer(cfg, log, db, deviceRegistry, store, recorder)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
	}

	bridgeOpts := bridge.Options{
		MQTT:     mqttClient,
		Topics:   mqttClient.Topics(),
		QoS:      byte(cfg.MQTT.QoS), //nolint:gosec // validated to 0-2
		Registry: deviceRegistry,
		Catalog:  store,
		Activity: recorder,
		Logger:   log,
	}
	if influxClient != nil {
		bridgeOpts.Readings = influxClient
	}
	if apiServer != nil {
		bridgeOpts.Broadcaster = apiServer.Hub()
	}

	tuyaBridge, err := bridge.New(bridgeOpts)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := tuyaBridge.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		tuyaBridge.Stop()
	}()
	log.Info("bridge started")

	if apiServer != nil {
		apiServer.SetBridge(tuyaBridge)
		if err := apiServer.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// API server, bridge, InfluxDB (if enabled), MQTT, database.
	log.Info("tuyace stopped")
	return nil
}

// openDatabase opens the SQLite database and applies pending migrations.
func openDatabase(ctx context.Context, cfg *config.Config, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info("database connected", "path", cfg.Database.Path)

	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Debug("database migrations complete")
	return db, nil
}

// newCatalogStore builds a store backed by the database with the configured remote source.
func newCatalogStore(db *database.DB, cfg *config.Config, log *logging.Logger) *catalog.Store {
	fetcher := catalog.NewHTTPFetcher(cfg.Catalog.BaseURL, cfg.GetFetchTimeout())
	return catalog.NewStore(catalog.NewSQLiteRepository(db.DB), fetcher, log)
}

// newAnalyzer builds the gap analyzer with the configured options.
func newAnalyzer(cfg *config.Config, log *logging.Logger) *gapanalysis.Analyzer {
	classifier := capability.NewClassifier(capability.DefaultRules(), log)
	return gapanalysis.NewAnalyzer(classifier, gapanalysis.Options{
		MatchComponents: cfg.Analysis.MatchComponents,
	}, log)
}

func newAPIServer(cfg *config.Config, log *logging.Logger, db *database.DB, registry *device.Registry, store *catalog.Store, recorder *activity.Recorder) (*api.Server, error) {
	return api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Registry: registry,
		Catalog:  store,
		Analyzer: newAnalyzer(cfg, log),
		Reports:  gapanalysis.NewSQLiteRepository(db.DB),
		Activity: recorder,
		Version:  version,
	})
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when InfluxDB is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
