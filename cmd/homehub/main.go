// HomeHub - Home Device Hub
//
// This is the main entry point for the HomeHub application.
// HomeHub is a small smart-home hub designed for:
//   - Single-household deployment on a LAN
//   - Offline-first operation (the router and devices are local)
//   - Mixed device estates (Matter, Yeelight LAN, Wake-on-LAN)
//   - Control from a REST API, WebSocket clients and a Telegram bot
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/akarpov/homehub/migrations"

	"github.com/akarpov/homehub/internal/api"
	"github.com/akarpov/homehub/internal/bot"
	"github.com/akarpov/homehub/internal/bridges/matter"
	"github.com/akarpov/homehub/internal/bridges/wol"
	"github.com/akarpov/homehub/internal/bridges/yeelight"
	"github.com/akarpov/homehub/internal/control"
	"github.com/akarpov/homehub/internal/device"
	"github.com/akarpov/homehub/internal/infrastructure/config"
	"github.com/akarpov/homehub/internal/infrastructure/database"
	"github.com/akarpov/homehub/internal/infrastructure/influxdb"
	"github.com/akarpov/homehub/internal/infrastructure/logging"
	"github.com/akarpov/homehub/internal/infrastructure/mqtt"
	"github.com/akarpov/homehub/internal/presence"
	"github.com/akarpov/homehub/internal/process"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting HomeHub",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise device registry
	deviceRepo := device.NewSQLiteRepository(db.DB)
	deviceRegistry := device.NewRegistry(deviceRepo)
	deviceRegistry.SetLogger(log)

	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", deviceRegistry.GetDeviceCount())

	// Connect to MQTT broker
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
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Set up MQTT logging callbacks
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the Matter controller bridge process (if managed)
	if cfg.Matter.Bridge.Managed {
		bridgeManager, startErr := startMatterBridge(ctx, cfg, mqttClient, log)
		if startErr != nil {
			return fmt.Errorf("starting Matter bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping Matter bridge")
			if stopErr := bridgeManager.Stop(); stopErr != nil {
				log.Error("error stopping Matter bridge", "error", stopErr)
			}
		}()
	} else {
		log.Info("Matter bridge not managed, expecting external process")
	}

	// Matter controller client, speaking to the bridge over MQTT
	matterClient, err := matter.NewClient(matter.ClientOptions{
		MQTT:              &mqttBridgeAdapter{client: mqttClient},
		RequestTimeout:    time.Duration(cfg.Matter.RequestTimeout) * time.Second,
		CommissionTimeout: time.Duration(cfg.Matter.CommissionTimeout) * time.Second,
		Logger:            log,
	})
	if err != nil {
		return fmt.Errorf("creating Matter client: %w", err)
	}

	// Yeelight LAN client and Wake-on-LAN sender
	yeelightClient := yeelight.NewClient(yeelight.ClientOptions{
		Port:    cfg.Yeelight.Port,
		Timeout: time.Duration(cfg.Yeelight.Timeout) * time.Second,
	})
	wolSender := wol.NewSender(wol.SenderOptions{
		BroadcastAddress: cfg.Wake.BroadcastAddress,
		Port:             cfg.Wake.Port,
	})

	// Router presence source (optional)
	var presenceSource presence.Source
	if cfg.Router.BaseURL != "" {
		presenceSource, err = presence.NewHTTPSource(presence.HTTPSourceOptions{
			BaseURL:  cfg.Router.BaseURL,
			Username: cfg.Router.Username,
			Password: cfg.Router.Password,
			Timeout:  cfg.GetRouterTimeout(),
		})
		if err != nil {
			return fmt.Errorf("creating router presence source: %w", err)
		}
		log.Info("router presence source initialised", "base_url", cfg.Router.BaseURL)
	} else {
		log.Info("router presence disabled, devices will report offline")
	}

	// Power history sink (optional, needs InfluxDB)
	var historian control.Historian
	if influxClient != nil {
		historian = &influxHistorian{client: influxClient}
	}

	// Control layer: dispatcher routes commands, aggregator builds views
	dispatcher, err := control.NewDispatcher(control.DispatcherOptions{
		Registry: deviceRegistry,
		Presence: presenceSource,
		Mesh:     matterClient,
		Lighting: yeelightClient,
		Waker:    wolSender,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	aggregator, err := control.NewAggregator(control.AggregatorOptions{
		Registry:  deviceRegistry,
		Presence:  presenceSource,
		Mesh:      matterClient,
		Lighting:  yeelightClient,
		Historian: historian,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("creating aggregator: %w", err)
	}

	// Telegram bot (optional)
	if cfg.Telegram.Enabled {
		if botErr := startBot(ctx, cfg, db, deviceRegistry, dispatcher, aggregator, log); botErr != nil {
			return fmt.Errorf("starting Telegram bot: %w", botErr)
		}
		log.Info("Telegram bot started", "allowed_chats", len(cfg.Telegram.AllowedChats))
	} else {
		log.Info("Telegram bot disabled")
	}

	// REST API and WebSocket server
	apiServer, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log,
		Registry:  deviceRegistry,
		Commander: dispatcher,
		States:    aggregator,
		MQTT:      mqttClient,
		DB:        db,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"host", cfg.API.Host,
		"port", cfg.API.Port,
		"tls", cfg.API.TLS.Enabled,
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Matter bridge (if managed)
	// 3. InfluxDB (if enabled)
	// 4. MQTT
	// 5. Database

	log.Info("HomeHub stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMEHUB_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMEHUB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// startMatterBridge launches the external Matter controller bridge under
// the process supervisor. The bridge speaks the request/response protocol
// on the MQTT bus; its health topic doubles as the watchdog signal.
func startMatterBridge(ctx context.Context, cfg *config.Config, mqttClient *mqtt.Client, log *logging.Logger) (*process.Manager, error) {
	bridgeCfg := process.DefaultConfig("matter-bridge", cfg.Matter.Bridge.Binary, cfg.Matter.Bridge.Args)
	bridgeCfg.RestartOnFailure = cfg.Matter.Bridge.RestartOnFailure
	bridgeCfg.RestartDelay = time.Duration(cfg.Matter.Bridge.RestartDelaySeconds) * time.Second
	bridgeCfg.MaxRestartAttempts = cfg.Matter.Bridge.MaxRestartAttempts
	bridgeCfg.HealthCheckInterval = cfg.Matter.Bridge.HealthCheckInterval
	bridgeCfg.HealthCheckFunc = func(ctx context.Context) error {
		return mqttClient.HealthCheck(ctx)
	}
	bridgeCfg.OnRestart = func(attempt int) {
		log.Warn("Matter bridge restarted", "attempt", attempt)
	}

	manager := process.NewManager(bridgeCfg)
	manager.SetLogger(log)

	log.Info("starting Matter bridge", "binary", cfg.Matter.Bridge.Binary)

	if err := manager.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting bridge process: %w", err)
	}

	return manager, nil
}

// startBot wires up the Telegram bot and runs its update loop in the
// background. The loop exits when ctx is cancelled.
func startBot(ctx context.Context, cfg *config.Config, db *database.DB, registry *device.Registry, dispatcher *control.Dispatcher, aggregator *control.Aggregator, log *logging.Logger) error {
	machine, err := bot.NewMachine(registry, registry)
	if err != nil {
		return fmt.Errorf("creating conversation machine: %w", err)
	}

	tgBot, err := bot.NewBot(bot.BotOptions{
		Token:        cfg.Telegram.Token,
		AllowedChats: cfg.Telegram.AllowedChats,
		Machine:      machine,
		Sessions:     bot.NewSQLiteSessionStore(db.DB),
		Devices:      registry,
		Commander:    dispatcher,
		States:       aggregator,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("creating bot: %w", err)
	}

	go func() {
		if runErr := tgBot.Run(ctx); runErr != nil {
			log.Error("Telegram bot stopped", "error", runErr)
		}
	}()

	return nil
}

// influxHistorian adapts the InfluxDB client to the control layer's
// Historian interface. Writes are batched and asynchronous.
type influxHistorian struct {
	client *influxdb.Client
}

// RecordPower implements control.Historian.
func (h *influxHistorian) RecordPower(dev *device.Device, power device.PowerState, online bool) {
	h.client.WritePowerState(strconv.FormatInt(dev.ID, 10), string(power), online)
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the Matter
// client's MQTTClient interface. The difference is the Subscribe handler
// signature:
// - Infrastructure mqtt: func(topic string, payload []byte) error
// - Matter client expects: func(topic string, payload []byte)
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements matter.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements matter.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	// Wrap the void handler to return nil error
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// Unsubscribe implements matter.MQTTClient.
func (a *mqttBridgeAdapter) Unsubscribe(topic string) error {
	return a.client.Unsubscribe(topic)
}
