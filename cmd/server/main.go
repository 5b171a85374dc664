package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AaronLay10/AdventureEngine/internal/adventure"
	"github.com/AaronLay10/AdventureEngine/internal/api"
	"github.com/AaronLay10/AdventureEngine/internal/config"
	"github.com/AaronLay10/AdventureEngine/internal/events"
	"github.com/AaronLay10/AdventureEngine/internal/mqtt"
	"github.com/AaronLay10/AdventureEngine/internal/storage/postgres"
	"github.com/AaronLay10/AdventureEngine/internal/storage/sqlite"
	"github.com/AaronLay10/AdventureEngine/internal/version"
)

type LogLine struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// logEvent records the event in the journal and prints it as one JSON line.
func logEvent(level, event, msg string, fields map[string]interface{}) {
	b, err := events.Emit(level, event, msg, fields)
	if err != nil {
		b, _ = json.Marshal(LogLine{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Level:     level,
			Event:     event,
			Message:   msg,
			Fields:    fields,
		})
	}
	fmt.Println(string(b))
}

func fatal(msg string, err error) {
	logEvent("error", "system.error", msg, map[string]interface{}{"error": err.Error()})
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	flag.Parse()

	cfg, err := config.LoadAppConfig(*configPath)
	if err != nil {
		fatal("failed to load config", err)
	}

	hostname, _ := os.Hostname()
	logEvent("info", "system.startup", "adventure server starting", map[string]interface{}{
		"service":  "adventure",
		"hostname": hostname,
		"pid":      os.Getpid(),
		"version":  version.Version,
	})

	api.InitMetrics()
	api.InitTLS()
	api.InitAlerts()
	if err := api.InitAuth(); err != nil {
		fatal("failed to initialize auth", err)
	}

	a, err := adventure.Load(cfg.AdventurePath())
	if err != nil {
		fatal("failed to load adventure", err)
	}

	var pg *postgres.Client
	pgRequired := cfg.StorageDriver() == config.StoragePostgres
	if pgRequired || cfg.Telemetry.Postgres {
		pg, err = postgres.New(cfg.InstanceID())
		if err != nil {
			if pgRequired {
				fatal("failed to connect to postgres", err)
			}
			logEvent("error", "system.error", "postgres unavailable, telemetry not stored", map[string]interface{}{"error": err.Error()})
		} else {
			defer pg.Close()
			events.AddSink(pg)
		}
		api.SetPostgresState(pg != nil, !pgRequired)
	}

	var store adventure.ProgressStore
	switch cfg.StorageDriver() {
	case config.StorageSQLite:
		s, err := sqlite.Open(cfg.SQLitePath())
		if err != nil {
			fatal("failed to open sqlite store", err)
		}
		defer s.Close()
		store = s
	case config.StoragePostgres:
		store = pg
	default:
		store = adventure.NewMemoryStore()
	}

	engine := adventure.NewEngine(a, store, nil)
	api.SetAdventureID(a.ID)
	api.SetAdventureReady(true)
	api.SetLastReload(time.Now())

	watcher, err := adventure.NewWatcher(cfg.AdventurePath(), engine)
	if err != nil {
		fatal("failed to create adventure watcher", err)
	}
	defer watcher.Stop()
	watcher.OnReload(func(a *adventure.Adventure) {
		api.SetAdventureID(a.ID)
		api.SetLastReload(time.Now())
	})
	if cfg.Adventure.Watch {
		watcher.Start()
	}

	var broker *mqtt.Client
	if cfg.Telemetry.MQTTBroker != "" {
		creds, err := config.ResolveCredentials("ADVENTURE_MQTT")
		if err != nil {
			fatal("failed to resolve mqtt credentials", err)
		}
		broker = mqtt.NewClient(mqtt.Options{
			Broker:      cfg.Telemetry.MQTTBroker,
			ClientID:    "adventure-" + cfg.InstanceID(),
			Username:    creds.User,
			Password:    creds.Pass,
			StatusTopic: cfg.MQTTPrefix() + "/status",
		})
		connected := broker.Start()
		if !connected && !cfg.Telemetry.MQTTOptional {
			fatal("failed to connect to mqtt", fmt.Errorf("broker %s unreachable", broker.Broker()))
		}
		defer broker.Disconnect()
		api.SetMQTTState(connected, cfg.Telemetry.MQTTOptional)
		events.AddSink(mqtt.NewTelemetrySink(broker, cfg.MQTTPrefix()))

		control := mqtt.NewControlSubscriber(broker, watcher, cfg.MQTTPrefix())
		if connected {
			if err := control.Subscribe(); err != nil {
				logEvent("error", "system.error", "mqtt control subscribe failed", map[string]interface{}{"error": err.Error()})
			}
		}
		go monitorMQTT(broker, control, cfg.Telemetry.MQTTOptional)
	}
	if pg != nil {
		go monitorPostgres(pg, !pgRequired)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopAlerts := make(chan struct{})
	api.StartAlertMonitor(10*time.Second, stopAlerts)
	defer close(stopAlerts)

	srv := api.NewServer(api.Options{
		Engine:        engine,
		AdventurePath: cfg.AdventurePath(),
		Reloader:      watcher,
		History:       historyOf(pg),
		PublishRate:   cfg.PublishRate(),
		PublishBurst:  cfg.PublishBurst(),
	})

	log.Printf("server: adventure %s loaded (%d steps), storage=%s sinks=%v",
		a.ID, len(a.Steps), cfg.StorageDriver(), events.SinkNames())

	if err := srv.Serve(ctx, cfg.Addr()); err != nil {
		fatal("server failed", err)
	}

	logEvent("info", "system.shutdown", "adventure server stopped", nil)
}

// historyOf keeps a nil client from becoming a non-nil interface.
func historyOf(pg *postgres.Client) api.EventHistory {
	if pg == nil {
		return nil
	}
	return pg
}

func monitorMQTT(c *mqtt.Client, control *mqtt.ControlSubscriber, optional bool) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		connected := c.IsConnected()
		api.SetMQTTState(connected, optional)
		if !connected {
			control.ClearSubscription()
			continue
		}
		if err := control.Subscribe(); err != nil {
			fmt.Fprintf(os.Stderr, "mqtt: control subscribe failed: %v\n", err)
		}
	}
}

func monitorPostgres(pg *postgres.Client, optional bool) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := pg.Ping(ctx)
		cancel()
		api.SetPostgresState(err == nil, optional)
	}
}
