// Command check watches a running game process and records locations as they
// are reached, without connecting to the service. It is used to verify
// location definitions against a live game.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cbodonnell/apclient/pkg/config"
	"github.com/cbodonnell/apclient/pkg/locations"
	"github.com/cbodonnell/apclient/pkg/log"
	"github.com/cbodonnell/apclient/pkg/memory"
	"github.com/cbodonnell/apclient/pkg/metrics"
	"github.com/cbodonnell/apclient/pkg/monitor"
	"github.com/cbodonnell/apclient/pkg/queue"
	"github.com/cbodonnell/apclient/pkg/repositories"
	"github.com/cbodonnell/apclient/pkg/state"
	"github.com/cbodonnell/apclient/pkg/types"
	"github.com/cbodonnell/apclient/pkg/version"
	"github.com/cbodonnell/apclient/pkg/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	locationsPath := flag.String("locations", "locations.json", "Path to the location definitions")
	pid := flag.Int("pid", 0, "PID of the game process")
	processName := flag.String("process", "", "Name of the game process, used when -pid is not set")
	game := flag.String("game", cfg.Game, "Game name, used to key the saved state")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level")
	flag.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Locations polled per goroutine")
	flag.DurationVar(&cfg.PollInterval, "interval", cfg.PollInterval, "Polling interval")
	flag.StringVar(&cfg.SaveDir, "save-dir", cfg.SaveDir, "Directory for JSON saves")
	flag.StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "Path to a SQLite database for saves")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Address to serve Prometheus metrics on, e.g. :9090")
	validateOnly := flag.Bool("validate", false, "Only validate the location definitions")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}
	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)
	log.Info("Starting check version %s", version.Get())

	list, err := loadLocations(*locationsPath)
	if err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	log.Info("Loaded %d locations from %s", len(list), *locationsPath)
	if *validateOnly {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if *metricsAddr != "" {
		m = metrics.New()
		go serveMetrics(ctx, *metricsAddr, m)
	}

	if err := run(ctx, cfg, m, *game, *pid, *processName, list); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		server.Close()
	}()
	log.Info("Serving metrics on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Metrics server stopped: %v", err)
	}
}

func loadLocations(path string) ([]locations.Checker, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read locations: %v", err)
	}
	list, err := locations.DecodeList(b)
	if err != nil {
		return nil, err
	}
	var errs []error
	for _, location := range list {
		if err := locations.Validate(location); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid locations: %v", errors.Join(errs...))
	}
	return list, nil
}

func openStores(ctx context.Context, cfg config.Config) ([]repositories.Store, error) {
	var stores []repositories.Store
	if cfg.SaveDir != "" {
		store, err := repositories.NewFileStore(cfg.SaveDir)
		if err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	if cfg.SQLitePath != "" {
		store, err := repositories.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	if cfg.DatabaseURL != "" {
		store, err := repositories.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	return stores, nil
}

func run(ctx context.Context, cfg config.Config, m *metrics.Metrics, game string, pid int, processName string, list []locations.Checker) error {
	if pid == 0 {
		if processName == "" {
			return fmt.Errorf("either -pid or -process must be set")
		}
		found, err := memory.FindProcess(processName)
		if err != nil {
			return err
		}
		pid = found
	}
	reader, err := memory.OpenProcess(pid)
	if err != nil {
		return err
	}
	log.Info("Attached to process %d", reader.PID())

	stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, store := range stores {
			if err := store.Close(context.Background()); err != nil {
				log.Warn("Failed to close %s store: %v", store.Name(), err)
			}
		}
	}()

	stateManager := state.NewManager(state.NewManagerOptions{
		Key:             types.SessionKey{Game: game, Seed: "offline"},
		Stores:          stores,
		StoreTimeout:    cfg.StoreTimeout,
		MinSaveInterval: cfg.MinSaveInterval,
		Metrics:         m,
	})
	gameState, err := stateManager.Load(ctx)
	if err != nil {
		return err
	}
	defer func() {
		saveCtx, cancel := context.WithTimeout(context.Background(), cfg.CloseTimeout)
		defer cancel()
		if err := stateManager.Save(saveCtx); err != nil {
			log.Error("Could not perform final save: %v", err)
		}
	}()

	pending := make([]locations.Checker, 0, len(list))
	for _, location := range list {
		if !gameState.IsLocationCompleted(location.Meta().ID) {
			pending = append(pending, location)
		}
	}
	log.Info("%d of %d locations already completed", len(list)-len(pending), len(list))

	eventQueue := queue.NewInMemoryQueue(cfg.EventQueueSize)
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	dispatched := make(chan struct{})
	eventDispatchWorker := workers.NewEventDispatchWorker(workers.NewEventDispatchWorkerOptions{
		EventQueue: eventQueue,
		Handler:    logEvent,
	})
	go func() {
		eventDispatchWorker.Start(workerCtx)
		close(dispatched)
	}()
	defer func() {
		cancelWorkers()
		<-dispatched
	}()

	saveGameStateWorker := workers.NewSaveGameStateWorker(workers.NewSaveGameStateWorkerOptions{
		StateManager: stateManager,
		Interval:     cfg.SaveInterval,
	})
	go saveGameStateWorker.Start(workerCtx)

	scheduler := monitor.NewScheduler(monitor.NewSchedulerOptions{
		Reader:    reader,
		BatchSize: cfg.BatchSize,
		Interval:  cfg.PollInterval,
		Metrics:   m,
	})
	return scheduler.Run(ctx, pending, func(ctx context.Context, location locations.Checker) {
		meta := location.Meta()
		var completed bool
		err := stateManager.Mutate(context.WithoutCancel(ctx), func(gameState *types.GameState) error {
			completed = gameState.CompleteLocation(meta.ID)
			return nil
		})
		if err != nil {
			log.Error("Failed to record location %d: %v", meta.ID, err)
			return
		}
		if completed {
			if err := eventQueue.Enqueue(types.LocationCompletedEvent{LocationID: meta.ID, LocationName: meta.Name}); err != nil {
				log.Warn("Failed to enqueue location completed event: %v", err)
			}
		}
		if _, err := stateManager.SaveIfDue(context.WithoutCancel(ctx)); err != nil {
			log.Error("Failed to save game state: %v", err)
		}
	})
}

func logEvent(ctx context.Context, event interface{}) {
	switch e := event.(type) {
	case types.LocationCompletedEvent:
		log.Info("%s (%d) Completed", e.LocationName, e.LocationID)
	default:
		log.Debug("Unhandled event %T", event)
	}
}
