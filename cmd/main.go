package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"dag-explorer/cache"
	"dag-explorer/client"
	"dag-explorer/db"
	"dag-explorer/focus"
	"dag-explorer/handlers"
	"dag-explorer/layout"
	"dag-explorer/logger"
	"dag-explorer/models"
	"dag-explorer/repository"
	"dag-explorer/routers"
	"dag-explorer/ws"
)

func main() {
	// Load config
	viper.SetConfigFile("config/config.yaml")
	setDefaults()
	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("Config file error:", err)
		os.Exit(1)
	}

	appLogFile := viper.GetString("log.app_log_file")
	logLevel := viper.GetString("log.level")

	if err := logger.InitLogger(appLogFile, logLevel); err != nil {
		fmt.Println("Failed to initialize logger:", err)
		os.Exit(1)
	}

	logger.Logger.Info("Starting DAG explorer...")

	// Connect to LevelDB for persisted view state
	leveldbPath := viper.GetString("leveldb.path")
	ldb, err := db.NewLevelDB(leveldbPath)
	if err != nil {
		logger.Logger.Fatal("Failed to open leveldb", zap.Error(err))
	}
	defer ldb.Close()

	repo := repository.NewViewStateRepository(ldb)

	// Ledger query client against the local node
	nodeClient := client.NewNodeClient(
		viper.GetString("node.endpoint"),
		viper.GetDuration("node.timeout"),
	)

	// DAG state cache with polling and degraded-mode fallback
	cacheCfg := cache.DefaultConfig()
	cacheCfg.SnapshotLimit = viper.GetInt("cache.snapshot_limit")
	cacheCfg.FallbackLookback = viper.GetInt64("cache.fallback_lookback")
	cacheCfg.PollInterval = viper.GetDuration("cache.poll_interval")
	dagCache := cache.NewCache(nodeClient, cacheCfg)

	// Layout engine for the graph view
	layoutCfg := layout.DefaultConfig()
	layoutCfg.Width = viper.GetFloat64("layout.width")
	layoutCfg.Height = viper.GetFloat64("layout.height")
	layoutCfg.MinScale = viper.GetFloat64("layout.min_scale")
	layoutCfg.MaxScale = viper.GetFloat64("layout.max_scale")
	engine := layout.NewEngine(layoutCfg)

	resolver := focus.NewResolver(nodeClient, dagCache, repo)

	// Websocket hub: broadcasts refreshes, receives navigation events
	hub := ws.NewHub(func(hash string) {
		resolver.ResolveFocus(context.Background(), hash)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Every snapshot swap reseeds the layout and fans out to the consoles
	dagCache.OnRefresh(func(snap *models.DagSnapshot) {
		engine.SetSnapshot(snap)
		_, state, notice := dagCache.Snapshot()
		hub.Broadcast("snapshot", map[string]interface{}{
			"state":    state,
			"notice":   notice,
			"snapshot": snap,
		})
	})

	h := handlers.NewHandler(dagCache, resolver, engine, repo)

	// Setup router
	r := mux.NewRouter()
	routers.RegisterRoutes(r, h)
	r.HandleFunc("/ws", hub.Handle)

	// Restore persisted preferences and last focus
	if vs, err := repo.GetViewState(); err == nil {
		dagCache.SetAutoRefresh(vs.AutoRefresh)
	}
	resolver.RestoreLastFocus(ctx)

	// Start the poll loop and kick off the first refresh
	go dagCache.Run(ctx)
	go func() {
		if _, err := dagCache.Refresh(ctx); err != nil {
			logger.Logger.Warn("Initial refresh failed", zap.Error(err))
		}
	}()

	// HTTP Server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", viper.GetInt("server.port")),
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Logger.Info("Server stopped", zap.Error(err))
		}
	}()

	logger.Logger.Info("Server running on port", zap.Int("port", viper.GetInt("server.port")))

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Logger.Info("Shutdown signal received, exiting...")
	cancel()
	srv.Close()
}

func setDefaults() {
	viper.SetDefault("server.port", 8088)
	viper.SetDefault("node.endpoint", "http://127.0.0.1:8545")
	viper.SetDefault("node.timeout", 4*time.Second)
	viper.SetDefault("cache.snapshot_limit", 100)
	viper.SetDefault("cache.fallback_lookback", 20)
	viper.SetDefault("cache.poll_interval", 5*time.Second)
	viper.SetDefault("layout.width", 1200.0)
	viper.SetDefault("layout.height", 800.0)
	viper.SetDefault("layout.min_scale", 0.25)
	viper.SetDefault("layout.max_scale", 4.0)
	viper.SetDefault("leveldb.path", "data/viewstate")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.app_log_file", "")
}
