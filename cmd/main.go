package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"attendance-ledger/config"
	"attendance-ledger/db"
	"attendance-ledger/handlers"
	"attendance-ledger/logger"
	"attendance-ledger/manager"
	"attendance-ledger/repository"
	"attendance-ledger/routers"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println("Config file error:", err)
		os.Exit(1)
	}

	if cfg.Log.AppLogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.AppLogFile), 0o755); err != nil {
			fmt.Println("Failed to create log directory:", err)
			os.Exit(1)
		}
	}
	if err := logger.InitLogger(cfg.Log.AppLogFile, cfg.Log.Level); err != nil {
		fmt.Println("Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Logger.Sync()

	logger.Logger.Info("Starting ledger server...", zap.Int("difficulty", cfg.Ledger.Difficulty))

	// Connect to LevelDB
	ldb, err := db.NewLevelDB(cfg.LevelDB.Path)
	if err != nil {
		logger.Logger.Fatal("Failed to open leveldb", zap.Error(err))
	}
	defer ldb.Close()

	// Initialize repository
	chainRepo := repository.NewChainRepository(ldb)

	// Every successful mutation is written back through the repository
	m := manager.New(cfg.Ledger.Difficulty, manager.WithObserver(repository.PersistChain(chainRepo)))

	orgs, subs, leaves, err := repository.LoadAll(chainRepo)
	if err != nil {
		logger.Logger.Fatal("Failed to load chains", zap.Error(err))
	}
	if err := m.Restore(orgs, subs, leaves); err != nil {
		logger.Logger.Warn("Some chains could not be restored", zap.Error(err))
	}

	// Initialize HTTP handlers
	h := handlers.NewHandler(m, chainRepo)

	// Setup router
	r := mux.NewRouter()
	routers.RegisterRoutes(r, h)

	// HTTP Server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Error("Server stopped", zap.Error(err))
		}
	}()

	logger.Logger.Info("Server running on port", zap.Int("port", cfg.Server.Port))

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Logger.Info("Shutdown signal received, exiting...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
