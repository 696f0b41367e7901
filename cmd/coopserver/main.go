// Package main provides the co-op sync server binary: a WebSocket endpoint
// that keeps every connected client's view of scene occupancy in sync.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ashenvale/coop/internal/config"
	"github.com/ashenvale/coop/internal/game/session"
	"github.com/ashenvale/coop/internal/game/settings"
	"github.com/ashenvale/coop/internal/gameserver"
	"github.com/ashenvale/coop/internal/observability"
	"github.com/ashenvale/coop/internal/server"
	"github.com/ashenvale/coop/internal/transport/ws"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	settingsPath := flag.String("settings", "", "path to gameplay settings YAML; overrides game.settings_path")
	flag.Parse()

	// Local overrides for development; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	gameSettingsPath := cfg.Game.SettingsPath
	if *settingsPath != "" {
		gameSettingsPath = *settingsPath
	}
	gameSettings, err := settings.LoadFromFile(gameSettingsPath)
	if err != nil {
		logger.Fatal("loading gameplay settings",
			zap.String("path", gameSettingsPath),
			zap.Error(err),
		)
	}
	logger.Info("gameplay settings loaded",
		zap.String("path", gameSettingsPath),
		zap.Bool("pvp", gameSettings.PvPEnabled),
		zap.Int("sync_interval_ms", gameSettings.SyncIntervalMs),
	)

	registry := session.NewRegistry()
	dispatcher := gameserver.NewDispatcher(registry, nil, gameSettings, cfg.Liveness, logger)
	wsServer := ws.NewServer(dispatcher, logger)
	dispatcher.SetTransport(wsServer)

	root := chi.NewRouter()
	root.Mount("/", wsServer.Router())

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: root,
	}

	// SIGHUP re-reads the settings file and re-syncs every client. A broken
	// file keeps the running settings.
	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, syscall.SIGHUP)
	go func() {
		for range hupCh {
			reloaded, err := settings.LoadFromFile(gameSettingsPath)
			if err != nil {
				logger.Error("settings reload failed, keeping current settings",
					zap.String("path", gameSettingsPath),
					zap.Error(err),
				)
				continue
			}
			dispatcher.ReloadSettings(reloaded)
			logger.Info("gameplay settings reloaded",
				zap.String("path", gameSettingsPath),
			)
		}
	}()

	lifecycle := server.NewLifecycle(logger)

	// Added after the dispatcher so shutdown stops it first: the dispatcher's
	// shutdown broadcast needs live connections to reach anyone.
	lifecycle.Add("http", &server.FuncService{
		StartFn: func() error {
			logger.Info("websocket server listening",
				zap.String("addr", cfg.Server.Addr()),
			)
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		StopFn: func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			wsServer.Shutdown()
			if err := httpServer.Shutdown(ctx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
		},
	})

	lifecycle.Add("dispatcher", &server.FuncService{
		StartFn: dispatcher.Run,
		StopFn:  dispatcher.Stop,
	})

	logger.Info("sync server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("addr", cfg.Server.Addr()),
		zap.Bool("liveness", cfg.Liveness.Enabled),
	)

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
