package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chatwindow/internal/cache"
	"chatwindow/internal/config"
	"chatwindow/internal/domain"
	"chatwindow/internal/events"
	chatredis "chatwindow/internal/redis"
	"chatwindow/internal/server"
	"chatwindow/internal/services"
	"chatwindow/internal/snapshot"
	"chatwindow/internal/transport"
	"chatwindow/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.App.Environment)
	logger.SetGlobalLogger(appLogger)
	defer appLogger.Logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := cache.NewStore()

	var snap *snapshot.Store
	if cfg.Snapshot.Enabled {
		snap, err = snapshot.Open(cfg.Snapshot.Path, appLogger)
		if err != nil {
			log.Fatalf("Failed to open snapshot store: %v", err)
		}
		defer snap.Close()

		if page, ok, err := snap.Load(); err != nil {
			appLogger.Warnf("snapshot load failed: %v", err)
		} else if ok {
			store.Merge(page, cache.DirInitial)
			appLogger.Infof("snapshot restored edges=%d", len(page.Edges))
		}
	}

	api := transport.NewAPIClient(cfg.API.BaseURL, cfg.API.Token, cfg.API.Timeout)
	coordinator := services.NewSendCoordinator(store, api, appLogger, domain.SenderAdmin, cfg.App.ReconnectDelay)
	session := services.NewChatSession(store, api, coordinator, appLogger, cfg.App.PageSize, domain.SenderAdmin, cfg.App.ReconnectDelay)
	coordinator.OnDisconnect(func() {
		if err := session.Reload(ctx); err != nil {
			appLogger.Warnf("reconnect probe failed: %v", err)
		}
	})

	dispatcher := events.NewDispatcher(session, appLogger, 64)
	dispatcher.OnOverflow(func() {
		if err := session.Reload(ctx); err != nil {
			appLogger.Warnf("overflow re-fetch failed: %v", err)
		}
	})
	go dispatcher.Run(ctx)

	feed := transport.NewPushFeed(cfg.Push.WebSocketURL, dispatcher, appLogger, cfg.App.ReconnectDelay)
	go feed.Run(ctx)

	if cfg.Redis.Enabled {
		client, err := chatredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer client.Close()
		redisFeed := chatredis.NewFeed(client, dispatcher, appLogger)
		go func() {
			if err := redisFeed.Run(ctx); err != nil && ctx.Err() == nil {
				appLogger.Errorf("redis feed stopped: %v", err)
			}
		}()
	}

	if err := session.Load(ctx); err != nil {
		appLogger.Warnf("initial load failed, retry scheduled: %v", err)
	}

	if snap != nil {
		go persistLoop(ctx, store, snap, appLogger)
	}

	if cfg.Debug.Enabled {
		debug := server.NewDebugServer(session, appLogger, cfg.Debug.Addr)
		go func() {
			if err := debug.Run(); err != nil {
				appLogger.Errorf("debug server stopped: %v", err)
			}
		}()
	}

	<-ctx.Done()
	appLogger.Infof("shutting down")
}

// persistLoop snapshots the window periodically and once more on shutdown.
func persistLoop(ctx context.Context, store *cache.Store, snap *snapshot.Store, log *logger.Logger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			save(store, snap, log)
			return
		case <-ticker.C:
			save(store, snap, log)
		}
	}
}

func save(store *cache.Store, snap *snapshot.Store, log *logger.Logger) {
	page, ok := store.GetPage()
	if !ok {
		return
	}
	if err := snap.Save(page); err != nil {
		log.Warnf("snapshot save failed: %v", err)
	}
}
