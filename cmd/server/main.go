package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/storefront/internal/adapter/auth"
	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/notify"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	log.Println("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	log.Println("connected to redis")

	// Initialize adapters
	backend := storage.NewMySQLAdapter(db)
	feed := storage.NewRedisFeed(rdb)

	// One engine bundle per browser session
	factory := func(ctx context.Context, sessionID string) (*handler.EngineBundle, error) {
		local := storage.NewFileCartStore(cfg.StateDir, sessionID)
		notifier := notify.NewLogNotifier(sessionID)

		cart := service.NewCartService(local, backend, backend, notifier, cfg.OpTimeout)
		settings := service.NewSettingsCache(backend, backend, feed)
		if err := settings.Start(ctx); err != nil {
			return nil, err
		}

		dispatcher := service.NewSessionDispatcher(cart, settings)
		dispatcher.Dispatch(ctx, domain.SessionEvent{Kind: domain.SessionInitial})

		return &handler.EngineBundle{Cart: cart, Settings: settings, Sessions: dispatcher}, nil
	}
	registry := handler.NewSessionRegistry(factory)

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(registry, auth.NewTokenVerifier(cfg.JWTSecret))
	mux := http.NewServeMux()
	httpHandler.Register(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	registry.Close()
	log.Println("session bundles released")

	rdb.Close()
	db.Close()
	log.Println("connections closed")
}
