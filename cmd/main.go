package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Smear6uard/Intelligent-LLM-Router/internal/api"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/config"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/gateway"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/middleware"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/mode"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/orchestrate"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/seed"
	"github.com/Smear6uard/Intelligent-LLM-Router/internal/store"
	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/cache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ERROR] loading config: %v", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("[ERROR] opening store: %v", err)
	}
	defer st.Close()

	// Redis is optional; without it per-client rate limiting is skipped.
	var rateCache *cache.Cache
	if addr := cfg.RedisAddr(); addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rateCache, err = cache.NewCache(ctx, addr, cfg.RedisPassword)
		cancel()
		if err != nil {
			log.Printf("[WARN]  redis unavailable (%v), rate limiting disabled", err)
			rateCache = nil
		} else {
			defer rateCache.Close()
		}
	}

	modes := mode.NewController(cfg.OpenRouterKey, cfg.SpendCapCents)
	if spent, err := st.SpendToday(context.Background()); err != nil {
		log.Printf("[WARN]  reading today's spend: %v", err)
	} else {
		modes.SeedSpend(spent)
	}
	log.Printf("[INFO]  starting in %s mode", modes.Evaluate())

	live := gateway.NewLive(cfg.OpenRouterKey)
	mock := gateway.NewMock()

	completer := orchestrate.NewCompleter(st, modes, live, mock)
	arena := orchestrate.NewArena(st, modes, live, mock)

	if cfg.SeedOnStart {
		count, err := seed.New(st, time.Now().UnixNano()).Run(context.Background())
		if err != nil {
			log.Printf("[WARN]  seeding demo data: %v", err)
		} else {
			log.Printf("[INFO]  database holds %d requests", count)
		}
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Logging())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimit(rateCache, modes, middleware.RateLimits{
		DemoMax:    cfg.DemoRateLimit,
		DemoWindow: cfg.DemoRateWindow,
		LiveMax:    cfg.LiveRateLimit,
		LiveWindow: cfg.LiveRateWindow,
	}))

	api.NewHandlers(st, modes, completer, arena).Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("[INFO]  listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[ERROR] server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[INFO]  shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("[ERROR] forced shutdown: %v", err)
	}
	log.Println("[INFO]  server exited")
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.DBDriver == "postgres" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		log.Printf("[INFO]  connecting to %s", cfg.RedactedDSN())
		return store.OpenPostgres(ctx, cfg.DSN())
	}
	log.Printf("[INFO]  opening sqlite database %s", cfg.DBPath)
	return store.OpenSQLite(cfg.DBPath)
}
