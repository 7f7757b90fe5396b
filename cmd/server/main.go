package main // Entry point package

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/audit"
	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/database"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/router"
	"github.com/iliyamo/auth-service/internal/token"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(database.Config{
		User: cfg.DBUser, Pass: cfg.DBPass,
		Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	logs := repository.NewActivityRepo(db)

	codec := token.New(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	sessions := auth.NewService(users, tokens, audit.NewPublisher(), codec, cfg.BcryptCost)
	sweeper := auth.NewSweeper(tokens, codec, cfg.SweepMaxAge)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Recurring global + age sweeps, and the per-request sweep worker
	// fed by the access guard.  Both stop with the server.
	scheduler := auth.NewScheduler(sweeper, cfg.SweepInterval, cfg.SweepInitialDelay)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	dispatcher := auth.NewDispatcher(sweeper, cfg.SweepQueueDepth)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// Audit events flow through RabbitMQ into activity_logs; the
	// consumer reconnects on its own and never stops the server.
	go func() {
		if err := audit.StartConsumer(logs); err != nil {
			log.Printf("audit-consumer: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true

	router.RegisterRoutes(e)
	limiter := middleware.RateLimit(config.LoadRateLimitConfig(), config.NewRedisClient(cfg))
	router.RegisterAuth(e, handler.NewAuthHandler(sessions), codec, users, dispatcher, limiter)
	router.RegisterAdmin(e, handler.NewAdminHandler(sessions, users, logs), codec, users, dispatcher)

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	// Block until interrupted, then drain in-flight requests before the
	// deferred scheduler/dispatcher stops run.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
