package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/casavista/appointment-engine/internal/api"
	"github.com/casavista/appointment-engine/internal/appointment"
	"github.com/casavista/appointment-engine/internal/bulk"
	"github.com/casavista/appointment-engine/internal/calendar"
	"github.com/casavista/appointment-engine/internal/config"
	"github.com/casavista/appointment-engine/internal/db"
	"github.com/casavista/appointment-engine/internal/notify"
	redisclient "github.com/casavista/appointment-engine/internal/redis"
	"github.com/casavista/appointment-engine/internal/syncer"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	var sink notify.Sink = notify.NopSink{}
	if cfg.AMQPURL != "" {
		amqpSink, err := notify.NewAMQPSink(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("amqp connection error: %v", err)
		}
		defer amqpSink.Close()
		sink = amqpSink
		log.Println("connected to AMQP broker")
	} else {
		log.Println("AMQP_URL not set, confirmation publishing disabled")
	}

	repo := appointment.NewPgRepository(pgPool)
	entries := calendar.NewPgRepository(pgPool)
	coord := syncer.NewCoordinator(entries)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	svc := appointment.NewService(repo, locker, coord, sink, cfg)
	proc := bulk.NewProcessor(svc, nil)
	feed := calendar.NewFeedService(entries, "Casavista Appointments")

	router := api.NewRouter(api.RouterConfig{
		Service: svc,
		Bulk:    proc,
		Feed:    feed,
		PgPool:  pgPool,
		Redis:   rdb,
		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
