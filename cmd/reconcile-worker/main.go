package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/casavista/appointment-engine/internal/appointment"
	"github.com/casavista/appointment-engine/internal/calendar"
	"github.com/casavista/appointment-engine/internal/config"
	"github.com/casavista/appointment-engine/internal/db"
	"github.com/casavista/appointment-engine/internal/syncer"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("reconcile-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running reconcile worker in env=%s schedule=%q", cfg.Env, cfg.ReconcileCron)

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

	repo := appointment.NewPgRepository(pgPool)
	entries := calendar.NewPgRepository(pgPool)
	rec := syncer.NewReconciler(repo, syncer.NewCoordinator(entries))

	// Run once at startup so a restart never waits a full schedule interval
	// to heal the mirror.
	runOnce(rootCtx, rec)

	c := cron.New()
	if _, err := c.AddFunc(cfg.ReconcileCron, func() {
		runOnce(rootCtx, rec)
	}); err != nil {
		log.Fatalf("invalid reconcile schedule %q: %v", cfg.ReconcileCron, err)
	}
	c.Start()

	<-rootCtx.Done()

	log.Println("shutdown signal received, stopping reconcile worker")
	<-c.Stop().Done()
}

func runOnce(ctx context.Context, rec *syncer.Reconciler) {
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	start := time.Now()
	report, err := rec.Run(runCtx)
	if err != nil {
		log.Printf("reconcile run error: %v", err)
		return
	}
	log.Printf("reconcile run complete in %s: total=%d synced=%d failed=%d",
		time.Since(start), report.Total, report.Synced, report.Failed)
}
