package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/expohall/booking-engine/internal/booking"
	"github.com/expohall/booking-engine/internal/config"
	"github.com/expohall/booking-engine/internal/db"
	"github.com/expohall/booking-engine/internal/logging"
	"github.com/expohall/booking-engine/internal/notify"
)

// The sweeper walks appointments whose slot has ended: pending ones are
// cancelled (releasing their seats), confirmed ones are completed.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log, err := logging.New(cfg.Env)
	if err != nil {
		panic("logger init error: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("sweeper starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.SweepInterval),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	var emitter booking.Emitter = booking.NopEmitter{}
	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			log.Fatal("rabbitmq connection error", zap.Error(err))
		}
		defer func() { _ = conn.Close() }()

		pub, err := notify.NewPublisher(conn, log)
		if err != nil {
			log.Fatal("rabbitmq publisher error", zap.Error(err))
		}
		defer func() { _ = pub.Close() }()
		emitter = pub
		log.Info("connected to RabbitMQ")
	}

	store := booking.NewPgStore(pgPool)
	svc := booking.NewService(store, emitter, log)

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping sweeper")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, log *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	swept, err := svc.SweepEnded(runCtx, start.UTC())
	if err != nil {
		log.Warn("sweep run error", zap.Error(err))
		return
	}
	log.Info("sweep run complete",
		zap.Int("swept", swept),
		zap.Duration("took", time.Since(start)),
	)
}
