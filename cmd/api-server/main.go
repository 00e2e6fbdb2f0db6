package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/expohall/booking-engine/internal/api"
	"github.com/expohall/booking-engine/internal/booking"
	"github.com/expohall/booking-engine/internal/config"
	"github.com/expohall/booking-engine/internal/db"
	"github.com/expohall/booking-engine/internal/logging"
	"github.com/expohall/booking-engine/internal/notify"
	redisclient "github.com/expohall/booking-engine/internal/redis"
)

const version = "1.2.0"

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

	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
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

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", zap.Error(err))
		}
	}()
	log.Info("connected to Redis")

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
	} else {
		log.Warn("AMQP_URL not set, lifecycle events will be dropped")
	}

	store := booking.NewPgStore(pgPool)
	svc := booking.NewService(store, emitter, log)
	ctrl := booking.NewController(svc)
	cache := redisclient.NewAvailabilityCache(rdb, cfg.CacheTTL)

	router := api.NewRouter(api.RouterConfig{
		Controller:     ctrl,
		Service:        svc,
		Cache:          cache,
		PgPool:         pgPool,
		Redis:          rdb,
		Logger:         log,
		JWTSecret:      cfg.JWTSecret,
		ReserveTimeout: cfg.ReserveTimeout,
		Env:            cfg.Env,
		Version:        version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown error", zap.Error(err))
	}
}
