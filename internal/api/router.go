package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/expohall/booking-engine/internal/booking"
	redisclient "github.com/expohall/booking-engine/internal/redis"
)

type RouterConfig struct {
	Controller     *booking.Controller
	Service        *booking.Service
	Cache          *redisclient.AvailabilityCache
	PgPool         *pgxpool.Pool
	Redis          *redis.Client
	Logger         *zap.Logger
	JWTSecret      string
	ReserveTimeout time.Duration
	Env            string
	Version        string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	h := &handlers{
		ctrl:           cfg.Controller,
		svc:            cfg.Service,
		cache:          cfg.Cache,
		reserveTimeout: cfg.ReserveTimeout,
	}

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Display reads, no auth
	r.Get("/slots", h.listSlots)

	// Lifecycle operations require an authenticated actor
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Post("/appointments", h.reserve)
		r.Get("/appointments", h.listAppointments)
		r.Get("/appointments/{id}", h.getAppointment)
		r.Post("/appointments/{id}/cancel", h.cancel)
		r.Post("/appointments/{id}/confirm", h.confirm)
		r.Post("/appointments/{id}/decline", h.decline)
		r.Post("/appointments/{id}/complete", h.complete)
	})

	return r
}
