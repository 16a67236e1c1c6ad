package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Appointments AppointmentService
	Availability AvailabilityService
	Dependencies []Dependency
	Log          *zap.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.Dependencies, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", createAppointmentHandler(cfg.Appointments))
		r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
		r.Patch("/{id}/status", updateStatusHandler(cfg.Appointments))
		r.Delete("/{id}", deleteAppointmentHandler(cfg.Appointments))
	})

	r.Route("/availability", func(r chi.Router) {
		r.Post("/", createAvailabilityHandler(cfg.Availability))
		r.Get("/{id}", getSlotHandler(cfg.Availability))
		r.Put("/{id}", rescheduleSlotHandler(cfg.Availability))
		r.Delete("/{id}", deleteSlotHandler(cfg.Availability))
	})

	r.Get("/doctors/{doctorID}/availability", listDoctorAvailabilityHandler(cfg.Availability))

	return r
}
