package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/PRautomacao/saude-certa/internal/finance"
	"github.com/PRautomacao/saude-certa/internal/patients"
	"github.com/PRautomacao/saude-certa/internal/schedule"
)

type RouterConfig struct {
	Ledger   *schedule.Ledger
	Patients patients.Repository
	Finance  *finance.Repository
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Log      *zap.Logger

	WebhookToken   string
	AdminJWTSecret string
	Env            string
	Version        string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// public site surface
	r.Post("/chat", chatHandler())

	// automation endpoint (n8n / WhatsApp)
	webhook := NewWebhookHandler(cfg.Ledger, cfg.Patients, cfg.Log)
	r.Route("/webhook", func(r chi.Router) {
		r.Get("/", webhook.Status)
		r.With(WebhookToken(cfg.WebhookToken)).Post("/", webhook.Dispatch)
	})

	// back office
	r.Route("/admin", func(r chi.Router) {
		r.Use(AdminJWT(cfg.AdminJWTSecret))

		r.Get("/slots", listSlotsHandler(cfg.Ledger))
		r.Get("/agenda", agendaHandler(cfg.Ledger))
		r.Get("/agenda/month", monthAgendaHandler(cfg.Ledger))

		r.Post("/appointments", bookAppointmentHandler(cfg.Ledger))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Ledger))
		r.Put("/appointments/{id}", updateAppointmentHandler(cfg.Ledger))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Ledger))
		r.Patch("/appointments/{id}/status", updateStatusHandler(cfg.Ledger))

		r.Get("/patients", listPatientsHandler(cfg.Patients))
		r.Post("/patients", upsertPatientHandler(cfg.Patients))
		r.Get("/patients/{id}", getPatientHandler(cfg.Patients))
		r.Delete("/patients/{id}", deactivatePatientHandler(cfg.Patients))

		r.Get("/finance", listFinanceHandler(cfg.Finance))
		r.Post("/finance", upsertFinanceHandler(cfg.Finance))
		r.Post("/finance/{id}/pay", markPaidHandler(cfg.Finance))
		r.Get("/finance/flow", yearFlowHandler(cfg.Finance))

		r.Get("/dashboard", dashboardHandler(cfg.Ledger, cfg.Finance, time.Now))
	})

	return r
}
