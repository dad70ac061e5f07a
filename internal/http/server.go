package httpapi

import (
	"net/http"
	"time"

	"sitedir-backend-go/internal/config"
	"sitedir-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	DB       *sqlx.DB
	Config   config.Config
	Sessions services.SessionService
	Prober   *services.Prober
	Hub      *services.EventHub
}

func NewServer(db *sqlx.DB, cfg config.Config, hub *services.EventHub) *Server {
	sessions := services.SessionService{
		Secret:   []byte(cfg.SessionSecret),
		Password: cfg.AdminPassword,
		TTL:      time.Duration(cfg.SessionTTLSeconds) * time.Second,
	}
	prober := services.NewProber(
		time.Duration(cfg.ProbeTimeoutSeconds)*time.Second,
		cfg.ProbeConcurrency,
		hub,
	)
	return &Server{
		DB:       db,
		Config:   cfg,
		Sessions: sessions,
		Prober:   prober,
		Hub:      hub,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Post("/admin/login", s.AdminLogin)
		api.Get("/sites", s.ListSites)

		api.Group(func(admin chi.Router) {
			admin.Use(WithAdmin(s.Sessions))
			admin.Post("/sites", s.CreateSite)
			admin.Post("/sites/check", s.CheckSites)
			admin.Patch("/sites/{siteId}", s.UpdateSite)
			admin.Delete("/sites/{siteId}", s.DeleteSite)
			admin.Get("/admin/metrics/history", s.MetricsHistory)
		})

		api.Route("/public", func(pub chi.Router) {
			pub.Post("/submit-site", s.SubmitSite)
			pub.Post("/visits", s.TrackVisit)
			pub.Get("/visits/count", s.VisitCount)
		})
	})

	r.Get("/ws/status", s.StatusSocket)
	return r
}
