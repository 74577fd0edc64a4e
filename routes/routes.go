package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"ttnmanager/handlers"
	"ttnmanager/metrics"
	"ttnmanager/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Clients      *handlers.ClientHandler
	Geo          *handlers.GeoHandler
	Counterparty *handlers.CounterpartyHandler
	Senders      *handlers.SenderHandler
	Settings     *handlers.SettingsHandler
	TTN          *handlers.TTNHandler
}

// Pinger is a dependency /healthz checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	// DB is pinged by /healthz when set.
	DB Pinger
}

func SetupRoutes(h Handlers, verifier *middleware.Verifier, opts Options, logger *zap.Logger, m *metrics.Metrics) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger, m))
	r.Use(middleware.Recover(logger))
	r.Use(chimw.Timeout(opts.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", healthz(opts.DB, logger))
	r.Method(http.MethodGet, "/metrics", m.Handler())

	// Geography lookups need no account.
	r.Route("/geo", func(r chi.Router) {
		r.Get("/cities", h.Geo.Cities)
		r.Get("/warehouses", h.Geo.Warehouses)
		r.Get("/popular-cities", h.Geo.Popular)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(verifier, logger))

		r.Route("/clients", func(r chi.Router) {
			r.Post("/", h.Clients.CreateClient)
			r.Get("/", h.Clients.ListClients)
			r.Delete("/{id}", h.Clients.DeleteClient)
			r.Post("/{id}/locations", h.Clients.AddLocation)
		})
		r.Delete("/client-locations/{id}", h.Clients.DeleteLocation)

		r.Post("/counterparty", h.Counterparty.CreateCounterparty)
		r.Post("/contact-person", h.Counterparty.CreateContactPerson)
		r.Get("/counterparties", h.Counterparty.ListCounterparties)
		r.Get("/counterparty-addresses", h.Counterparty.ListAddresses)
		r.Get("/counterparty-contact-persons", h.Counterparty.ListContactPersons)

		r.Route("/senders", func(r chi.Router) {
			r.Get("/", h.Senders.ListSenders)
			r.Get("/candidates", h.Senders.Candidates)
			r.Get("/selection", h.Senders.Selection)
			r.Post("/sync", h.Senders.Sync)
		})

		r.Get("/settings/api-key", h.Settings.GetAPIKey)
		r.Put("/settings/api-key", h.Settings.SaveAPIKey)

		r.Post("/ttn", h.TTN.CreateTTN)
		r.Get("/ttn", h.TTN.ListTTN)
	})

	return r
}

func healthz(db Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "database unavailable"})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
