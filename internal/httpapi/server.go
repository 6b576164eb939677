package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"garagem/internal/garagem"
	"garagem/internal/metrics"
)

// Sessions logs users in and out.
type Sessions interface {
	Login(email string) (*garagem.User, error)
	Logout() error
}

// Options holds every dependency of the HTTP API.
type Options struct {
	Service        *garagem.GarageService
	Engine         *garagem.ReminderEngine
	Scheduler      *garagem.Scheduler
	Sessions       Sessions
	Dispatcher     garagem.EmailDispatcher
	Ledger         garagem.DedupLedger
	Logger         garagem.Logger
	AllowedOrigins []string
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	service    *garagem.GarageService
	engine     *garagem.ReminderEngine
	scheduler  *garagem.Scheduler
	sessions   Sessions
	dispatcher garagem.EmailDispatcher
	ledger     garagem.DedupLedger
	logger     garagem.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(opts Options) *chi.Mux {
	h := &Handler{
		service:    opts.Service,
		engine:     opts.Engine,
		scheduler:  opts.Scheduler,
		sessions:   opts.Sessions,
		dispatcher: opts.Dispatcher,
		ledger:     opts.Ledger,
		logger:     opts.Logger,
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:4200", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument(opts.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/", h.Login)
			r.Delete("/", h.Logout)
		})

		r.Route("/reminders", func(r chi.Router) {
			r.Get("/status", h.ReminderStatus)
			r.Post("/check", h.CheckReminders)
			r.Post("/reset", h.ResetReminders)
			r.Post("/test", h.TestReminder)
			r.Get("/history", h.ReminderHistory)
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", h.ListVehicles)
			r.Post("/", h.CreateVehicle)
			r.Delete("/{id}", h.DeleteVehicle)
		})

		r.Route("/maintenances", func(r chi.Router) {
			r.Get("/", h.ListMaintenance)
			r.Post("/", h.CreateMaintenance)
			r.Get("/upcoming", h.UpcomingMaintenance)
			r.Get("/stats", h.MaintenanceStats)
			r.Put("/{id}", h.UpdateMaintenance)
			r.Delete("/{id}", h.DeleteMaintenance)
			r.Post("/{id}/complete", h.CompleteMaintenance)
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.ListExpenses)
			r.Post("/", h.CreateExpense)
			r.Get("/summary", h.ExpenseSummary)
			r.Delete("/{id}", h.DeleteExpense)
		})
	})

	return r
}

// instrument logs every request and feeds the API collectors.
func instrument(logger garagem.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			timer := metrics.NewTimer()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.APIRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
			timer.ObserveDurationVec(metrics.APIRequestDuration, r.Method)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", timer.Duration().String(),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
