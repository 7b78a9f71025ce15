package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// RouterConfig collects what the HTTP surface needs.
type RouterConfig struct {
	Users          *UserHandler
	Sessions       *SessionHandler
	Uploads        *UploadHandler
	Tally          *TallyHandler
	Health         *HealthHandler
	AllowedOrigins []string
	Limiter        *rate.Limiter
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(ContextualLoggerMiddleware)
	r.Use(RequestLoggingMiddleware)
	r.Use(SecurityHeadersMiddleware)
	r.Use(CORSMiddleware(cfg.AllowedOrigins))
	if cfg.Limiter != nil {
		r.Use(RateLimitMiddleware(cfg.Limiter))
	}

	r.Get("/health", cfg.Health.Health)
	r.Get("/health/ready", cfg.Health.Ready)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", cfg.Users.SignupHandler)
		r.Post("/login", cfg.Users.LoginHandler)
		r.Post("/refresh", cfg.Users.RefreshTokenHandler)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Users.AuthMiddleware)
			r.Post("/logout", cfg.Users.LogoutHandler)
			r.Get("/me", cfg.Users.MeHandler)
			r.Post("/change-password", cfg.Users.ChangePasswordHandler)
			r.Post("/delete-account", cfg.Users.DeleteAccountHandler)
		})
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Use(cfg.Users.AuthMiddleware)

		r.Post("/create", cfg.Sessions.CreateSession)
		r.Get("/", cfg.Sessions.ListSessions)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", cfg.Sessions.GetSession)
			r.Delete("/", cfg.Sessions.DeleteSession)

			r.Post("/company/upload-expenses", cfg.Uploads.HandleCompanyUpload)
			r.Post("/bank/upload-transactions", cfg.Uploads.HandleBankUpload)

			r.Post("/tally/run", cfg.Tally.HandleRunTally)
			r.Get("/tally/report", cfg.Tally.HandleGetReport)
			r.Get("/tally/report.csv", cfg.Tally.HandleExportReportCSV)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		sendJSONError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		sendJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}
