package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"licensedesk/internal/account"
	"licensedesk/internal/auth"
	"licensedesk/internal/config"
	"licensedesk/internal/httpserver/handlers"
	"licensedesk/internal/license"
	"licensedesk/internal/store"
)

type Deps struct {
	DB         *gorm.DB
	Config     *config.Config
	Licenses   *license.Service
	Accounts   *account.Service
	Logger     *zap.SugaredLogger
	Gatherer   prometheus.Gatherer
	AuthLimit  *IPRateLimiter
	CheckLimit *IPRateLimiter
}

// NewRouter mounts the API. Limiters missing from deps are built from the
// rate limit config and live as long as the process.
func NewRouter(d Deps) http.Handler {
	lg := d.Logger
	if lg == nil {
		lg = zap.NewNop().Sugar()
	}
	rl := d.Config.RateLimit
	authLimit := d.AuthLimit
	if authLimit == nil {
		authLimit = NewIPRateLimiter(rl.AuthRPS, rl.AuthBurst, rl.IdleTTL)
	}
	checkLimit := d.CheckLimit
	if checkLimit == nil {
		checkLimit = NewIPRateLimiter(rl.CheckRPS, rl.CheckBurst, rl.IdleTTL)
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)

	r.Route("/api", func(api chi.Router) {
		api.Group(func(public chi.Router) {
			public.Use(RateLimit(authLimit, lg))
			public.Post("/signup", handlers.Signup(d.Accounts, lg))
			public.Post("/login", handlers.Login(d.Accounts, lg))
		})
		api.With(RateLimit(checkLimit, lg)).Post("/check_license", handlers.CheckLicense(d.Licenses, lg))

		api.Group(func(protected chi.Router) {
			protected.Use(auth.JWTAuth(d.DB, d.Config.JWT))
			protected.Post("/logout", handlers.Logout(d.Accounts, lg))
			protected.Get("/me", handlers.Me(d.Accounts, lg))
			protected.Post("/licenses", handlers.ActivateLicense(d.Licenses, lg))
			protected.Post("/licenses/{client_id}/deactivate", handlers.DeactivateLicense(d.Licenses, lg))
			protected.Post("/licenses/{client_id}/reactivate", handlers.ReactivateLicense(d.Licenses, lg))
			protected.Get("/admin/licenses", handlers.AdminDashboard(d.Licenses, lg))
			protected.Get("/admin/licenses/{client_id}/events", handlers.LicenseEvents(d.Licenses, lg))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context(), d.DB); err != nil {
			lg.Warnw("health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
