package router

import (
	"net/http"
	"slices"
	"time"

	"spark-service/internal/domain"
	"spark-service/internal/handler"
	"spark-service/pkg/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Options struct {
	AllowedOrigins  []string
	RateLimitPerMin int
	// AuthLimitPerMin applies to the unauthenticated /api/auth endpoints.
	AuthLimitPerMin int
	// TrustProxy honours X-Forwarded-For / X-Real-IP. Enable only behind a
	// proxy that overwrites them.
	TrustProxy bool
}

func SetupRoutes(
	h *handler.Handler,
	wsh *handler.WSHandler,
	am *middleware.AuthMiddleware,
	rdb redis.UniversalClient,
	opts Options,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(LoggerMiddleware(logger))
	r.Use(MetricsMiddleware)
	r.Use(chimw.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Accept-Language", "X-Device-ID", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "Retry-After", "Content-Disposition"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	// websocket connections are long lived and skip the request timeout
	r.With(am.Require).Get("/ws/notifications", wsh.Serve)

	limit := func(perMin int, block time.Duration, prefix string) func(http.Handler) http.Handler {
		if perMin <= 0 {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.RateLimiter(rdb, perMin, time.Minute, block, prefix)
	}
	ipLimit := limit(opts.RateLimitPerMin, time.Minute, "rl:ip")
	userLimit := limit(opts.RateLimitPerMin, time.Minute, "rl:user")

	r.Route("/api", func(api chi.Router) {
		api.Use(chimw.Timeout(60 * time.Second))

		api.Group(func(pub chi.Router) {
			pub.Use(ipLimit)
			pub.Get("/services", h.ListServices)
			pub.Get("/i18n/languages", h.ListLanguages)
			pub.Post("/certificates/verify", h.VerifyCertificate)
		})

		api.Route("/auth", func(ar chi.Router) {
			ar.Use(limit(opts.AuthLimitPerMin, 5*time.Minute, "rl:auth"))

			ar.Group(func(pub chi.Router) {
				pub.Use(ipLimit)
				pub.Post("/register", h.Register)
				pub.Post("/login", h.Login)
				pub.Post("/verify-otp", h.VerifyOTP)
				pub.Post("/store-otp", h.StoreOTP)
				pub.Post("/reset-password", h.ResetPassword)
			})

			ar.Group(func(pr chi.Router) {
				pr.Use(am.Require, userLimit)
				pr.Get("/user", h.CurrentUser)
				pr.Post("/logout", h.Logout)
				pr.Post("/change-password", h.ChangePassword)
			})
		})

		api.Group(func(pr chi.Router) {
			pr.Use(am.Require, userLimit)

			pr.Get("/profile", h.GetProfile)
			pr.Patch("/profile", h.UpdateProfile)
			pr.Put("/profile/notifications", h.UpdateNotificationPrefs)
			pr.Post("/profile/notifications/test", h.TestNotification)
			pr.Get("/activities", h.ListActivities)

			pr.Post("/applications", h.CreateApplication)
			pr.Get("/applications", h.ListApplications)
			pr.Get("/applications/{id}", h.GetApplication)
			pr.Get("/applications/{id}/updates", h.ApplicationUpdates)

			pr.Get("/certificates", h.ListCertificates)
			pr.Get("/certificates/{id}", h.GetCertificate)
			pr.Get("/certificates/{id}/download", h.DownloadCertificate)

			pr.Get("/agents", h.ListAgents)
			pr.Post("/agents/workflow", h.RunAgentWorkflow)
			pr.Post("/agents/{agent}/tasks", h.RunAgentTask)

			pr.Get("/automation/workflows", h.ListWorkflows)
			pr.Get("/automation/workflows/{id}", h.GetWorkflow)
			pr.Get("/automation/stats", h.WorkflowStats)
			pr.Get("/automation/jobs", h.WorkflowJobs)

			pr.Get("/db/test", h.TestDB)
		})

		api.Group(func(sr chi.Router) {
			sr.Use(am.RequireRoles(domain.RoleOfficer, domain.RoleAdmin), userLimit)
			sr.Patch("/applications/{id}/status", h.UpdateApplicationStatus)
			sr.Post("/certificates", h.IssueCertificate)
			sr.Get("/admin/metrics", h.SystemMetrics)
		})

		api.Group(func(ad chi.Router) {
			ad.Use(am.RequireRoles(domain.RoleAdmin), userLimit)
			ad.Post("/db/query", h.QueryDB)
			ad.Get("/db/queries", h.ListQueries)
			ad.Post("/announcements", h.Announce)
			ad.Post("/automation/workflows/{id}/trigger", h.TriggerWorkflow)
			ad.Post("/automation/workflows/{id}/pause", h.PauseWorkflow)
			ad.Post("/automation/workflows/{id}/resume", h.ResumeWorkflow)
		})
	})

	return r
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()))
		})
	}
}
