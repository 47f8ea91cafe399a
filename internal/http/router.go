// Package httpapi wires the HTTP transport (Gin) to the marketplace services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, caller identity, logging/redaction, panic
// recovery, metrics, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-parts-market/internal/config"
	"github.com/tbourn/go-parts-market/internal/events"
	"github.com/tbourn/go-parts-market/internal/http/handlers"
	"github.com/tbourn/go-parts-market/internal/http/middleware"
	"github.com/tbourn/go-parts-market/internal/payments"
	"github.com/tbourn/go-parts-market/internal/services"
)

// Deps carries the infrastructure the routes are built on.
type Deps struct {
	DB       *gorm.DB
	Events   events.Publisher
	Provider payments.Provider
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), identity,
// idempotency and rate limiting, CORS and security headers, health and metrics
// endpoints, and then mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Identity: resolve X-User-ID before anything keys on the user
//  4. AccessLog: request-scoped logger and redacted access lines
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Metrics, gzip
//  8. CORS and Security headers
//  9. API group only: idempotency validator, then rate limiter (bypass on replay)
//
// The payment webhook sits outside the API group: it carries no user
// identity and must not be throttled by a per-IP bucket shared with the
// provider's retries.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) error {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Acting user
	r.Use(middleware.Identity())

	// 4) Access log with redaction; headers only at debug level
	r.Use(middleware.AccessLog(middleware.AccessLogOptions{
		MaskHeaders: []string{payments.SignatureHeader},
		LogHeaders:  cfg.LogLevel == "debug",
	}))

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 7) Prometheus metrics and /metrics endpoint, compressed responses
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 8) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey, "If-None-Match"}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", handlers.HeaderIdempotencyReplayed}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
		PrivateRoutes: []string{
			apiRoute(cfg.APIBasePath, "/requests/:id"),
			apiRoute(cfg.APIBasePath, "/requests/:id/offers"),
			apiRoute(cfg.APIBasePath, "/unlocks/:id"),
		},
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", healthHandler(deps.DB))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services <- db/events/provider
	pub := deps.Events
	if pub == nil {
		pub = events.Nop{}
	}
	requests := services.NewRequestService(deps.DB, pub)
	offers := services.NewOfferService(deps.DB, pub, cfg.Payments.Currency)
	unlocks, err := services.NewUnlockService(deps.DB, pub, deps.Provider, cfg.Payments.UnlockFee, cfg.Payments.Currency)
	if err != nil {
		return err
	}
	idem := services.NewIdempotencyService(deps.DB, cfg.IdempotencyTTL)

	h := handlers.New(handlers.Services{
		Requests:    requests,
		Offers:      offers,
		Unlocks:     unlocks,
		Ratings:     services.NewRatingService(deps.DB, pub),
		Admin:       services.NewAdminService(deps.DB, requests, offers, unlocks),
		Threads:     services.NewChatThreadService(deps.DB),
		Idempotency: idem,
	}, handlers.Options{
		UnlockFee:     cfg.Payments.UnlockFee,
		WebhookSecret: cfg.Payments.WebhookSecret,
	})

	base := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api/v1"

	// Provider callback: signature-verified, no identity, no rate limit.
	base.POST("/payments/webhook", h.PaymentWebhook)

	// 9) Idempotency validation (before rate limiting), then per user/IP buckets
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	api := base.Group("",
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idem.Exists),
		rl.Handler(),
	)
	{
		// Requests
		api.POST("/requests", h.CreateRequest)
		api.GET("/requests", h.ListRequests)
		api.GET("/requests/:id", h.GetRequest)
		api.POST("/requests/:id/complete", h.CompleteRequest)
		api.POST("/requests/:id/cancel", h.CancelRequest)

		// Offers
		api.POST("/requests/:id/offers", h.SubmitOffer)
		api.GET("/requests/:id/offers", h.ListOffers)
		api.POST("/offers/:id/accept", h.AcceptOffer)
		api.POST("/offers/:id/reject", h.RejectOffer)

		// Contact unlock
		api.POST("/offers/:id/unlock", h.InitiateUnlock)
		api.GET("/unlocks/:id", h.GetUnlock)

		// Ratings
		api.POST("/offers/:id/rating", h.SubmitRating)
		api.GET("/ratings/pending", h.PendingRatings)
		api.GET("/sellers/:id/ratings", h.SellerRatings)

		// Chat threads
		api.POST("/chat-threads", h.EnsureChatThread)
	}

	admin := api.Group("/admin", middleware.RequireAdmin(cfg.IsAdmin))
	{
		admin.POST("/requests/:id/force-match", h.ForceMatch)
		admin.POST("/requests/:id/force-complete", h.ForceComplete)
		admin.POST("/unlocks/:id/fail", h.AdminFailUnlock)
		admin.GET("/audit", h.ListAudit)
	}
	return nil
}

// apiRoute renders the full Gin route for p under the API base path.
func apiRoute(base, p string) string {
	return strings.TrimRight(base, "/") + p
}

// healthHandler reports liveness plus a bounded database ping.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			middleware.LoggerFrom(c).Error().Err(err).Msg("health: database unreachable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
