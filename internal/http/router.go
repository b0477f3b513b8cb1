// Package httpapi wires the HTTP transport (Gin) the embedded widget talks to.
// It centralizes cross-cutting concerns: tracing, correlation IDs, redacted
// access logs, panic recovery, metrics, compression, CORS, security headers
// and rate limiting.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/portfolio-assistant/internal/config"
	"github.com/tbourn/portfolio-assistant/internal/http/handlers"
	"github.com/tbourn/portfolio-assistant/internal/http/middleware"
)

// Deps are the services behind the API.
type Deps struct {
	Chat      handlers.ChatService
	Analytics handlers.AnalyticsService
	// Narrator is nil when read-aloud is disabled.
	Narrator    handlers.Narrator
	Suggestions []string
}

// RegisterRoutes attaches all middleware and HTTP endpoints to r and mounts
// the widget API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry
//  2. RequestID
//  3. RedactingLogger (attaches the request-scoped logger)
//  4. Recovery
//  5. Body size limiter
//  6. Metrics
//  7. CORS, before the limiter so preflights are answered
//  8. Rate limiter (question submissions only)
//  9. Security headers
//  10. gzip
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.MaxBodyBytes))

	r.Use(middleware.Metrics("/metrics"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(cors.New(corsConfig(cfg.CORS)))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyBySessionOrIP(), http.MethodPost)
	r.Use(rl.Handler())

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:     cfg.Security.EnableHSTS,
		HSTSMaxAge:     cfg.Security.HSTSMaxAge,
		NoStore:        true,
		EnablePolicy:   true,
		FrameAncestors: cfg.Security.FrameAncestors,
	}))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	opts := []handlers.Option{handlers.WithSuggestions(deps.Suggestions)}
	if deps.Narrator != nil {
		opts = append(opts, handlers.WithNarrator(deps.Narrator))
	}
	h := handlers.New(deps.Chat, deps.Analytics, opts...)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/messages", h.ListMessages)
		api.POST("/messages", h.PostMessage)
		api.DELETE("/messages", h.ResetMessages)
		api.POST("/messages/:index/feedback", h.LeaveFeedback)
		api.POST("/messages/:index/speak", h.Speak)
		api.DELETE("/messages/:index/speak", h.SpeakDone)

		api.GET("/analytics", h.GetAnalytics)
		api.GET("/analytics/feedback", h.GetFeedbackLog)
		api.DELETE("/analytics", h.ClearAnalytics)

		api.GET("/language", h.GetLanguage)
		api.PUT("/language", h.SetLanguage)
		api.GET("/languages", h.ListLanguages)
		api.GET("/suggestions", h.Suggestions)
		api.GET("/voice", h.Voice)
	}
}

// corsConfig allows every origin when none are configured. Credentials stay
// off: the session travels in a header, not a cookie.
func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.SessionHeader, "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(c.AllowedOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = c.AllowedOrigins
	}
	return cc
}

// limitBody caps the request body at maxBytes; downstream reads past the cap
// fail. A non-positive maxBytes disables the cap.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
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
