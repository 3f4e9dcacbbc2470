package handlers

import (
	"time"

	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	portssvc "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/services"
	"github.com/StockBookHQ/stock_ledger_app/internal/middleware"
	"github.com/StockBookHQ/stock_ledger_app/internal/platform/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	normalizer domain.Normalizer,
) {
	r.Use(corsMiddleware(cfg))

	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})
	r.GET("/", getHome)

	// Setup API v1 routes with Auth Middleware, passing service interfaces
	setupAPIV1Routes(r, cfg, services, normalizer)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	normalizer domain.Normalizer,
) {
	// Apply AuthMiddleware and a per-IP rate limit to the entire v1 group
	v1 := r.Group("/api/v1",
		middleware.AuthMiddleware(cfg.JWTSecret),
		middleware.RateLimit(newIPLimiter(cfg.RateLimitFormatted)),
	)

	registerLedgerRoutes(v1, services.CarryForward, services.Mutation, services.Reader, normalizer)
	registerReportingRoutes(v1, services.Reporting, normalizer)
}

// corsMiddleware allows everything outside production; production deployments
// sit behind a gateway that owns the origin allowlist.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction {
		corsConfig.AllowOrigins = []string{}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	return cors.New(corsConfig)
}

func newIPLimiter(formatted string) *limiter.Limiter {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		rate = limiter.Rate{Period: time.Minute, Limit: 100}
	}
	return limiter.New(memory.NewStore(), rate)
}

// parseQueryDate turns a required YYYY-MM-DD query value into a DayKey.
func parseQueryDate(s string, n domain.Normalizer) (domain.DayKey, error) {
	t, err := time.ParseInLocation(civilDateLayout, s, n.Location())
	if err != nil {
		return domain.DayKey{}, err
	}
	return n.Normalize(t), nil
}
