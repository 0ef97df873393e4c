package http

import (
	"context"

	"taprealm/internal/config"
	"taprealm/internal/http/handlers"
	"taprealm/internal/http/middleware"
	"taprealm/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
)

// Deps are the wired services the router serves.
type Deps struct {
	Handler *handlers.Handler
	Hub     *ws.Hub
	DB      handlers.Pinger
	Redis   *redis.Client
	Limiter *middleware.Limiter
	Version string
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

func RegisterRoutes(r *gin.Engine, cfg *config.Config, d Deps) {
	var rp handlers.Pinger
	if d.Redis != nil {
		rp = redisPinger{d.Redis}
	}
	healthHandler := handlers.NewHealthHandler(d.DB, rp, d.Version)

	r.Use(middleware.RequestID(), middleware.Metrics(), middleware.CORS(cfg.AllowedOrigins))

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(d.Limiter.ByIP("api", cfg.APIRateLimit, cfg.APIRateWindow))
	registerAPIRoutes(v1, d.Handler, d.Limiter, cfg)

	// Live updates
	r.GET("/ws", ws.HandleWS(d.Hub, d.Handler.Game, cfg.AllowedOrigins))
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, rl *middleware.Limiter, cfg *config.Config) {
	// Auth
	api.POST("/auth", rl.ByIP("auth", cfg.AuthRateLimit, cfg.AuthRateWindow), h.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT())

	// User profile
	authed.GET("/me", h.Me)

	// Game actions, limited per user on top of the engine's own anti-abuse checks
	actionRL := rl.ByUser("action", cfg.ActionRateLimit, cfg.ActionRateWindow)
	g := authed.Group("/game")
	{
		g.GET("/state", h.State)
		g.GET("/upgrades", h.Upgrades)
		g.POST("/tap", actionRL, h.Tap)
		g.POST("/upgrades/buy", actionRL, h.BuyUpgrade)
		g.POST("/boost", actionRL, h.ClaimBoost)
		g.POST("/claim-daily", actionRL, h.ClaimDaily)
		g.POST("/refresh", actionRL, h.Refresh)
	}

	// Tasks and referrals
	authed.GET("/tasks", h.Tasks)
	authed.POST("/tasks/claim", actionRL, h.ClaimTask)
	authed.GET("/referrals", h.Referrals)

	// Public catalog
	api.GET("/leagues", h.Leagues)

	// Leaderboards
	api.GET("/leaderboard", h.GetLeaderboard)
	authed.GET("/leaderboard/rank", h.GetMyRank)
}

// NewEngine builds the gin engine with recovery and no default logger.
func NewEngine(devMode bool) *gin.Engine {
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}
