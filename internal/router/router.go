package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fermaport/notifier/internal/handler/notify"
	"github.com/fermaport/notifier/internal/middleware"
)

type Config struct {
	RateLimitRPS float64
	RateBurst    int
	CORS         middleware.CORSConfig
}

// Router assembles the gin engine: middleware chain, health and
// metrics endpoints, and the notification routes.
type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	notifyH *notify.Handler
	db      *sqlx.DB
}

func New(auth *middleware.AuthMiddleware, notifyH *notify.Handler, db *sqlx.DB, cfg Config) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.Logger(),
		middleware.CORS(cfg.CORS),
	)

	if cfg.RateLimitRPS > 0 {
		rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateBurst,
		})
		engine.Use(rl.RateLimit())
	}

	return &Router{engine: engine, auth: auth, notifyH: notifyH, db: db}
}

func (r *Router) Setup() {
	r.engine.GET("/health/live", r.livenessCheck)
	r.engine.GET("/health/ready", r.readinessCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")
	r.notifyH.RegisterRoutes(api, r.auth)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) readinessCheck(c *gin.Context) {
	if r.db != nil {
		if err := r.db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
