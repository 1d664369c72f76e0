package api

import (
	"net/http"
	"time"

	"streambet/config"
	"streambet/fanout"
	"streambet/observability"
	"streambet/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// TokenValidator resolves a session token to the user id it was issued for
type TokenValidator interface {
	ValidateToken(token string) (uuid.UUID, error)
}

// Services groups the services used by the HTTP handlers
type Services struct {
	Auth    service.AuthService
	Users   service.UserService
	Wallets service.WalletService
	Markets service.MarketService
	Betting service.BettingService
	Chat    service.ChatService
}

// Server is the HTTP API
type Server struct {
	services Services
	tokens   TokenValidator
	registry *fanout.Registry
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
	router   *gin.Engine
	now      func() time.Time
}

// NewServer wires routes and middleware. metrics may be nil.
func NewServer(services Services, tokens TokenValidator, registry *fanout.Registry, metrics *observability.Metrics, cfg *config.Config) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		services: services,
		tokens:   tokens,
		registry: registry,
		metrics:  metrics,
		now:      time.Now,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: originChecker(cfg.CORSOrigins)}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	s.router = router
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.router

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   s.now().UTC().Format(time.RFC3339),
		})
	})

	r.POST("/auth/telegram", s.telegramLogin)
	r.GET("/auth/me", s.authenticate(), s.me)

	// the websocket authenticates with ?token= since browsers cannot set headers on upgrade
	r.GET("/chat/ws/:marketId", s.chatSocket)

	member := r.Group("/", s.authenticate(), s.requireMember())
	{
		member.GET("/markets", s.listMarkets)
		member.GET("/markets/:id", s.getMarket)
		member.GET("/markets/:id/chat", s.listChat)

		member.POST("/bets", s.placeBet)
		member.GET("/bets/me", s.myBets)

		member.GET("/wallet/transactions", s.myTransactions)
	}

	admin := r.Group("/admin", s.authenticate(), s.requireAdmin())
	{
		admin.GET("/users", s.adminListUsers)
		admin.POST("/users", s.adminCreateUser)
		admin.PATCH("/users/:id", s.adminPatchUser)
		admin.POST("/users/:id/ban", s.adminBanUser)
		admin.POST("/users/:id/unban", s.adminUnbanUser)
		admin.POST("/users/:id/mute", s.adminMuteUser)
		admin.POST("/users/:id/balance-adjust", s.adminAdjustBalance)

		admin.POST("/markets", s.adminCreateMarket)
		admin.PATCH("/markets/:id", s.adminPatchMarket)
		admin.POST("/markets/:id/status", s.adminSetStatus)
		admin.POST("/markets/:id/lock-betting", s.adminLockBetting)
		admin.POST("/markets/:id/set-winner", s.adminSetWinner)
		admin.GET("/markets/:id/stats", s.adminMarketStats)
		admin.GET("/bets", s.adminListBets)

		admin.GET("/security/unauthorized-attempts", s.adminUnauthorizedAttempts)
		admin.GET("/security/logins", s.adminLogins)

		admin.DELETE("/chat/messages/:id", s.adminDeleteMessage)
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// NewHTTPServer builds the http.Server serving the API on addr
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// corsConfig allows every origin when none or "*" is configured
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
		return cfg
	}

	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	wildcard := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
			"ip":       c.ClientIP(),
		}).Debug("HTTP request")
	}
}
