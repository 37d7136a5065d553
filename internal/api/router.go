package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/dart-duel/internal/config"
	"github.com/wfunc/dart-duel/internal/game"
	"github.com/wfunc/dart-duel/internal/middleware"
	"github.com/wfunc/dart-duel/internal/service"
	ws "github.com/wfunc/dart-duel/internal/websocket"
	"go.uber.org/zap"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	authHandler    *AuthHandler
	playerHandler  *PlayerHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	wsPath         string
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(
	authService service.AuthService,
	playerService service.PlayerService,
	coordinator *game.Coordinator,
	wsRouter *ws.Router,
	wsCfg config.WebSocketConfig,
	log *zap.Logger,
) *Router {
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	wsPath := wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}

	router := &Router{
		engine:         engine,
		authHandler:    NewAuthHandler(authService),
		playerHandler:  NewPlayerHandler(coordinator, playerService),
		wsHandler:      NewWebSocketHandler(wsRouter, authService, wsCfg, log),
		authMiddleware: middleware.NewAuthMiddleware(authService),
		wsPath:         wsPath,
		log:            log,
	}

	router.setupRoutes()
	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// 游戏WebSocket入口
	r.engine.GET(r.wsPath, r.wsHandler.Serve)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 认证相关路由（不需要认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
		}

		// 玩家相关路由（需要认证）
		players := v1.Group("/players")
		players.Use(r.authMiddleware.RequireAuth())
		{
			players.GET("/online", r.playerHandler.ListOnline)
			players.GET("/stats", r.playerHandler.Stats)
		}

		// 对局相关路由（需要认证）
		matches := v1.Group("/matches")
		matches.Use(r.authMiddleware.RequireAuth())
		{
			matches.GET("/history", r.playerHandler.MatchHistory)
		}
	}

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "Resource not found.",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "dart-duel",
	})
}

// Engine 返回Gin引擎
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
