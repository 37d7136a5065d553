package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/dart-duel/internal/config"
	"github.com/wfunc/dart-duel/internal/service"
	ws "github.com/wfunc/dart-duel/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler WebSocket处理器
// 连接无需预先认证，客户端通过 register/login 命令在socket上认证。
// 带 ?token= 的握手会尝试用JWT直接绑定会话。
type WebSocketHandler struct {
	router      *ws.Router
	authService service.AuthService
	wsCfg       config.WebSocketConfig
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(router *ws.Router, authService service.AuthService, wsCfg config.WebSocketConfig, logger *zap.Logger) *WebSocketHandler {
	readBuffer := wsCfg.ReadBufferSize
	if readBuffer <= 0 {
		readBuffer = 1024
	}
	writeBuffer := wsCfg.WriteBufferSize
	if writeBuffer <= 0 {
		writeBuffer = 1024
	}
	return &WebSocketHandler{
		router:      router,
		authService: authService,
		wsCfg:       wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    readBuffer,
			WriteBufferSize:   writeBuffer,
			EnableCompression: wsCfg.EnableCompression,
			CheckOrigin: func(r *http.Request) bool {
				// 在生产环境中应该检查Origin
				return true
			},
		},
		logger: logger,
	}
}

// Serve 升级并接管连接
func (h *WebSocketHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.String("ip", c.ClientIP()),
			zap.Error(err))
		return
	}

	client := ws.NewClient(h.router, conn, h.wsCfg, h.logger)

	// 令牌预认证：失败不断开，客户端仍可用 login 命令认证
	if token := c.Query("token"); token != "" {
		if claims, err := h.authService.ValidateToken(c.Request.Context(), token); err == nil {
			if err := h.router.BindSession(client, claims.UserID, claims.Username); err != nil {
				h.logger.Warn("令牌预认证绑定会话失败",
					zap.String("username", claims.Username),
					zap.Error(err))
			}
		} else {
			h.logger.Warn("WebSocket令牌无效", zap.String("ip", c.ClientIP()))
		}
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("WebSocket连接建立",
		zap.String("client_id", client.ID),
		zap.String("ip", c.ClientIP()))
}
