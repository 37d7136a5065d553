package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/dart-duel/internal/game"
	"github.com/wfunc/dart-duel/internal/middleware"
	"github.com/wfunc/dart-duel/internal/service"
)

// PlayerHandler 玩家查询处理器
type PlayerHandler struct {
	coordinator   *game.Coordinator
	playerService service.PlayerService
}

// NewPlayerHandler 创建玩家查询处理器
func NewPlayerHandler(coordinator *game.Coordinator, playerService service.PlayerService) *PlayerHandler {
	return &PlayerHandler{
		coordinator:   coordinator,
		playerService: playerService,
	}
}

// ListOnline 在线玩家列表（带战绩）
func (h *PlayerHandler) ListOnline(c *gin.Context) {
	players, err := h.coordinator.ListOnline(c.Request.Context())
	if err != nil {
		writeError(c, err, "LIST_ONLINE_FAILED")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"players": players,
	})
}

// Stats 当前玩家战绩
func (h *PlayerHandler) Stats(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "NO_TOKEN",
			Message: "You must login first.",
		})
		return
	}

	stats, err := h.playerService.Stats(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "STATS_FAILED")
		return
	}

	if username, ok := middleware.GetUsername(c); ok {
		stats.Username = username
	}
	c.JSON(http.StatusOK, stats)
}

// MatchHistory 当前玩家对局历史
func (h *PlayerHandler) MatchHistory(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "NO_TOKEN",
			Message: "You must login first.",
		})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	matches, total, err := h.playerService.MatchHistory(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		writeError(c, err, "MATCH_HISTORY_FAILED")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"matches": matches,
		"total":   total,
	})
}
