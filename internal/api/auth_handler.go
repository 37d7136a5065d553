package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/dart-duel/internal/errors"
	"github.com/wfunc/dart-duel/internal/protocol"
	"github.com/wfunc/dart-duel/internal/service"
)

// ErrorResponse API错误响应
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// AuthHandler 认证处理器
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register 用户注册
func (h *AuthHandler) Register(c *gin.Context) {
	var req protocol.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Validation error.",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err, "REGISTER_FAILED")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req protocol.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Validation error.",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err, "LOGIN_FAILED")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// writeError 将业务错误映射为HTTP响应
// 预期内的错误暴露原始消息，其余只返回通用消息。
func writeError(c *gin.Context, err error, code string) {
	status := http.StatusInternalServerError
	message := "Internal server error."

	if appErr, ok := err.(*apperrors.AppError); ok {
		status = appErr.HTTPStatus()
		if apperrors.IsExpected(err) {
			message = appErr.Message
		}
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
