package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/dart-duel/internal/config"
	"github.com/wfunc/dart-duel/internal/game"
	"github.com/wfunc/dart-duel/internal/repository"
	"github.com/wfunc/dart-duel/internal/service"
	"github.com/wfunc/dart-duel/internal/utils"
	ws "github.com/wfunc/dart-duel/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestServer 创建完整的API测试栈
func newTestServer(t *testing.T) *Router {
	gin.SetMode(gin.TestMode)

	db := repository.TestDB(t)
	logger := zap.NewNop()

	userRepo := repository.NewUserRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)

	jwtManager := utils.NewJWTManager("test-secret", 15*time.Minute, 24*time.Hour)
	authService := service.NewAuthService(userRepo, jwtManager, 8, logger)
	playerService := service.NewPlayerService(matchRepo, attemptRepo, logger)

	registry := game.NewRegistry(logger)
	coordinator := game.NewCoordinator(db, challengeRepo, matchRepo, registry, logger)
	engine := game.NewEngine(db, matchRepo, attemptRepo, registry, 180, logger)
	wsRouter := ws.NewRouter(authService, registry, coordinator, engine, logger)

	return NewRouter(authService, playerService, coordinator, wsRouter, config.WebSocketConfig{Path: "/ws"}, logger)
}

// doJSON 发送JSON请求
func doJSON(t *testing.T, router *Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.Engine().ServeHTTP(w, req)
	return w
}

// registerUser 通过REST注册用户并返回访问令牌
func registerUser(t *testing.T, router *Router, username string) string {
	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"username": username, "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp service.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestHealthCheck(t *testing.T) {
	router := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestRegisterAndLoginAPI(t *testing.T) {
	router := newTestServer(t)

	token := registerUser(t, router, "alexander")
	require.NotEmpty(t, token)

	// 重复注册
	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"username": "alexander", "password": "password123"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Username already exists")

	// 登录成功
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"username": "alexander", "password": "password123"})
	assert.Equal(t, http.StatusOK, w.Code)

	// 密码错误
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"username": "alexander", "password": "wrongpassword"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Username or password does not match.")
}

func TestRegisterValidation(t *testing.T) {
	router := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"username": "al", "password": "password123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"username": "alexander", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthGating(t *testing.T) {
	router := newTestServer(t)

	for _, path := range []string{
		"/api/v1/players/online",
		"/api/v1/players/stats",
		"/api/v1/matches/history",
	} {
		w := doJSON(t, router, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)

		w = doJSON(t, router, http.MethodGet, path, "garbage-token", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestPlayersEndpoints(t *testing.T) {
	router := newTestServer(t)
	token := registerUser(t, router, "alexander")

	w := doJSON(t, router, http.MethodGet, "/api/v1/players/online", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "players")

	w = doJSON(t, router, http.MethodGet, "/api/v1/players/stats", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alexander")

	w = doJSON(t, router, http.MethodGet, "/api/v1/matches/history", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "matches")
}
