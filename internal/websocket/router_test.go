package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/wfunc/dart-duel/internal/config"
	"github.com/wfunc/dart-duel/internal/game"
	"github.com/wfunc/dart-duel/internal/protocol"
	"github.com/wfunc/dart-duel/internal/repository"
	"github.com/wfunc/dart-duel/internal/service"
	"github.com/wfunc/dart-duel/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestRouter 创建带内存数据库的完整路由
func newTestRouter(t *testing.T) *Router {
	db := repository.TestDB(t)
	logger := zap.NewNop()

	userRepo := repository.NewUserRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)

	jwtManager := utils.NewJWTManager("test-secret", 15*time.Minute, 24*time.Hour)
	auth := service.NewAuthService(userRepo, jwtManager, 8, logger)

	registry := game.NewRegistry(logger)
	coordinator := game.NewCoordinator(db, challengeRepo, matchRepo, registry, logger)
	engine := game.NewEngine(db, matchRepo, attemptRepo, registry, 180, logger)

	return NewRouter(auth, registry, coordinator, engine, logger)
}

// newTestClient 创建不带底层连接的客户端，响应从send通道读取
func newTestClient(router *Router) *Client {
	return NewClient(router, nil, config.WebSocketConfig{}, zap.NewNop())
}

// roundTrip 发送一条命令并读取响应
func roundTrip(t *testing.T, router *Router, client *Client, id, command string, body interface{}) *protocol.Response {
	req := protocol.Request{ID: id, Command: command}
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req.Body = raw
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)

	router.HandleMessage(context.Background(), client, data)

	// 响应之前可能排着推送事件，跳过
	for {
		select {
		case msg := <-client.send:
			var probe map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(msg, &probe))
			if _, isEvent := probe["event"]; isEvent {
				continue
			}
			var resp protocol.Response
			require.NoError(t, json.Unmarshal(msg, &resp))
			return &resp
		default:
			t.Fatal("未收到响应")
			return nil
		}
	}
}

// drainEvents 清空客户端待发队列
func drainEvents(client *Client) {
	for {
		select {
		case <-client.send:
		default:
			return
		}
	}
}

// login 注册并登录一个客户端
func login(t *testing.T, router *Router, client *Client, username string) {
	resp := roundTrip(t, router, client, "auth-"+username, protocol.CommandRegister,
		protocol.CredentialsRequest{Username: username, Password: "password123"})
	require.True(t, resp.OK, "注册失败: %s", resp.Message)
	drainEvents(client)
}

func TestRouterRejectsUnauthenticated(t *testing.T) {
	router := newTestRouter(t)
	client := newTestClient(router)

	for _, command := range []string{
		protocol.CommandChallengePlayer,
		protocol.CommandAnswerChallenge,
		protocol.CommandListOnline,
		protocol.CommandThrow,
		protocol.CommandSpin,
		protocol.CommandForfeit,
	} {
		resp := roundTrip(t, router, client, "req-1", command, nil)
		assert.False(t, resp.OK, "命令 %s 应被拒绝", command)
		assert.Equal(t, "You must login first.", resp.Message)
		assert.Equal(t, "req-1", resp.ID)
	}
}

func TestRouterRegisterAndLogin(t *testing.T) {
	router := newTestRouter(t)
	client := newTestClient(router)

	resp := roundTrip(t, router, client, "r1", protocol.CommandRegister,
		protocol.CredentialsRequest{Username: "alexander", Password: "password123"})
	require.True(t, resp.OK)
	require.NotNil(t, client.Session())
	assert.Equal(t, "alexander", client.Session().Username)

	// 已登录的连接不能再次认证
	resp = roundTrip(t, router, client, "r2", protocol.CommandLogin,
		protocol.CredentialsRequest{Username: "alexander", Password: "password123"})
	assert.False(t, resp.OK)

	// 同一账号的第二条连接被拒绝
	second := newTestClient(router)
	resp = roundTrip(t, router, second, "r3", protocol.CommandLogin,
		protocol.CredentialsRequest{Username: "alexander", Password: "password123"})
	assert.False(t, resp.OK)
	assert.Equal(t, "This account is already online.", resp.Message)
	assert.Nil(t, second.Session())
}

func TestRouterLoginWrongPassword(t *testing.T) {
	router := newTestRouter(t)
	client := newTestClient(router)
	login(t, router, client, "alexander")

	second := newTestClient(router)
	resp := roundTrip(t, router, second, "l1", protocol.CommandLogin,
		protocol.CredentialsRequest{Username: "nosuchuser", Password: "password123"})
	assert.False(t, resp.OK)
	assert.Equal(t, "Username or password does not match.", resp.Message)
}

func TestRouterChallengeFlow(t *testing.T) {
	router := newTestRouter(t)
	alice := newTestClient(router)
	bob := newTestClient(router)
	login(t, router, alice, "alexander")
	login(t, router, bob, "bernadette")
	drainEvents(alice)

	// alice挑战bob
	resp := roundTrip(t, router, alice, "c1", protocol.CommandChallengePlayer,
		protocol.ChallengeRequest{To: "bernadette"})
	require.True(t, resp.OK, resp.Message)

	var challengeResp protocol.ChallengeResponse
	raw, err := json.Marshal(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &challengeResp))
	require.NotZero(t, challengeResp.ChallengeID)

	// bob收到newChallenger事件
	var evt protocol.Event
	select {
	case msg := <-bob.send:
		require.NoError(t, json.Unmarshal(msg, &evt))
	default:
		t.Fatal("bob未收到事件")
	}
	assert.Equal(t, protocol.EventNewChallenger, evt.Event)

	// bob接受挑战
	resp = roundTrip(t, router, bob, "c2", protocol.CommandAnswerChallenge,
		protocol.ChallengeAnswerRequest{ChallengeID: challengeResp.ChallengeID, NewStatus: "accepted"})
	require.True(t, resp.OK, resp.Message)
	drainEvents(alice)
	drainEvents(bob)

	// alice投掷
	resp = roundTrip(t, router, alice, "c3", protocol.CommandThrow,
		protocol.ThrowRequest{Score: 60})
	require.True(t, resp.OK, resp.Message)

	// bob弃权
	resp = roundTrip(t, router, bob, "c4", protocol.CommandForfeit, nil)
	require.True(t, resp.OK, resp.Message)

	// 弃权后没有进行中对局
	resp = roundTrip(t, router, bob, "c5", protocol.CommandThrow,
		protocol.ThrowRequest{Score: 20})
	assert.False(t, resp.OK)
	assert.Equal(t, "You have no active match.", resp.Message)
}

func TestRouterListOnline(t *testing.T) {
	router := newTestRouter(t)
	alice := newTestClient(router)
	login(t, router, alice, "alexander")

	resp := roundTrip(t, router, alice, "l1", protocol.CommandListOnline, nil)
	require.True(t, resp.OK, resp.Message)
	require.NotNil(t, resp.Body)
}

func TestRouterMalformedRequest(t *testing.T) {
	router := newTestRouter(t)
	client := newTestClient(router)

	router.HandleMessage(context.Background(), client, []byte("{not json"))

	select {
	case msg := <-client.send:
		var resp protocol.Response
		require.NoError(t, json.Unmarshal(msg, &resp))
		assert.False(t, resp.OK)
	default:
		t.Fatal("未收到响应")
	}
}

func TestRouterUnknownCommand(t *testing.T) {
	router := newTestRouter(t)
	client := newTestClient(router)
	login(t, router, client, "alexander")

	resp := roundTrip(t, router, client, "u1", "teleport", nil)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Message, "Unknown command")
}

func TestRouterBindSession(t *testing.T) {
	router := newTestRouter(t)

	client := newTestClient(router)
	require.NoError(t, router.BindSession(client, 1, "alexander"))
	require.NotNil(t, client.Session())
	assert.Equal(t, "alexander", client.Session().Username)

	// 同名账号不能绑定第二条连接
	second := newTestClient(router)
	err := router.BindSession(second, 1, "alexander")
	require.Error(t, err)
	assert.Nil(t, second.Session())

	// 预认证的连接可以直接使用业务命令
	resp := roundTrip(t, router, client, "b1", protocol.CommandListOnline, nil)
	assert.True(t, resp.OK)
}

func TestRouterDisconnectForfeits(t *testing.T) {
	router := newTestRouter(t)
	alice := newTestClient(router)
	bob := newTestClient(router)
	login(t, router, alice, "alexander")
	login(t, router, bob, "bernadette")
	drainEvents(alice)

	resp := roundTrip(t, router, alice, "d1", protocol.CommandChallengePlayer,
		protocol.ChallengeRequest{To: "bernadette"})
	require.True(t, resp.OK, resp.Message)
	var challengeResp protocol.ChallengeResponse
	raw, _ := json.Marshal(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &challengeResp))

	resp = roundTrip(t, router, bob, "d2", protocol.CommandAnswerChallenge,
		protocol.ChallengeAnswerRequest{ChallengeID: challengeResp.ChallengeID, NewStatus: "accepted"})
	require.True(t, resp.OK, resp.Message)
	drainEvents(bob)

	// alice断线：对局判弃权，bob收到事件
	router.HandleDisconnect(context.Background(), alice)
	assert.Nil(t, alice.Session())

	foundForfeit := false
	for {
		var done bool
		select {
		case msg := <-bob.send:
			var evt protocol.Event
			if err := json.Unmarshal(msg, &evt); err == nil && evt.Event == protocol.EventPlayerForfeited {
				foundForfeit = true
			}
		default:
			done = true
		}
		if done {
			break
		}
	}
	assert.True(t, foundForfeit, "bob应收到playerForfeited事件")

	// 断线处理幂等
	router.HandleDisconnect(context.Background(), alice)
}

func TestNewClientAppliesConfig(t *testing.T) {
	router := newTestRouter(t)

	client := NewClient(router, nil, config.WebSocketConfig{
		SendBufferSize: 8,
		MaxMessageSize: 4096,
		PongTimeout:    20 * time.Second,
		PingInterval:   5 * time.Second,
		WriteTimeout:   3 * time.Second,
	}, zap.NewNop())

	assert.Equal(t, 8, cap(client.send))
	assert.Equal(t, int64(4096), client.maxMessageSize)
	assert.Equal(t, 20*time.Second, client.pongWait)
	assert.Equal(t, 5*time.Second, client.pingPeriod)
	assert.Equal(t, 3*time.Second, client.writeWait)
}

func TestNewClientConfigDefaults(t *testing.T) {
	router := newTestRouter(t)

	client := NewClient(router, nil, config.WebSocketConfig{}, zap.NewNop())
	assert.Equal(t, defaultSendBuffer, cap(client.send))
	assert.Equal(t, int64(defaultMaxMessageSize), client.maxMessageSize)
	assert.Equal(t, defaultPongWait, client.pongWait)
	assert.Equal(t, defaultWriteWait, client.writeWait)

	// ping周期不合法时回落到pong超时的九成
	client = NewClient(router, nil, config.WebSocketConfig{PingInterval: 2 * time.Minute}, zap.NewNop())
	assert.Less(t, client.pingPeriod, client.pongWait)
}
