package websocket

import (
	"context"
	"encoding/json"

	apperrors "github.com/wfunc/dart-duel/internal/errors"
	"github.com/wfunc/dart-duel/internal/game"
	"github.com/wfunc/dart-duel/internal/logger"
	"github.com/wfunc/dart-duel/internal/protocol"
	"github.com/wfunc/dart-duel/internal/service"
	"go.uber.org/zap"
)

// Router 命令路由
// 解析客户端请求、做登录门禁并分发到对应的处理逻辑。
type Router struct {
	auth        service.AuthService
	registry    *game.Registry
	coordinator *game.Coordinator
	engine      *game.Engine
	logger      *zap.Logger
}

// NewRouter 创建命令路由
func NewRouter(
	auth service.AuthService,
	registry *game.Registry,
	coordinator *game.Coordinator,
	engine *game.Engine,
	logger *zap.Logger,
) *Router {
	return &Router{
		auth:        auth,
		registry:    registry,
		coordinator: coordinator,
		engine:      engine,
		logger:      logger,
	}
}

// HandleMessage 处理一条客户端消息
func (r *Router) HandleMessage(ctx context.Context, client *Client, data []byte) {
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		r.logger.Warn("解析客户端请求失败",
			zap.String("client_id", client.ID),
			zap.Error(err))
		r.reply(client, protocol.NewFailResponse("", "Validation error."))
		return
	}

	logger.LogWebSocketMessage("receive", req.Command, json.RawMessage(req.Body))

	body, err := r.dispatch(ctx, client, &req)
	if err != nil {
		r.reply(client, protocol.NewFailResponse(req.ID, r.failMessage(client, &req, err)))
		return
	}
	r.reply(client, protocol.NewOKResponse(req.ID, body))
}

// BindSession 为握手阶段已通过令牌认证的连接绑定在线会话
func (r *Router) BindSession(client *Client, userID uint, username string) error {
	session, err := r.registry.Register(userID, username, client)
	if err != nil {
		return err
	}
	client.session = session
	return nil
}

// HandleDisconnect 处理连接断开
// 已登录的连接视为弃权进行中对局并下线。
func (r *Router) HandleDisconnect(ctx context.Context, client *Client) {
	if client.session == nil {
		return
	}
	r.engine.HandleDisconnect(ctx, client.session)
	client.session = nil
}

// dispatch 按命令分发
// register/login 之外的命令要求已登录。
func (r *Router) dispatch(ctx context.Context, client *Client, req *protocol.Request) (interface{}, error) {
	switch req.Command {
	case protocol.CommandRegister, protocol.CommandLogin:
		return r.handleAuth(ctx, client, req)
	}

	if client.session == nil {
		return nil, apperrors.New(apperrors.ErrAuthRequired)
	}

	switch req.Command {
	case protocol.CommandChallengePlayer:
		return r.handleChallengePlayer(ctx, client, req)
	case protocol.CommandAnswerChallenge:
		return r.handleAnswerChallenge(ctx, client, req)
	case protocol.CommandListOnline:
		return r.handleListOnline(ctx)
	case protocol.CommandThrow:
		return r.handleThrow(ctx, client, req)
	case protocol.CommandSpin:
		return r.handleSpin(ctx, client, req)
	case protocol.CommandForfeit:
		return r.handleForfeit(ctx, client)
	default:
		return nil, apperrors.New(apperrors.ErrInvalidParam).
			Msgf("Unknown command: %q.", req.Command)
	}
}

// handleAuth 处理注册与登录
// 认证成功后立刻上线：绑定会话并广播 newUserOnline。
func (r *Router) handleAuth(ctx context.Context, client *Client, req *protocol.Request) (interface{}, error) {
	if client.session != nil {
		return nil, apperrors.New(apperrors.ErrInvalidParam).
			Msgf("You are already logged in.")
	}

	var creds protocol.CredentialsRequest
	if err := json.Unmarshal(req.Body, &creds); err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidParam).WithCause(err)
	}

	var resp *service.AuthResponse
	var err error
	if req.Command == protocol.CommandRegister {
		resp, err = r.auth.Register(ctx, creds.Username, creds.Password)
	} else {
		resp, err = r.auth.Login(ctx, creds.Username, creds.Password)
	}
	if err != nil {
		return nil, err
	}

	session, err := r.registry.Register(resp.UserID, resp.Username, client)
	if err != nil {
		return nil, err
	}
	client.session = session

	return resp, nil
}

func (r *Router) handleChallengePlayer(ctx context.Context, client *Client, req *protocol.Request) (interface{}, error) {
	var body protocol.ChallengeRequest
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidParam).WithCause(err)
	}

	challenge, err := r.coordinator.SendChallenge(ctx, client.session, body.To)
	if err != nil {
		return nil, err
	}
	return &protocol.ChallengeResponse{ChallengeID: challenge.ID}, nil
}

func (r *Router) handleAnswerChallenge(ctx context.Context, client *Client, req *protocol.Request) (interface{}, error) {
	var body protocol.ChallengeAnswerRequest
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidParam).WithCause(err)
	}

	challenge, err := r.coordinator.AnswerChallenge(ctx, client.session, body.ChallengeID, body.NewStatus)
	if err != nil {
		return nil, err
	}
	return &protocol.ChallengeAnswerResponse{
		ChallengeID: challenge.ID,
		Status:      challenge.Status,
	}, nil
}

func (r *Router) handleListOnline(ctx context.Context) (interface{}, error) {
	players, err := r.coordinator.ListOnline(ctx)
	if err != nil {
		return nil, err
	}
	return &protocol.ListOnlineResponse{Players: players}, nil
}

func (r *Router) handleThrow(ctx context.Context, client *Client, req *protocol.Request) (interface{}, error) {
	var body protocol.ThrowRequest
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidParam).WithCause(err)
	}

	attempt, err := r.engine.Throw(ctx, client.session, &body)
	if err != nil {
		return nil, err
	}
	return &protocol.ThrowResponse{
		MatchID:       attempt.MatchID,
		AttemptNumber: attempt.AttemptNumber,
		Score:         attempt.Score,
	}, nil
}

func (r *Router) handleSpin(ctx context.Context, client *Client, req *protocol.Request) (interface{}, error) {
	var body protocol.SpinRequest
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidParam).WithCause(err)
	}

	if err := r.engine.Spin(ctx, client.session, &body); err != nil {
		return nil, err
	}
	return nil, nil
}

func (r *Router) handleForfeit(ctx context.Context, client *Client) (interface{}, error) {
	match, err := r.engine.Forfeit(ctx, client.session)
	if err != nil {
		return nil, err
	}
	return &protocol.ForfeitResponse{MatchID: match.ChallengeID}, nil
}

// failMessage 提取可回给客户端的错误消息
// 预期内的业务错误原样返回，其余只暴露通用消息并记录日志。
func (r *Router) failMessage(client *Client, req *protocol.Request, err error) string {
	if apperrors.IsExpected(err) {
		if appErr, ok := err.(*apperrors.AppError); ok {
			return appErr.Message
		}
	}

	r.logger.Error("命令处理失败",
		zap.String("client_id", client.ID),
		zap.String("command", req.Command),
		zap.Error(err))
	return "Internal server error."
}

// reply 回复客户端，失败只记日志
func (r *Router) reply(client *Client, resp *protocol.Response) {
	logger.LogWebSocketMessage("send", "response", resp)
	if err := client.SendResponse(resp); err != nil {
		r.logger.Warn("回复客户端失败",
			zap.String("client_id", client.ID),
			zap.Error(err))
	}
}
