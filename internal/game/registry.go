package game

import (
	"sort"
	"sync"

	apperrors "github.com/wfunc/dart-duel/internal/errors"
	"github.com/wfunc/dart-duel/internal/protocol"
	"go.uber.org/zap"
)

// Sender 在线玩家连接的推送端抽象
// 由websocket客户端实现，游戏层不依赖具体传输。
type Sender interface {
	SendEvent(evt *protocol.Event) error
}

// Session 在线玩家会话
type Session struct {
	UserID   uint
	Username string
	Sender   Sender
}

// Registry 在线玩家注册表
// username 为唯一键，一个账号同时只允许一条连接。
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *zap.Logger
}

// NewRegistry 创建在线玩家注册表
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Register 注册在线玩家
// 同名账号已在线时拒绝，其他在线玩家收到 newUserOnline 事件。
func (r *Registry) Register(userID uint, username string, sender Sender) (*Session, error) {
	r.mu.Lock()
	if _, exists := r.sessions[username]; exists {
		r.mu.Unlock()
		return nil, apperrors.New(apperrors.ErrAlreadyOnline)
	}

	others := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		others = append(others, s)
	}

	session := &Session{
		UserID:   userID,
		Username: username,
		Sender:   sender,
	}
	r.sessions[username] = session
	r.mu.Unlock()

	evt := protocol.NewEvent(protocol.EventNewUserOnline, &protocol.PresenceEvent{Username: username})
	r.dispatch(others, evt)

	r.logger.Info("玩家上线", zap.Uint("user_id", userID), zap.String("username", username))
	return session, nil
}

// Unregister 注销在线玩家
// 幂等操作，注销后其余在线玩家收到 userOffline 事件。
func (r *Registry) Unregister(username string) {
	r.mu.Lock()
	_, exists := r.sessions[username]
	if !exists {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, username)

	remaining := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		remaining = append(remaining, s)
	}
	r.mu.Unlock()

	evt := protocol.NewEvent(protocol.EventUserOffline, &protocol.PresenceEvent{Username: username})
	r.dispatch(remaining, evt)

	r.logger.Info("玩家下线", zap.String("username", username))
}

// Lookup 查找在线玩家
func (r *Registry) Lookup(username string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[username]
	return session, exists
}

// Send 向指定在线玩家推送事件
func (r *Registry) Send(username string, evt *protocol.Event) error {
	session, exists := r.Lookup(username)
	if !exists {
		return apperrors.New(apperrors.ErrPeerOffline).
			Msgf("%q is not online right now.", username)
	}
	return session.Sender.SendEvent(evt)
}

// Snapshot 获取当前在线玩家快照（按用户名排序）
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Username < sessions[j].Username
	})
	return sessions
}

// Count 当前在线玩家数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// dispatch 向一组会话推送事件，单个连接失败不影响其他连接
func (r *Registry) dispatch(sessions []*Session, evt *protocol.Event) {
	for _, s := range sessions {
		if err := s.Sender.SendEvent(evt); err != nil {
			r.logger.Warn("事件推送失败",
				zap.String("username", s.Username),
				zap.String("event", evt.Event),
				zap.Error(err))
		}
	}
}
