package protocol

import (
	"encoding/json"
)

// 客户端命令
const (
	CommandRegister        = "register"
	CommandLogin           = "login"
	CommandChallengePlayer = "challengePlayer"
	CommandAnswerChallenge = "answerChallenge"
	CommandListOnline      = "listOnline"
	CommandThrow           = "throw"
	CommandSpin            = "spin"
	CommandForfeit         = "forfeit"
)

// 服务端事件
const (
	EventNewUserOnline     = "newUserOnline"
	EventUserOffline       = "userOffline"
	EventNewChallenger     = "newChallenger"
	EventStartGame         = "startGame"
	EventChallengeCanceled = "challengeCanceled"
	EventChallengeRejected = "challengeRejected"
	EventOtherThrew        = "otherThrew"
	EventOpponentSpin      = "opponentSpin"
	EventPlayerForfeited   = "playerForfeited"
)

// Request 客户端请求记录
type Request struct {
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Body    json.RawMessage `json:"body,omitempty"`
}

// Response 服务端同步响应记录，ID与请求相同
type Response struct {
	ID      string      `json:"id"`
	OK      bool        `json:"ok"`
	Body    interface{} `json:"body,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Event 服务端异步推送记录
type Event struct {
	Event string      `json:"event"`
	Body  interface{} `json:"body"`
}

// NewOKResponse 创建成功响应
func NewOKResponse(id string, body interface{}) *Response {
	return &Response{ID: id, OK: true, Body: body}
}

// NewFailResponse 创建失败响应
func NewFailResponse(id string, message string) *Response {
	return &Response{ID: id, OK: false, Message: message}
}

// NewEvent 创建事件记录
func NewEvent(event string, body interface{}) *Event {
	return &Event{Event: event, Body: body}
}

// 命令载荷

// CredentialsRequest register/login 命令载荷
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChallengeRequest challengePlayer 命令载荷
type ChallengeRequest struct {
	To string `json:"to"`
}

// ChallengeAnswerRequest answerChallenge 命令载荷
type ChallengeAnswerRequest struct {
	ChallengeID uint   `json:"challengeId"`
	NewStatus   string `json:"newStatus"`
}

// ThrowRequest throw 命令载荷，弹道字段可选
type ThrowRequest struct {
	Score         int      `json:"score"`
	DX            *float64 `json:"dx,omitempty"`
	DY            *float64 `json:"dy,omitempty"`
	RotationAngle *float64 `json:"rotationAngle,omitempty"`
}

// SpinRequest spin 命令载荷
type SpinRequest struct {
	RotationAmount float64 `json:"rotationAmount"`
	Duration       float64 `json:"duration"`
}

// 响应载荷

// ChallengeResponse challengePlayer 命令响应
type ChallengeResponse struct {
	ChallengeID uint `json:"challengeId"`
}

// ChallengeAnswerResponse answerChallenge 命令响应
type ChallengeAnswerResponse struct {
	ChallengeID uint   `json:"challengeId"`
	Status      string `json:"status"`
}

// ThrowResponse throw 命令响应
type ThrowResponse struct {
	MatchID       uint `json:"matchId"`
	AttemptNumber int  `json:"attemptNumber"`
	Score         int  `json:"score"`
}

// ForfeitResponse forfeit 命令响应
type ForfeitResponse struct {
	MatchID uint `json:"matchId"`
}

// ListOnlineResponse listOnline 命令响应
type ListOnlineResponse struct {
	Players interface{} `json:"players"`
}

// 事件载荷

// PresenceEvent newUserOnline/userOffline 事件载荷
type PresenceEvent struct {
	Username string `json:"username"`
}

// NewChallengerEvent newChallenger 事件载荷
type NewChallengerEvent struct {
	From        string `json:"from"`
	ChallengeID uint   `json:"challengeId"`
}

// StartGameEvent startGame 事件载荷
type StartGameEvent struct {
	ID uint `json:"id"`
}

// ChallengeClosedEvent challengeCanceled/challengeRejected 事件载荷
type ChallengeClosedEvent struct {
	ID uint `json:"id"`
}

// OtherThrewEvent otherThrew 事件载荷
type OtherThrewEvent struct {
	Score         int      `json:"score"`
	DX            *float64 `json:"dx,omitempty"`
	DY            *float64 `json:"dy,omitempty"`
	RotationAngle *float64 `json:"rotationAngle,omitempty"`
}

// OpponentSpinEvent opponentSpin 事件载荷
type OpponentSpinEvent struct {
	RotationAmount float64 `json:"rotationAmount"`
	Duration       float64 `json:"duration"`
}

// PlayerForfeitedEvent playerForfeited 事件载荷
type PlayerForfeitedEvent struct {
	MatchID  uint   `json:"matchId"`
	Username string `json:"username"`
}
