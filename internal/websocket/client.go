package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/dart-duel/internal/config"
	"github.com/wfunc/dart-duel/internal/game"
	"github.com/wfunc/dart-duel/internal/protocol"
	"go.uber.org/zap"
)

// ErrSendBufferFull 出站缓冲区已满，连接视为失效
var ErrSendBufferFull = errors.New("发送缓冲区已满")

// 配置缺省值
const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 64 * 1024 // 64KB
	defaultSendBuffer     = 256
)

// Client 一条WebSocket连接
// 登录前 session 为 nil，登录成功后绑定在线会话。
type Client struct {
	ID     string
	conn   *websocket.Conn
	send   chan []byte
	router *Router
	logger *zap.Logger

	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64

	// 登录后绑定，只在读协程中写入
	session *game.Session
}

// NewClient 创建新客户端，零值配置项使用缺省值
func NewClient(router *Router, conn *websocket.Conn, cfg config.WebSocketConfig, logger *zap.Logger) *Client {
	writeWait := cfg.WriteTimeout
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	pongWait := cfg.PongTimeout
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	// ping周期必须小于pong超时
	pingPeriod := cfg.PingInterval
	if pingPeriod <= 0 || pingPeriod >= pongWait {
		pingPeriod = (pongWait * 9) / 10
	}
	maxMessageSize := cfg.MaxMessageSize
	if maxMessageSize <= 0 {
		maxMessageSize = defaultMaxMessageSize
	}
	sendBuffer := cfg.SendBufferSize
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}

	return &Client{
		ID:             uuid.New().String(),
		conn:           conn,
		send:           make(chan []byte, sendBuffer),
		router:         router,
		logger:         logger,
		writeWait:      writeWait,
		pongWait:       pongWait,
		pingPeriod:     pingPeriod,
		maxMessageSize: maxMessageSize,
	}
}

// Session 返回绑定的在线会话，未登录时为nil
func (c *Client) Session() *game.Session {
	return c.session
}

// ReadPump 读取消息
// 连接断开时触发断线处理（进行中对局判弃权并下线）。
func (c *Client) ReadPump() {
	defer func() {
		c.router.HandleDisconnect(context.Background(), c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket读取错误",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			break
		}

		c.router.HandleMessage(context.Background(), c, message)
	}
}

// WritePump 写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent 向客户端推送事件，实现 game.Sender
func (c *Client) SendEvent(evt *protocol.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

// SendResponse 向客户端回复命令响应
func (c *Client) SendResponse(resp *protocol.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

// enqueue 消息入队，缓冲区满视为连接失效
func (c *Client) enqueue(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close 关闭客户端连接
func (c *Client) Close() {
	c.conn.Close()
}
