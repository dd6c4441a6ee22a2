package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"profilegate-go-server/domain/entity"
	"profilegate-go-server/internal/metrics"
	"profilegate-go-server/usecase"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// 心跳配置
const (
	pongWait       = 60 * time.Second    // 等待 Pong 响应的最大时间
	pingPeriod     = (pongWait * 9) / 10 // Ping 发送间隔，必须小于 pongWait
	writeWait      = 10 * time.Second    // 写消息超时时间
	maxMessageSize = 4 * 1024            // 客户端只发 check-view，消息很小
)

// Conn 抽象 websocket 连接，便于测试
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// SessionClient 一条会话状态推送连接
// 连接期间持有一个 SessionState，断开时 detach 并关闭状态
type SessionClient struct {
	conn    Conn
	tracker *usecase.SessionTracker
	metrics *metrics.Metrics
	state   *usecase.SessionState

	mu     sync.Mutex
	closed bool
	send   chan []byte // 发送消息缓冲区
}

// NewSessionClient 创建客户端实例
func NewSessionClient(conn Conn, tracker *usecase.SessionTracker, m *metrics.Metrics) *SessionClient {
	c := &SessionClient{
		conn:    conn,
		tracker: tracker,
		metrics: m,
		send:    make(chan []byte, 32),
	}
	c.state = usecase.NewSessionState(c.pushState)
	return c
}

// Serve 阻塞直到连接断开
// identity 为 nil 时推送一次 signed-out 状态，连接保持以便前端统一处理
func (c *SessionClient) Serve(ctx context.Context, identity *entity.Identity) {
	c.metrics.StreamOpened()
	defer c.metrics.StreamClosed()

	go c.WritePump()

	detach := c.tracker.Attach(ctx, c.state, identity)
	defer func() {
		detach()
		c.state.Close()
		c.closeSend()
	}()

	c.ReadPump()
}

// State 当前会话状态
func (c *SessionClient) State() *usecase.SessionState {
	return c.state
}

// WritePump 负责写消息和发送心跳 Ping
func (c *SessionClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump 负责读消息和处理心跳 Pong
func (c *SessionClient) ReadPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Client] 连接异常关闭: %v", err)
			}
			return
		}

		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleMessage(message)
	}
}

func (c *SessionClient) handleMessage(message []byte) {
	var msg WSMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.sendError(ErrBadMessage, "消息不是合法 JSON")
		return
	}

	switch msg.Type {
	case TypeCheckView:
		var payload CheckViewPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.View == "" {
			c.sendError(ErrBadMessage, "check-view 缺少 view")
			return
		}
		c.handleCheckView(payload.View)
	default:
		c.sendError(ErrUnknownType, string(msg.Type))
	}
}

// handleCheckView 加载中返回 decided=false，不放行也不跳转
func (c *SessionClient) handleCheckView(view string) {
	dest := usecase.Destination(view)
	decision, decided := c.state.Decide(dest)

	payload := ViewDecisionPayload{View: view, Decided: decided}
	if decided {
		payload.Allowed = decision.Allowed
		if !decision.Allowed {
			payload.Redirect = string(decision.Redirect)
			payload.Location = decision.Redirect.Path()
		}
		c.metrics.ObserveDecision(view, decision.Outcome())
	}
	c.enqueue(TypeViewDecision, payload)
}

// pushState SessionState 变化回调
func (c *SessionClient) pushState(snap usecase.SessionSnapshot) {
	c.enqueue(TypeSessionState, snap)
}

func (c *SessionClient) sendError(code ErrorCode, message string) {
	c.enqueue(TypeError, ErrorPayload{Code: code, Message: message})
}

// enqueue 非阻塞投递，缓冲区满时丢弃（下一次状态推送会覆盖）
func (c *SessionClient) enqueue(t MessageType, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Client] ⚠️ 序列化 %s 失败: %v", t, err)
		return
	}
	data, _ := json.Marshal(WSMessage{
		Type:      t,
		ID:        uuid.NewString(),
		Payload:   body,
		Timestamp: time.Now().UnixMilli(),
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[Client] ⚠️ 发送缓冲区已满，丢弃 %s", t)
	}
}

func (c *SessionClient) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
