package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"profilegate-go-server/domain/entity"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
)

// ========== MockSessionAccessor ==========
// 订阅直接转给真实 Hub，其余方法走 testify mock

type MockSessionAccessor struct {
	mock.Mock
	hub *Hub

	mu     sync.Mutex
	unsubs int
}

func (m *MockSessionAccessor) GetCurrentIdentity(ctx context.Context, token string) (*entity.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Identity), args.Error(1)
}

func (m *MockSessionAccessor) Subscribe(identity *entity.Identity, onChange func(*entity.Identity)) func() {
	unsubscribe := m.hub.Subscribe(identity.ID, func(e entity.IdentityEvent) {
		if e.AppliesTo(identity.SessionID) {
			onChange(e.Current())
		}
	})
	return func() {
		m.mu.Lock()
		m.unsubs++
		m.mu.Unlock()
		unsubscribe()
	}
}

func (m *MockSessionAccessor) SignOut(ctx context.Context, identity *entity.Identity) error {
	return m.Called(ctx, identity).Error(0)
}

func (m *MockSessionAccessor) UpdateIdentityMetadata(ctx context.Context, userID string, metadata entity.UserMetadata) error {
	return m.Called(ctx, userID, metadata).Error(0)
}

func (m *MockSessionAccessor) Unsubscribes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unsubs
}

// ========== fakeConn ==========
// 内存版 websocket 连接：incoming 关闭即视为客户端断开

type fakeConn struct {
	incoming chan []byte
	outgoing chan WSMessage

	mu     sync.Mutex
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan []byte, 8),
		outgoing: make(chan WSMessage, 64),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	msg, ok := <-c.incoming
	if !ok {
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
	return websocket.TextMessage, msg, nil
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("use of closed connection")
	}
	if messageType != websocket.TextMessage {
		return nil
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	c.outgoing <- msg
	return nil
}

func (c *fakeConn) SetReadLimit(int64) {}

func (c *fakeConn) SetReadDeadline(time.Time) error {
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error {
	return nil
}

func (c *fakeConn) SetPongHandler(func(string) error) {}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) send(t MessageType, payload any) {
	body, _ := json.Marshal(payload)
	data, _ := json.Marshal(WSMessage{Type: t, Payload: body})
	c.incoming <- data
}
