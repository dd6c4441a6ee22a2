package repository

import (
	"context"
	"encoding/json"

	"profilegate-go-server/domain/entity"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/stretchr/testify/mock"
)

// ========== MockClerkAPI ==========

type MockClerkAPI struct {
	mock.Mock
}

func (m *MockClerkAPI) VerifyToken(ctx context.Context, token string) (*clerk.SessionClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clerk.SessionClaims), args.Error(1)
}

func (m *MockClerkAPI) GetUser(ctx context.Context, userID string) (*clerk.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clerk.User), args.Error(1)
}

func (m *MockClerkAPI) RevokeSession(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *MockClerkAPI) UpdatePublicMetadata(ctx context.Context, userID string, metadata json.RawMessage) error {
	return m.Called(ctx, userID, metadata).Error(0)
}

// fakeEventSource 保存订阅回调，测试里手动触发
type fakeEventSource struct {
	handlers map[string]func(entity.IdentityEvent)
	unsubs   int
}

func (f *fakeEventSource) Subscribe(userID string, handler func(entity.IdentityEvent)) func() {
	if f.handlers == nil {
		f.handlers = make(map[string]func(entity.IdentityEvent))
	}
	f.handlers[userID] = handler
	return func() {
		f.unsubs++
		delete(f.handlers, userID)
	}
}

func (f *fakeEventSource) emit(event entity.IdentityEvent) {
	if h := f.handlers[event.UserID]; h != nil {
		h(event)
	}
}

func ptr(s string) *string {
	return &s
}
