package route

import (
	"context"
	"errors"
	"sync"

	"profilegate-go-server/domain/entity"
	domainErrors "profilegate-go-server/domain/errors"
	"profilegate-go-server/repository"

	"github.com/stretchr/testify/mock"
)

// ========== MockSessionAccessor ==========
// token -> 身份 的固定映射；"broken" 模拟认证服务故障

type MockSessionAccessor struct {
	mock.Mock

	mu         sync.Mutex
	identities map[string]*entity.Identity
}

func newMockAccessor() *MockSessionAccessor {
	return &MockSessionAccessor{identities: make(map[string]*entity.Identity)}
}

func (m *MockSessionAccessor) addToken(token, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[token] = &entity.Identity{ID: userID, SessionID: "sess_" + userID}
}

func (m *MockSessionAccessor) GetCurrentIdentity(_ context.Context, token string) (*entity.Identity, error) {
	if token == "broken" {
		return nil, domainErrors.ErrServiceUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.identities[token]
	if !ok {
		return nil, nil
	}
	c := *identity
	return &c, nil
}

func (m *MockSessionAccessor) Subscribe(*entity.Identity, func(*entity.Identity)) func() {
	return func() {}
}

func (m *MockSessionAccessor) SignOut(ctx context.Context, identity *entity.Identity) error {
	return m.Called(ctx, identity).Error(0)
}

func (m *MockSessionAccessor) UpdateIdentityMetadata(ctx context.Context, userID string, metadata entity.UserMetadata) error {
	return m.Called(ctx, userID, metadata).Error(0)
}

// ========== MockPublisher ==========

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event entity.IdentityEvent) error {
	return m.Called(ctx, event).Error(0)
}

// failingProfileRepository 读取永远失败（模拟存储不可达）
type failingProfileRepository struct {
	*repository.MemoryProfileRepository
}

func (failingProfileRepository) GetByID(context.Context, string) (*entity.Profile, error) {
	return nil, errors.New("connection refused")
}
