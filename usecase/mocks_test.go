package usecase

import (
	"context"
	"sync"

	"profilegate-go-server/domain/entity"

	"github.com/stretchr/testify/mock"
)

// ========== MockProfileRepository ==========
// 实现 repository.ProfileRepository 接口

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Profile), args.Error(1)
}

func (m *MockProfileRepository) Insert(ctx context.Context, profile *entity.Profile) (*entity.Profile, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Profile), args.Error(1)
}

func (m *MockProfileRepository) Update(ctx context.Context, id string, update entity.ProfileUpdate) (*entity.Profile, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Profile), args.Error(1)
}

func (m *MockProfileRepository) ListAll(ctx context.Context, order entity.ProfileOrder) ([]entity.Profile, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Profile), args.Error(1)
}

func (m *MockProfileRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// ========== MockSessionAccessor ==========
// 只 mock 外部调用；Subscribe 保存回调，测试里手动触发

type MockSessionAccessor struct {
	mock.Mock

	mu        sync.Mutex
	listeners map[string]func(*entity.Identity)
	unsubs    int

	// onSubscribe 在订阅登记后同步调用，用来模拟订阅与初始加载之间到达的事件
	onSubscribe func(userID string)
}

func (m *MockSessionAccessor) GetCurrentIdentity(ctx context.Context, token string) (*entity.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Identity), args.Error(1)
}

func (m *MockSessionAccessor) Subscribe(identity *entity.Identity, onChange func(*entity.Identity)) func() {
	userID := identity.ID
	if m.onSubscribe != nil {
		defer m.onSubscribe(userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listeners == nil {
		m.listeners = make(map[string]func(*entity.Identity))
	}
	m.listeners[userID] = onChange
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.unsubs++
		delete(m.listeners, userID)
	}
}

func (m *MockSessionAccessor) SignOut(ctx context.Context, identity *entity.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *MockSessionAccessor) UpdateIdentityMetadata(ctx context.Context, userID string, metadata entity.UserMetadata) error {
	args := m.Called(ctx, userID, metadata)
	return args.Error(0)
}

// Emit 触发订阅回调
func (m *MockSessionAccessor) Emit(userID string, identity *entity.Identity) {
	m.mu.Lock()
	fn := m.listeners[userID]
	m.mu.Unlock()
	if fn != nil {
		fn(identity)
	}
}

func (m *MockSessionAccessor) Unsubscribes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unsubs
}

// ========== MockSettingsRepository ==========

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context, key string) (*entity.SettingsRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SettingsRecord), args.Error(1)
}

func (m *MockSettingsRepository) Put(ctx context.Context, record *entity.SettingsRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}
