package repository

import (
	"context"

	"profilegate-go-server/domain/entity"
)

// SessionAccessor 外部认证服务的访问接口
type SessionAccessor interface {
	// GetCurrentIdentity 根据会话 token 获取当前身份
	// token 无效或过期返回 (nil, nil)；服务故障返回 ErrServiceUnavailable
	GetCurrentIdentity(ctx context.Context, token string) (*entity.Identity, error)

	// Subscribe 订阅某个身份的变更（登出时回调参数为 nil）
	// 只针对其他会话的登出事件不会回调
	// 返回的 unsubscribe 必须在不再需要时调用一次，重复调用无副作用
	Subscribe(identity *entity.Identity, onChange func(*entity.Identity)) (unsubscribe func())

	// SignOut 吊销身份对应的会话
	SignOut(ctx context.Context, identity *entity.Identity) error

	// UpdateIdentityMetadata 同步展示信息到认证服务
	UpdateIdentityMetadata(ctx context.Context, userID string, metadata entity.UserMetadata) error
}

// IdentityEventSource 身份变更事件源（由 ws.Hub 实现）
type IdentityEventSource interface {
	Subscribe(userID string, handler func(entity.IdentityEvent)) (unsubscribe func())
}

// IdentityEventPublisher 身份变更事件发布（本地 Hub 或 Redis Relay）
type IdentityEventPublisher interface {
	Publish(ctx context.Context, event entity.IdentityEvent) error
}
