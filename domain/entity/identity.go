package entity

import "time"

// Identity 外部认证服务（Clerk）提供的已登录身份
// 只读：由认证服务创建和维护，本系统从不修改
type Identity struct {
	ID        string       `json:"id"`
	Email     string       `json:"email,omitempty"`
	SessionID string       `json:"-"` // Clerk session id，用于登出
	Metadata  UserMetadata `json:"metadata"`
}

// UserMetadata 身份上携带的展示信息，用作 profile 的默认值
type UserMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// IdentityEventType 身份变更事件类型
type IdentityEventType string

const (
	IdentityUpdated   IdentityEventType = "updated"    // 元数据变更 / token 刷新
	IdentitySignedOut IdentityEventType = "signed-out" // 登出、会话吊销、用户删除
)

// IdentityEvent 身份变更通知
// SignedOut 事件的 Identity 为 nil；SessionID 非空时只作用于该会话
type IdentityEvent struct {
	Type       IdentityEventType `json:"type"`
	UserID     string            `json:"userId"`
	SessionID  string            `json:"sessionId,omitempty"`
	Identity   *Identity         `json:"identity,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// AppliesTo 事件是否作用于给定会话
// 未限定会话的事件（用户删除、资料变更）作用于该用户的所有会话
func (e IdentityEvent) AppliesTo(sessionID string) bool {
	return e.SessionID == "" || sessionID == "" || e.SessionID == sessionID
}

// Current 事件发生后的身份（登出时为 nil）
func (e IdentityEvent) Current() *Identity {
	if e.Type == IdentitySignedOut {
		return nil
	}
	return e.Identity
}
