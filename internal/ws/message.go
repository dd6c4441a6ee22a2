package ws

import "encoding/json"

type MessageType string

const (
	// 服务端推送
	TypeSessionState MessageType = "session-state" // 会话状态变化
	TypeViewDecision MessageType = "view-decision" // 页面授权结果

	// 客户端请求
	TypeCheckView MessageType = "check-view" // 询问能否进入某个页面

	TypeError MessageType = "error"
)

// WSMessage 统一的 WebSocket 消息结构
type WSMessage struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id,omitempty"` // 服务端消息 id
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts"`
}

// CheckViewPayload check-view 请求
type CheckViewPayload struct {
	View string `json:"view"`
}

// ViewDecisionPayload view-decision 响应
// decided=false 表示会话仍在加载，前端应继续显示加载中
type ViewDecisionPayload struct {
	View     string `json:"view"`
	Decided  bool   `json:"decided"`
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
	Location string `json:"location,omitempty"`
}

// ========== 错误码系统 ==========
// 前端根据 Code 判断错误类型，而不是匹配 Message 字符串

type ErrorCode string

const (
	ErrBadMessage    ErrorCode = "BAD_MESSAGE"    // 消息格式错误
	ErrUnknownType   ErrorCode = "UNKNOWN_TYPE"   // 不支持的消息类型
	ErrInternalError ErrorCode = "INTERNAL_ERROR" // 服务器内部错误
)

// ErrorPayload 错误消息的 payload 结构
type ErrorPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}
