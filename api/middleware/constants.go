package middleware

// ContextKey 定义 Context 中使用的常量 key
// 避免在代码中硬编码字符串，防止拼写错误导致的 bug

const (
	// ContextKeyIdentity 当前身份 (*entity.Identity)，匿名请求不设置
	ContextKeyIdentity = "identity"

	// ContextKeyProfile 通过闸门后解析出的 profile (*entity.Profile)
	ContextKeyProfile = "profile"

	// SessionCookieName Clerk 前端 SDK 写入的会话 cookie
	SessionCookieName = "__session"
)
