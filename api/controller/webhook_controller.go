package controller

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"profilegate-go-server/domain/entity"
	domainRepo "profilegate-go-server/domain/repository"
	"profilegate-go-server/repository"
	"profilegate-go-server/usecase"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/gin-gonic/gin"
	svix "github.com/svix/svix-webhooks/go"
)

// WebhookController 处理 Clerk Webhook 回调
// profile 从不因为 webhook 被删除；登出类事件只用于通知在线会话
type WebhookController struct {
	resolver      *usecase.ProfileResolver
	publisher     domainRepo.IdentityEventPublisher
	webhookSecret string
}

// NewWebhookController 构造函数
func NewWebhookController(resolver *usecase.ProfileResolver, publisher domainRepo.IdentityEventPublisher, webhookSecret string) *WebhookController {
	return &WebhookController{
		resolver:      resolver,
		publisher:     publisher,
		webhookSecret: webhookSecret,
	}
}

// ClerkWebhookPayload Clerk Webhook 事件结构
type ClerkWebhookPayload struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// clerkSessionData session.* 事件的数据
type clerkSessionData struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

// HandleClerkWebhook 处理 Clerk Webhook 回调
// POST /webhook/clerk
func (wc *WebhookController) HandleClerkWebhook(c *gin.Context) {
	// 1. 读取请求体
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Printf("[Webhook] ❌ 读取请求体失败: %v", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "无法读取请求体"})
		return
	}

	// 2. 验证 Webhook 签名（使用 Svix SDK）
	if wc.webhookSecret != "" {
		wh, err := svix.NewWebhook(wc.webhookSecret)
		if err != nil {
			log.Printf("[Webhook] ❌ 初始化 Webhook 验证器失败: %v", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Webhook 配置错误"})
			return
		}

		headers := http.Header{}
		headers.Set("svix-id", c.GetHeader("svix-id"))
		headers.Set("svix-timestamp", c.GetHeader("svix-timestamp"))
		headers.Set("svix-signature", c.GetHeader("svix-signature"))

		if err := wh.Verify(body, headers); err != nil {
			log.Printf("[Webhook] ❌ 签名验证失败: %v", err)
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "签名验证失败"})
			return
		}
	} else {
		log.Println("[Webhook] ⚠️ 未配置 CLERK_WEBHOOK_SECRET，跳过签名验证（仅限开发环境）")
	}

	// 3. 解析事件
	var payload ClerkWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("[Webhook] ❌ 解析 Webhook 失败: %v", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "无效的 JSON 格式"})
		return
	}

	log.Printf("[Webhook] 📥 收到事件: %s", payload.Type)

	// 4. 根据事件类型处理
	var handleErr error
	switch payload.Type {
	case "user.created":
		handleErr = wc.handleUserCreated(c, payload.Data)
	case "user.updated":
		handleErr = wc.handleUserUpdated(c, payload.Data)
	case "user.deleted":
		handleErr = wc.handleUserDeleted(c, payload.Data)
	case "session.ended", "session.removed", "session.revoked":
		handleErr = wc.handleSessionEnded(c, payload.Data)
	default:
		log.Printf("[Webhook] ℹ️ 忽略事件: %s", payload.Type)
	}

	// 返回 5xx 让 Svix 重试；解析类错误重试也没用，直接 200
	if handleErr != nil {
		log.Printf("[Webhook] ❌ 处理 %s 失败: %v", payload.Type, handleErr)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "事件处理失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// handleUserCreated 提前创建默认 profile（幂等）
func (wc *WebhookController) handleUserCreated(c *gin.Context, data json.RawMessage) error {
	identity, ok := parseClerkUser(data)
	if !ok {
		return nil
	}

	profile, err := wc.resolver.Resolve(c.Request.Context(), identity)
	if err != nil {
		return err
	}
	log.Printf("[Webhook] ✅ 用户 %s 的 profile 已就绪 (role=%s)", profile.ID, profile.Role)
	return nil
}

// handleUserUpdated 通知在线会话重新加载
func (wc *WebhookController) handleUserUpdated(c *gin.Context, data json.RawMessage) error {
	identity, ok := parseClerkUser(data)
	if !ok {
		return nil
	}
	return wc.publish(c, entity.IdentityEvent{
		Type:     entity.IdentityUpdated,
		UserID:   identity.ID,
		Identity: identity,
	})
}

// handleUserDeleted 身份不存在了，在线会话全部登出
func (wc *WebhookController) handleUserDeleted(c *gin.Context, data json.RawMessage) error {
	var userData struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &userData); err != nil || userData.ID == "" {
		log.Printf("[Webhook] ❌ 解析删除事件数据失败: %v", err)
		return nil
	}
	return wc.publish(c, entity.IdentityEvent{Type: entity.IdentitySignedOut, UserID: userData.ID})
}

// handleSessionEnded 会话结束 / 移除 / 吊销
func (wc *WebhookController) handleSessionEnded(c *gin.Context, data json.RawMessage) error {
	var sessionData clerkSessionData
	if err := json.Unmarshal(data, &sessionData); err != nil || sessionData.UserID == "" {
		log.Printf("[Webhook] ❌ 解析会话事件数据失败: %v", err)
		return nil
	}
	// 只登出结束的那个会话，同一用户在其他设备上的会话不受影响
	return wc.publish(c, entity.IdentityEvent{
		Type:      entity.IdentitySignedOut,
		UserID:    sessionData.UserID,
		SessionID: sessionData.ID,
	})
}

func (wc *WebhookController) publish(c *gin.Context, event entity.IdentityEvent) error {
	event.OccurredAt = time.Now().UTC()
	if err := wc.publisher.Publish(c.Request.Context(), event); err != nil {
		return err
	}
	log.Printf("[Webhook] 📣 已广播 %s 事件给用户 %s", event.Type, event.UserID)
	return nil
}

// parseClerkUser webhook 中的用户对象与 Clerk API 返回的结构一致
func parseClerkUser(data json.RawMessage) (*entity.Identity, bool) {
	var u clerk.User
	if err := json.Unmarshal(data, &u); err != nil || u.ID == "" {
		log.Printf("[Webhook] ❌ 解析用户数据失败: %v", err)
		return nil, false
	}
	return repository.IdentityFromClerkUser(&u), true
}
