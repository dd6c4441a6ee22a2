package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"profilegate-go-server/domain/entity"
	domainErrors "profilegate-go-server/domain/errors"
	domainRepo "profilegate-go-server/domain/repository"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/clerk/clerk-sdk-go/v2/session"
	"github.com/clerk/clerk-sdk-go/v2/user"
)

// ClerkAPI Clerk SDK 调用的最小集合，便于测试替换
type ClerkAPI interface {
	VerifyToken(ctx context.Context, token string) (*clerk.SessionClaims, error)
	GetUser(ctx context.Context, userID string) (*clerk.User, error)
	RevokeSession(ctx context.Context, sessionID string) error
	UpdatePublicMetadata(ctx context.Context, userID string, metadata json.RawMessage) error
}

// clerkSDK 使用全局 clerk.SetKey 配置的真实 SDK
type clerkSDK struct{}

// NewClerkAPI 返回真实 Clerk SDK 实现（需先调用 bootstrap.InitClerk）
func NewClerkAPI() ClerkAPI {
	return clerkSDK{}
}

func (clerkSDK) VerifyToken(ctx context.Context, token string) (*clerk.SessionClaims, error) {
	// Clerk SDK 会自动拉取公钥并验证签名、过期时间
	return jwt.Verify(ctx, &jwt.VerifyParams{Token: token})
}

func (clerkSDK) GetUser(ctx context.Context, userID string) (*clerk.User, error) {
	return user.Get(ctx, userID)
}

func (clerkSDK) RevokeSession(ctx context.Context, sessionID string) error {
	_, err := session.Revoke(ctx, &session.RevokeParams{ID: sessionID})
	return err
}

func (clerkSDK) UpdatePublicMetadata(ctx context.Context, userID string, metadata json.RawMessage) error {
	_, err := user.UpdateMetadata(ctx, userID, &user.UpdateMetadataParams{
		PublicMetadata: &metadata,
	})
	return err
}

// ClerkSessionAccessor 基于 Clerk 实现 SessionAccessor
type ClerkSessionAccessor struct {
	api    ClerkAPI
	events domainRepo.IdentityEventSource
}

// NewClerkSessionAccessor 构造函数
// events 提供身份变更订阅（通常是 ws.Hub）
func NewClerkSessionAccessor(api ClerkAPI, events domainRepo.IdentityEventSource) *ClerkSessionAccessor {
	return &ClerkSessionAccessor{api: api, events: events}
}

var _ domainRepo.SessionAccessor = (*ClerkSessionAccessor)(nil)

// GetCurrentIdentity 验证 token 并加载用户
func (a *ClerkSessionAccessor) GetCurrentIdentity(ctx context.Context, token string) (*entity.Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, nil
	}

	claims, err := a.api.VerifyToken(ctx, token)
	if err != nil {
		// token 无效 / 过期：视为未登录，不算服务故障
		log.Printf("[Clerk] token 校验未通过: %v", err)
		return nil, nil
	}

	u, err := a.api.GetUser(ctx, claims.Subject)
	if err != nil {
		if isClerkNotFound(err) {
			// 用户已在 Clerk 侧被删除
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load user %s: %v", domainErrors.ErrServiceUnavailable, claims.Subject, err)
	}

	identity := IdentityFromClerkUser(u)
	identity.SessionID = claims.SessionID
	return identity, nil
}

// Subscribe 订阅身份变更，回调参数为事件后的身份（登出时为 nil）
// 限定了其他会话的事件被忽略；变更后的身份沿用订阅方的 SessionID
func (a *ClerkSessionAccessor) Subscribe(identity *entity.Identity, onChange func(*entity.Identity)) func() {
	sessionID := identity.SessionID
	unsubscribe := a.events.Subscribe(identity.ID, func(event entity.IdentityEvent) {
		if !event.AppliesTo(sessionID) {
			return
		}
		next := event.Current()
		if next != nil && next.SessionID == "" {
			// 事件里的身份被多个订阅方共享，复制后再补 SessionID
			c := *next
			c.SessionID = sessionID
			next = &c
		}
		onChange(next)
	})

	var once sync.Once
	return func() {
		once.Do(unsubscribe)
	}
}

// SignOut 吊销当前会话
func (a *ClerkSessionAccessor) SignOut(ctx context.Context, identity *entity.Identity) error {
	if identity == nil {
		return domainErrors.ErrIdentityRequired
	}
	if identity.SessionID == "" {
		return nil
	}
	if err := a.api.RevokeSession(ctx, identity.SessionID); err != nil {
		return fmt.Errorf("%w: revoke session %s: %v", domainErrors.ErrServiceUnavailable, identity.SessionID, err)
	}
	return nil
}

// UpdateIdentityMetadata 把展示信息写入 Clerk public_metadata（Clerk 侧做浅合并）
func (a *ClerkSessionAccessor) UpdateIdentityMetadata(ctx context.Context, userID string, metadata entity.UserMetadata) error {
	raw, err := json.Marshal(map[string]string{
		"full_name":  metadata.FullName,
		"avatar_url": metadata.AvatarURL,
	})
	if err != nil {
		return err
	}
	if err := a.api.UpdatePublicMetadata(ctx, userID, raw); err != nil {
		return fmt.Errorf("%w: update metadata %s: %v", domainErrors.ErrServiceUnavailable, userID, err)
	}
	return nil
}

// IdentityFromClerkUser 把 Clerk 用户转换为 Identity
// 元数据优先取 public_metadata 中的 full_name / avatar_url，缺省时回退到 Clerk 的姓名与头像
func IdentityFromClerkUser(u *clerk.User) *entity.Identity {
	identity := &entity.Identity{
		ID:    u.ID,
		Email: primaryEmail(u),
	}

	var meta entity.UserMetadata
	if len(u.PublicMetadata) > 0 {
		if err := json.Unmarshal(u.PublicMetadata, &meta); err != nil {
			log.Printf("[Clerk] ⚠️ 用户 %s public_metadata 解析失败: %v", u.ID, err)
		}
	}
	if meta.FullName == "" {
		meta.FullName = JoinName(deref(u.FirstName), deref(u.LastName))
	}
	if meta.AvatarURL == "" {
		meta.AvatarURL = deref(u.ImageURL)
	}
	identity.Metadata = meta
	return identity
}

// JoinName 组合姓名
func JoinName(first, last string) string {
	name := first
	if last != "" {
		if name != "" {
			name += " "
		}
		name += last
	}
	return name
}

// primaryEmail 取主邮箱，没有标记主邮箱时取第一个
func primaryEmail(u *clerk.User) string {
	if len(u.EmailAddresses) == 0 {
		return ""
	}
	if u.PrimaryEmailAddressID != nil {
		for _, e := range u.EmailAddresses {
			if e != nil && e.ID == *u.PrimaryEmailAddressID {
				return e.EmailAddress
			}
		}
	}
	if u.EmailAddresses[0] == nil {
		return ""
	}
	return u.EmailAddresses[0].EmailAddress
}

func isClerkNotFound(err error) bool {
	var apiErr *clerk.APIErrorResponse
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
