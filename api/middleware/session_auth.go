package middleware

import (
	"log"
	"strings"

	"profilegate-go-server/domain/entity"
	"profilegate-go-server/domain/repository"

	"github.com/gin-gonic/gin"
)

// SessionAuth 解析当前身份（可选）
// 没有 token 或 token 无效时按匿名处理，由后续的 RequireView 决定是否放行
// 认证服务故障时记录日志并按匿名处理：公开页面照常放行，受保护页面由 RequireView 重定向到登录
func SessionAuth(accessor repository.SessionAccessor) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			c.Next()
			return
		}

		identity, err := accessor.GetCurrentIdentity(c.Request.Context(), token)
		if err != nil {
			log.Printf("[Auth] ⚠️ 获取当前身份失败，按匿名处理: %v", err)
			c.Next()
			return
		}

		if identity != nil {
			c.Set(ContextKeyIdentity, identity)
		}
		c.Next()
	}
}

// TokenFromRequest 依次尝试 Authorization 头和 __session cookie
func TokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return cookie
	}
	return ""
}

// IdentityFrom 当前身份，匿名返回 nil
func IdentityFrom(c *gin.Context) *entity.Identity {
	v, ok := c.Get(ContextKeyIdentity)
	if !ok {
		return nil
	}
	identity, _ := v.(*entity.Identity)
	return identity
}

// ProfileFrom RequireView 放行后的 profile
func ProfileFrom(c *gin.Context) *entity.Profile {
	v, ok := c.Get(ContextKeyProfile)
	if !ok {
		return nil
	}
	profile, _ := v.(*entity.Profile)
	return profile
}
