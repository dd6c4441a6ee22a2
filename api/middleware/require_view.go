package middleware

import (
	"log"
	"net/http"

	"profilegate-go-server/internal/metrics"
	"profilegate-go-server/usecase"

	"github.com/gin-gonic/gin"
)

// DenyResponse 拒绝访问时的响应体，只给跳转目标，不给原因
type DenyResponse struct {
	Redirect string `json:"redirect"`
	Location string `json:"location"`
}

// RequireView 用页面闸门保护路由
// 1. 有身份时解析 profile（首次访问会创建默认 profile）
// 2. 解析失败：503，不返回任何受保护内容
// 3. 拒绝：401（去登录）/ 403（回首页）
func RequireView(dest usecase.Destination, resolver *usecase.ProfileResolver, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := IdentityFrom(c)

		if identity != nil {
			profile, err := resolver.Resolve(c.Request.Context(), identity)
			if err != nil {
				log.Printf("[Gate] ❌ 用户 %s 访问 %s 时 profile 解析失败: %v", identity.ID, dest, err)
				m.ObserveDecision(string(dest), "unavailable")
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "服务暂不可用，请稍后重试"})
				return
			}
			c.Set(ContextKeyProfile, profile)
		}

		decision := usecase.DecideView(ProfileFrom(c), dest)
		m.ObserveDecision(string(dest), decision.Outcome())

		if !decision.Allowed {
			AbortDenied(c, decision)
			return
		}
		c.Next()
	}
}

// AbortDenied 写入拒绝响应
func AbortDenied(c *gin.Context, decision usecase.Decision) {
	status := http.StatusForbidden
	if decision.Redirect == usecase.DestinationSignIn {
		status = http.StatusUnauthorized
	}
	c.AbortWithStatusJSON(status, DenyResponse{
		Redirect: string(decision.Redirect),
		Location: decision.Redirect.Path(),
	})
}
