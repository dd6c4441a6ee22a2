package controller

import (
	"log"
	"net/http"

	"profilegate-go-server/api/middleware"
	"profilegate-go-server/domain/entity"
	"profilegate-go-server/internal/metrics"
	"profilegate-go-server/usecase"

	"github.com/gin-gonic/gin"
)

// ViewDecisionResponse 页面授权结果
type ViewDecisionResponse struct {
	View     string `json:"view"`
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
	Location string `json:"location,omitempty"`
}

// ViewController 供前端路由在跳转前询问闸门
type ViewController struct {
	resolver *usecase.ProfileResolver
	metrics  *metrics.Metrics
}

func NewViewController(resolver *usecase.ProfileResolver, m *metrics.Metrics) *ViewController {
	return &ViewController{resolver: resolver, metrics: m}
}

// CheckView GET /api/views/:view
// profile 解析失败时受保护页面返回 503（fail closed），公开页面照常放行
func (vc *ViewController) CheckView(c *gin.Context) {
	view := c.Param("view")
	dest := usecase.Destination(view)
	label := view
	if !dest.Known() {
		label = "unknown"
	}

	var profile *entity.Profile
	if identity := middleware.IdentityFrom(c); identity != nil {
		p, err := vc.resolver.Resolve(c.Request.Context(), identity)
		if err != nil {
			req, known := usecase.RequirementFor(dest)
			if !known || req.Session || req.Role != entity.RoleNone {
				log.Printf("[View] ❌ 用户 %s 询问 %s 时 profile 解析失败: %v", identity.ID, view, err)
				vc.metrics.ObserveDecision(label, "unavailable")
				c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "服务暂不可用，请稍后重试"})
				return
			}
		}
		profile = p
	}

	decision := usecase.DecideView(profile, dest)
	vc.metrics.ObserveDecision(label, decision.Outcome())

	resp := ViewDecisionResponse{View: view, Allowed: decision.Allowed}
	if !decision.Allowed {
		resp.Redirect = string(decision.Redirect)
		resp.Location = decision.Redirect.Path()
	}
	c.JSON(http.StatusOK, resp)
}
