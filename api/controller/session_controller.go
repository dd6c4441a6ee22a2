package controller

import (
	"log"
	"net/http"
	"time"

	"profilegate-go-server/api/middleware"
	"profilegate-go-server/domain/entity"
	"profilegate-go-server/domain/repository"
	"profilegate-go-server/usecase"

	"github.com/gin-gonic/gin"
)

// SessionResponse GET /api/session 响应
type SessionResponse struct {
	Authenticated bool                  `json:"authenticated"`
	Status        usecase.SessionStatus `json:"status"`
	Identity      *entity.Identity      `json:"identity,omitempty"`
	Profile       *entity.Profile       `json:"profile,omitempty"`
	IsAdmin       bool                  `json:"is_admin"`
	Error         string                `json:"error,omitempty"`
}

// SessionController 会话查询与登出
type SessionController struct {
	accessor  repository.SessionAccessor
	resolver  *usecase.ProfileResolver
	publisher repository.IdentityEventPublisher
}

func NewSessionController(accessor repository.SessionAccessor, resolver *usecase.ProfileResolver, publisher repository.IdentityEventPublisher) *SessionController {
	return &SessionController{accessor: accessor, resolver: resolver, publisher: publisher}
}

// GetSession 当前会话
// GET /api/session
func (sc *SessionController) GetSession(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		c.JSON(http.StatusOK, SessionResponse{Status: usecase.SessionSignedOut})
		return
	}

	resp := SessionResponse{Authenticated: true, Identity: identity}
	profile, err := sc.resolver.Resolve(c.Request.Context(), identity)
	if err != nil {
		log.Printf("[Session] ❌ 用户 %s profile 解析失败: %v", identity.ID, err)
		resp.Status = usecase.SessionFailed
		resp.Error = "加载用户资料失败"
		c.JSON(http.StatusOK, resp)
		return
	}

	resp.Status = usecase.SessionReady
	resp.Profile = profile
	resp.IsAdmin = profile.Role == entity.RoleAdmin
	c.JSON(http.StatusOK, resp)
}

// SignOut 吊销当前会话并通知该会话的所有连接
// POST /api/session/signout
func (sc *SessionController) SignOut(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		middleware.AbortDenied(c, usecase.Deny(usecase.DestinationSignIn))
		return
	}

	if err := sc.accessor.SignOut(c.Request.Context(), identity); err != nil {
		respondError(c, err, "登出失败")
		return
	}

	event := entity.IdentityEvent{
		Type:       entity.IdentitySignedOut,
		UserID:     identity.ID,
		SessionID:  identity.SessionID,
		OccurredAt: time.Now().UTC(),
	}
	if err := sc.publisher.Publish(c.Request.Context(), event); err != nil {
		// 会话已经吊销，通知失败只影响其他标签页的即时刷新
		log.Printf("[Session] ⚠️ 广播登出事件失败: %v", err)
	}

	log.Printf("[Session] 👋 用户 %s 已登出", identity.ID)
	c.Status(http.StatusNoContent)
}
