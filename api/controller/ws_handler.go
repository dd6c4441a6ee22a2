package controller

import (
	"context"
	"log"
	"net/http"
	"strings"

	"profilegate-go-server/domain/entity"
	domainRepo "profilegate-go-server/domain/repository"
	"profilegate-go-server/internal/metrics"
	"profilegate-go-server/internal/ws"
	"profilegate-go-server/usecase"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler 会话状态推送连接
type WSHandler struct {
	accessor domainRepo.SessionAccessor
	tracker  *usecase.SessionTracker
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

// NewWSHandler 构造函数
func NewWSHandler(accessor domainRepo.SessionAccessor, tracker *usecase.SessionTracker, m *metrics.Metrics, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		accessor: accessor,
		tracker:  tracker,
		metrics:  m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 开发环境允许所有
				if origin == "" || strings.HasPrefix(origin, "http://localhost") {
					return true
				}
				// 生产环境检查白名单
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				log.Printf("[WS] ⚠️ 拒绝来自 %s 的连接", origin)
				return false
			},
		},
	}
}

// HandleSession 处理 WebSocket 升级请求
// GET /ws/session?token=xxx
// 没有 token 或 token 无效也会建立连接，推送 signed-out 状态
func (h *WSHandler) HandleSession(c *gin.Context) {
	// WebSocket 不支持自定义 Header，token 走 URL 参数或 Sec-WebSocket-Protocol
	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("Sec-WebSocket-Protocol")
	}

	var identity *entity.Identity
	if token != "" {
		var err error
		identity, err = h.accessor.GetCurrentIdentity(c.Request.Context(), token)
		if err != nil {
			log.Printf("[WS] ❌ 获取身份失败，按未登录处理: %v", err)
			identity = nil
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] ❌ 升级 WebSocket 失败: %v", err)
		return
	}

	client := ws.NewSessionClient(conn, h.tracker, h.metrics)
	if identity != nil {
		log.Printf("[WS] ✅ 用户 [%s] 建立会话连接", identity.ID)
	}

	// 连接在 handler 返回后继续存活，不能跟随请求 ctx 取消
	go client.Serve(context.WithoutCancel(c.Request.Context()), identity)
}
