package controller

import (
	"net/http"
	"time"

	"profilegate-go-server/api/middleware"
	"profilegate-go-server/domain/entity"
	"profilegate-go-server/usecase"

	"github.com/gin-gonic/gin"
)

// UserListItem 用户列表项
type UserListItem struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name"`
	AvatarURL   *string     `json:"avatar_url"`
	Role        entity.Role `json:"role"`
	UpdatedAt   time.Time   `json:"updated_at"`
	IsSelf      bool        `json:"is_self"` // 前端据此隐藏修改自己角色的按钮
}

// UpdateRoleRequest 修改角色请求
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// AdminController 管理后台
type AdminController struct {
	adminUseCase    *usecase.AdminUseCase
	settingsUseCase *usecase.SettingsUseCase
}

func NewAdminController(adminUseCase *usecase.AdminUseCase, settingsUseCase *usecase.SettingsUseCase) *AdminController {
	return &AdminController{adminUseCase: adminUseCase, settingsUseCase: settingsUseCase}
}

// Stats GET /api/admin/stats
func (ac *AdminController) Stats(c *gin.Context) {
	stats, err := ac.adminUseCase.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err, "加载统计失败")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListUsers GET /api/admin/users
func (ac *AdminController) ListUsers(c *gin.Context) {
	users, err := ac.adminUseCase.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err, "加载用户列表失败")
		return
	}

	self := middleware.ProfileFrom(c)
	items := make([]UserListItem, 0, len(users))
	for i := range users {
		u := &users[i]
		items = append(items, UserListItem{
			ID:          u.ID,
			DisplayName: u.DisplayName(),
			AvatarURL:   u.AvatarURL,
			Role:        u.Role,
			UpdatedAt:   u.UpdatedAt,
			IsSelf:      self != nil && self.ID == u.ID,
		})
	}
	c.JSON(http.StatusOK, items)
}

// UpdateRole PATCH /api/admin/users/:id/role
func (ac *AdminController) UpdateRole(c *gin.Context) {
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "请求格式错误", Details: err.Error()})
		return
	}

	profile, err := ac.adminUseCase.UpdateRole(c.Request.Context(), middleware.ProfileFrom(c), c.Param("id"), req.Role)
	if err != nil {
		respondError(c, err, "修改角色失败")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetSettings GET /api/admin/settings
func (ac *AdminController) GetSettings(c *gin.Context) {
	settings, err := ac.settingsUseCase.Get(c.Request.Context())
	if err != nil {
		respondError(c, err, "加载设置失败")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// SaveSettings PUT /api/admin/settings
func (ac *AdminController) SaveSettings(c *gin.Context) {
	var req entity.SiteSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "请求格式错误", Details: err.Error()})
		return
	}

	settings, err := ac.settingsUseCase.Save(c.Request.Context(), middleware.ProfileFrom(c), req)
	if err != nil {
		respondError(c, err, "保存设置失败")
		return
	}
	c.JSON(http.StatusOK, settings)
}
