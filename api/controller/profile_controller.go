package controller

import (
	"io"
	"net/http"

	"profilegate-go-server/api/middleware"
	"profilegate-go-server/domain/entity"
	"profilegate-go-server/usecase"

	"github.com/gin-gonic/gin"
)

const maxPatchBody = 16 * 1024

// ProfileController 当前用户的 profile
// 路由上已挂 RequireView(profile)，这里的身份一定存在
type ProfileController struct {
	profileUseCase *usecase.ProfileUseCase
}

func NewProfileController(profileUseCase *usecase.ProfileUseCase) *ProfileController {
	return &ProfileController{profileUseCase: profileUseCase}
}

// GetProfile GET /api/profile
func (pc *ProfileController) GetProfile(c *gin.Context) {
	if profile := middleware.ProfileFrom(c); profile != nil {
		c.JSON(http.StatusOK, profile)
		return
	}

	profile, err := pc.profileUseCase.Get(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		respondError(c, err, "加载用户资料失败")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile 整体保存编辑表单
// PUT /api/profile
func (pc *ProfileController) UpdateProfile(c *gin.Context) {
	var form entity.ProfileForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "请求格式错误", Details: err.Error()})
		return
	}

	profile, err := pc.profileUseCase.UpdateOwn(c.Request.Context(), middleware.IdentityFrom(c), form)
	if err != nil {
		respondError(c, err, "更新用户资料失败")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// PatchProfile JSON Merge Patch
// PATCH /api/profile
func (pc *ProfileController) PatchProfile(c *gin.Context) {
	switch c.ContentType() {
	case "application/merge-patch+json", "application/json":
	default:
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: "需要 application/merge-patch+json"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPatchBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "无法读取请求体"})
		return
	}

	profile, err := pc.profileUseCase.PatchOwn(c.Request.Context(), middleware.IdentityFrom(c), body)
	if err != nil {
		respondError(c, err, "更新用户资料失败")
		return
	}
	c.JSON(http.StatusOK, profile)
}
