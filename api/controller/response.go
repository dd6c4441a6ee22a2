package controller

import (
	"errors"
	"log"
	"net/http"

	domainErrors "profilegate-go-server/domain/errors"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// respondError 领域错误 -> HTTP 状态码
// 只有校验错误会带 details，其余一律给通用文案
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domainErrors.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "表单校验失败", Details: err.Error()})
	case errors.Is(err, domainErrors.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "非法角色"})
	case errors.Is(err, domainErrors.ErrSelfRoleChange):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "不能修改自己的角色"})
	case errors.Is(err, domainErrors.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "用户不存在"})
	case errors.Is(err, domainErrors.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "没有权限"})
	case errors.Is(err, domainErrors.ErrIdentityRequired):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "请先登录"})
	case errors.Is(err, domainErrors.ErrServiceUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: fallback})
	default:
		log.Printf("[API] ❌ %s: %v", fallback, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fallback})
	}
}
