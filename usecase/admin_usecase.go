package usecase

import (
	"context"
	"fmt"
	"log"

	"profilegate-go-server/domain/entity"
	domainErrors "profilegate-go-server/domain/errors"
	"profilegate-go-server/domain/repository"
)

// AdminStats 仪表盘统计
type AdminStats struct {
	UserCount int64 `json:"user_count"`
}

// AdminUseCase 管理后台
// 路由层已经过 admin 闸门，这里仍然校验操作者角色
type AdminUseCase struct {
	repo repository.ProfileRepository
}

func NewAdminUseCase(repo repository.ProfileRepository) *AdminUseCase {
	return &AdminUseCase{repo: repo}
}

// Stats 用户总数
func (uc *AdminUseCase) Stats(ctx context.Context) (*AdminStats, error) {
	n, err := uc.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count profiles: %w", err)
	}
	return &AdminStats{UserCount: n}, nil
}

// ListUsers 全部用户，最近更新在前
func (uc *AdminUseCase) ListUsers(ctx context.Context) ([]entity.Profile, error) {
	users, err := uc.repo.ListAll(ctx, entity.OrderByRecentlyUpdated)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return users, nil
}

// UpdateRole 修改目标用户角色
// 并发修改以最后一次写入为准
func (uc *AdminUseCase) UpdateRole(ctx context.Context, actor *entity.Profile, targetID string, role string) (*entity.Profile, error) {
	if actor == nil || actor.Role != entity.RoleAdmin {
		return nil, domainErrors.ErrForbidden
	}

	parsed, err := entity.ParseRole(role)
	if err != nil || parsed == entity.RoleNone {
		return nil, domainErrors.ErrInvalidRole
	}

	if targetID == actor.ID {
		return nil, domainErrors.ErrSelfRoleChange
	}

	updated, err := uc.repo.Update(ctx, targetID, entity.ProfileUpdate{Role: &parsed})
	if err != nil {
		return nil, fmt.Errorf("update role of %s: %w", targetID, err)
	}

	log.Printf("[Admin] 🔑 %s 将用户 %s 的角色改为 %s", actor.ID, targetID, parsed)
	return updated, nil
}
