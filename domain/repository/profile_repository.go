package repository

import (
	"context"

	"profilegate-go-server/domain/entity"
)

// ProfileRepository profile 存储访问接口
// 错误约定：
//   - GetByID / Update 找不到行时返回 ErrProfileNotFound
//   - Insert 主键冲突时返回 ErrProfileConflict
//   - 其他错误一律视为存储故障
type ProfileRepository interface {
	// GetByID 根据 Clerk user_id 获取 profile
	GetByID(ctx context.Context, id string) (*entity.Profile, error)

	// Insert 插入新 profile，返回存储中的规范副本
	Insert(ctx context.Context, profile *entity.Profile) (*entity.Profile, error)

	// Update 部分字段更新，updated_at 由存储层推进
	Update(ctx context.Context, id string, update entity.ProfileUpdate) (*entity.Profile, error)

	// ListAll 按指定列排序返回全部 profile
	ListAll(ctx context.Context, order entity.ProfileOrder) ([]entity.Profile, error)

	// Count profile 总数（管理后台统计）
	Count(ctx context.Context) (int64, error)
}
