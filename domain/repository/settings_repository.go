package repository

import (
	"context"

	"profilegate-go-server/domain/entity"
)

// SettingsRepository 站点设置存储
type SettingsRepository interface {
	// Get 读取设置，不存在时返回 (nil, nil)
	Get(ctx context.Context, key string) (*entity.SettingsRecord, error)

	// Put 写入或覆盖设置
	Put(ctx context.Context, record *entity.SettingsRecord) error
}
