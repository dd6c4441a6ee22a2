package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"profilegate-go-server/domain/entity"
	domainRepo "profilegate-go-server/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// settingsRepository GORM 实现 SettingsRepository 接口
type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository 构造函数
func NewSettingsRepository(db *gorm.DB) domainRepo.SettingsRepository {
	return &settingsRepository{db: db}
}

// Get 读取设置，不存在返回 (nil, nil)
func (r *settingsRepository) Get(ctx context.Context, key string) (*entity.SettingsRecord, error) {
	var record entity.SettingsRecord
	// key 在 MySQL 中是保留字，交给 GORM 负责引号
	err := r.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // 返回 nil 表示不存在，调用方使用默认值
	}
	if err != nil {
		return nil, fmt.Errorf("query settings %s: %w", key, err)
	}
	return &record, nil
}

// Put 使用 ON CONFLICT 覆盖写入
func (r *settingsRepository) Put(ctx context.Context, record *entity.SettingsRecord) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at", "updated_by"}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("save settings %s: %w", record.Key, err)
	}
	return nil
}

// MemorySettingsRepository 内存实现
type MemorySettingsRepository struct {
	mu      sync.RWMutex
	records map[string]entity.SettingsRecord
}

// NewMemorySettingsRepository 构造函数
func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{records: make(map[string]entity.SettingsRecord)}
}

// Get 读取设置
func (r *MemorySettingsRepository) Get(_ context.Context, key string) (*entity.SettingsRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	record.Value = append([]byte(nil), record.Value...)
	return &record, nil
}

// Put 覆盖写入
func (r *MemorySettingsRepository) Put(_ context.Context, record *entity.SettingsRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *record
	stored.Value = append([]byte(nil), record.Value...)
	r.records[record.Key] = stored
	return nil
}
