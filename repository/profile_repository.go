package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"profilegate-go-server/domain/entity"
	domainErrors "profilegate-go-server/domain/errors"
	domainRepo "profilegate-go-server/domain/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// pgUniqueViolation PostgreSQL 唯一约束冲突错误码
const pgUniqueViolation = "23505"

// 允许排序的列（防止把用户输入拼进 ORDER BY）
var orderableColumns = map[string]bool{
	"updated_at": true,
	"full_name":  true,
	"id":         true,
	"role":       true,
}

// profileRepository GORM 实现 ProfileRepository 接口
type profileRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewProfileRepository 构造函数
func NewProfileRepository(db *gorm.DB) domainRepo.ProfileRepository {
	return &profileRepository{db: db, now: time.Now}
}

// GetByID 根据 Clerk user_id 查询 profile
func (r *profileRepository) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	var profile entity.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainErrors.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile %s: %w", id, err)
	}
	return &profile, nil
}

// Insert 插入新 profile
// ⚠️ 不使用 Save/Upsert：主键冲突必须暴露给解析器，由它重新读取
func (r *profileRepository) Insert(ctx context.Context, profile *entity.Profile) (*entity.Profile, error) {
	row := profile.Clone()
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = r.now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, domainErrors.ErrProfileConflict
		}
		return nil, fmt.Errorf("insert profile %s: %w", profile.ID, err)
	}

	// 重新读取，存储是服务端字段的唯一可信来源
	return r.GetByID(ctx, row.ID)
}

// Update 部分字段更新
// 在事务内锁行读取旧的 updated_at，保证新值严格递增
func (r *profileRepository) Update(ctx context.Context, id string, update entity.ProfileUpdate) (*entity.Profile, error) {
	if update.Role != nil && !update.Role.Valid() {
		return nil, domainErrors.ErrInvalidRole
	}

	var updated entity.Profile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current entity.Profile
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainErrors.ErrProfileNotFound
		}
		if err != nil {
			return err
		}

		values := map[string]interface{}{
			"updated_at": nextUpdatedAt(current.UpdatedAt, r.now()),
		}
		if update.FullName != nil {
			values["full_name"] = *update.FullName
		}
		if update.AvatarURL != nil {
			values["avatar_url"] = *update.AvatarURL
		}
		if update.Role != nil {
			values["role"] = *update.Role
		}

		if err := tx.Model(&entity.Profile{}).Where("id = ?", id).Updates(values).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&updated).Error
	})
	if errors.Is(err, domainErrors.ErrProfileNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("update profile %s: %w", id, err)
	}
	return &updated, nil
}

// ListAll 返回全部 profile
func (r *profileRepository) ListAll(ctx context.Context, order entity.ProfileOrder) ([]entity.Profile, error) {
	if !orderableColumns[order.Column] {
		return nil, fmt.Errorf("unsupported order column %q", order.Column)
	}

	var profiles []entity.Profile
	err := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: order.Column}, Desc: order.Descending}).
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// Count 统计 profile 总数
func (r *profileRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.Profile{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return count, nil
}

// isUniqueViolation 兼容 TranslateError 与原始 pgx 错误
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// nextUpdatedAt 计算新的 updated_at：至少比旧值晚 1 微秒（PostgreSQL 时间精度）
func nextUpdatedAt(previous, now time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	floor := previous.UTC().Add(time.Microsecond)
	if now.Before(floor) {
		return floor
	}
	return now
}
