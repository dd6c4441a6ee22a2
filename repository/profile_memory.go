package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"profilegate-go-server/domain/entity"
	domainErrors "profilegate-go-server/domain/errors"
)

// MemoryProfileRepository 内存实现（测试与 DATABASE_URL=memory 开发模式）
// 与 GORM 实现遵守同一套错误约定
type MemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]entity.Profile
	now      func() time.Time
}

// NewMemoryProfileRepository 构造函数
func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{
		profiles: make(map[string]entity.Profile),
		now:      time.Now,
	}
}

// GetByID 查询 profile
func (r *MemoryProfileRepository) GetByID(_ context.Context, id string) (*entity.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, domainErrors.ErrProfileNotFound
	}
	return p.Clone(), nil
}

// Insert 插入 profile，主键冲突返回 ErrProfileConflict
func (r *MemoryProfileRepository) Insert(_ context.Context, profile *entity.Profile) (*entity.Profile, error) {
	if !profile.Role.Valid() {
		return nil, domainErrors.ErrInvalidRole
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[profile.ID]; exists {
		return nil, domainErrors.ErrProfileConflict
	}

	row := profile.Clone()
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = r.now()
	}
	row.UpdatedAt = row.UpdatedAt.UTC().Truncate(time.Microsecond)
	r.profiles[row.ID] = *row
	return row.Clone(), nil
}

// Update 部分字段更新
func (r *MemoryProfileRepository) Update(_ context.Context, id string, update entity.ProfileUpdate) (*entity.Profile, error) {
	if update.Role != nil && !update.Role.Valid() {
		return nil, domainErrors.ErrInvalidRole
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.profiles[id]
	if !ok {
		return nil, domainErrors.ErrProfileNotFound
	}

	next := current.Clone()
	if update.FullName != nil {
		v := *update.FullName
		next.FullName = &v
	}
	if update.AvatarURL != nil {
		v := *update.AvatarURL
		next.AvatarURL = &v
	}
	if update.Role != nil {
		next.Role = *update.Role
	}
	next.UpdatedAt = nextUpdatedAt(current.UpdatedAt, r.now())

	r.profiles[id] = *next
	return next.Clone(), nil
}

// ListAll 按列排序返回全部 profile
func (r *MemoryProfileRepository) ListAll(_ context.Context, order entity.ProfileOrder) ([]entity.Profile, error) {
	if !orderableColumns[order.Column] {
		return nil, fmt.Errorf("unsupported order column %q", order.Column)
	}

	r.mu.RLock()
	profiles := make([]entity.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		profiles = append(profiles, *p.Clone())
	}
	r.mu.RUnlock()

	sort.SliceStable(profiles, func(i, j int) bool {
		c := compareProfiles(&profiles[i], &profiles[j], order.Column)
		if c == 0 {
			c = strings.Compare(profiles[i].ID, profiles[j].ID)
		}
		if order.Descending {
			return c > 0
		}
		return c < 0
	})
	return profiles, nil
}

// Count profile 总数
func (r *MemoryProfileRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.profiles)), nil
}

func compareProfiles(a, b *entity.Profile, column string) int {
	switch column {
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "full_name":
		return strings.Compare(derefString(a.FullName), derefString(b.FullName))
	case "role":
		return strings.Compare(string(a.Role), string(b.Role))
	default:
		return strings.Compare(a.ID, b.ID)
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
