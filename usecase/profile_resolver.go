package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"profilegate-go-server/domain/entity"
	domainErrors "profilegate-go-server/domain/errors"
	"profilegate-go-server/domain/repository"
	"profilegate-go-server/internal/metrics"

	"golang.org/x/sync/singleflight"
)

// resolveTimeout 合并后的解析不跟随任何单个调用方取消，用独立超时兜底
const resolveTimeout = 10 * time.Second

// ProfileResolver 身份 -> profile 的唯一解析入口
// 读到就返回；读不到（NotFound）才创建默认 profile；插入冲突则重新读取
type ProfileResolver struct {
	repo    repository.ProfileRepository
	metrics *metrics.Metrics
	group   singleflight.Group // 同进程内同一身份的并发解析合并为一次
	now     func() time.Time
}

// NewProfileResolver 构造函数，metrics 可为 nil
func NewProfileResolver(repo repository.ProfileRepository, m *metrics.Metrics) *ProfileResolver {
	return &ProfileResolver{repo: repo, metrics: m, now: time.Now}
}

// Resolve 返回身份对应的 profile，必要时创建默认 profile
// 调用方保证 identity 当前已登录
func (r *ProfileResolver) Resolve(ctx context.Context, identity *entity.Identity) (*entity.Profile, error) {
	if identity == nil || identity.ID == "" {
		return nil, domainErrors.ErrIdentityRequired
	}

	// 共享的解析可能被多个请求合并，某个调用方断开不能让其他调用方一起失败
	ch := r.group.DoChan(identity.ID, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()
		return r.resolve(shared, identity)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// 每个调用方拿到独立副本
		return res.Val.(*entity.Profile).Clone(), nil
	}
}

func (r *ProfileResolver) resolve(ctx context.Context, identity *entity.Identity) (*entity.Profile, error) {
	// 1. 读取
	profile, err := r.repo.GetByID(ctx, identity.ID)
	if err == nil {
		return profile, nil
	}

	// ⚠️ 只有明确的 NotFound 才允许插入，其他错误一律上抛
	if !errors.Is(err, domainErrors.ErrProfileNotFound) {
		return nil, fmt.Errorf("resolve profile %s: %w", identity.ID, err)
	}

	// 2. 首次解析：创建默认 profile
	created, err := r.repo.Insert(ctx, entity.NewDefaultProfile(identity, r.now()))
	if err == nil {
		r.metrics.IncProvisioned()
		log.Printf("[Resolver] ✅ 已为用户 %s 创建默认 profile", identity.ID)
		return created, nil
	}

	// 3. 并发首次解析：另一方已插入，重新读取
	if errors.Is(err, domainErrors.ErrProfileConflict) {
		r.metrics.IncConflict()
		log.Printf("[Resolver] 🔄 用户 %s 的 profile 已被并发创建，重新读取", identity.ID)

		existing, refetchErr := r.repo.GetByID(ctx, identity.ID)
		if refetchErr != nil {
			return nil, fmt.Errorf("refetch profile %s after conflict: %w", identity.ID, refetchErr)
		}
		return existing, nil
	}

	return nil, fmt.Errorf("provision profile %s: %w", identity.ID, err)
}
