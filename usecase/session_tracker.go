package usecase

import (
	"context"
	"log"
	"sync"

	"profilegate-go-server/domain/entity"
	"profilegate-go-server/domain/repository"
)

// SessionTracker 把身份订阅、profile 解析和 SessionState 串起来
type SessionTracker struct {
	accessor repository.SessionAccessor
	resolver *ProfileResolver
}

// NewSessionTracker 构造函数
func NewSessionTracker(accessor repository.SessionAccessor, resolver *ProfileResolver) *SessionTracker {
	return &SessionTracker{accessor: accessor, resolver: resolver}
}

// Attach 开始跟踪一个会话
// identity 为 nil 时只把状态置为 signed-out，不订阅
// 初始加载的 generation 在订阅前确定，订阅窗口内到达的事件会让它过期
// 返回的 detach 取消订阅且只生效一次
func (t *SessionTracker) Attach(ctx context.Context, state *SessionState, identity *entity.Identity) (detach func()) {
	gen := state.Begin(identity)
	if identity == nil {
		return func() {}
	}

	unsubscribe := t.accessor.Subscribe(identity, func(next *entity.Identity) {
		if next == nil {
			log.Printf("[Session] 👋 用户 %s 已登出，丢弃进行中的解析", identity.ID)
			state.SignOut()
			return
		}
		t.Load(ctx, state, next)
	})

	t.resolveAsync(ctx, state, gen, identity)

	var once sync.Once
	return func() {
		once.Do(unsubscribe)
	}
}

// Load 为身份启动一次异步解析，结果按 generation 应用
func (t *SessionTracker) Load(ctx context.Context, state *SessionState, identity *entity.Identity) {
	gen := state.Begin(identity)
	if identity == nil {
		return
	}
	t.resolveAsync(ctx, state, gen, identity)
}

func (t *SessionTracker) resolveAsync(ctx context.Context, state *SessionState, gen uint64, identity *entity.Identity) {
	go func() {
		profile, err := t.resolver.Resolve(ctx, identity)
		if err != nil {
			log.Printf("[Session] ❌ 用户 %s profile 解析失败: %v", identity.ID, err)
		}
		if !state.Complete(gen, profile, err) {
			log.Printf("[Session] ℹ️ 用户 %s 的解析结果已过期（generation %d），丢弃", identity.ID, gen)
		}
	}()
}
