package usecase

import (
	"sync"

	"profilegate-go-server/domain/entity"
)

// SessionStatus 会话视图状态
type SessionStatus string

const (
	SessionLoading   SessionStatus = "loading"    // 已登录，profile 解析中
	SessionReady     SessionStatus = "ready"      // profile 已就绪
	SessionSignedOut SessionStatus = "signed-out" // 没有身份
	SessionFailed    SessionStatus = "failed"     // 解析失败（服务故障）
)

// SessionSnapshot 某一时刻的会话视图（值拷贝，可安全跨 goroutine 传递）
type SessionSnapshot struct {
	Status     SessionStatus    `json:"status"`
	Identity   *entity.Identity `json:"identity,omitempty"`
	Profile    *entity.Profile  `json:"profile,omitempty"`
	IsAdmin    bool             `json:"is_admin"`
	Error      string           `json:"error,omitempty"`
	Generation uint64           `json:"generation"`

	seq uint64 // 状态变化序号，投递时保证单调
}

// SessionState 单个浏览器会话的显式状态对象
// 生命周期：会话开始时创建，取消订阅 / 登出 / Close 时结束
// generation 是活性标记：每次身份切换递增，过期的解析结果到达时被丢弃
type SessionState struct {
	mu         sync.Mutex
	status     SessionStatus
	identity   *entity.Identity
	profile    *entity.Profile
	err        error
	generation uint64
	closed     bool
	seq        uint64

	onChange func(SessionSnapshot)

	// 投递队列：onChange 按 seq 顺序串行调用，落后的快照直接丢弃
	deliverMu  sync.Mutex
	pending    []SessionSnapshot
	delivering bool
	lastSeq    uint64
}

// NewSessionState 创建会话状态，onChange 在每次状态变化后调用（可为 nil）
func NewSessionState(onChange func(SessionSnapshot)) *SessionState {
	return &SessionState{status: SessionSignedOut, onChange: onChange}
}

// Begin 切换到新身份并返回本次加载的 generation
// identity 为 nil 时直接进入 signed-out
func (s *SessionState) Begin(identity *entity.Identity) uint64 {
	s.mu.Lock()
	if s.closed {
		gen := s.generation
		s.mu.Unlock()
		return gen
	}
	s.generation++
	s.identity = identity
	s.profile = nil
	s.err = nil
	if identity == nil {
		s.status = SessionSignedOut
	} else {
		s.status = SessionLoading
	}
	s.seq++
	gen := s.generation
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return gen
}

// Complete 应用解析结果
// 只有 generation 仍是当前值且状态未关闭时才生效，否则丢弃并返回 false
func (s *SessionState) Complete(gen uint64, profile *entity.Profile, err error) bool {
	s.mu.Lock()
	if s.closed || gen != s.generation || s.status != SessionLoading {
		s.mu.Unlock()
		return false
	}
	if err != nil {
		s.status = SessionFailed
		s.err = err
		s.profile = nil
	} else {
		s.status = SessionReady
		s.profile = profile.Clone()
	}
	s.seq++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// SignOut 清空身份，使所有进行中的解析失效
func (s *SessionState) SignOut() {
	s.Begin(nil)
}

// Close 结束会话，之后的任何结果都会被丢弃
func (s *SessionState) Close() {
	s.mu.Lock()
	s.closed = true
	s.generation++
	s.mu.Unlock()
}

// Closed 是否已关闭
func (s *SessionState) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Snapshot 当前视图
func (s *SessionState) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Decide 对页面做授权决策
// loading 状态下返回 decided=false：既不放行也不拒绝，由前端显示加载中
// failed 状态下 fail closed：受保护页面一律拒绝
func (s *SessionState) Decide(d Destination) (Decision, bool) {
	s.mu.Lock()
	status, profile := s.status, s.profile
	s.mu.Unlock()

	switch status {
	case SessionLoading:
		return Decision{}, false
	case SessionFailed:
		req, ok := viewRequirements[d]
		if !ok || req.Session || req.Role != entity.RoleNone {
			return Deny(DestinationHome), true
		}
		return Allow(), true
	case SessionReady, SessionSignedOut:
		return DecideView(profile, d), true
	}
	return Deny(DestinationHome), true
}

func (s *SessionState) snapshotLocked() SessionSnapshot {
	snap := SessionSnapshot{
		Status:     s.status,
		Profile:    s.profile.Clone(),
		Generation: s.generation,
		seq:        s.seq,
	}
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}
	if s.profile != nil {
		snap.IsAdmin = s.profile.Role == entity.RoleAdmin
	}
	if s.err != nil {
		// 对用户只展示通用错误
		snap.Error = "加载用户资料失败"
	}
	return snap
}

// notify 投递快照
// 快照在锁外投递，两个状态变化的投递可能交错：这里保证 onChange 看到的 seq 严格递增，
// 比已投递快照更旧的直接丢弃（例如登出之后才到的 ready）
// onChange 内部可以再次修改状态，新快照排队到当前回调返回后投递
func (s *SessionState) notify(snap SessionSnapshot) {
	if s.onChange == nil {
		return
	}

	s.deliverMu.Lock()
	s.pending = append(s.pending, snap)
	if s.delivering {
		s.deliverMu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		if next.seq <= s.lastSeq {
			continue
		}
		s.lastSeq = next.seq

		s.deliverMu.Unlock()
		s.onChange(next)
		s.deliverMu.Lock()
	}
	s.delivering = false
	s.deliverMu.Unlock()
}
