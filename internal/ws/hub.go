package ws

import (
	"context"
	"log"
	"sync"

	"profilegate-go-server/domain/entity"
	"profilegate-go-server/internal/metrics"
)

// ========== Actor Model: Hub 是生死的唯一仲裁者 ==========
// Hub 不处理任何业务消息，只管理 Room 的生命周期和事件路由

// Hub 维护 userID -> Room 目录
type Hub struct {
	rooms    map[string]*Room
	mu       sync.Mutex
	idleRoom chan *Room // Room 空闲信号（请求销毁）
	metrics  *metrics.Metrics
}

// NewHub 创建 Hub 实例，metrics 可为 nil
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		rooms:    make(map[string]*Room),
		idleRoom: make(chan *Room, 16),
		metrics:  m,
	}
}

// Run Hub 事件循环，ctx 结束时停止所有房间
func (h *Hub) Run(ctx context.Context) {
	log.Println("[Hub] 🚀 Hub 已启动（生死仲裁者）")

	for {
		select {
		case room := <-h.idleRoom:
			h.handleIdleRoom(room)
		case <-ctx.Done():
			h.shutdown()
			log.Println("[Hub] 🛑 Hub 已停止")
			return
		}
	}
}

// handleIdleRoom 双重检查后销毁空闲房间
func (h *Hub) handleIdleRoom(room *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Subscribe 持有同一把锁注册，这里看到的数量是准确的
	if room.SubscriberCount() > 0 {
		log.Printf("[Hub] 🔄 房间 %s 已有新订阅者，取消销毁", room.UserID)
		return
	}

	room.Stop()

	// ⚠️ 检查指针同一性，防止误删新创建的房间
	if current, ok := h.rooms[room.UserID]; ok && current == room {
		delete(h.rooms, room.UserID)
		log.Printf("[Hub] 🗑️ 房间 %s 已销毁", room.UserID)
	} else {
		log.Printf("[Hub] ⚠️ 房间 %s 销毁时发现已被替换或移除，跳过删除", room.UserID)
	}
}

func (h *Hub) notifyIdle(room *Room) {
	h.idleRoom <- room
}

// Subscribe 订阅某个用户的身份事件
// 返回的 unsubscribe 可以多次调用，只有第一次生效
func (h *Hub) Subscribe(userID string, handler func(entity.IdentityEvent)) (unsubscribe func()) {
	h.mu.Lock()
	room, ok := h.rooms[userID]
	if !ok {
		room = NewRoom(userID, h)
		h.rooms[userID] = room
		log.Printf("[Hub] 🏠 创建房间 %s", userID)
	}
	id, registered := room.Register(handler)
	h.mu.Unlock()

	if !registered {
		return func() {}
	}

	var once sync.Once
	return func() {
		once.Do(func() { room.Unregister(id) })
	}
}

// Publish 投递到本地订阅者，没有订阅者时直接丢弃
func (h *Hub) Publish(_ context.Context, event entity.IdentityEvent) error {
	h.metrics.ObserveIdentityEvent(string(event.Type))

	h.mu.Lock()
	room, ok := h.rooms[event.UserID]
	h.mu.Unlock()

	if !ok {
		return nil
	}
	room.Broadcast(event)
	return nil
}

// RoomCount 当前房间数（测试与监控用）
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		room.Stop()
		delete(h.rooms, id)
	}
}
