package ws

import (
	"log"
	"sync/atomic"

	"profilegate-go-server/domain/entity"

	"github.com/google/uuid"
)

// ========== Actor Model: Room 是完全自治的独立单元 ==========
// 每个用户一个 Room，subscribers map 只在 run() 循环内访问，无需锁

// subscriber 一个身份变更订阅者（一个浏览器会话）
type subscriber struct {
	id      string
	handler func(entity.IdentityEvent)
}

type registration struct {
	sub  *subscriber
	done chan struct{}
}

// Room 某个用户的所有订阅者
type Room struct {
	UserID string

	// 私有 subscribers map - 只在 run() 内访问
	subscribers map[string]*subscriber
	count       atomic.Int32

	// 事件通道：所有操作都变成消息
	register   chan registration
	unregister chan string
	broadcast  chan entity.IdentityEvent
	stopChan   chan struct{}
	done       chan struct{}

	// 反向引用：房间空闲时通知 Hub
	hub *Hub
}

// NewRoom 创建房间并启动事件循环
func NewRoom(userID string, hub *Hub) *Room {
	r := &Room{
		UserID:      userID,
		subscribers: make(map[string]*subscriber),
		register:    make(chan registration),
		unregister:  make(chan string),
		broadcast:   make(chan entity.IdentityEvent, 16),
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
		hub:         hub,
	}

	go r.run()
	return r
}

// run 房间事件循环，所有状态变更串行处理
func (r *Room) run() {
	defer close(r.done)

	for {
		select {
		case reg := <-r.register:
			r.subscribers[reg.sub.id] = reg.sub
			r.count.Store(int32(len(r.subscribers)))
			close(reg.done)
			log.Printf("[Room %s] 👋 订阅者加入，当前数量: %d", r.UserID, len(r.subscribers))

		case id := <-r.unregister:
			if _, ok := r.subscribers[id]; !ok {
				continue
			}
			delete(r.subscribers, id)
			r.count.Store(int32(len(r.subscribers)))
			log.Printf("[Room %s] 👋 订阅者离开，剩余数量: %d", r.UserID, len(r.subscribers))

			// 空了，交给 Hub 仲裁是否销毁
			if len(r.subscribers) == 0 && r.hub != nil {
				go r.hub.notifyIdle(r)
			}

		case event := <-r.broadcast:
			for _, sub := range r.subscribers {
				sub.handler(event)
			}

		case <-r.stopChan:
			log.Printf("[Room %s] 🛑 事件循环已停止", r.UserID)
			return
		}
	}
}

// ========== 对外暴露的接口 ==========

// Register 注册订阅者，返回订阅者 id
// 阻塞到事件循环确认，保证返回后 SubscriberCount 已更新
func (r *Room) Register(handler func(entity.IdentityEvent)) (string, bool) {
	reg := registration{
		sub:  &subscriber{id: uuid.NewString(), handler: handler},
		done: make(chan struct{}),
	}
	select {
	case r.register <- reg:
		<-reg.done
		return reg.sub.id, true
	case <-r.done:
		return "", false
	}
}

// Unregister 注销订阅者，房间已停止时直接返回
func (r *Room) Unregister(id string) {
	select {
	case r.unregister <- id:
	case <-r.done:
	}
}

// Broadcast 投递身份事件
func (r *Room) Broadcast(event entity.IdentityEvent) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.broadcast <- event:
		return true
	case <-r.done:
		return false
	}
}

// SubscriberCount 当前订阅者数量
func (r *Room) SubscriberCount() int {
	return int(r.count.Load())
}

// Stop 停止房间并等待事件循环退出（由 Hub 调用）
func (r *Room) Stop() {
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
	<-r.done
}
