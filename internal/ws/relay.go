package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"profilegate-go-server/domain/entity"

	"github.com/redis/go-redis/v9"
)

// RelayChannel Redis pub/sub 频道名
const RelayChannel = "profilegate:identity-events"

// Relay 通过 Redis pub/sub 在多个实例之间扇出身份事件
// 发布走 Redis，本实例也通过订阅收到事件后再投递给本地 Hub
type Relay struct {
	client  *redis.Client
	hub     *Hub
	channel string
}

// NewRelay 构造函数
func NewRelay(client *redis.Client, hub *Hub) *Relay {
	return &Relay{client: client, hub: hub, channel: RelayChannel}
}

// Publish 发布身份事件到所有实例
func (r *Relay) Publish(ctx context.Context, event entity.IdentityEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal identity event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish identity event: %w", err)
	}
	return nil
}

// Run 订阅频道并把事件投递给本地 Hub，ctx 结束时返回
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	// 等订阅确认，之后发布的消息都能收到
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	log.Printf("[Relay] 📡 已订阅 %s", r.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Println("[Relay] 🛑 已停止")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event entity.IdentityEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("[Relay] ⚠️ 丢弃无法解析的事件: %v", err)
				continue
			}
			r.hub.Publish(ctx, event)
		}
	}
}
