package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	webhookDeliveryPrefix = "webhook:delivery"

	deliveryValueClaimed = "claimed"
	deliveryValueDone    = "done"
)

// DeliveryState webhook 投递在去重表中的状态
type DeliveryState int

const (
	// DeliveryClaimed 本次调用取得处理权
	DeliveryClaimed DeliveryState = iota
	// DeliveryInFlight 同一投递正由其它请求处理，尚未确认
	DeliveryInFlight
	// DeliveryDone 已成功处理过
	DeliveryDone
)

var localDeliveries = &deliveryMemory{entries: make(map[string]deliveryEntry)}

// ClaimWebhookDelivery 以短 TTL 占用投递：只有处理成功后 CompleteWebhookDelivery 才写入长 TTL 的完成标记。
// 进程在处理中途崩溃时，占用标记在 claimTTL 后过期，平台重投可以重新处理。
// webhookID 为空时不去重，总是返回 DeliveryClaimed。
func ClaimWebhookDelivery(ctx context.Context, webhookID string, claimTTL time.Duration) (DeliveryState, error) {
	webhookID = strings.TrimSpace(webhookID)
	if webhookID == "" {
		return DeliveryClaimed, nil
	}
	if !Enabled() {
		return localDeliveries.claim(webhookID, claimTTL, time.Now()), nil
	}
	key := Key(webhookDeliveryPrefix, webhookID)
	ok, err := redisClient.SetNX(ctx, key, deliveryValueClaimed, claimTTL).Result()
	if err != nil {
		return DeliveryClaimed, err
	}
	if ok {
		return DeliveryClaimed, nil
	}
	value, err := redisClient.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// 占用恰好过期，让平台稍后重投
		return DeliveryInFlight, nil
	case err != nil:
		return DeliveryClaimed, err
	case value == deliveryValueDone:
		return DeliveryDone, nil
	}
	return DeliveryInFlight, nil
}

// CompleteWebhookDelivery 处理成功后写入完成标记，ttl 内的重投直接确认
func CompleteWebhookDelivery(ctx context.Context, webhookID string, ttl time.Duration) error {
	webhookID = strings.TrimSpace(webhookID)
	if webhookID == "" {
		return nil
	}
	if Enabled() {
		return redisClient.Set(ctx, Key(webhookDeliveryPrefix, webhookID), deliveryValueDone, ttl).Err()
	}
	localDeliveries.complete(webhookID, ttl, time.Now())
	return nil
}

// ReleaseWebhookDelivery 处理失败时释放占用，使平台重投能够重新处理
func ReleaseWebhookDelivery(ctx context.Context, webhookID string) error {
	webhookID = strings.TrimSpace(webhookID)
	if webhookID == "" {
		return nil
	}
	if Enabled() {
		return releaseDeliveryScript.Run(ctx, redisClient, []string{Key(webhookDeliveryPrefix, webhookID)}, deliveryValueClaimed).Err()
	}
	localDeliveries.release(webhookID)
	return nil
}

// 只删除占用标记，不影响已完成的记录
var releaseDeliveryScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type deliveryEntry struct {
	done      bool
	expiresAt time.Time
}

type deliveryMemory struct {
	mu      sync.Mutex
	entries map[string]deliveryEntry
}

func (d *deliveryMemory) claim(id string, ttl time.Duration, now time.Time) DeliveryState {
	d.mu.Lock()
	defer d.mu.Unlock()
	if entry, ok := d.entries[id]; ok && now.Before(entry.expiresAt) {
		if entry.done {
			return DeliveryDone
		}
		return DeliveryInFlight
	}
	d.entries[id] = deliveryEntry{expiresAt: now.Add(ttl)}
	if len(d.entries) > 10000 {
		for key, entry := range d.entries {
			if !now.Before(entry.expiresAt) {
				delete(d.entries, key)
			}
		}
	}
	return DeliveryClaimed
}

func (d *deliveryMemory) complete(id string, ttl time.Duration, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[id] = deliveryEntry{done: true, expiresAt: now.Add(ttl)}
}

func (d *deliveryMemory) release(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if entry, ok := d.entries[id]; ok && !entry.done {
		delete(d.entries, id)
	}
}
