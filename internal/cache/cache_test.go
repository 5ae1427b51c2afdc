package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestOrderLockerSerializesSameKey(t *testing.T) {
	locker := NewOrderLocker(time.Second)
	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), "shop:order-1")
			if err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			defer release()
			n := atomic.AddInt32(&active, 1)
			for {
				prev := atomic.LoadInt32(&maxActive)
				if n <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()
	if maxActive != 1 {
		t.Fatalf("expected at most one holder, got %d", maxActive)
	}
	if len(locker.local.locks) != 0 {
		t.Fatalf("lock entries should be cleaned up, got %d", len(locker.local.locks))
	}
}

func TestOrderLockerTimesOut(t *testing.T) {
	locker := NewOrderLocker(time.Second)
	release, err := locker.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Acquire(ctx, "k"); !errors.Is(err, ErrLockNotAcquired) {
		t.Fatalf("expected ErrLockNotAcquired, got %v", err)
	}

	other, err := locker.Acquire(context.Background(), "other")
	if err != nil {
		t.Fatalf("different keys must not block: %v", err)
	}
	other()
	other()
}

func TestWebhookDeliveryClaimCompleteRelease(t *testing.T) {
	ctx := context.Background()
	if state, err := ClaimWebhookDelivery(ctx, "wh-1", time.Minute); err != nil || state != DeliveryClaimed {
		t.Fatalf("first delivery should be claimed: %v %v", state, err)
	}
	if state, _ := ClaimWebhookDelivery(ctx, "wh-1", time.Minute); state != DeliveryInFlight {
		t.Fatalf("concurrent delivery should see in-flight, got %v", state)
	}
	if err := ReleaseWebhookDelivery(ctx, "wh-1"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if state, _ := ClaimWebhookDelivery(ctx, "wh-1", time.Minute); state != DeliveryClaimed {
		t.Fatalf("released delivery should be claimable again, got %v", state)
	}
	if err := CompleteWebhookDelivery(ctx, "wh-1", time.Hour); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if state, _ := ClaimWebhookDelivery(ctx, "wh-1", time.Minute); state != DeliveryDone {
		t.Fatalf("completed delivery should be done, got %v", state)
	}
	if err := ReleaseWebhookDelivery(ctx, "wh-1"); err != nil {
		t.Fatalf("release after complete failed: %v", err)
	}
	if state, _ := ClaimWebhookDelivery(ctx, "wh-1", time.Minute); state != DeliveryDone {
		t.Fatalf("release must not drop a completed mark, got %v", state)
	}
	if state, _ := ClaimWebhookDelivery(ctx, "", time.Minute); state != DeliveryClaimed {
		t.Fatalf("missing webhook id must not be deduplicated")
	}
}

func TestDeliveryMemoryClaimExpires(t *testing.T) {
	mem := &deliveryMemory{entries: make(map[string]deliveryEntry)}
	now := time.Now()
	if mem.claim("a", time.Second, now) != DeliveryClaimed {
		t.Fatalf("first claim should succeed")
	}
	if mem.claim("a", time.Second, now.Add(500*time.Millisecond)) != DeliveryInFlight {
		t.Fatalf("claim within ttl should be in flight")
	}
	// 处理方崩溃未释放，占用到期后重投可以重新处理
	if mem.claim("a", time.Second, now.Add(2*time.Second)) != DeliveryClaimed {
		t.Fatalf("claim after ttl should succeed")
	}
	mem.complete("a", time.Minute, now.Add(2*time.Second))
	if mem.claim("a", time.Second, now.Add(30*time.Second)) != DeliveryDone {
		t.Fatalf("completed delivery should stay done within its ttl")
	}
}

func TestKeyPrefix(t *testing.T) {
	if got := Key("lock:assign", " shop:1 ", ""); got != redisPrefix+":lock:assign:shop:1" {
		t.Fatalf("unexpected key: %s", got)
	}
}
