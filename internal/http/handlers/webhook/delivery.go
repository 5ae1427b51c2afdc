package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/saddle-ledger/internal/cache"
	handlershared "github.com/saddle-ledger/internal/http/handlers/shared"
	"github.com/saddle-ledger/internal/logger"
	"github.com/saddle-ledger/internal/shopify"

	"github.com/gin-gonic/gin"
)

// 处理结果，写入响应体 status 字段
const (
	outcomeProcessed        = "processed"
	outcomeAlreadyProcessed = "already_processed"
	outcomeQueued           = "queued"
	outcomeDuplicate        = "duplicate_delivery"
	outcomeInProgress       = "in_progress"
	outcomeOrderNotFound    = "order_not_found"
	outcomeMalformed        = "malformed"
	outcomeRejected         = "rejected"
	outcomeFailed           = "failed"
)

var errShopDomainMissing = errors.New("shop domain missing")

// delivery 一次已验签、已解码的 webhook 投递
type delivery struct {
	ID      string
	Topic   string
	Shop    string
	Payload shopify.OrderWebhook
	ctx     context.Context
	claimed bool // 持有去重占用，结束时必须完成或释放
	settled bool
}

// receive 读取原始请求体、验签、解析店铺并去重；返回 false 时响应已写出
func (h *Handler) receive(c *gin.Context, topic string) (*delivery, bool) {
	log := handlershared.RequestLog(c)
	cfg := h.Config.Webhook

	reader := c.Request.Body
	if cfg.MaxBodyBytes > 0 {
		reader = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.MaxBodyBytes)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		log.Warnw("webhook_body_read_failed", "topic", topic, "error", err)
		respond(c, http.StatusBadRequest, outcomeRejected)
		return nil, false
	}

	if cfg.VerifySignature {
		if !shopify.VerifyWebhookHMAC(h.Config.Shopify.APISecret, body, c.GetHeader(shopify.HeaderHmacSHA256)) {
			log.Warnw("webhook_signature_invalid",
				"topic", topic,
				"shop_domain", c.GetHeader(shopify.HeaderShopDomain),
				"client_ip", c.ClientIP(),
			)
			respond(c, http.StatusUnauthorized, outcomeRejected)
			return nil, false
		}
	}

	d := &delivery{
		ID:    strings.TrimSpace(c.GetHeader(shopify.HeaderWebhookID)),
		Topic: topic,
		Shop:  resolveShop(c.GetHeader(shopify.HeaderShopDomain), h.Config.Shopify.ShopDomain),
	}
	d.ctx = logger.WithFields(c.Request.Context(),
		"webhook_id", d.ID,
		"topic", topic,
		"shop_domain", d.Shop,
	)
	dlog := logger.FromContext(d.ctx)

	if d.Shop == "" {
		dlog.Warnw("webhook_malformed", "error", errShopDomainMissing)
		respond(c, http.StatusOK, outcomeMalformed)
		return nil, false
	}
	if err := json.Unmarshal(body, &d.Payload); err != nil {
		dlog.Warnw("webhook_malformed", "error", err, "body_size", len(body))
		respond(c, http.StatusOK, outcomeMalformed)
		return nil, false
	}

	if d.ID != "" {
		state, err := cache.ClaimWebhookDelivery(d.ctx, d.ID, cfg.ClaimTTL())
		switch {
		case err != nil:
			dlog.Warnw("webhook_dedupe_unavailable", "error", err)
		case state == cache.DeliveryDone:
			dlog.Infow("webhook_duplicate_delivery")
			respond(c, http.StatusOK, outcomeDuplicate)
			return nil, false
		case state == cache.DeliveryInFlight:
			// 另一请求正在处理同一投递；非 2xx 让平台稍后重投，避免先到者失败后丢失事件
			dlog.Infow("webhook_delivery_in_flight")
			respond(c, http.StatusConflict, outcomeInProgress)
			return nil, false
		default:
			d.claimed = true
		}
	}
	dlog.Infow("webhook_received", "order_id", d.Payload.OrderGID(), "body_size", len(body))
	return d, true
}

// ack 处理完成（包括确认但不处理的情形）：写入完成标记并返回 200
func (h *Handler) ack(c *gin.Context, d *delivery, outcome string) {
	d.settled = true
	if d.claimed {
		if err := cache.CompleteWebhookDelivery(d.ctx, d.ID, h.Config.Webhook.DedupeTTL()); err != nil {
			logger.FromContext(d.ctx).Warnw("webhook_dedupe_complete_failed", "error", err)
		}
	}
	respond(c, http.StatusOK, outcome)
}

// fail 可重试失败：释放占用，返回 500 让平台重投
func (h *Handler) fail(c *gin.Context, d *delivery, err error) {
	logger.FromContext(d.ctx).Errorw("webhook_processing_failed", "error", err)
	d.settled = true
	h.release(d)
	respond(c, http.StatusInternalServerError, outcomeFailed)
}

// settle 在 handler 退出时执行；未完成也未失败（如 panic）时释放占用
func (h *Handler) settle(d *delivery) {
	if d.settled {
		return
	}
	logger.FromContext(d.ctx).Errorw("webhook_processing_aborted")
	h.release(d)
}

func (h *Handler) release(d *delivery) {
	if !d.claimed {
		return
	}
	// 请求可能已被取消，释放不能跟着失败
	if err := cache.ReleaseWebhookDelivery(context.WithoutCancel(d.ctx), d.ID); err != nil {
		logger.FromContext(d.ctx).Warnw("webhook_dedupe_release_failed", "error", err)
	}
}

func (h *Handler) queueMode() bool {
	return h.Config.Webhook.IsQueueMode() && h.QueueClient != nil && h.QueueClient.Enabled()
}

func resolveShop(header, fallback string) string {
	shop := strings.ToLower(strings.TrimSpace(header))
	if shop == "" {
		shop = strings.ToLower(strings.TrimSpace(fallback))
	}
	if shop == "" || !shopify.IsValidShopDomain(shop) {
		return ""
	}
	return shop
}

func respond(c *gin.Context, status int, outcome string) {
	c.JSON(status, gin.H{"status": outcome})
}
