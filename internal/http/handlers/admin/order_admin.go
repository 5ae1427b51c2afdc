package admin

import (
	"strconv"
	"strings"

	"github.com/saddle-ledger/internal/constants"
	handlershared "github.com/saddle-ledger/internal/http/handlers/shared"
	"github.com/saddle-ledger/internal/http/response"
	"github.com/saddle-ledger/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListOrders 订单列表，附马鞍件数与已分配序列号数
func (h *Handler) ListOrders(c *gin.Context) {
	shop, ok := handlershared.GetShopDomain(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.QueryPagination(c)

	status := strings.ToUpper(strings.TrimSpace(c.Query("fulfillment_status")))
	if status != "" && status != constants.FulfillmentStatusFulfilled && status != constants.FulfillmentStatusUnfulfilled {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	onlySaddle, _ := strconv.ParseBool(c.DefaultQuery("only_saddle", "false"))

	result, err := h.LedgerService.ListOrders(c.Request.Context(), repository.OrderListFilter{
		Page:              page,
		PageSize:          pageSize,
		ShopDomain:        shop,
		Search:            strings.TrimSpace(c.Query("search")),
		FulfillmentStatus: status,
		OnlySaddle:        onlySaddle,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, result.Items, response.NewPagination(page, pageSize, result.Total))
}

// GetOrder 订单详情（马鞍订单行与序列号）
func (h *Handler) GetOrder(c *gin.Context) {
	shop, ok := handlershared.GetShopDomain(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	order, err := h.LedgerService.GetOrder(c.Request.Context(), shop, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrderSerials 按订单行列出序列号
func (h *Handler) ListOrderSerials(c *gin.Context) {
	shop, ok := handlershared.GetShopDomain(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	items, err := h.LedgerService.ListOrderSerials(c.Request.Context(), shop, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"order_id":   id,
		"line_items": items,
	})
}

// ResyncOrders 从 Shopify 回填当前店铺的马鞍订单
func (h *Handler) ResyncOrders(c *gin.Context) {
	shop, ok := handlershared.GetShopDomain(c)
	if !ok {
		return
	}
	result, err := h.ResyncService.Resync(c.Request.Context(), shop)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}
