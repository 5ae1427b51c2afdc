package shopify

import (
	"context"
	"strings"
)

const defaultOrdersPageSize = 250

const ordersQuery = `
query orders($first: Int!, $after: String, $query: String) {
	orders(first: $first, after: $after, query: $query, sortKey: CREATED_AT, reverse: true) {
		nodes {
			id
			name
			createdAt
			displayFulfillmentStatus
			totalPriceSet { shopMoney { amount currencyCode } }
			customer { firstName lastName }
			lineItems(first: 100) {
				nodes {
					id
					title
					sku
					quantity
					product { productType tags }
				}
			}
		}
		pageInfo { hasNextPage endCursor }
	}
}`

// OrderPageFunc 每拉取一页回调一次，返回错误终止分页
type OrderPageFunc func(orders []Order) error

// ListOrders 按搜索条件（如 tag:saddles）分页拉取订单
func (c *Client) ListOrders(ctx context.Context, search string, pageSize int, fn OrderPageFunc) error {
	if pageSize <= 0 || pageSize > defaultOrdersPageSize {
		pageSize = defaultOrdersPageSize
	}
	var cursor string
	for {
		variables := map[string]any{"first": pageSize}
		if q := strings.TrimSpace(search); q != "" {
			variables["query"] = q
		}
		if cursor != "" {
			variables["after"] = cursor
		}

		var data ordersQueryData
		if err := c.graphqlRequest(ctx, ordersQuery, variables, &data); err != nil {
			return err
		}
		if len(data.Orders.Nodes) > 0 {
			if err := fn(data.Orders.Nodes); err != nil {
				return err
			}
		}
		if !data.Orders.PageInfo.HasNextPage || data.Orders.PageInfo.EndCursor == "" {
			return nil
		}
		cursor = data.Orders.PageInfo.EndCursor
	}
}

// SaddleTagQuery 构建按标签筛选订单的搜索串
func SaddleTagQuery(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	return "tag:" + tag
}
