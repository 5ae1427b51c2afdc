package shopify

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// GraphQLResponse GraphQL 响应包
type GraphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// GraphQLError GraphQL 错误
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// PageInfo 游标分页信息
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// MoneyV2 金额
type MoneyV2 struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// Order Admin GraphQL 订单节点
type Order struct {
	ID                       string    `json:"id"`
	Name                     string    `json:"name"`
	CreatedAt                time.Time `json:"createdAt"`
	DisplayFulfillmentStatus string    `json:"displayFulfillmentStatus"`
	TotalPriceSet            struct {
		ShopMoney MoneyV2 `json:"shopMoney"`
	} `json:"totalPriceSet"`
	Customer *struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"customer"`
	LineItems struct {
		Nodes []OrderLineItem `json:"nodes"`
	} `json:"lineItems"`
}

// OrderLineItem Admin GraphQL 订单行节点
type OrderLineItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
	Product  *struct {
		ProductType string   `json:"productType"`
		Tags        []string `json:"tags"`
	} `json:"product"`
}

// CustomerName 客户姓名，无客户时返回 Guest
func (o Order) CustomerName() string {
	if o.Customer == nil {
		return "Guest"
	}
	name := strings.TrimSpace(o.Customer.FirstName + " " + o.Customer.LastName)
	if name == "" {
		return "Guest"
	}
	return name
}

// IsFulfilled 平台侧是否已履约
func (o Order) IsFulfilled() bool {
	return strings.EqualFold(strings.TrimSpace(o.DisplayFulfillmentStatus), "FULFILLED")
}

type ordersQueryData struct {
	Orders struct {
		Nodes    []Order  `json:"nodes"`
		PageInfo PageInfo `json:"pageInfo"`
	} `json:"orders"`
}

// OrderWebhook orders/create、orders/fulfilled webhook 负载（REST 资源格式）
type OrderWebhook struct {
	ID                int64                  `json:"id"`
	AdminGraphQLAPIID string                 `json:"admin_graphql_api_id"`
	Name              string                 `json:"name"`
	CreatedAt         time.Time              `json:"created_at"`
	TotalPrice        string                 `json:"total_price"`
	Currency          string                 `json:"currency"`
	FulfillmentStatus *string                `json:"fulfillment_status"`
	Customer          *WebhookCustomer       `json:"customer"`
	LineItems         []OrderWebhookLineItem `json:"line_items"`
}

// WebhookCustomer 客户信息
type WebhookCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// OrderWebhookLineItem webhook 订单行
type OrderWebhookLineItem struct {
	ID                int64   `json:"id"`
	AdminGraphQLAPIID string  `json:"admin_graphql_api_id"`
	Title             string  `json:"title"`
	SKU               *string `json:"sku"`
	Quantity          int     `json:"quantity"`
	ProductType       string  `json:"product_type"`
	Tags              TagList `json:"tags"`
}

// OrderGID 平台订单全局ID，缺省时由数字ID拼接
func (w OrderWebhook) OrderGID() string {
	return resolveGID(w.AdminGraphQLAPIID, "Order", w.ID)
}

// CustomerName 客户姓名
func (w OrderWebhook) CustomerName() string {
	if w.Customer == nil {
		return ""
	}
	return strings.TrimSpace(w.Customer.FirstName + " " + w.Customer.LastName)
}

// LineItemGID 平台订单行全局ID
func (l OrderWebhookLineItem) LineItemGID() string {
	return resolveGID(l.AdminGraphQLAPIID, "LineItem", l.ID)
}

func resolveGID(gid, resource string, id int64) string {
	if gid = strings.TrimSpace(gid); gid != "" {
		return gid
	}
	if id <= 0 {
		return ""
	}
	return fmt.Sprintf("gid://shopify/%s/%d", resource, id)
}

// TagList 兼容逗号分隔字符串与字符串数组两种标签格式
type TagList []string

// UnmarshalJSON 解析标签
func (t *TagList) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*t = nil
		return nil
	}
	if b[0] == '[' {
		var items []string
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*t = items
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*t = SplitTags(raw)
	return nil
}

// SplitTags 拆分逗号分隔的标签
func SplitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}
