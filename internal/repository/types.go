package repository

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page              int
	PageSize          int
	ShopDomain        string
	Search            string // 按订单号模糊搜索
	FulfillmentStatus string
	OnlySaddle        bool
}
