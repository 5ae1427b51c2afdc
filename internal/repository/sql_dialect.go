package repository

import (
	"strings"

	"gorm.io/gorm"
)

// likeEscape 模糊查询转义字符；'!' 在各方言字符串字面量中都无特殊含义
const likeEscape = "!"

var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// containsCondition 生成大小写不敏感的包含匹配条件：postgres 用 ILIKE，其余方言 LIKE 默认不敏感
func containsCondition(db *gorm.DB, column, keyword string) (string, string) {
	operator := "LIKE"
	if isPostgres(db) {
		operator = "ILIKE"
	}
	pattern := "%" + likeEscaper.Replace(keyword) + "%"
	return column + " " + operator + " ? ESCAPE '" + likeEscape + "'", pattern
}

// normalizeOrderNumberSearch 订单号搜索忽略前导 '#'，"#1001" 与 "1001" 等价
func normalizeOrderNumberSearch(raw string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
}

func isPostgres(db *gorm.DB) bool {
	if db == nil || db.Dialector == nil {
		return false
	}
	switch strings.ToLower(db.Dialector.Name()) {
	case "postgres", "postgresql":
		return true
	}
	return false
}
