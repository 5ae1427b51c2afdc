package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringArray 字符串数组，以 JSON 形式落库（商品标签等）
type StringArray []string

// Value 实现 driver.Valuer 接口
func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan 实现 sql.Scanner 接口，兼容 []byte 与 string 两种驱动返回
func (s *StringArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = StringArray{}
		return nil
	case []byte:
		return s.unmarshal(v)
	case string:
		return s.unmarshal([]byte(v))
	default:
		return fmt.Errorf("unsupported StringArray source: %T", value)
	}
}

func (s *StringArray) unmarshal(raw []byte) error {
	if len(raw) == 0 {
		*s = StringArray{}
		return nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	*s = items
	return nil
}

// ContainsFold 是否有元素包含 keyword（大小写不敏感）
func (s StringArray) ContainsFold(keyword string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return false
	}
	for _, item := range s {
		if strings.Contains(strings.ToLower(item), keyword) {
			return true
		}
	}
	return false
}
