package service

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const (
	serialLetters   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	serialNumberMin = 10000
	serialNumberMax = 99999
)

var serialPattern = regexp.MustCompile(`^[A-Z]{2}-[0-9]{5}$`)

// SerialGenerator 序列号候选值生成器
type SerialGenerator interface {
	Next() (string, error)
}

// RandomSerialGenerator 基于 crypto/rand 的 LL-NNNNN 生成器
type RandomSerialGenerator struct{}

// NewRandomSerialGenerator 创建随机序列号生成器
func NewRandomSerialGenerator() RandomSerialGenerator {
	return RandomSerialGenerator{}
}

// Next 生成候选序列号：两个均匀分布的大写字母 + '-' + 10000~99999 的均匀整数
func (RandomSerialGenerator) Next() (string, error) {
	first, err := randomIndex(len(serialLetters))
	if err != nil {
		return "", err
	}
	second, err := randomIndex(len(serialLetters))
	if err != nil {
		return "", err
	}
	offset, err := randomIndex(serialNumberMax - serialNumberMin + 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%c%c-%05d", serialLetters[first], serialLetters[second], serialNumberMin+offset), nil
}

// IsValidSerial 校验序列号格式
func IsValidSerial(value string) bool {
	return serialPattern.MatchString(value)
}

func randomIndex(n int) (int, error) {
	v, err := crand.Int(crand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random failed: %w", err)
	}
	return int(v.Int64()), nil
}
