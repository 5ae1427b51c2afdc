package shopify

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSessionToken 会话令牌无效
	ErrInvalidSessionToken = errors.New("invalid shopify session token")
)

// SessionClaims App Bridge 会话令牌声明
type SessionClaims struct {
	Dest string `json:"dest"` // https://{shop}.myshopify.com
	Sid  string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// ShopDomain 从 dest 声明解析店铺域名
func (c *SessionClaims) ShopDomain() string {
	if c == nil {
		return ""
	}
	parsed, err := url.Parse(strings.TrimSpace(c.Dest))
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

// SessionVerifier 校验嵌入式应用的会话令牌（HS256，密钥为应用 secret）
type SessionVerifier struct {
	apiKey    string
	apiSecret string
	leeway    time.Duration
}

// NewSessionVerifier 创建会话令牌校验器
func NewSessionVerifier(apiKey, apiSecret string) *SessionVerifier {
	return &SessionVerifier{
		apiKey:    strings.TrimSpace(apiKey),
		apiSecret: strings.TrimSpace(apiSecret),
		leeway:    5 * time.Second,
	}
}

// Verify 校验签名、有效期、aud 与 dest，返回店铺域名
func (v *SessionVerifier) Verify(tokenString string) (*SessionClaims, error) {
	if v == nil || v.apiSecret == "" {
		return nil, fmt.Errorf("%w: app secret not configured", ErrInvalidSessionToken)
	}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.apiKey != "" {
		options = append(options, jwt.WithAudience(v.apiKey))
	}
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(v.apiSecret), nil
	}, options...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	shop := claims.ShopDomain()
	if !IsValidShopDomain(shop) {
		return nil, fmt.Errorf("%w: invalid dest %q", ErrInvalidSessionToken, claims.Dest)
	}
	return claims, nil
}

// Sign 签发会话令牌，供测试与本地调试使用
func (v *SessionVerifier) Sign(shopDomain string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Dest: "https://" + strings.ToLower(strings.TrimSpace(shopDomain)),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://" + strings.ToLower(strings.TrimSpace(shopDomain)) + "/admin",
			Audience:  jwt.ClaimStrings{v.apiKey},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Second)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(v.apiSecret))
}
