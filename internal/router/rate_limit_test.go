package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	handlershared "github.com/saddle-ledger/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func TestKeyByShop(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/api/serials/export", nil)
	c.Request.RemoteAddr = "1.2.3.4:5678"

	if key := KeyByShop(c); key != "1.2.3.4" {
		t.Fatalf("key without shop want 1.2.3.4 got %s", key)
	}
	c.Set(handlershared.ShopDomainContextKey, "saddlery.myshopify.com")
	if key := KeyByShop(c); key != "saddlery.myshopify.com" {
		t.Fatalf("key want saddlery.myshopify.com got %s", key)
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("expected handler response body, got %s", w.Body.String())
	}
}

func TestToInt64(t *testing.T) {
	cases := []struct {
		input interface{}
		want  int64
		ok    bool
	}{
		{input: int64(10), want: 10, ok: true},
		{input: 11, want: 11, ok: true},
		{input: 13.9, want: 13, ok: true},
		{input: "42", want: 42, ok: true},
		{input: "bad", ok: false},
		{input: []byte("1"), ok: false},
	}
	for _, tc := range cases {
		got, ok := toInt64(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("toInt64(%v) want (%d,%v) got (%d,%v)", tc.input, tc.want, tc.ok, got, ok)
		}
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	if got := retryAfterSeconds(17, 60); got != 17 {
		t.Fatalf("ttl should be used, got %d", got)
	}
	if got := retryAfterSeconds(-1, 60); got != 60 {
		t.Fatalf("missing ttl falls back to window, got %d", got)
	}
	if got := retryAfterSeconds(0, 0); got != 1 {
		t.Fatalf("wait should be at least 1, got %d", got)
	}
}

func TestRateLimitRuleKey(t *testing.T) {
	rule := RateLimitRule{Prefix: "saddle:rate:export"}
	if got := rule.key("shop.myshopify.com"); got != "saddle:rate:export:shop.myshopify.com" {
		t.Fatalf("unexpected key %s", got)
	}
	if got := (RateLimitRule{}).key("1.2.3.4"); got != "1.2.3.4" {
		t.Fatalf("key without prefix should be subject, got %s", got)
	}
	if (RateLimitRule{WindowSeconds: 60}).enabled() {
		t.Fatalf("rule without max requests should be disabled")
	}
}
