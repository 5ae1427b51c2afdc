package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		header string
		value  string
		want   string
	}{
		{header: "X-Locale", value: "zh-TW", want: LocaleZhCN},
		{header: "Accept-Language", value: "fr-FR;q=0.9, zh-CN;q=0.8", want: LocaleZhCN},
		{header: "Accept-Language", value: "en-GB", want: LocaleEnUS},
		{header: "Accept-Language", value: "de", want: DefaultLocale},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set(tc.header, tc.value)
		if got := ResolveLocale(c); got != tc.want {
			t.Fatalf("%s=%q: got %s want %s", tc.header, tc.value, got, tc.want)
		}
	}
}

func TestTFallback(t *testing.T) {
	if got := T("fr", "error.order_not_found"); got != "order not found" {
		t.Fatalf("unexpected fallback: %s", got)
	}
	if got := T(LocaleZhCN, "error.missing_key"); got != "error.missing_key" {
		t.Fatalf("missing key should echo key, got %s", got)
	}
	if got := Sprintf(LocaleEnUS, "error.rate_limited", 30); got != "too many requests, retry in 30 seconds" {
		t.Fatalf("unexpected formatted message: %s", got)
	}
}
