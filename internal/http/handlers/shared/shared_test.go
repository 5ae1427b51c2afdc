package shared

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/saddle-ledger/internal/http/response"
	"github.com/saddle-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

func TestMapServiceError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{err: fmt.Errorf("wrap: %w", service.ErrOrderNotFound), code: response.CodeNotFound},
		{err: service.ErrShopDomainRequired, code: response.CodeBadRequest},
		{err: service.ErrAssignmentBusy, code: response.CodeConflict},
		{err: service.ErrResyncUnavailable, code: response.CodeServiceUnavailable},
		{err: service.ErrPersistence, code: response.CodeInternal},
	}
	for _, tc := range cases {
		if got := MapServiceError(tc.err).Code; got != tc.code {
			t.Fatalf("%v: code want %d got %d", tc.err, tc.code, got)
		}
	}
}

func TestQueryPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=0&page_size=500", nil)
	page, size := QueryPagination(c)
	if page != 1 || size != 100 {
		t.Fatalf("unexpected pagination: %d %d", page, size)
	}
}
