package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/saddle-ledger/internal/logger"
)

// Config Admin API 连接配置
type Config struct {
	ShopDomain  string
	APIVersion  string
	AccessToken string
	Timeout     time.Duration
	MaxRetries  int
}

// Client Shopify Admin GraphQL 客户端
type Client struct {
	config     Config
	httpClient *http.Client
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// NewClient 创建 Admin API 客户端
func NewClient(config Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaultRetryMax
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// Configured 是否具备调用 Admin API 的最小配置
func (c *Client) Configured() bool {
	return c != nil &&
		strings.TrimSpace(c.config.ShopDomain) != "" &&
		strings.TrimSpace(c.config.AccessToken) != "" &&
		strings.TrimSpace(c.config.APIVersion) != ""
}

// ShopDomain 当前客户端绑定的店铺
func (c *Client) ShopDomain() string {
	if c == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(c.config.ShopDomain))
}

func (c *Client) endpoint() (string, error) {
	domain := strings.TrimSpace(c.config.ShopDomain)
	if domain == "" {
		return "", errors.New("shopify shop domain is empty")
	}
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	domain = strings.TrimRight(domain, "/")
	if strings.TrimSpace(c.config.APIVersion) == "" {
		return "", errors.New("shopify api version is empty")
	}
	return domain + "/admin/api/" + c.config.APIVersion + "/graphql.json", nil
}

// graphqlRequest 发送 GraphQL 请求，限流与 5xx 按指数退避重试
func (c *Client) graphqlRequest(ctx context.Context, query string, variables map[string]any, out any) error {
	endpoint, err := c.endpoint()
	if err != nil {
		return err
	}
	bodyBytes, err := json.Marshal(graphQLRequest{
		Query:     strings.TrimSpace(query),
		Variables: variables,
	})
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt - 1)
			logger.Warnw("shopify_graphql_retry",
				"attempt", attempt,
				"delay_ms", delay.Milliseconds(),
				"error", lastErr,
			)
			if err := sleepWithContext(ctx, delay); err != nil {
				return err
			}
		}
		lastErr = c.doGraphQL(ctx, endpoint, bodyBytes, out)
		if lastErr == nil || !isRetryableError(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) doGraphQL(ctx context.Context, endpoint string, body []byte, out any) error {
	raw, err := c.shopifyAPIRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	var resp GraphQLResponse[json.RawMessage]
	if err := json.Unmarshal(raw, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		if isThrottleGraphQLError(resp.Errors) {
			return &ThrottledError{Message: formatGraphQLErrors(resp.Errors)}
		}
		return fmt.Errorf("shopify graphql errors: %s", formatGraphQLErrors(resp.Errors))
	}
	if out == nil {
		return nil
	}
	if len(resp.Data) == 0 {
		return errors.New("shopify graphql response missing data")
	}
	return json.Unmarshal(resp.Data, out)
}

func (c *Client) shopifyAPIRequest(ctx context.Context, method string, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.config.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}
	return respBody, nil
}

func formatGraphQLErrors(errs []GraphQLError) string {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, strings.TrimSpace(e.Message))
	}
	return strings.Join(messages, "; ")
}
