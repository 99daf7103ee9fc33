/*
 * @module service/connector/http_client
 * @description 厂商HTTP调用辅助，统一处理限流申请、令牌头、配额回填与错误分类
 * @architecture 工具层 - 厂商连接器共享的出站HTTP通道
 * @documentReference ai_docs/connector_design.md 上游通道一节
 * @stateFlow 限流申请 -> 带context请求 -> 配额头回填 -> 状态码分类 -> JSON解码
 * @rules 每次出站调用前必须先通过限流器申请配额；响应配额头用于回填限流器
 * @dependencies net/http, service/rate_limiter
 * @refs service/connector/slack_connector.go, service/connector/zoom_connector.go
 */

package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"teampulse-service/service/rate_limiter"
)

// vendorClient 厂商HTTP客户端
type vendorClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    rate_limiter.Limiter
	limiterKey string
}

// newVendorClient 创建厂商HTTP客户端
func newVendorClient(baseURL, limiterKey string, limiter rate_limiter.Limiter) *vendorClient {
	return &vendorClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		limiter:    limiter,
		limiterKey: limiterKey,
	}
}

// getJSON 发起带令牌的GET请求并解码JSON响应
func (c *vendorClient) getJSON(ctx context.Context, path, token string, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx, c.limiterKey); err != nil {
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: 构造请求失败: %v", ErrValidation, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Classify(err)
	}
	defer resp.Body.Close()

	c.observeQuota(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: 上游返回%d", ErrAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: 上游返回429", ErrRateLimited)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: 上游返回%d", ErrNetwork, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: 非预期状态码%d", ErrValidation, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: 解码响应失败: %v", ErrValidation, err)
	}
	return nil
}

// observeQuota 从响应头回填限流器配额
func (c *vendorClient) observeQuota(resp *http.Response) {
	if c.limiter == nil {
		return
	}

	remainingHeader := resp.Header.Get("X-RateLimit-Remaining")
	if remainingHeader == "" {
		return
	}
	remaining, err := strconv.Atoi(remainingHeader)
	if err != nil {
		return
	}

	var resetAt time.Time
	if resetHeader := resp.Header.Get("X-RateLimit-Reset"); resetHeader != "" {
		if unix, err := strconv.ParseInt(resetHeader, 10, 64); err == nil {
			resetAt = time.Unix(unix, 0)
		}
	}

	c.limiter.Observe(c.limiterKey, remaining, resetAt)
}
