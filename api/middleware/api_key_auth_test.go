/*
 * @module api/middleware/api_key_auth_test
 * @description API密钥鉴权中间件的单元测试
 * @architecture 测试驱动开发 - httptest验证放行/拒绝/白名单
 * @documentReference ai_docs/manager_design.md 鉴权一节
 * @stateFlow 构造请求 -> 中间件执行 -> 状态码断言
 * @rules 未配置散列时鉴权关闭；白名单路径永远免鉴权
 * @dependencies testing, testify, httptest, bcrypt
 * @refs api_key_auth.go
 */

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// okHandler 放行后返回200的终端处理器
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// newAuthWithKey 配置单个密钥散列的中间件
func newAuthWithKey(t *testing.T, key string) *APIKeyAuth {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	require.NoError(t, err)
	t.Setenv("API_KEY_HASHES", string(hash))
	return NewAPIKeyAuth()
}

// serve 用中间件处理请求并返回记录器
func serve(auth *APIKeyAuth, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	auth.Middleware(okHandler).ServeHTTP(rec, req)
	return rec
}

// TestAuthDisabledWithoutHashes 测试未配置散列时鉴权关闭
func TestAuthDisabledWithoutHashes(t *testing.T) {
	t.Setenv("API_KEY_HASHES", "")
	auth := NewAPIKeyAuth()

	assert.False(t, auth.Enabled())

	req := httptest.NewRequest(http.MethodGet, "/integrations", nil)
	assert.Equal(t, http.StatusOK, serve(auth, req).Code)
}

// TestValidKeyAllowed 测试有效密钥放行
func TestValidKeyAllowed(t *testing.T) {
	auth := newAuthWithKey(t, "team-pulse-key")
	assert.True(t, auth.Enabled())

	req := httptest.NewRequest(http.MethodGet, "/integrations", nil)
	req.Header.Set(APIKeyHeader, "team-pulse-key")
	assert.Equal(t, http.StatusOK, serve(auth, req).Code)
}

// TestInvalidKeyRejected 测试无效密钥返回401
func TestInvalidKeyRejected(t *testing.T) {
	auth := newAuthWithKey(t, "team-pulse-key")

	req := httptest.NewRequest(http.MethodGet, "/integrations", nil)
	req.Header.Set(APIKeyHeader, "wrong-key")

	rec := serve(auth, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unauthorized")
}

// TestMissingKeyRejected 测试缺少密钥头返回401
func TestMissingKeyRejected(t *testing.T) {
	auth := newAuthWithKey(t, "team-pulse-key")

	req := httptest.NewRequest(http.MethodGet, "/integrations", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(auth, req).Code)
}

// TestWhitelistBypassesAuth 测试白名单路径免鉴权
func TestWhitelistBypassesAuth(t *testing.T) {
	auth := newAuthWithKey(t, "team-pulse-key")

	for _, path := range []string{"/health", "/ready", "/metrics", "/swagger/index.html", "/sse"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, serve(auth, req).Code, "path=%s", path)
	}
}

// TestMultipleHashes 测试多散列配置任一匹配即放行
func TestMultipleHashes(t *testing.T) {
	first, err := bcrypt.GenerateFromPassword([]byte("key-a"), bcrypt.MinCost)
	require.NoError(t, err)
	second, err := bcrypt.GenerateFromPassword([]byte("key-b"), bcrypt.MinCost)
	require.NoError(t, err)
	t.Setenv("API_KEY_HASHES", string(first)+", "+string(second))

	auth := NewAPIKeyAuth()
	require.True(t, auth.Enabled())

	req := httptest.NewRequest(http.MethodGet, "/integrations", nil)
	req.Header.Set(APIKeyHeader, "key-b")
	assert.Equal(t, http.StatusOK, serve(auth, req).Code)
}
