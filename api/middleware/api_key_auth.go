/*
 * @module api/middleware/api_key_auth
 * @description API密钥鉴权中间件，请求携带的密钥与配置的bcrypt散列比对
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @documentReference ai_docs/manager_design.md 鉴权一节
 * @stateFlow 密钥提取 -> bcrypt比对 -> 下一个处理器
 * @rules 配置中只存bcrypt散列不存明文；未配置散列时鉴权关闭（本地调试模式）
 * @dependencies golang.org/x/crypto/bcrypt, net/http
 * @refs api/routes.go
 */

package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyHeader 请求携带密钥的头
const APIKeyHeader = "X-API-Key"

// APIKeyAuth API密钥鉴权中间件
type APIKeyAuth struct {
	hashes         [][]byte // 允许的密钥bcrypt散列
	whitelistPaths []string
}

// NewAPIKeyAuth 创建鉴权中间件
// API_KEY_HASHES 为逗号分隔的bcrypt散列列表；为空时鉴权关闭
func NewAPIKeyAuth() *APIKeyAuth {
	auth := &APIKeyAuth{
		whitelistPaths: []string{
			"/health",
			"/ready",
			"/metrics",
			"/swagger",
			"/sse",
		},
	}

	for _, hash := range strings.Split(os.Getenv("API_KEY_HASHES"), ",") {
		hash = strings.TrimSpace(hash)
		if hash != "" {
			auth.hashes = append(auth.hashes, []byte(hash))
		}
	}
	return auth
}

// Enabled 鉴权是否启用
func (a *APIKeyAuth) Enabled() bool {
	return len(a.hashes) > 0
}

// isWhitelisted 检查路径是否免鉴权
func (a *APIKeyAuth) isWhitelisted(path string) bool {
	for _, prefix := range a.whitelistPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Middleware 鉴权中间件处理函数
func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() || a.isWhitelisted(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			a.respondUnauthorized(w, r, "缺少"+APIKeyHeader+"头")
			return
		}

		for _, hash := range a.hashes {
			if bcrypt.CompareHashAndPassword(hash, []byte(key)) == nil {
				next.ServeHTTP(w, r)
				return
			}
		}
		a.respondUnauthorized(w, r, "API密钥无效")
	})
}

// respondUnauthorized 返回401未授权响应
func (a *APIKeyAuth) respondUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	render.JSON(w, r, map[string]interface{}{
		"status":  http.StatusUnauthorized,
		"message": message,
		"error":   "Unauthorized",
	})
}
