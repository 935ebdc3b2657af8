// Package middleware provides HTTP middleware for authentication, logging, and request processing.
package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkglog "CampusLink/pkg/log"

	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// bearerTokenContextKey is the context key for the raw bearer token
	bearerTokenContextKey contextKey = "bearer_token"
	// userIDContextKey is the context key for the gateway-asserted user ID
	userIDContextKey contextKey = "user_id"
	// userRoleContextKey is the context key for the gateway-asserted role
	userRoleContextKey contextKey = "user_role"
)

// Auth 返回一个 HTTP 认证中间件
// 提取 Bearer Token 与网关注入的用户身份，记录详细的认证日志
//
// Token 的校验由网关完成，本服务只做透传：Token 原样传给下游服务调用，
// 用户身份从 X-User-ID / X-User-Role header 读取
//
// 日志输出示例:
//
//	🔓 Authenticated request from user: u-1024 (eyJhbGci***) in 0ms | {"type":"auth","user_id":"u-1024"}
func Auth(logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			startTime := time.Now()

			var (
				token     string
				userID    string
				userRole  string
				userAgent string
			)

			// 提取 Authorization header 和网关身份 header
			if tr, ok := transport.FromServerContext(ctx); ok {
				if ht, ok := tr.(http.Transporter); ok {
					req := ht.Request()

					// 提取 Authorization header，支持 "Bearer {token}" 格式
					authHeader := req.Header.Get("Authorization")
					if authHeader != "" {
						token = strings.TrimPrefix(authHeader, "Bearer ")
						token = strings.TrimSpace(token)
					}

					// 网关注入的用户身份
					userID = req.Header.Get("X-User-ID")
					userRole = req.Header.Get("X-User-Role")

					// 提取 User-Agent
					userAgent = req.Header.Get("User-Agent")
				}
			}

			// 将身份信息注入上下文（供后续处理使用）
			if token != "" {
				ctx = context.WithValue(ctx, bearerTokenContextKey, token)
			}
			if userID != "" {
				ctx = context.WithValue(ctx, userIDContextKey, userID)
			}
			if userRole != "" {
				ctx = context.WithValue(ctx, userRoleContextKey, userRole)
			}

			// 如果存在 Token，记录认证日志（脱敏）
			if token != "" {
				authDuration := time.Since(startTime).Milliseconds()
				maskedToken := maskToken(token)

				who := userID
				if who == "" {
					who = "unknown"
				}

				logger.Auth(
					"Authenticated request from user: "+who+" ("+maskedToken+") in "+formatDuration(authDuration),
					"user_id", who,
					"role", userRole,
					"token_masked", maskedToken,
					"duration_ms", authDuration,
				)

				// 记录 User-Agent（独立一行，更易读）
				if userAgent != "" {
					logger.API(
						"   User-Agent: \""+userAgent+"\"",
						"user_agent", userAgent,
					)
				}
			}

			// 执行后续处理
			return handler(ctx, req)
		}
	}
}

// TokenFromContext returns the raw bearer token extracted by Auth, or "".
func TokenFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(bearerTokenContextKey).(string); ok {
		return v
	}
	return ""
}

// UserFromContext returns the gateway-asserted user identity, or empty strings.
func UserFromContext(ctx context.Context) (userID, role string) {
	if v, ok := ctx.Value(userIDContextKey).(string); ok {
		userID = v
	}
	if v, ok := ctx.Value(userRoleContextKey).(string); ok {
		role = v
	}
	return userID, role
}

// maskToken 脱敏 Token，仅显示前 8 位
// 示例: "eyJhbGciOiJIUzI1NiJ9..." -> "eyJhbGci***"
func maskToken(token string) string {
	if len(token) <= 8 {
		// 如果 token 太短，全部脱敏
		return strings.Repeat("*", len(token))
	}

	// 显示前 8 位，其余用 *** 代替
	return token[:8] + "***"
}

// formatDuration 格式化持续时间为易读格式
// 示例: 5ms, 150ms, 2.5s
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	seconds := float64(ms) / 1000.0
	return fmt.Sprintf("%.1fs", seconds)
}
