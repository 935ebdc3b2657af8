package server

import (
	"CampusLink/internal/conf"
	"CampusLink/internal/server/middleware"
	"CampusLink/internal/service"
	pkglog "CampusLink/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(
	c *conf.Server,
	maintenance *service.MaintenanceService,
	notification *service.NotificationService,
	logger log.Logger,
) *http.Server {
	// 创建增强的日志辅助器
	logHelper := pkglog.NewLogHelper(logger)

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Auth(logHelper),    // 认证中间件：提取 Token 与网关身份
			middleware.Logging(logHelper), // 请求日志中间件：记录请求方法、路径、耗时
		),
	}
	if c.HTTP.Network != "" {
		opts = append(opts, http.Network(c.HTTP.Network))
	}
	if c.HTTP.Addr != "" {
		opts = append(opts, http.Address(c.HTTP.Addr))
	}
	if c.HTTP.Timeout > 0 {
		opts = append(opts, http.Timeout(c.HTTP.Timeout))
	}
	srv := http.NewServer(opts...)

	// Register HTTP routes
	r := srv.Route("/")
	r.GET("/health", maintenance.Health)

	r.POST("/v1/analyze", maintenance.Analyze)
	r.POST("/v1/analyze/batch", maintenance.AnalyzeBatch)

	// /v1/tickets/stats 必须注册在 /v1/tickets/{id} 之前
	r.GET("/v1/tickets/stats", maintenance.Stats)
	r.POST("/v1/tickets", maintenance.CreateTicket)
	r.GET("/v1/tickets", maintenance.ListTickets)
	r.GET("/v1/tickets/{id}", maintenance.GetTicket)
	r.PATCH("/v1/tickets/{id}", maintenance.UpdateTicket)
	r.DELETE("/v1/tickets/{id}", maintenance.DeleteTicket)

	r.GET("/v1/notifications/unread", notification.Unread)
	r.POST("/v1/notifications", notification.Create)
	r.GET("/v1/notifications", notification.List)
	r.PUT("/v1/notifications/{id}/read", notification.MarkRead)

	return srv
}
