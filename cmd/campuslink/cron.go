package main

import (
	"context"
	"time"

	"CampusLink/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// StartEscalationCron 启动 SLA 升级巡检定时任务
// 执行频率：每 5 分钟执行一次
// 升级策略：扫描超过响应时限仍未处理的 CRITICAL / HIGH 工单并告警
func StartEscalationCron(task *biz.EscalationTask, logger log.Logger) *cron.Cron {
	helper := log.NewHelper(logger)

	c := cron.New(cron.WithSeconds())

	// 每 5 分钟执行一次（0:00, 0:05, 0:10, ...）
	// Cron 表达式：0 */5 * * * * （秒 分 时 日 月 周）
	_, err := c.AddFunc("0 */5 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := task.Sweep(ctx); err != nil {
			helper.Errorw("SLA escalation sweep failed", "error", err)
		}
	})

	if err != nil {
		helper.Errorw("failed to register escalation cron job", "error", err)
		return nil
	}

	c.Start()
	helper.Info("SLA escalation cron job started: runs every 5 minutes")

	return c
}
