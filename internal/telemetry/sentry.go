// Package telemetry 错误上报
package telemetry

import (
	"errors"
	"fmt"
	"time"

	"plantdiag/internal/config"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// Reporter 向 Sentry 上报错误，未配置 DSN 时为空操作
type Reporter struct {
	hub    *sentry.Hub
	logger logrus.FieldLogger
}

// NewReporter 按配置创建错误上报器
func NewReporter(cfg *config.SentryConfig, logger logrus.FieldLogger) (*Reporter, error) {
	if cfg == nil || cfg.DSN == "" {
		return &Reporter{logger: logger}, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		SampleRate:       1.0,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 sentry 失败: %w", err)
	}
	return NewReporterWithHub(sentry.NewHub(client, sentry.NewScope()), logger), nil
}

// NewReporterWithHub 使用指定 Hub 创建上报器
func NewReporterWithHub(hub *sentry.Hub, logger logrus.FieldLogger) *Reporter {
	return &Reporter{hub: hub, logger: logger}
}

// Enabled 是否启用上报
func (r *Reporter) Enabled() bool {
	return r != nil && r.hub != nil
}

// CaptureError 上报错误，tags 用于分组
func (r *Reporter) CaptureError(err error, component string, tags map[string]string) {
	if !r.Enabled() || err == nil {
		return
	}

	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		scope.SetLevel(sentry.LevelError)

		// 上报最内层错误的类型便于聚合
		root := err
		for {
			next := errors.Unwrap(root)
			if next == nil {
				break
			}
			root = next
		}
		scope.SetTag("root_error", fmt.Sprintf("%T", root))

		if id := r.hub.CaptureException(err); id == nil && r.logger != nil {
			r.logger.WithField("component", component).Debug("sentry 未接收事件")
		}
	})
}

// Flush 等待事件发送完成
func (r *Reporter) Flush(timeout time.Duration) {
	if !r.Enabled() {
		return
	}
	r.hub.Flush(timeout)
}
