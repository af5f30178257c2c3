package inference

import (
	"context"
	"fmt"
)

// Limiter 并发槽位限制器
type Limiter interface {
	Acquire(ctx context.Context, key string) error
	Release(ctx context.Context, key string)
}

// ConcurrencyLimiter 进程内并发限制器
type ConcurrencyLimiter struct {
	maxConcurrent int
	semaphore     chan struct{}
}

// NewConcurrencyLimiter 创建并发限制器
func NewConcurrencyLimiter(maxConcurrent int) *ConcurrencyLimiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &ConcurrencyLimiter{
		maxConcurrent: maxConcurrent,
		semaphore:     make(chan struct{}, maxConcurrent),
	}
}

// Acquire 获取并发槽位，槽位已满时等待
func (cl *ConcurrencyLimiter) Acquire(ctx context.Context, key string) error {
	select {
	case cl.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release 释放并发槽位
func (cl *ConcurrencyLimiter) Release(ctx context.Context, key string) {
	select {
	case <-cl.semaphore:
	default:
	}
}

// InUse 当前占用的槽位数
func (cl *ConcurrencyLimiter) InUse() int {
	return len(cl.semaphore)
}

// LimitedDetector 带并发限制的检测器
type LimitedDetector struct {
	inner   DiseaseDetector
	limiter Limiter
	key     string
}

// NewLimitedDetector 为检测器加上并发限制
func NewLimitedDetector(inner DiseaseDetector, limiter Limiter, key string) *LimitedDetector {
	return &LimitedDetector{inner: inner, limiter: limiter, key: key}
}

// Predict 获取槽位后调用检测器，获取失败视为服务暂时不可用
func (d *LimitedDetector) Predict(ctx context.Context, image []byte) (*PredictionResult, error) {
	if err := d.limiter.Acquire(ctx, d.key); err != nil {
		return nil, unavailable("acquire slot", fmt.Errorf("获取并发槽位失败: %w", err))
	}
	defer d.limiter.Release(context.WithoutCancel(ctx), d.key)

	return d.inner.Predict(ctx, image)
}
