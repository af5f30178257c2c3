package service

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy 流水线重试策略
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

// retryBudget 一次流水线运行内图片读取与推理共享的重试次数
type retryBudget struct {
	mu        sync.Mutex
	remaining int
}

func newRetryBudget(n int) *retryBudget {
	return &retryBudget{remaining: n}
}

func (b *retryBudget) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// Remaining 剩余重试次数
func (b *retryBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// budgetBackOff 每次重试消耗一次共享预算，预算用尽后停止
type budgetBackOff struct {
	inner  *backoff.ExponentialBackOff
	budget *retryBudget
}

func (p RetryPolicy) newBackOff(budget *retryBudget) backoff.BackOff {
	inner := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		inner.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		inner.MaxInterval = p.MaxInterval
	}
	inner.MaxElapsedTime = p.MaxElapsed
	inner.Reset()
	return &budgetBackOff{inner: inner, budget: budget}
}

func (b *budgetBackOff) NextBackOff() time.Duration {
	next := b.inner.NextBackOff()
	if next == backoff.Stop {
		return backoff.Stop
	}
	if !b.budget.take() {
		return backoff.Stop
	}
	return next
}

func (b *budgetBackOff) Reset() {
	b.inner.Reset()
}
