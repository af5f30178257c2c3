package inference

import (
	"errors"
	"fmt"
)

// Kind 推理失败类型
type Kind int

const (
	// KindUnavailable 网络或远端暂时不可用，可重试
	KindUnavailable Kind = iota + 1
	// KindInvalidResponse 响应格式错误或数据越界，不可重试
	KindInvalidResponse
)

var (
	// ErrUnavailable 推理服务不可用
	ErrUnavailable = errors.New("推理服务不可用")
	// ErrInvalidResponse 推理服务返回无效结果
	ErrInvalidResponse = errors.New("推理服务返回无效结果")
)

// Error 推理失败
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) sentinel() error {
	if e.Kind == KindUnavailable {
		return ErrUnavailable
	}
	return ErrInvalidResponse
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.sentinel())
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.sentinel(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrUnavailable) 等判断按失败类型匹配
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

// Retryable 是否可重试
func (e *Error) Retryable() bool {
	return e.Kind == KindUnavailable
}

func unavailable(op string, err error) error {
	return &Error{Kind: KindUnavailable, Op: op, Err: err}
}

func invalidResponse(op string, err error) error {
	return &Error{Kind: KindInvalidResponse, Op: op, Err: err}
}

// IsRetryable 判断错误是否为可重试的推理失败
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
