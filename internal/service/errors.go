package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 引用的地块、诊断、标签或图片不存在
	ErrNotFound = errors.New("资源不存在")
	// ErrPersistence 分类成功后写入存储失败
	ErrPersistence = errors.New("持久化失败")
	// ErrInvalidInput 请求参数不合法
	ErrInvalidInput = errors.New("参数错误")
)

// Stage 诊断流水线阶段
type Stage string

// 流水线阶段，Completed 与 Failed 为终态
const (
	StageReceived    Stage = "received"
	StageInferring   Stage = "inferring"
	StageClassifying Stage = "classifying"
	StagePersisting  Stage = "persisting"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

// PipelineError 诊断流水线失败，Stage 为失败发生的阶段
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("诊断失败(%s): %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// FailedStage 返回流水线失败所在阶段
func FailedStage(err error) (Stage, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Stage, true
	}
	return "", false
}

func notFound(what string, id uint) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
}

// lookupErr 将记录不存在转换为 ErrNotFound
func lookupErr(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what, id)
	}
	return fmt.Errorf("获取%s失败: %w", what, err)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
