// Package inference 封装外部病害检测服务的调用
//
// 支持 REST 与 gRPC 两种传输方式，二者返回相同的 PredictionResult 与相同的错误分类。
// 客户端内部不做重试，重试策略由调用方决定。
package inference

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"
)

// DiseaseDetector 病害检测接口
type DiseaseDetector interface {
	// Predict 对图片进行推理，返回存在/不存在置信度、严重程度与两张掩膜
	Predict(ctx context.Context, image []byte) (*PredictionResult, error)
}

// Client 可关闭的检测客户端
type Client interface {
	DiseaseDetector
	io.Closer
}

// PredictionResult 推理结果，掩膜为不透明的编码栅格数据
type PredictionResult struct {
	Presence   float32
	Absence    float32
	Severity   float32
	LeafMask   []byte
	LesionMask []byte
}

// Validate 检查分数范围与掩膜是否齐全
func (r *PredictionResult) Validate() error {
	scores := []struct {
		name  string
		value float32
	}{
		{"presence", r.Presence},
		{"absence", r.Absence},
		{"severity", r.Severity},
	}
	for _, s := range scores {
		v := float64(s.value)
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%s 超出 [0,1] 范围: %v", s.name, s.value)
		}
	}
	if len(r.LeafMask) == 0 {
		return fmt.Errorf("缺少 leaf_mask")
	}
	if len(r.LesionMask) == 0 {
		return fmt.Errorf("缺少 lesion_mask")
	}
	return nil
}

// Options 客户端选项
type Options struct {
	Transport string // rest, grpc
	Endpoint  string
	Model     string
	Timeout   time.Duration
}

// New 按传输方式创建客户端
func New(opts Options) (Client, error) {
	switch opts.Transport {
	case "rest":
		return NewRESTClient(opts.Endpoint, opts.Model, opts.Timeout), nil
	case "grpc":
		return NewGRPCClient(opts.Endpoint, opts.Timeout)
	default:
		return nil, fmt.Errorf("不支持的推理传输方式: %s", opts.Transport)
	}
}
