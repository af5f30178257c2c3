package inference

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// PredictMethod gRPC 推理方法全名
const PredictMethod = "/plantdiag.inference.v1.DiseaseDetector/Predict"

// GRPCClient 通过 gRPC 调用模型服务
type GRPCClient struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

// NewGRPCClient 创建 gRPC 客户端，连接在首次调用时建立
func NewGRPCClient(target string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("创建 gRPC 连接失败: %w", err)
	}
	return &GRPCClient{conn: conn, timeout: timeout}, nil
}

// Predict 调用模型服务
func (c *GRPCClient) Predict(ctx context.Context, image []byte) (*PredictionResult, error) {
	const op = "grpc predict"

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := RawMessage(EncodePredictRequest(image))
	var resp RawMessage
	if err := c.conn.Invoke(ctx, PredictMethod, &req, &resp, grpc.ForceCodec(RawCodec{})); err != nil {
		if retryableCode(status.Code(err)) {
			return nil, unavailable(op, err)
		}
		return nil, invalidResponse(op, err)
	}

	result, err := DecodePredictResponse(resp)
	if err != nil {
		return nil, invalidResponse(op, err)
	}
	if err := result.Validate(); err != nil {
		return nil, invalidResponse(op, err)
	}
	return result, nil
}

// Close 关闭连接
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func retryableCode(code codes.Code) bool {
	switch code {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Canceled:
		return true
	}
	return false
}

// RawMessage 已编码的 protobuf 消息
type RawMessage []byte

// RawCodec 直接收发已编码的 protobuf 字节，名称为 proto 以兼容标准 protobuf 服务端
type RawCodec struct{}

// Marshal 返回消息字节
func (RawCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(*RawMessage)
	if !ok {
		return nil, fmt.Errorf("不支持的消息类型: %T", v)
	}
	return *m, nil
}

// Unmarshal 复制消息字节
func (RawCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(*RawMessage)
	if !ok {
		return fmt.Errorf("不支持的消息类型: %T", v)
	}
	*m = append((*m)[:0], data...)
	return nil
}

// Name 编解码器名称
func (RawCodec) Name() string {
	return "proto"
}
