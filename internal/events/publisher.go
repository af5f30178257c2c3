// Package events 发布诊断完成事件
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"plantdiag/internal/config"

	"github.com/segmentio/kafka-go"
)

// PredictionCreated 诊断完成事件
type PredictionCreated struct {
	PredictionID      uint      `json:"prediction_id"`
	UserID            uint      `json:"user_id"`
	ImageID           uint      `json:"image_id"`
	PlotID            *uint     `json:"plot_id,omitempty"`
	LabelID           uint      `json:"label_id"`
	LabelName         string    `json:"label_name"`
	Severity          float32   `json:"severity"`
	Presence          float32   `json:"presence_confidence"`
	Absence           float32   `json:"absence_confidence"`
	RecommendationIDs []uint    `json:"recommendation_ids"`
	CreatedAt         time.Time `json:"created_at"`
}

// Publisher 事件发布接口
type Publisher interface {
	PublishPredictionCreated(ctx context.Context, event PredictionCreated) error
	Close() error
}

// New 按配置创建发布器，未配置 broker 时返回空发布器
func New(cfg *config.EventsConfig) Publisher {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return NoopPublisher{}
	}
	return NewKafkaPublisher(cfg.Brokers, cfg.Topic)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 将事件写入 Kafka，消息键为诊断ID
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher 创建 Kafka 发布器
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// PublishPredictionCreated 发布诊断完成事件
func (p *KafkaPublisher) PublishPredictionCreated(ctx context.Context, event PredictionCreated) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.PredictionID), 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte("prediction.created")},
		},
		Time: event.CreatedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("写入 kafka 失败: %w", err)
	}
	return nil
}

// Close 关闭写入器
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher 不发布任何事件
type NoopPublisher struct{}

// PublishPredictionCreated 空操作
func (NoopPublisher) PublishPredictionCreated(context.Context, PredictionCreated) error { return nil }

// Close 空操作
func (NoopPublisher) Close() error { return nil }
