package kafka

import (
	"context"
	"log"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// ExecutionEvent 执行事件流消息体，JSON编码写入单一topic
// Key使用 user_id:symbol，保证同一仓位的事件进入同一个 Partition（有序性）
type ExecutionEvent struct {
	Type      string      `json:"type"` // group_opened / group_closed / order_filled / risk_action
	UserId    int64       `json:"user_id"`
	GroupId   int64       `json:"group_id,omitempty"`
	Symbol    string      `json:"symbol,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Kafka 生产者服务
// 定义接口，方便测试和替换
type ProducerService interface {
	Produce(ctx context.Context, key string, evt ExecutionEvent) error
	Close()
}

type kafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokerURL, topic string) ProducerService {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokerURL),
		Topic:    topic,
		Balancer: &kafka.Hash{}, // 按Key哈希，同一仓位的事件落在同一个Partition
	}
	return &kafkaProducer{writer: writer}
}

func (p *kafkaProducer) Produce(ctx context.Context, key string, evt ExecutionEvent) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
	})
}

func (p *kafkaProducer) Close() {
	if err := p.writer.Close(); err != nil {
		log.Printf("Error closing event writer: %v", err)
	}
}

// NopProducer 未配置kafka时的空实现
type NopProducer struct{}

func (NopProducer) Produce(ctx context.Context, key string, evt ExecutionEvent) error { return nil }
func (NopProducer) Close()                                                            {}
