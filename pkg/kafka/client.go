// Package kafka 提供了向 Kafka 发布业务事件的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"meslek-atlasi/internal/config"
	"meslek-atlasi/pkg/log"

	"github.com/segmentio/kafka-go"
)

// 事件在请求路径上同步写入，单条事件不等待默认 1s 的攒批。
const publishBatchTimeout = 10 * time.Millisecond

// Publisher 发布 JSON 编码的事件。
type Publisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewPublisher 初始化 Kafka 生产者；未启用时返回一个丢弃事件的实现。
func NewPublisher(cfg config.KafkaConfig) Publisher {
	if !cfg.Enabled || cfg.Brokers == "" {
		log.Info("Kafka 未启用，事件将被丢弃")
		return NopPublisher{}
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(cfg.Brokers, ",")...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{}, // 同一用户的事件落在同一分区
		AllowAutoTopicCreation: true,
		BatchTimeout:           publishBatchTimeout,
	}
	log.Infof("Kafka 生产者初始化成功, topic=%s", cfg.Topic)
	return &kafkaPublisher{writer: w}
}

func (p *kafkaPublisher) Publish(ctx context.Context, key string, event interface{}) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher 丢弃所有事件。
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NopPublisher) Close() error                                       { return nil }
