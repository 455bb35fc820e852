package events

import (
	"context"
	"strings"
	"time"

	"github.com/Shopify/sarama"
)

// KafkaConfig Kafka 发布配置
type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	Topic       string   `mapstructure:"topic"`
	Version     string   `mapstructure:"version"` // 例如 "2.1.0"
	Retries     int      `mapstructure:"retries"`
	Compression string   `mapstructure:"compression"` // none/snappy/lz4/zstd
}

// BuildConfig 同步生产者配置；事件 key 决定分区，同一投稿的事件保持顺序
func BuildConfig(c KafkaConfig) (*sarama.Config, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	if c.Version != "" {
		v, err := sarama.ParseKafkaVersion(c.Version)
		if err != nil {
			return nil, err
		}
		cfg.Version = v
	}

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	if c.Retries <= 0 {
		c.Retries = 3
	}
	cfg.Producer.Retry.Max = c.Retries
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	switch strings.ToLower(c.Compression) {
	case "snappy":
		cfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		cfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		cfg.Producer.Compression = sarama.CompressionZSTD
	default:
		cfg.Producer.Compression = sarama.CompressionNone
	}

	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg, nil
}

// Kafka 同步生产者
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafka(c KafkaConfig) (*Kafka, error) {
	cfg, err := BuildConfig(c)
	if err != nil {
		return nil, err
	}
	p, err := sarama.NewSyncProducer(c.Brokers, cfg)
	if err != nil {
		return nil, err
	}
	return NewKafkaFromProducer(p, c.Topic), nil
}

// NewKafkaFromProducer 复用已有生产者（测试里传 mocks）
func NewKafkaFromProducer(p sarama.SyncProducer, topic string) *Kafka {
	if topic == "" {
		topic = "pbot.events"
	}
	return &Kafka{producer: p, topic: topic}
}

func (k *Kafka) Publish(_ context.Context, e Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(e.Key()),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(e.Kind)},
		},
	}
	_, _, err = k.producer.SendMessage(msg)
	return err
}

func (k *Kafka) Close() error {
	return k.producer.Close()
}
