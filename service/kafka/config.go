package kafka

import (
	"strings"
	"time"

	"github.com/Shopify/sarama"
)

// Config 生产者配置；只发不收
type Config struct {
	Brokers           []string
	ClientID          string
	Compression       string // none/snappy/lz4/zstd
	Retries           int
	Partitions        int32
	ReplicationFactor int16
}

// BuildProducerConfig 同步生产者：等全部副本确认，key 决定分区
func BuildProducerConfig(c Config) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	if c.ClientID != "" {
		cfg.ClientID = c.ClientID
	}

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	if c.Retries <= 0 {
		c.Retries = 1
	}
	cfg.Producer.Retry.Max = c.Retries
	// 同一接收方的离线事件落同一分区，保证顺序
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	cfg.Producer.Compression = compressionCodec(c.Compression)

	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg
}

func compressionCodec(name string) sarama.CompressionCodec {
	switch strings.ToLower(name) {
	case "snappy":
		return sarama.CompressionSnappy
	case "lz4":
		return sarama.CompressionLZ4
	case "zstd":
		return sarama.CompressionZSTD
	default:
		return sarama.CompressionNone
	}
}
