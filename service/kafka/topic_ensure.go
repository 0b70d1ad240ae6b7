package kafka

import (
	"errors"
	"fmt"

	"BelongingsHub/logger"

	"github.com/Shopify/sarama"
)

// EnsureTopics 不存在就建；已存在且分区偏少时扩分区（Kafka 只能加不能减）
func EnsureTopics(admin sarama.ClusterAdmin, topics []string, c Config) error {
	for _, t := range topics {
		descs, err := admin.DescribeTopics([]string{t})
		if err != nil {
			return fmt.Errorf("describe topic %s: %w", t, err)
		}
		exists := len(descs) == 1 && errors.Is(descs[0].Err, sarama.ErrNoError)

		if !exists {
			minISR := "1"
			if c.ReplicationFactor >= 3 {
				minISR = "2"
			}
			td := &sarama.TopicDetail{
				NumPartitions:     c.Partitions,
				ReplicationFactor: c.ReplicationFactor,
				ConfigEntries: map[string]*string{
					"cleanup.policy":                 strPtr("delete"),
					"min.insync.replicas":            strPtr(minISR),
					"unclean.leader.election.enable": strPtr("false"),
					"compression.type":               strPtr("producer"),
				},
			}
			if err := admin.CreateTopic(t, td, false); err != nil {
				var te *sarama.TopicError
				if (errors.As(err, &te) && te.Err == sarama.ErrTopicAlreadyExists) || errors.Is(err, sarama.ErrTopicAlreadyExists) {
					logger.Infof("[Topic] exists (race): %s", t)
					continue
				}
				return fmt.Errorf("create topic %s: %w", t, err)
			}
			logger.Infof("[Topic] created: %s (partitions=%d, rf=%d)", t, c.Partitions, c.ReplicationFactor)
			continue
		}

		cur := int32(len(descs[0].Partitions))
		if c.Partitions > cur {
			if err := admin.CreatePartitions(t, c.Partitions, nil, false); err != nil {
				return fmt.Errorf("expand partitions %s from %d to %d: %w", t, cur, c.Partitions, err)
			}
			logger.Infof("[Topic] partitions expanded: %s (%d -> %d)", t, cur, c.Partitions)
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }
