package kafka

import (
	"context"
	"encoding/json"

	"BelongingsHub/tools/errs"

	"github.com/Shopify/sarama"
)

// OfflineEvent 接收方不在线时投给推送服务的事件
type OfflineEvent struct {
	Type       string `json:"type"`
	ReceiverID string `json:"receiverId"`
	Data       any    `json:"data"`
}

// OfflineNotifier 把离线事件写到 topic，key = 接收方
type OfflineNotifier struct {
	producer sarama.SyncProducer
	topic    string
}

func NewOfflineNotifier(p sarama.SyncProducer, topic string) *OfflineNotifier {
	return &OfflineNotifier{producer: p, topic: topic}
}

// NewOfflineNotifierFromConfig 连 broker 并建同步生产者
func NewOfflineNotifierFromConfig(c Config, topic string) (*OfflineNotifier, error) {
	p, err := sarama.NewSyncProducer(c.Brokers, BuildProducerConfig(c))
	if err != nil {
		return nil, errs.WrapMsg(err, "new kafka sync producer", "brokers", c.Brokers)
	}
	return NewOfflineNotifier(p, topic), nil
}

func (n *OfflineNotifier) Topic() string { return n.topic }

// NotifyOffline 同步发送；ctx 只用于提前放弃
func (n *OfflineNotifier) NotifyOffline(ctx context.Context, receiverID, frameType string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(OfflineEvent{Type: frameType, ReceiverID: receiverID, Data: data})
	if err != nil {
		return errs.WrapMsg(err, "marshal offline event")
	}
	_, _, err = n.producer.SendMessage(&sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(receiverID),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return errs.WrapMsg(err, "send offline event", "topic", n.topic, "receiver", receiverID)
	}
	return nil
}

func (n *OfflineNotifier) Close() error {
	return n.producer.Close()
}
