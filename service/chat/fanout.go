package chat

import (
	"context"
	"encoding/json"

	"BelongingsHub/logger"
	"BelongingsHub/service/natsx"
	"BelongingsHub/tools/errs"

	"github.com/google/uuid"
)

// Bus 跨节点消息总线（NATS core）
type Bus interface {
	Publish(ctx context.Context, subject string, data []byte, hdr map[string]string) error
	Subscribe(subject string, h natsx.NatsxHandler) error
}

// envelope 节点间转发的信封
type envelope struct {
	UserID string          `json:"userId"`
	Frame  json.RawMessage `json:"frame"`
}

// NodeFanout 每个节点订阅 <prefix>.<nodeId>，发往别的节点就 publish 到对方 subject
type NodeFanout struct {
	bus    Bus
	prefix string
	nodeID string
}

func NewNodeFanout(bus Bus, prefix, nodeID string) *NodeFanout {
	if prefix == "" {
		prefix = "relay.node"
	}
	return &NodeFanout{bus: bus, prefix: prefix, nodeID: nodeID}
}

func (f *NodeFanout) Subject(nodeID string) string {
	return f.prefix + "." + nodeID
}

// Forward 实现 Broker
func (f *NodeFanout) Forward(ctx context.Context, nodeID, userID string, frame []byte) error {
	b, err := json.Marshal(envelope{UserID: userID, Frame: frame})
	if err != nil {
		return errs.WrapMsg(err, "marshal envelope")
	}
	hdr := map[string]string{natsx.HeaderMsgID: uuid.NewString()}
	if err := f.bus.Publish(ctx, f.Subject(nodeID), b, hdr); err != nil {
		return errs.WrapMsg(err, "publish envelope", "node", nodeID, "user", userID)
	}
	return nil
}

// Start 订阅本节点 subject，收到后交给 deliver 投本地连接
func (f *NodeFanout) Start(deliver func(userID string, frame []byte) bool) error {
	return f.bus.Subscribe(f.Subject(f.nodeID), func(_ context.Context, msg natsx.NatsxMessage) error {
		var env envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			return errs.WrapMsg(err, "bad envelope", "subject", msg.Subject)
		}
		if env.UserID == "" || len(env.Frame) == 0 {
			return nil
		}
		if !deliver(env.UserID, env.Frame) {
			// presence 过期前用户已经断开，丢弃
			logger.Infof("[Fanout] user=%s not on node=%s, drop", env.UserID, f.nodeID)
		}
		return nil
	})
}
