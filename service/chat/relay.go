package chat

import (
	"context"
	"errors"

	"BelongingsHub/logger"
	"BelongingsHub/module/chat/model"

	"go.uber.org/zap"
)

func (s *Server) handleFrame(client *Client, raw []byte) {
	f, err := ParseInbound(raw)
	if err != nil {
		sample := raw
		if len(sample) > 256 {
			sample = sample[:256]
		}
		logger.Warn("[Relay] bad frame",
			zap.String("conn", client.ConnID),
			zap.String("user", client.UserID),
			zap.ByteString("sample", sample),
			zap.Error(err))
		return
	}

	switch f.Type {
	case FrameChatMessage:
		s.handleChatMessage(client, f)
	case FrameBadgeEarned:
		// 只允许服务端下发，客户端发上来直接忽略
	default:
		logger.Infof("[Relay] unknown frame type=%q user=%s", f.Type, client.UserID)
	}
}

// handleChatMessage 先落库，成功后再转发；落库失败不转发
func (s *Server) handleChatMessage(client *Client, f *InboundFrame) {
	if f.ReceiverID == "" || f.Content == "" {
		logger.Infof("[Relay] drop chat_message without receiver or content user=%s", client.UserID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.PersistTimeout)
	defer cancel()

	msg, err := s.saver.SaveMessage(ctx, model.SaveMessageParams{
		SenderID:      client.UserID,
		ReceiverID:    f.ReceiverID,
		Message:       f.Content,
		SenderModel:   client.Kind,
		ReceiverModel: f.ReceiverModel,
	})
	if err != nil {
		logger.Error("[Relay] persist chat message failed",
			zap.String("sender", client.UserID),
			zap.String("receiver", f.ReceiverID),
			zap.Error(err))
		return
	}

	for _, h := range s.hooks {
		h(ctx, msg)
	}

	payload, err := EncodeFrame(FrameChatMessage, msg)
	if err != nil {
		logger.Errorf("[Relay] encode chat frame: %v", err)
		return
	}
	switch s.deliver(ctx, msg.ReceiverID, payload) {
	case deliveredLocal, deliveredRemote:
	case deliveredNone:
		s.notifyOffline(ctx, msg.ReceiverID, FrameChatMessage, msg)
	}
}

type delivery int

const (
	deliveredNone delivery = iota
	deliveredLocal
	deliveredRemote
)

// deliver 本地 -> 跨节点；都不在返回 deliveredNone
func (s *Server) deliver(ctx context.Context, userID string, payload []byte) delivery {
	if c, ok := s.reg.Lookup(userID); ok {
		// 队列满时 Send 已记日志丢弃；用户就在本节点，不再往外找
		if c.Send(payload) || !c.Closed() {
			return deliveredLocal
		}
		// 写协程已退出但还没注销，按不在本节点处理
	}
	if s.presence == nil || s.broker == nil {
		return deliveredNone
	}

	nodeID, online, err := s.presence.Lookup(ctx, userID)
	if err != nil {
		logger.Warnf("[Relay] presence lookup user=%s err=%v", userID, err)
		return deliveredNone
	}
	if !online || nodeID == s.opts.NodeID {
		return deliveredNone
	}
	if err := s.broker.Forward(ctx, nodeID, userID, payload); err != nil {
		logger.Warnf("[Relay] forward to node=%s user=%s err=%v", nodeID, userID, err)
		return deliveredNone
	}
	return deliveredRemote
}

func (s *Server) notifyOffline(ctx context.Context, receiverID, frameType string, data any) {
	if s.offline == nil {
		return
	}
	if err := s.offline.NotifyOffline(ctx, receiverID, frameType, data); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warnf("[Relay] offline notify receiver=%s err=%v", receiverID, err)
	}
}
