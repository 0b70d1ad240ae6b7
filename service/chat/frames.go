package chat

import (
	"encoding/json"

	"BelongingsHub/tools/decode"
	"BelongingsHub/tools/errs"
)

// 帧类型
const (
	FrameChatMessage = "chat_message"
	FrameBadgeEarned = "badge_earned" // 只由服务端下发
)

// InboundFrame 客户端上行帧
type InboundFrame struct {
	Type          string `json:"type"`
	ReceiverID    string `json:"receiverId"`
	Content       string `json:"content"`
	ReceiverModel string `json:"receiverModel"`
}

// OutboundFrame 服务端下行帧
type OutboundFrame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type BadgeData struct {
	BadgeName string `json:"badgeName"`
}

// ParseInbound 宽松解码：receiverId 传数字也认
func ParseInbound(raw []byte) (*InboundFrame, error) {
	f, err := decode.DecodeJSON[InboundFrame](raw)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg("bad frame", "err", err)
	}
	return f, nil
}

func EncodeFrame(frameType string, data any) ([]byte, error) {
	b, err := json.Marshal(OutboundFrame{Type: frameType, Data: data})
	if err != nil {
		return nil, errs.WrapMsg(err, "marshal frame", "type", frameType)
	}
	return b, nil
}
