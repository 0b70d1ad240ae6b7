package model

import (
	"strings"
	"time"

	"BelongingsHub/tools/errs"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const ChatMessageTableName = "chat_messages"

// 会话参与方类型
const (
	KindUser       = "User"
	KindTechnician = "Technician"
)

// ChatMessage 一条单聊消息；落库后只有 Read 会变
type ChatMessage struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SenderID      string             `bson:"sender_id" json:"senderId"`
	ReceiverID    string             `bson:"receiver_id" json:"receiverId"`
	SenderModel   string             `bson:"sender_model" json:"senderModel"`
	ReceiverModel string             `bson:"receiver_model" json:"receiverModel"`
	Message       string             `bson:"message" json:"message"`
	Read          bool               `bson:"read" json:"read"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
}

func (ChatMessage) GetTableName() string {
	return ChatMessageTableName
}

// SaveMessageParams 落库入参
type SaveMessageParams struct {
	SenderID      string
	ReceiverID    string
	Message       string
	SenderModel   string
	ReceiverModel string
}

// Normalize 去空白、补默认参与方类型并校验
func (p *SaveMessageParams) Normalize() error {
	p.SenderID = strings.TrimSpace(p.SenderID)
	p.ReceiverID = strings.TrimSpace(p.ReceiverID)
	if p.SenderID == "" || p.ReceiverID == "" {
		return errs.ErrArgs.WrapMsg("sender and receiver are required")
	}
	if strings.TrimSpace(p.Message) == "" {
		return errs.ErrArgs.WrapMsg("message is empty")
	}
	if p.SenderModel == "" {
		p.SenderModel = KindUser
	}
	if p.ReceiverModel == "" {
		p.ReceiverModel = KindUser
	}
	if !ValidKind(p.SenderModel) || !ValidKind(p.ReceiverModel) {
		return errs.ErrArgs.WrapMsg("unknown participant model", "sender", p.SenderModel, "receiver", p.ReceiverModel)
	}
	return nil
}

func ValidKind(k string) bool {
	return k == KindUser || k == KindTechnician
}

// UnreadCount 按发送方聚合的未读数
type UnreadCount struct {
	SenderID string `bson:"_id" json:"senderId"`
	Count    int64  `bson:"count" json:"count"`
}
