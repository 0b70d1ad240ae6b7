package service

import (
	"context"
	"time"

	"BelongingsHub/data/database"
	"BelongingsHub/module/chat/model"
	"BelongingsHub/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// MessageService 单聊消息的落库与查询
type MessageService struct {
	db  database.DBProvider
	now func() time.Time
}

// NewMessageService db 每次操作时取，Mongo 重连后自动跟上新客户端
func NewMessageService(db database.DBProvider) *MessageService {
	return &MessageService{db: db, now: time.Now}
}

func (s *MessageService) coll() (*mongo.Collection, error) {
	return database.CollectionFrom(s.db, model.ChatMessage{})
}

// EnsureIndexes 会话翻页 + 未读统计
func (s *MessageService) EnsureIndexes(ctx context.Context) error {
	coll, err := s.coll()
	if err != nil {
		return err
	}
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "read", Value: 1}}},
	})
	return errs.WrapMsg(err, "create chat_messages indexes")
}

func (s *MessageService) SaveMessage(ctx context.Context, in model.SaveMessageParams) (*model.ChatMessage, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	msg := &model.ChatMessage{
		SenderID:      in.SenderID,
		ReceiverID:    in.ReceiverID,
		SenderModel:   in.SenderModel,
		ReceiverModel: in.ReceiverModel,
		Message:       in.Message,
		Read:          false,
		// Mongo 只存毫秒
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	coll, err := s.coll()
	if err != nil {
		return nil, err
	}
	res, err := coll.InsertOne(ctx, msg)
	if err != nil {
		return nil, errs.WrapMsg(err, "insert chat message", "sender", in.SenderID, "receiver", in.ReceiverID)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid
	}
	return msg, nil
}

// ListConversation a、b 双向消息，按时间倒序；before 非零时只取更早的
func (s *MessageService) ListConversation(ctx context.Context, a, b string, limit int64, before time.Time) ([]*model.ChatMessage, error) {
	if a == "" || b == "" {
		return nil, errs.ErrArgs.WrapMsg("both participants are required")
	}
	coll, err := s.coll()
	if err != nil {
		return nil, err
	}
	cur, err := coll.Find(ctx, conversationFilter(a, b, before), pageOptions(limit))
	if err != nil {
		return nil, errs.WrapMsg(err, "find conversation", "a", a, "b", b)
	}
	defer cur.Close(ctx)

	out := make([]*model.ChatMessage, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode conversation")
	}
	return out, nil
}

// MarkRead 把 sender 发给 receiver 的未读消息全部置为已读
func (s *MessageService) MarkRead(ctx context.Context, receiverID, senderID string) (int64, error) {
	if receiverID == "" || senderID == "" {
		return 0, errs.ErrArgs.WrapMsg("receiver and sender are required")
	}
	coll, err := s.coll()
	if err != nil {
		return 0, err
	}
	res, err := coll.UpdateMany(ctx,
		bson.M{"receiver_id": receiverID, "sender_id": senderID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, errs.WrapMsg(err, "mark read", "receiver", receiverID, "sender", senderID)
	}
	return res.ModifiedCount, nil
}

func (s *MessageService) CountUnread(ctx context.Context, userID string) ([]model.UnreadCount, error) {
	coll, err := s.coll()
	if err != nil {
		return nil, err
	}
	cur, err := coll.Aggregate(ctx, unreadPipeline(userID))
	if err != nil {
		return nil, errs.WrapMsg(err, "aggregate unread", "user", userID)
	}
	defer cur.Close(ctx)

	out := make([]model.UnreadCount, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode unread")
	}
	return out, nil
}

// CountSent 用户发出的消息总数，徽章 messages 指标用
func (s *MessageService) CountSent(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, errs.ErrArgs.WrapMsg("user is required")
	}
	coll, err := s.coll()
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, bson.M{"sender_id": userID})
	if err != nil {
		return 0, errs.WrapMsg(err, "count sent", "user", userID)
	}
	return n, nil
}

func conversationFilter(a, b string, before time.Time) bson.M {
	f := bson.M{"$or": bson.A{
		bson.M{"sender_id": a, "receiver_id": b},
		bson.M{"sender_id": b, "receiver_id": a},
	}}
	if !before.IsZero() {
		f["created_at"] = bson.M{"$lt": before}
	}
	return f
}

func pageOptions(limit int64) *options.FindOptions {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
}

func unreadPipeline(userID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"receiver_id": userID, "read": false}}},
		{{Key: "$group", Value: bson.M{"_id": "$sender_id", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}
}
