package service

import (
	"context"

	"BelongingsHub/data/database"
	"BelongingsHub/data/database/mgo/mongoutil"
	"BelongingsHub/module/badge/model"
	"BelongingsHub/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore badges 集合
type MongoStore struct {
	db database.DBProvider
}

func NewMongoStore(db database.DBProvider) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) coll() (*mongo.Collection, error) {
	return database.CollectionFrom(s.db, model.Badge{})
}

// EnsureIndexes (user_id, name) 唯一，授予靠它保证幂等
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	coll, err := s.coll()
	if err != nil {
		return err
	}
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errs.WrapMsg(err, "create badges index")
}

// Insert 已存在返回 false, nil
func (s *MongoStore) Insert(ctx context.Context, b *model.Badge) (bool, error) {
	coll, err := s.coll()
	if err != nil {
		return false, err
	}
	res, err := coll.InsertOne(ctx, b)
	if err != nil {
		if mongoutil.IsDup(err) {
			return false, nil
		}
		return false, errs.WrapMsg(err, "insert badge", "user", b.UserID, "name", b.Name)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		b.ID = oid
	}
	return true, nil
}

func (s *MongoStore) ListByUser(ctx context.Context, userID string) ([]*model.Badge, error) {
	coll, err := s.coll()
	if err != nil {
		return nil, err
	}
	cur, err := coll.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "earned_at", Value: 1}}))
	if err != nil {
		return nil, errs.WrapMsg(err, "find badges", "user", userID)
	}
	defer cur.Close(ctx)

	out := make([]*model.Badge, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode badges")
	}
	return out, nil
}
