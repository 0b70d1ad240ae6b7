package database

import (
	"BelongingsHub/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
)

// Table 每个集合模型实现，集合名集中在模型上
type Table interface {
	GetTableName() string
}

func Collection(db *mongo.Database, t Table) *mongo.Collection {
	return db.Collection(t.GetTableName())
}

// DBProvider 每次调用取当前的库；Mongo 重连换了客户端后返回新客户端的库
type DBProvider func() (*mongo.Database, bool)

// Static 固定一个库，测试和一次性工具用
func Static(db *mongo.Database) DBProvider {
	return func() (*mongo.Database, bool) { return db, db != nil }
}

// CollectionFrom 按当前客户端取集合；未连上返回 ErrInternalServer
func CollectionFrom(p DBProvider, t Table) (*mongo.Collection, error) {
	if p == nil {
		return nil, errs.ErrInternalServer.WrapMsg("mongo not configured")
	}
	db, ok := p()
	if !ok || db == nil {
		return nil, errs.ErrInternalServer.WrapMsg("mongo unavailable", "collection", t.GetTableName())
	}
	return Collection(db, t), nil
}
