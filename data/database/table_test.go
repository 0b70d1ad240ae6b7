package database

import (
	"errors"
	"testing"

	"BelongingsHub/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
)

type tbl struct{}

func (tbl) GetTableName() string { return "things" }

func TestCollectionFromUnavailable(t *testing.T) {
	if _, err := CollectionFrom(nil, tbl{}); !errors.Is(err, errs.ErrInternalServer) {
		t.Errorf("nil provider: err = %v", err)
	}
	if _, err := CollectionFrom(Static(nil), tbl{}); !errors.Is(err, errs.ErrInternalServer) {
		t.Errorf("nil db: err = %v", err)
	}
}

func TestCollectionFromFollowsProvider(t *testing.T) {
	cli, err := mongo.NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	dbs := []*mongo.Database{cli.Database("a"), cli.Database("b")}
	cur := 0
	p := DBProvider(func() (*mongo.Database, bool) { return dbs[cur], true })

	c1, _ := CollectionFrom(p, tbl{})
	cur = 1
	c2, _ := CollectionFrom(p, tbl{})
	if c1.Database().Name() != "a" || c2.Database().Name() != "b" {
		t.Errorf("collections from %s then %s, want a then b", c1.Database().Name(), c2.Database().Name())
	}
	if c2.Name() != "things" {
		t.Errorf("collection name = %s", c2.Name())
	}
}
