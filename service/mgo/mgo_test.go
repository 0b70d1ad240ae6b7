package mgo

import (
	"context"
	"errors"
	"testing"
	"time"

	"BelongingsHub/data/database"
	mgo "BelongingsHub/data/database/mgo/mongoutil"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestBackoffBounds(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := backoffFor(attempt)
		if d <= 0 || d > maxBackoff {
			t.Fatalf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
	if d := backoffFor(0); d > baseBackoff {
		t.Errorf("first backoff %v larger than base %v", d, baseBackoff)
	}
}

func TestWaitReadyHonoursContext(t *testing.T) {
	m := NewManager(&mgo.Config{Uri: "mongodb://127.0.0.1:1", Database: "hub"})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := m.WaitReady(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if _, ok := m.TryGetDB(); ok {
		t.Errorf("TryGetDB should report not ready")
	}
}

func lazyClient(t *testing.T, db string) *mgo.Client {
	t.Helper()
	cli, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return mgo.WrapClient(cli, db)
}

// 重连换客户端后，拿着 TryGetDB 的调用方取到的是新库，旧客户端交给调用方断开
func TestSwapFollowedByProvider(t *testing.T) {
	m := NewManager(&mgo.Config{Database: "hub"})
	first, second := lazyClient(t, "first"), lazyClient(t, "second")
	provider := database.DBProvider(m.TryGetDB)

	if old := m.swap(first); old != nil {
		t.Fatalf("swap on empty manager returned %v", old)
	}
	if db, ok := provider(); !ok || db.Name() != "first" {
		t.Fatalf("provider = %v,%v, want first", db, ok)
	}

	if old := m.swap(second); old != first {
		t.Errorf("swap returned %p, want previous client %p", old, first)
	}
	_ = first.Disconnect(context.Background())
	if db, ok := provider(); !ok || db.Name() != "second" {
		t.Errorf("provider after reconnect = %v,%v, want second", db, ok)
	}

	m.Close()
	if _, ok := provider(); ok {
		t.Errorf("provider still ready after Close")
	}
}
