package natsx

import (
	"context"
	"testing"
	"time"
)

func TestMemIdemSeenOnce(t *testing.T) {
	mi := NewMemIdem(time.Minute)
	defer mi.Close()

	now := time.Unix(1000, 0)
	mi.now = func() time.Time { return now }

	if seen, _ := mi.SeenOnce("a", 0); seen {
		t.Fatalf("first sighting reported as seen")
	}
	if seen, _ := mi.SeenOnce("a", 0); !seen {
		t.Fatalf("second sighting not reported")
	}

	now = now.Add(2 * time.Minute)
	if seen, _ := mi.SeenOnce("a", 0); seen {
		t.Errorf("expired key still reported as seen")
	}

	now = now.Add(5 * time.Minute)
	mi.sweep()
	if len(mi.m) != 0 {
		t.Errorf("sweep left %d keys", len(mi.m))
	}
}

func TestIdemMiddlewareDropsDuplicates(t *testing.T) {
	mi := NewMemIdem(time.Minute)
	defer mi.Close()

	calls := 0
	h := NatsxChain(func(ctx context.Context, msg NatsxMessage) error {
		calls++
		return nil
	}, NatsxIdemMiddleware(mi, time.Minute))

	msg := NatsxMessage{Subject: "relay.node.a", Data: []byte("x"), Header: map[string]string{HeaderMsgID: "m1"}}
	_ = h(context.Background(), msg)
	_ = h(context.Background(), msg)
	_ = h(context.Background(), NatsxMessage{Subject: "relay.node.a", Data: []byte("x"), Header: map[string]string{HeaderMsgID: "m2"}})

	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
}

func TestNatsxChainOrder(t *testing.T) {
	var order []string
	mk := func(name string) NatsxMiddleware {
		return func(next NatsxHandler) NatsxHandler {
			return func(ctx context.Context, msg NatsxMessage) error {
				order = append(order, name)
				return next(ctx, msg)
			}
		}
	}
	h := NatsxChain(func(context.Context, NatsxMessage) error {
		order = append(order, "handler")
		return nil
	}, mk("outer"), mk("inner"))
	_ = h(context.Background(), NatsxMessage{})

	want := []string{"outer", "inner", "handler"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := mapToHeader(map[string]string{HeaderMsgID: "m1"})
	m := headerToMap(h)
	if m[HeaderMsgID] != "m1" {
		t.Errorf("header map = %v", m)
	}
	if mapToHeader(nil) != nil || headerToMap(nil) != nil {
		t.Errorf("empty header should map to nil")
	}
}
