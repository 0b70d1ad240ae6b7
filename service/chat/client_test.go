package chat

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWritePumpClosesClientOnWriteError(t *testing.T) {
	accepted := make(chan *websocket.Conn, 1)
	hs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- ws
	}))
	defer hs.Close()

	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(hs.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer peer.Close()

	var ws *websocket.Conn
	select {
	case ws = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatalf("upgrade timed out")
	}

	c := NewClient("c1", "u1", "User", ws, 4)
	_ = ws.UnderlyingConn().Close()
	go c.writePump(Options{PingPeriod: time.Hour, WriteWait: time.Second})

	if !c.Send([]byte(`{"type":"chat_message"}`)) {
		t.Fatalf("Send before write failure rejected")
	}
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("client not closed after write error")
	}
	if !c.Closed() {
		t.Errorf("Closed = false")
	}
	if c.Send([]byte("x")) {
		t.Errorf("Send after write failure accepted")
	}
}

// 写协程已退出但尚未注销的连接不算在线，走离线通知
func TestChatToDeadLocalClientGoesOffline(t *testing.T) {
	saver := &fakeSaver{}
	off := &fakeOffline{}
	s, url := newTestServer(t, "n1", saver)
	s.SetOfflineNotifier(off)

	dead := NewClient("c-dead", "bob", "User", nil, 1)
	dead.Close()
	s.reg.Register(dead)

	a := connect(t, s, url, "a")
	sendChat(t, a, "bob", "hello")
	waitFor(t, "record persisted", func() bool { return saver.count() == 1 })
	waitFor(t, "offline event", func() bool { return off.count() == 1 })
}
