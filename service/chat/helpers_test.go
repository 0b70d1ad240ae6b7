package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"BelongingsHub/module/chat/model"
	"BelongingsHub/service/natsx"
	"BelongingsHub/tools/errs"
	"BelongingsHub/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeSaver struct {
	mu   sync.Mutex
	msgs []*model.ChatMessage
	err  error
}

func (f *fakeSaver) SaveMessage(_ context.Context, in model.SaveMessageParams) (*model.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	m := &model.ChatMessage{
		ID:            primitive.NewObjectID(),
		SenderID:      in.SenderID,
		ReceiverID:    in.ReceiverID,
		SenderModel:   in.SenderModel,
		ReceiverModel: in.ReceiverModel,
		Message:       in.Message,
		CreatedAt:     time.Now().UTC(),
	}
	f.msgs = append(f.msgs, m)
	return m, nil
}

func (f *fakeSaver) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSaver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

// tokenVerifier token 即 userID；"tech-" 前缀为技师
type tokenVerifier struct{}

func (tokenVerifier) VerifyToken(token string) (*security.Identity, error) {
	if token == "" {
		return nil, errs.ErrTokenMissing.Wrap()
	}
	if token == "bad" {
		return nil, errs.ErrTokenInvalid.Wrap()
	}
	kind := security.KindUser
	if strings.HasPrefix(token, "tech-") {
		kind = security.KindTechnician
	}
	return &security.Identity{UserID: token, Kind: kind}, nil
}

type fakeOffline struct {
	mu        sync.Mutex
	receivers []string
}

func (f *fakeOffline) NotifyOffline(_ context.Context, receiverID, _ string, _ any) error {
	f.mu.Lock()
	f.receivers = append(f.receivers, receiverID)
	f.mu.Unlock()
	return nil
}

func (f *fakeOffline) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.receivers)
}

type memPresence struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemPresence() *memPresence { return &memPresence{m: make(map[string]string)} }

func (p *memPresence) Online(_ context.Context, user, node string) error {
	p.mu.Lock()
	p.m[user] = node
	p.mu.Unlock()
	return nil
}

func (p *memPresence) Refresh(_ context.Context, user, node string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.m[user] == node, nil
}

func (p *memPresence) Offline(_ context.Context, user, node string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m[user] != node {
		return false, nil
	}
	delete(p.m, user)
	return true, nil
}

func (p *memPresence) Lookup(_ context.Context, user string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.m[user]
	return n, ok, nil
}

// memBus 进程内总线，publish 同步调用订阅者
type memBus struct {
	mu   sync.Mutex
	subs map[string]natsx.NatsxHandler
}

func newMemBus() *memBus { return &memBus{subs: make(map[string]natsx.NatsxHandler)} }

func (b *memBus) Publish(ctx context.Context, subject string, data []byte, hdr map[string]string) error {
	b.mu.Lock()
	h := b.subs[subject]
	b.mu.Unlock()
	if h == nil {
		return errors.New("no subscriber for " + subject)
	}
	return h(ctx, natsx.NatsxMessage{Subject: subject, Data: data, Header: hdr})
}

func (b *memBus) Subscribe(subject string, h natsx.NatsxHandler) error {
	b.mu.Lock()
	b.subs[subject] = h
	b.mu.Unlock()
	return nil
}

func newTestServer(t *testing.T, nodeID string, saver MessageSaver) (*Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := NewServer(Options{NodeID: nodeID, PongWait: 30 * time.Second}, saver, tokenVerifier{})
	r := gin.New()
	s.Register(r)
	hs := httptest.NewServer(r)
	t.Cleanup(func() {
		s.Shutdown(context.Background())
		hs.Close()
	})
	return s, "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
}

func dial(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()
	if token != "" {
		url += "?token=" + token
	}
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func connect(t *testing.T, s *Server, url, user string) *websocket.Conn {
	t.Helper()
	ws := dial(t, url, user)
	waitFor(t, user+" registered", func() bool {
		_, ok := s.GetClient(user)
		return ok
	})
	return ws
}

func sendChat(t *testing.T, ws *websocket.Conn, to, content string) {
	t.Helper()
	raw := `{"type":"chat_message","receiverId":"` + to + `","content":"` + content + `"}`
	if err := ws.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

type testFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, ws *websocket.Conn) testFrame {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var f testFrame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("unmarshal frame %s: %v", data, err)
	}
	return f
}

// expectSilence 连接在 d 内不应收到任何帧；超时后该连接不可再读
func expectSilence(t *testing.T, ws *websocket.Conn, d time.Duration) {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(d))
	if _, data, err := ws.ReadMessage(); err == nil {
		t.Fatalf("unexpected frame: %s", data)
	}
}
