package chat

import (
	"context"
	"net/http"
	"time"

	"BelongingsHub/module/chat/model"
	"BelongingsHub/tools/ids"
	"BelongingsHub/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// MessageSaver 消息落库
type MessageSaver interface {
	SaveMessage(ctx context.Context, in model.SaveMessageParams) (*model.ChatMessage, error)
}

type TokenVerifier interface {
	VerifyToken(token string) (*security.Identity, error)
}

// PresenceStore 用户 -> 节点 的在线登记
type PresenceStore interface {
	Online(ctx context.Context, user, nodeID string) error
	Refresh(ctx context.Context, user, nodeID string) (bool, error)
	Offline(ctx context.Context, user, nodeID string) (bool, error)
	Lookup(ctx context.Context, user string) (nodeID string, online bool, err error)
}

// Broker 把下行帧转给持有该用户的其他节点
type Broker interface {
	Forward(ctx context.Context, nodeID, userID string, frame []byte) error
}

// OfflineNotifier 任何节点都不在线时，交给推送服务
type OfflineNotifier interface {
	NotifyOffline(ctx context.Context, receiverID, frameType string, data any) error
}

// MessageHook 落库成功后回调（徽章统计等），不影响转发
type MessageHook func(ctx context.Context, msg *model.ChatMessage)

type Options struct {
	NodeID         string
	SendQueueSize  int
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	PersistTimeout time.Duration
}

func (o *Options) norm() {
	if o.NodeID == "" {
		o.NodeID = "relay-1"
	}
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 64
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 << 10
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = 10 * time.Second
	}
}

// Server 一个 relay 节点：握手鉴权、连接登记、消息转发、徽章推送
type Server struct {
	opts     Options
	reg      *Registry
	saver    MessageSaver
	verifier TokenVerifier
	ids      *ids.Node
	upgrader websocket.Upgrader

	presence PresenceStore
	broker   Broker
	offline  OfflineNotifier
	hooks    []MessageHook
}

func NewServer(opts Options, saver MessageSaver, verifier TokenVerifier) *Server {
	opts.norm()
	return &Server{
		opts:     opts,
		reg:      NewRegistry(),
		saver:    saver,
		verifier: verifier,
		ids:      ids.NewNode(1),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// 可选组件，启动前设置
func (s *Server) SetPresence(p PresenceStore)          { s.presence = p }
func (s *Server) SetBroker(b Broker)                   { s.broker = b }
func (s *Server) SetOfflineNotifier(n OfflineNotifier) { s.offline = n }
func (s *Server) SetIDNode(n *ids.Node)                { s.ids = n }
func (s *Server) AddMessageHook(h MessageHook)         { s.hooks = append(s.hooks, h) }

func (s *Server) NodeID() string       { return s.opts.NodeID }
func (s *Server) Registry() *Registry { return s.reg }

// GetClient 供徽章等协作方查当前连接
func (s *Server) GetClient(userID string) (*Client, bool) {
	return s.reg.Lookup(userID)
}

// Register 挂载 WebSocket 入口
func (s *Server) Register(r gin.IRoutes) {
	r.GET("/ws", s.HandleWS)
	r.GET("/", s.HandleWS)
}

// DeliverLocal 投给本节点的连接；跨节点订阅的落点
func (s *Server) DeliverLocal(userID string, frame []byte) bool {
	c, ok := s.reg.Lookup(userID)
	if !ok {
		return false
	}
	return c.Send(frame)
}

// Shutdown 关闭本节点全部连接
func (s *Server) Shutdown(ctx context.Context) {
	for _, c := range s.reg.snapshot() {
		s.reg.UnregisterClient(c)
		s.clearPresence(ctx, c)
		c.Close()
	}
}
