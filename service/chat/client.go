package chat

import (
	"sync"
	"time"

	"BelongingsHub/logger"

	"github.com/gorilla/websocket"
)

// Client 一条已鉴权的 WebSocket 连接。
// 写只发生在 writePump 一个协程里，其他协程通过 Send 投递。
type Client struct {
	ConnID string
	UserID string
	Kind   string // User / Technician
	WS     *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(connID, userID, kind string, ws *websocket.Conn, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 64
	}
	return &Client{
		ConnID: connID,
		UserID: userID,
		Kind:   kind,
		WS:     ws,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// Send 非阻塞投递；连接已关或队列满返回 false
func (c *Client) Send(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		logger.Warnf("[WS] send queue full, drop conn=%s user=%s", c.ConnID, c.UserID)
		return false
	}
}

// Close 通知写协程发 close 帧并关闭底层连接；可重复调用
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) writePump(opts Options) {
	ticker := time.NewTicker(opts.PingPeriod)
	defer func() {
		ticker.Stop()
		// 写失败退出时也要标记关闭，Send 之后立即返回 false
		c.Close()
		_ = c.WS.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[WS] write err conn=%s user=%s err=%v", c.ConnID, c.UserID, err)
				return
			}

		case <-ticker.C:
			if err := c.WS.WriteControl(websocket.PingMessage, nil, time.Now().Add(opts.WriteWait)); err != nil {
				logger.Infof("[WS] ping err conn=%s user=%s err=%v", c.ConnID, c.UserID, err)
				return
			}

		case <-c.done:
			_ = c.WS.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(opts.WriteWait))
			return
		}
	}
}
