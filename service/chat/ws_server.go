package chat

import (
	"context"
	"net"
	"time"

	"BelongingsHub/logger"
	"BelongingsHub/tools/errs"
	"BelongingsHub/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	closeReasonMissingToken = "missing token"
	closeReasonInvalidToken = "invalid token"
	presenceOpTimeout       = 2 * time.Second
)

// HandleWS 握手：?token= 鉴权通过才登记，否则 1008 关闭
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 非 WebSocket 请求，Upgrade 已经写过 400
		logger.Infof("[WS] upgrade error: %v", err)
		return
	}

	token := c.Query("token")
	if token == "" {
		s.reject(ws, closeReasonMissingToken)
		return
	}
	id, err := s.verifier.VerifyToken(token)
	if err != nil {
		logger.Infof("[WS] token rejected remote=%s err=%v", ws.RemoteAddr(), err)
		s.reject(ws, closeReasonInvalidToken)
		return
	}

	client := NewClient(s.ids.GenerateString(), id.UserID, id.Kind, ws, s.opts.SendQueueSize)
	if prev := s.reg.Register(client); prev != nil {
		logger.Infof("[WS] user=%s replaced conn=%s by conn=%s", id.UserID, prev.ConnID, client.ConnID)
	}
	s.markOnline(client)
	logger.Infof("[WS] connected user=%s kind=%s conn=%s", client.UserID, client.Kind, client.ConnID)

	safe.Go("ws writer "+client.ConnID, func() { client.writePump(s.opts) })
	s.readLoop(client)

	s.reg.UnregisterClient(client)
	ctx, cancel := context.WithTimeout(context.Background(), presenceOpTimeout)
	s.clearPresence(ctx, client)
	cancel()
	client.Close()
	logger.Infof("[WS] closed user=%s conn=%s", client.UserID, client.ConnID)
}

func (s *Server) reject(ws *websocket.Conn, reason string) {
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(s.opts.WriteWait))
	_ = ws.Close()
}

// readLoop 只读不写；出错即退出
func (s *Server) readLoop(client *Client) {
	ws := client.WS
	ws.SetReadLimit(s.opts.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(s.opts.PongWait))
		s.refreshPresence(client)
		return nil
	})

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed conn=%s err=%v", client.ConnID, err)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout conn=%s err=%v", client.ConnID, err)
			} else {
				logger.Infof("[WS] read err conn=%s err=%v", client.ConnID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		s.handleFrame(client, data)
	}
}

func (s *Server) markOnline(client *Client) {
	if s.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceOpTimeout)
	defer cancel()
	if err := s.presence.Online(ctx, client.UserID, s.opts.NodeID); err != nil {
		logger.Warnf("[WS] presence online user=%s err=%v", client.UserID, err)
	}
}

func (s *Server) refreshPresence(client *Client) {
	if s.presence == nil {
		return
	}
	safe.Go("presence refresh", func() {
		ctx, cancel := context.WithTimeout(context.Background(), presenceOpTimeout)
		defer cancel()
		owned, err := s.presence.Refresh(ctx, client.UserID, s.opts.NodeID)
		if err != nil {
			logger.Warnf("[WS] presence refresh user=%s err=%v", client.UserID, err)
			return
		}
		if owned {
			return
		}
		// key 已过期且本节点仍持有该用户：重新登记；被别的节点占了就不抢
		if cur, ok := s.reg.Lookup(client.UserID); !ok || cur != client {
			return
		}
		if _, online, err := s.presence.Lookup(ctx, client.UserID); err != nil || online {
			return
		}
		if err := s.presence.Online(ctx, client.UserID, s.opts.NodeID); err != nil {
			logger.Warnf("[WS] presence re-online user=%s err=%v", client.UserID, errs.Wrap(err))
		}
	})
}

// clearPresence 本节点已无该用户连接时才清除
func (s *Server) clearPresence(ctx context.Context, client *Client) {
	if s.presence == nil {
		return
	}
	if _, still := s.reg.Lookup(client.UserID); still {
		return
	}
	if _, err := s.presence.Offline(ctx, client.UserID, s.opts.NodeID); err != nil {
		logger.Warnf("[WS] presence offline user=%s err=%v", client.UserID, err)
	}
}
