package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"geochat/internal/auth"
	"geochat/internal/metrics"
	"geochat/internal/models"
	"geochat/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

// MessageStore 落库一条私信，是实时路径上唯一的持久化副作用。
type MessageStore interface {
	Send(senderID, receiverID uint, content string) (*models.Message, error)
}

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	msgs     MessageStore
	userID   uint
	username string
	lat      *float64
	lon      *float64
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type inboundEvent struct {
	Type    string      `json:"type"`
	To      interface{} `json:"to"`
	Content *string     `json:"content"`
}

// Serve 处理 WebSocket 握手：先认证再升级，token 无效直接拒绝，
// 不会产生任何会话或广播。
func Serve(h *Hub, gdb *gorm.DB, msgs MessageStore, sendBuffer int) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.ResolveToken(gdb, auth.HandshakeToken(c.Request))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := &Client{
			hub:      h,
			conn:     conn,
			send:     make(chan []byte, sendBuffer),
			msgs:     msgs,
			userID:   user.ID,
			username: user.Username,
			lat:      user.Lat,
			lon:      user.Lon,
		}
		h.Register(client)

		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(1 << 20) // 1MB
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var in inboundEvent
		if err := json.Unmarshal(data, &in); err != nil {
			c.sendError("invalid payload")
			continue
		}
		if in.Type != EventPrivateMessage {
			continue
		}
		c.handlePrivateMessage(in)
	}
}

// handlePrivateMessage 按提交顺序处理：校验、落库、投递、回执。
// 所有失败只会给发送方回一条本地 error 事件。
func (c *Client) handlePrivateMessage(in inboundEvent) {
	to, ok := parseUserID(in.To)
	if !ok {
		c.sendError("invalid recipient id")
		return
	}
	if in.Content == nil {
		c.sendError("content required")
		return
	}
	msg, err := c.msgs.Send(c.userID, to, *in.Content)
	if err != nil {
		if errors.Is(err, service.ErrRecipientNotFound) {
			c.sendError("recipient not found")
			return
		}
		c.sendError("failed to send message")
		return
	}
	metrics.MessagesTotal.Inc()

	evt := MessageEvent{ID: msg.ID, From: msg.SenderID, To: msg.ReceiverID, Content: msg.Content, Timestamp: msg.CreatedAt.UTC()}

	evt.Type = EventNewMessage
	if b, err := json.Marshal(evt); err == nil {
		c.hub.SendDirect(to, b)
	}
	// 无论收件人是否在线，发送方都收到一条 message_sent 回执。
	evt.Type = EventMessageSent
	if b, err := json.Marshal(evt); err == nil {
		c.hub.SendTo(c, b)
	}
}

func (c *Client) sendError(msg string) {
	if b, err := json.Marshal(ErrorEvent{Type: EventError, Error: msg}); err == nil {
		c.hub.SendTo(c, b)
	}
}

// parseUserID 接受 JSON 数字或数字字符串形式的用户 id。
func parseUserID(v interface{}) (uint, bool) {
	switch t := v.(type) {
	case float64:
		if t <= 0 || t != float64(uint(t)) {
			return 0, false
		}
		return uint(t), true
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		if err != nil || n == 0 {
			return 0, false
		}
		return uint(n), true
	default:
		return 0, false
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			_ = w.Close()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
