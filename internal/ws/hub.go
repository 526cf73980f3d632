package ws

import (
	"encoding/json"
	"sync/atomic"

	"geochat/internal/metrics"
	"geochat/internal/models"

	"github.com/rs/zerolog/log"
)

// UserDirectory 把注册表里的用户 id 解析成最新的用户记录。
type UserDirectory interface {
	ByIDs(ids []uint) ([]models.User, error)
}

type directMessage struct {
	to      uint
	payload []byte
}

type clientMessage struct {
	c       *Client
	payload []byte
}

// Hub 持有会话注册表（userID 与连接的双向映射），所有变更都在 Run 循环
// 这一个 goroutine 内完成，注册表不需要加锁。注册表只是进程内缓存，
// 重启后由客户端重连重建。
type Hub struct {
	users      UserDirectory
	clients    map[*Client]uint
	byUser     map[uint]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	direct     chan directMessage
	unicast    chan clientMessage
	online     int32
}

func NewHub(users UserDirectory) *Hub {
	return &Hub{
		users:      users,
		clients:    make(map[*Client]uint),
		byUser:     make(map[uint]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		direct:     make(chan directMessage, 256),
		unicast:    make(chan clientMessage, 256),
	}
}

// Register 把认证完成的连接交给 Run 循环登记。
func (h *Hub) Register(c *Client) { h.register <- c }

// Unregister 在连接关闭时调用，未登记过的连接是 no-op。
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// Broadcast 向所有在线会话投递一条消息，尽力而为。
func (h *Hub) Broadcast(payload []byte) { h.broadcast <- payload }

// SendDirect 向指定用户当前登记的会话单播，用户不在线则静默丢弃。
func (h *Hub) SendDirect(to uint, payload []byte) {
	h.direct <- directMessage{to: to, payload: payload}
}

// SendTo 向指定连接单播（error 事件、message_sent 回执走这里）。
// 经过 Run 循环串行化，连接已被剔除时静默丢弃。
func (h *Hub) SendTo(c *Client, payload []byte) {
	h.unicast <- clientMessage{c: c, payload: payload}
}

// Online 返回当前在线会话数。
func (h *Hub) Online() int { return int(atomic.LoadInt32(&h.online)) }

// Run 是网关的事件循环，独占注册表。
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case payload := <-h.broadcast:
			h.fanout(payload)
		case d := <-h.direct:
			if c, ok := h.byUser[d.to]; ok {
				h.send(c, d.payload)
			}
		case m := <-h.unicast:
			if _, ok := h.clients[m.c]; ok {
				h.send(m.c, m.payload)
			}
		}
	}
}

func (h *Hub) handleRegister(c *Client) {
	// 同一用户重复登录：替换注册表条目并关闭旧连接。
	if old, ok := h.byUser[c.userID]; ok && old != c {
		delete(h.clients, old)
		close(old.send)
		metrics.WsSessions.Dec()
	}
	h.clients[c] = c.userID
	h.byUser[c.userID] = c
	metrics.WsSessions.Inc()
	atomic.StoreInt32(&h.online, int32(len(h.clients)))

	evt := PresenceEvent{Type: EventUserConnected, ID: c.userID, Username: c.username, Lat: c.lat, Lon: c.lon}
	if b, err := json.Marshal(evt); err == nil {
		h.fanout(b)
	}
	h.sendInitialUsers(c)
}

func (h *Hub) handleUnregister(c *Client) {
	uid, ok := h.clients[c]
	if !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.WsSessions.Dec()
	// 被新连接替换过的旧条目不再指向 c，不能误删新条目，也不广播离线。
	if h.byUser[uid] == c {
		delete(h.byUser, uid)
		if b, err := json.Marshal(DisconnectEvent{Type: EventUserDisconnected, ID: uid}); err == nil {
			h.fanout(b)
		}
	}
	atomic.StoreInt32(&h.online, int32(len(h.clients)))
}

// fanout 广播给所有在线会话，写缓冲已满的慢连接直接剔除。
func (h *Hub) fanout(payload []byte) {
	for c := range h.clients {
		h.send(c, payload)
	}
}

func (h *Hub) send(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.evict(c)
	}
}

func (h *Hub) evict(c *Client) {
	uid, ok := h.clients[c]
	if !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if h.byUser[uid] == c {
		delete(h.byUser, uid)
	}
	metrics.WsSessions.Dec()
	atomic.StoreInt32(&h.online, int32(len(h.clients)))
}

// sendInitialUsers 把注册表快照按用户目录的最新数据解析后，单播给新连接。
func (h *Hub) sendInitialUsers(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	ids := make([]uint, 0, len(h.byUser))
	for id := range h.byUser {
		ids = append(ids, id)
	}
	users, err := h.users.ByIDs(ids)
	if err != nil {
		log.Warn().Err(err).Msg("resolve online users")
		return
	}
	infos := make([]UserInfo, 0, len(users))
	for _, u := range users {
		infos = append(infos, UserInfo{ID: u.ID, Username: u.Username, Lat: u.Lat, Lon: u.Lon})
	}
	if b, err := json.Marshal(InitialUsersEvent{Type: EventInitialUsers, Users: infos}); err == nil {
		h.send(c, b)
	}
}
