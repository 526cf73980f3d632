package ws

import "time"

// 实时事件统一用带 type 判别字段的 JSON 信封。
const (
	EventUserConnected    = "user_connected"
	EventUserDisconnected = "user_disconnected"
	EventLocationUpdate   = "location_update"
	EventInitialUsers     = "initial_users"
	EventPrivateMessage   = "private_message"
	EventError            = "error"
	EventMessageSent      = "message_sent"
	EventNewMessage       = "new_message"
)

// PresenceEvent 既用于 user_connected 也用于 location_update 广播。
type PresenceEvent struct {
	Type     string   `json:"type"`
	ID       uint     `json:"id"`
	Username string   `json:"username"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
}

type DisconnectEvent struct {
	Type string `json:"type"`
	ID   uint   `json:"id"`
}

type UserInfo struct {
	ID       uint     `json:"id"`
	Username string   `json:"username"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
}

// InitialUsersEvent 只发给新建立的连接，内容是当前注册表的快照。
type InitialUsersEvent struct {
	Type  string     `json:"type"`
	Users []UserInfo `json:"users"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// MessageEvent 同时用于 message_sent 回执与 new_message 投递，payload 完全一致。
type MessageEvent struct {
	Type      string    `json:"type"`
	ID        uint      `json:"id"`
	From      uint      `json:"from"`
	To        uint      `json:"to"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
