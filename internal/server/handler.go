package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"geochat/internal/auth"
	"geochat/internal/metrics"
	"geochat/internal/service"
	"geochat/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handler 聚合所有 HTTP handler，依赖注入 service 层和实时网关。
type Handler struct {
	userSvc *service.UserService
	msgSvc  *service.MessageService
	hub     *ws.Hub
}

func NewHandler(userSvc *service.UserService, msgSvc *service.MessageService, hub *ws.Hub) *Handler {
	return &Handler{userSvc: userSvc, msgSvc: msgSvc, hub: hub}
}

// Register 处理用户注册请求，成功时返回签发的 token。
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}
	if len(req.Username) > 80 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid username"})
		return
	}
	user, err := h.userSvc.Register(req.Username)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username taken"})
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("register")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "username": user.Username, "token": user.Token})
}

// Me 返回当前 token 对应的用户资料。
func (h *Handler) Me(c *gin.Context) {
	user := auth.GetUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	c.JSON(http.StatusOK, service.NewUserDTO(*user))
}

// UpdateLocation 持久化新坐标并向所有实时会话广播 location_update，
// 调用方自己是否在线不影响广播。
func (h *Handler) UpdateLocation(c *gin.Context) {
	var req struct {
		Lat interface{} `json:"lat"`
		Lon interface{} `json:"lon"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat & lon required"})
		return
	}
	lat, ok1 := toFloat(req.Lat)
	lon, ok2 := toFloat(req.Lon)
	if !ok1 || !ok2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat & lon required"})
		return
	}
	user, err := h.userSvc.UpdateLocation(auth.GetUserID(c), lat, lon)
	if err != nil {
		log.Error().Err(err).Uint("user_id", auth.GetUserID(c)).Msg("update location")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update location"})
		return
	}
	metrics.LocationUpdatesTotal.Inc()

	evt := ws.PresenceEvent{Type: ws.EventLocationUpdate, ID: user.ID, Username: user.Username, Lat: user.Lat, Lon: user.Lon}
	if b, err := json.Marshal(evt); err == nil {
		h.hub.Broadcast(b)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListUsers 返回全部用户，无需认证。
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.userSvc.List()
	if err != nil {
		log.Error().Err(err).Msg("list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

// History 返回调用方与指定用户之间双向的消息记录。
func (h *Handler) History(c *gin.Context) {
	otherID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil || otherID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	msgs, err := h.msgSvc.History(auth.GetUserID(c), uint(otherID))
	if err != nil {
		log.Error().Err(err).Int("other_id", otherID).Msg("list messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// toFloat 接受 JSON 数字或数字字符串，其余一律视为非法输入。
func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
