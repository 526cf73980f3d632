package auth

import (
	"errors"
	"net/http"
	"strings"

	"geochat/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidToken = errors.New("invalid token")

// NewToken 签发一个不透明的 bearer token（uuid4 格式）。
func NewToken() string {
	return uuid.NewString()
}

// BearerToken 从 Authorization 头中取出 bearer token，没有则返回空串。
func BearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}

// HandshakeToken 取 WebSocket 握手携带的 token：优先 query 参数，
// 其次 Authorization 头（部分客户端环境握手时无法自定义头）。
func HandshakeToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	return BearerToken(r)
}

// ResolveToken 将 token 解析为对应的用户记录。
func ResolveToken(gdb *gorm.DB, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	var user models.User
	if err := gdb.Where("token = ?", token).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return &user, nil
}

// Middleware 校验 REST 请求的 bearer token，并把用户放进请求上下文。
func Middleware(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := ResolveToken(gdb, BearerToken(c.Request))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		c.Set("userID", user.ID)
		c.Set("user", user)
		c.Next()
	}
}

func GetUserID(c *gin.Context) uint {
	if v, ok := c.Get("userID"); ok {
		if id, ok2 := v.(uint); ok2 {
			return id
		}
	}
	return 0
}

func GetUser(c *gin.Context) *models.User {
	if v, ok := c.Get("user"); ok {
		if u, ok2 := v.(*models.User); ok2 {
			return u
		}
	}
	return nil
}
