package server

import (
	"net/http"
	"time"

	"geochat/internal/auth"
	"geochat/internal/config"
	"geochat/internal/metrics"
	"geochat/internal/mw"
	"geochat/internal/service"
	"geochat/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// SetupRouter 统一初始化 Gin 中间件、REST API 以及 WebSocket 端点。
func SetupRouter(cfg config.Config, gdb *gorm.DB, hub *ws.Hub) *gin.Engine {
	userSvc := service.NewUserService(gdb)
	msgSvc := service.NewMessageService(gdb)
	h := NewHandler(userSvc, msgSvc, hub)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env))
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/register", h.Register)
	r.GET("/users", h.ListUsers)

	// 需要 Bearer Token 的业务接口。
	authed := r.Group("")
	authed.Use(auth.Middleware(gdb))
	authed.GET("/me", h.Me)
	authed.POST("/update_location", h.UpdateLocation)
	authed.GET("/messages/:user_id", h.History)

	r.GET("/ws", ws.Serve(hub, gdb, msgSvc, cfg.WSSendBuffer))

	// 演示用的地图客户端页面。
	r.StaticFile("/", "./web/index.html")

	return r
}
