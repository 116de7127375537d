package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"campusparking/config"
	"campusparking/handlers"
	"campusparking/logger"
	"campusparking/metrics"
	"campusparking/services"
)

// Options 建立路由所需的設定
type Options struct {
	Config *config.Config
	Logger logger.Logger
	Redis  *redis.Client // 可為 nil，nil 時 rate limit 使用記憶體
}

// SetupRouter 建立 gin engine 並掛上所有路由
func SetupRouter(opts Options, h *handlers.Handler) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(opts.Logger))

	authLimit, err := RateLimit(opts.Config.AuthRateLimit, opts.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to configure rate limit: %w", err)
	}

	api := r.Group("/api/v1")
	Path(api, h, AuthMiddleware([]byte(opts.Config.JWTSecret), opts.Config.AdminEmails), authLimit)

	r.GET("/ws/lots", h.LiveSocket)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	return r, nil
}

// Path 設定 API 路由
func Path(r *gin.RouterGroup, h *handlers.Handler, auth gin.HandlerFunc, authLimit gin.HandlerFunc) {
	r.GET("/ping", handlers.Ping)

	// 認證
	authGroup := r.Group("/auth")
	authGroup.Use(authLimit)
	{
		authGroup.POST("/signup", h.SignUp)
		authGroup.POST("/signin", h.SignIn)
		authGroup.GET("/me", h.CurrentUser)
	}

	// 停車場（公開讀取）
	r.GET("/lots", h.ListLots)
	r.GET("/lots/:id", h.GetLot)
	r.GET("/lots/:id/map", h.LotMap)
	r.GET("/map", h.CampusMap)

	// 需要登入
	authed := r.Group("")
	authed.Use(auth)
	{
		authed.POST("/lots", h.AddLot)
		authed.POST("/lots/:id/status", h.UpdateLotStatus)
		authed.POST("/status-requests", h.SubmitStatusRequest)
	}

	// 管理員審核
	review := r.Group("/status-requests")
	review.Use(auth, RequireAdmin(services.MsgAdminReview))
	{
		review.GET("", h.ListPendingRequests)
		review.POST("/:id/approve", h.ApproveRequest)
		review.POST("/:id/reject", h.RejectRequest)
	}
}
