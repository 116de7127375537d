package handlers

import (
	"github.com/gin-gonic/gin"

	"campusparking/models"
	"campusparking/realtime"
	"campusparking/services"
)

// PrincipalKey AuthMiddleware 存放已驗證使用者的 key
const PrincipalKey = "principal"

// Handler 所有 HTTP handler 共用的相依物件
type Handler struct {
	Auth       *services.AuthService
	Lots       *services.ParkingService
	Requests   *services.StatusRequestService
	Live       *realtime.LiveList
	Hub        *realtime.Hub
	MapOptions services.MapOptions
}

// principal 取得目前使用者；未登入時回傳空值
func principal(c *gin.Context) models.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(models.Principal); ok {
			return p
		}
	}
	return models.Principal{}
}

// Ping 健康檢查
func Ping(c *gin.Context) {
	SuccessResponse(c, 200, "pong", nil)
}
