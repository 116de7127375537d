package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusparking/logger"
	"campusparking/services"
)

// CampusMap 未選擇停車場時的地圖
func (h *Handler) CampusMap(c *gin.Context) {
	view := services.BuildMapView(nil, c.Query("provider"), h.MapOptions)
	SuccessResponse(c, http.StatusOK, "查詢地圖成功", view)
}

// LotMap 指定停車場的地圖與導航連結
func (h *Handler) LotMap(c *gin.Context) {
	lot, ok := h.Live.Lookup(c.Param("id"))
	if !ok {
		ErrorResponse(c, http.StatusNotFound, "停車場不存在", services.ErrLotNotFound.Error())
		return
	}
	view := services.BuildMapView(&lot, c.Query("provider"), h.MapOptions)
	SuccessResponse(c, http.StatusOK, "查詢地圖成功", view)
}

// LiveSocket 以 WebSocket 推送完整快照
func (h *Handler) LiveSocket(c *gin.Context) {
	if err := h.Hub.ServeWS(c.Writer, c.Request); err != nil {
		logger.FromContext(c.Request.Context()).Warn("WebSocket upgrade failed", "error", err)
	}
}
