package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusparking/models"
	"campusparking/services"
	"campusparking/utils"
)

// ListLots 回傳即時快照
func (h *Handler) ListLots(c *gin.Context) {
	lots, updatedAt := h.Live.Snapshot()
	SuccessResponse(c, http.StatusOK, "查詢停車場成功", gin.H{
		"lots":       lots,
		"updated_at": updatedAt,
	})
}

// GetLot 點選清單中的一列
func (h *Handler) GetLot(c *gin.Context) {
	lot, ok := h.Live.Lookup(c.Param("id"))
	if !ok {
		ErrorResponse(c, http.StatusNotFound, "停車場不存在", services.ErrLotNotFound.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "查詢停車場成功", lot)
}

// AddLot 管理員新增停車場
func (h *Handler) AddLot(c *gin.Context) {
	var input utils.LotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "無效的輸入資料", err.Error())
		return
	}
	lot, err := h.Lots.AddLot(c.Request.Context(), principal(c), input)
	if err != nil {
		ServiceErrorResponse(c, "新增停車場失敗", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "新增停車場成功", models.NormalizeParkingLot(lot.ToRaw()))
}

// UpdateLotStatus 管理員直接更新；其他使用者改為提交申請
func (h *Handler) UpdateLotStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "無效的輸入資料", err.Error())
		return
	}
	p := principal(c)
	if !p.IsAdmin {
		sr, err := h.Requests.Submit(c.Request.Context(), p, c.Param("id"), *req.TakenSpaces)
		if err != nil {
			ServiceErrorResponse(c, "提交狀態申請失敗", err)
			return
		}
		SuccessResponse(c, http.StatusAccepted, "已提交狀態申請，等待管理員審核", sr)
		return
	}
	lot, err := h.Lots.UpdateStatus(c.Request.Context(), p, c.Param("id"), *req.TakenSpaces)
	if err != nil {
		ServiceErrorResponse(c, "更新停車狀態失敗", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "更新停車狀態成功", models.NormalizeParkingLot(lot.ToRaw()))
}
