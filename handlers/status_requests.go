package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusparking/models"
)

// SubmitStatusRequest 提交車位狀態申請
func (h *Handler) SubmitStatusRequest(c *gin.Context) {
	var input models.SubmitStatusRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "無效的輸入資料", err.Error())
		return
	}
	sr, err := h.Requests.Submit(c.Request.Context(), principal(c), input.LotID, *input.TakenSpaces)
	if err != nil {
		ServiceErrorResponse(c, "提交狀態申請失敗", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "已提交狀態申請", sr)
}

// ListPendingRequests 管理員查看待審核申請
func (h *Handler) ListPendingRequests(c *gin.Context) {
	reqs, err := h.Requests.ListPending(c.Request.Context(), principal(c))
	if err != nil {
		ServiceErrorResponse(c, "查詢狀態申請失敗", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "查詢狀態申請成功", reqs)
}

// ApproveRequest 核准
func (h *Handler) ApproveRequest(c *gin.Context) {
	sr, err := h.Requests.Approve(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		ServiceErrorResponse(c, "核准狀態申請失敗", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "已核准狀態申請", sr)
}

// RejectRequest 駁回
func (h *Handler) RejectRequest(c *gin.Context) {
	sr, err := h.Requests.Reject(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		ServiceErrorResponse(c, "駁回狀態申請失敗", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "已駁回狀態申請", sr)
}
