package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campusparking/logger"
	"campusparking/services"
)

// APIResponse 定義統一的 API 回應結構
type APIResponse struct {
	Status  bool              `json:"status"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"` // omitempty 表示如果為空則不顯示
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"` // 欄位驗證訊息
}

// SuccessResponse 返回成功的回應
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Status:  true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 返回失敗的回應
func ErrorResponse(c *gin.Context, statusCode int, message string, err string) {
	c.JSON(statusCode, APIResponse{
		Status:  false,
		Message: message,
		Error:   err,
	})
}

// ValidationErrorResponse 返回欄位驗證失敗
func ValidationErrorResponse(c *gin.Context, message string, ve *services.ValidationError) {
	c.JSON(http.StatusUnprocessableEntity, APIResponse{
		Status:  false,
		Message: message,
		Error:   ve.Error(),
		Fields:  ve.Fields,
	})
}

// ServiceErrorResponse 依 service 錯誤類型決定狀態碼
func ServiceErrorResponse(c *gin.Context, message string, err error) {
	var ve *services.ValidationError
	var fe *services.ForbiddenError
	switch {
	case errors.As(err, &ve):
		ValidationErrorResponse(c, message, ve)
	case errors.As(err, &fe):
		ErrorResponse(c, http.StatusForbidden, message, fe.Message)
	case errors.Is(err, services.ErrLotNotFound), errors.Is(err, services.ErrRequestNotFound):
		ErrorResponse(c, http.StatusNotFound, message, err.Error())
	case errors.Is(err, services.ErrRequestNotPending):
		ErrorResponse(c, http.StatusConflict, message, err.Error())
	default:
		logger.FromContext(c.Request.Context()).Error(message, "error", err)
		ErrorResponse(c, http.StatusInternalServerError, message, err.Error())
	}
}
