package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campusparking/models"
	"campusparking/services"
)

func writeAuthResult(c *gin.Context, res services.AuthResult, okMsg, failMsg string) {
	if res.Status == http.StatusOK {
		SuccessResponse(c, http.StatusOK, okMsg, res.Data)
		return
	}
	ErrorResponse(c, res.Status, failMsg, res.Error)
}

// SignUp 註冊
func (h *Handler) SignUp(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "無效的輸入資料", err.Error())
		return
	}
	writeAuthResult(c, h.Auth.SignUp(c.Request.Context(), creds), "註冊成功", "註冊失敗")
}

// SignIn 登入
func (h *Handler) SignIn(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "無效的輸入資料", err.Error())
		return
	}
	writeAuthResult(c, h.Auth.SignIn(c.Request.Context(), creds), "登入成功", "登入失敗")
}

// CurrentUser 取得目前使用者與 admin 旗標
func (h *Handler) CurrentUser(c *gin.Context) {
	token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	writeAuthResult(c, h.Auth.CurrentUser(c.Request.Context(), token), "取得使用者成功", "取得使用者失敗")
}
