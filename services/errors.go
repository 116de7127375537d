package services

import (
	"errors"
	"sort"
	"strings"

	"campusparking/utils"
)

var (
	ErrLotNotFound       = errors.New("parking lot not found")
	ErrRequestNotFound   = errors.New("status request not found")
	ErrRequestNotPending = errors.New("status request has already been resolved")
)

// 權限不足時的固定訊息
const (
	MsgAdminAddLot        = "Admin access is required to add new parking lots."
	MsgAdminUpdateStatus  = "Admin access is required to update parking status."
	MsgAdminReview        = "Admin access is required to review status requests."
	MsgSignInRequired     = "You must be signed in to request a status update."
	MsgTakenOutOfRange    = "Taken spaces must be between 0 and the lot capacity."
	MsgInvalidEmailSignUp = "Invalid Email Address!"
	MsgInvalidEmailSignIn = "Invalid email address."
)

// ValidationError 欄位驗證失敗，Fields 為欄位名稱對應訊息
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, " ")
}

// Message 單一欄位錯誤時直接回傳該訊息
func (e *ValidationError) Message(field string) string {
	return e.Fields[field]
}

func newValidationError(results map[string]utils.ValidationResult) *ValidationError {
	fields := make(map[string]string)
	for k, r := range results {
		if !r.Valid {
			fields[k] = r.Message
		}
	}
	return &ValidationError{Fields: fields}
}

// ForbiddenError 權限不足，在任何資料庫操作之前就回傳
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}
