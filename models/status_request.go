package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 狀態申請的狀態，pending 只能轉為 approved 或 rejected
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// StatusRequest 非管理員提交的車位狀態更新申請
type StatusRequest struct {
	ID                   string     `json:"id" gorm:"primaryKey;size:36"`
	LotID                string     `json:"lot_id" gorm:"size:36;index;not null"`
	LotName              string     `json:"lot_name" gorm:"size:100"`
	RequestedTakenSpaces int        `json:"requested_taken_spaces" gorm:"not null"`
	RequestedBy          string     `json:"requested_by" gorm:"size:64;not null"`
	RequestedByEmail     string     `json:"requested_by_email" gorm:"size:100"`
	Status               string     `json:"status" gorm:"size:16;index;not null;default:pending"`
	RequestedAt          time.Time  `json:"requested_at" gorm:"not null"`
	ResolvedAt           *time.Time `json:"resolved_at"`
	ResolvedBy           *string    `json:"resolved_by" gorm:"size:64"`
}

func (StatusRequest) TableName() string {
	return "parking_status_requests"
}

// BeforeCreate 產生 UUID 並補上預設狀態與時間
func (r *StatusRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = RequestPending
	}
	if r.RequestedAt.IsZero() {
		r.RequestedAt = time.Now().UTC()
	}
	return nil
}

// IsPending 是否仍可核准或駁回
func (r *StatusRequest) IsPending() bool {
	return r.Status == RequestPending
}

// SubmitStatusRequestInput 提交申請的請求內容
type SubmitStatusRequestInput struct {
	LotID       string `json:"lot_id" binding:"required"`
	TakenSpaces *int   `json:"taken_spaces" binding:"required"`
}
