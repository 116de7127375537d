package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ParkingLot 定義停車場模型，寫入的資料一律帶 schema_version = v2
type ParkingLot struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	Name          string    `json:"name" gorm:"size:100;not null"`
	Capacity      int       `json:"capacity" gorm:"not null"`
	TakenSpaces   int       `json:"taken_spaces" gorm:"not null;default:0"`
	Location      string    `json:"location" gorm:"size:150"`
	Latitude      *float64  `json:"latitude"`
	Longitude     *float64  `json:"longitude"`
	Concept3DID   *string   `json:"concept3d_id" gorm:"column:concept3d_id;size:32"`
	SchemaVersion string    `json:"schema_version" gorm:"size:16;default:v2"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (ParkingLot) TableName() string {
	return "parkinglots"
}

// BeforeCreate 產生 UUID 主鍵
func (p *ParkingLot) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.SchemaVersion == "" {
		p.SchemaVersion = SchemaV2
	}
	return nil
}

// Available 剩餘車位，不做下限截斷
func (p *ParkingLot) Available() int {
	return p.Capacity - p.TakenSpaces
}

// ToRaw 轉為與資料列相同欄位的 map，供 change event 使用
func (p *ParkingLot) ToRaw() RawParkingLot {
	raw := RawParkingLot{
		"id":             p.ID,
		"name":           p.Name,
		"capacity":       p.Capacity,
		"taken_spaces":   p.TakenSpaces,
		"location":       p.Location,
		"schema_version": p.SchemaVersion,
	}
	if p.Latitude != nil {
		raw["latitude"] = *p.Latitude
	}
	if p.Longitude != nil {
		raw["longitude"] = *p.Longitude
	}
	if p.Concept3DID != nil {
		raw["concept3d_id"] = *p.Concept3DID
	}
	return raw
}

// UpdateStatusRequest 用於管理員直接更新已佔用車位
type UpdateStatusRequest struct {
	TakenSpaces *int `json:"taken_spaces" binding:"required"`
}
