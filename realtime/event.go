// Package realtime 處理停車場資料的 change feed 與即時推播
package realtime

import (
	"context"
	"time"

	"campusparking/models"
)

// 事件類型與資料庫操作一致
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// ChangeEvent 單筆資料列的變更
type ChangeEvent struct {
	Table      string               `json:"table"`
	Type       string               `json:"type"`
	New        models.RawParkingLot `json:"new,omitempty"`
	Old        models.RawParkingLot `json:"old,omitempty"`
	CommitTime time.Time            `json:"commit_time"`
}

// Publisher 寫入後發出變更事件
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// Subscription 一個訂閱；Close 後 Events 會被關閉
type Subscription interface {
	Events() <-chan ChangeEvent
	Close() error
}

// Source 可訂閱的 change feed
type Source interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Broker 可發佈也可訂閱的 change feed
type Broker interface {
	Publisher
	Source
	Close() error
}
