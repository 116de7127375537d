package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"campusparking/logger"
	"campusparking/metrics"
	"campusparking/models"
	"campusparking/utils"
)

var ErrFeedClosed = errors.New("change feed closed")

// Fetcher 讀取完整的原始資料列
type Fetcher interface {
	FetchRaw(ctx context.Context) ([]models.RawParkingLot, error)
}

// Broadcaster 接收序列化後的快照
type Broadcaster interface {
	Broadcast(payload []byte)
}

// SnapshotMessage 推送給 WebSocket client 的內容
type SnapshotMessage struct {
	Type      string                        `json:"type"`
	Lots      []models.NormalizedParkingLot `json:"lots"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

// LiveList 維護記憶體中的停車場快照；每個事件都重新讀取整份清單並整份替換
type LiveList struct {
	fetcher     Fetcher
	source      Source
	broadcaster Broadcaster
	table       string

	refreshMu sync.Mutex
	mu        sync.RWMutex
	lots      []models.NormalizedParkingLot
	index     map[string]int
	updatedAt time.Time
}

// NewLiveList broadcaster 可為 nil
func NewLiveList(fetcher Fetcher, source Source, broadcaster Broadcaster, table string) *LiveList {
	return &LiveList{
		fetcher:     fetcher,
		source:      source,
		broadcaster: broadcaster,
		table:       table,
		index:       map[string]int{},
	}
}

// Run 先載入快照再訂閱 change feed，ctx 結束時取消訂閱並回傳 nil
func (l *LiveList) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	if err := l.Refresh(ctx); err != nil {
		log.Error("Failed to load initial parking snapshot", "error", err)
	}

	sub, err := l.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to change feed: %w", err)
	}
	defer sub.Close()
	log.Info("Live parking list subscribed", "table", l.table)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrFeedClosed
			}
			l.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent 回傳是否觸發重新讀取；INSERT/UPDATE 的資料列需通過驗證，DELETE 一律觸發
func (l *LiveList) HandleEvent(ctx context.Context, ev ChangeEvent) bool {
	log := logger.FromContext(ctx)
	if ev.Table != "" && l.table != "" && ev.Table != l.table {
		return false
	}
	metrics.FeedEvents.WithLabelValues(ev.Type).Inc()

	switch ev.Type {
	case EventDelete:
	case EventInsert, EventUpdate:
		if msg, ok := validRow(ev.New); !ok {
			metrics.FeedEventsRejected.Inc()
			log.Warn("Ignoring invalid change event", "type", ev.Type, "reason", msg)
			return false
		}
	default:
		log.Debug("Ignoring unknown change event", "type", ev.Type)
		return false
	}

	if err := l.Refresh(ctx); err != nil {
		log.Error("Failed to refresh parking snapshot", "error", err)
		return false
	}
	return true
}

func validRow(raw models.RawParkingLot) (string, bool) {
	lot := models.NormalizeParkingLot(raw)
	for _, r := range []utils.ValidationResult{
		utils.ValidateParkingLotName(lot.Name),
		utils.ValidateCapacity(lot.Capacity),
		utils.ValidateAvailable(lot.Available, lot.Capacity),
	} {
		if !r.Valid {
			return r.Message, false
		}
	}
	return "", true
}

// Refresh 重新讀取整份清單並取代快照，完成後廣播
func (l *LiveList) Refresh(ctx context.Context) error {
	l.refreshMu.Lock()
	defer l.refreshMu.Unlock()

	rows, err := l.fetcher.FetchRaw(ctx)
	if err != nil {
		metrics.SnapshotRefreshes.WithLabelValues("error").Inc()
		return err
	}
	lots := models.NormalizeAll(rows)
	models.SortLots(lots)
	index := make(map[string]int, len(lots))
	for i, lot := range lots {
		if lot.ID != "" {
			index[lot.ID] = i
		}
	}
	now := time.Now().UTC()

	l.mu.Lock()
	l.lots = lots
	l.index = index
	l.updatedAt = now
	l.mu.Unlock()

	metrics.SnapshotRefreshes.WithLabelValues("ok").Inc()
	metrics.SnapshotLots.Set(float64(len(lots)))

	if l.broadcaster != nil {
		payload, err := json.Marshal(SnapshotMessage{Type: "snapshot", Lots: lots, UpdatedAt: now})
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		l.broadcaster.Broadcast(payload)
	}
	return nil
}

// Snapshot 回傳目前快照的副本
func (l *LiveList) Snapshot() ([]models.NormalizedParkingLot, time.Time) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.NormalizedParkingLot, len(l.lots))
	copy(out, l.lots)
	return out, l.updatedAt
}

// Lookup 清單中點選某一列時取得該停車場
func (l *LiveList) Lookup(id string) (models.NormalizedParkingLot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[id]
	if !ok {
		return models.NormalizedParkingLot{}, false
	}
	return l.lots[i], true
}
