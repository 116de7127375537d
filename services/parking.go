package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"campusparking/logger"
	"campusparking/models"
	"campusparking/realtime"
	"campusparking/utils"
)

// ParkingService 停車場的讀取與管理員寫入
type ParkingService struct {
	db        *gorm.DB
	source    string
	publisher realtime.Publisher
}

// NewParkingService source 為讀取清單用的資料表或 view；publisher 可為 nil（由資料庫 trigger 發佈）
func NewParkingService(db *gorm.DB, source string, publisher realtime.Publisher) *ParkingService {
	if source == "" {
		source = models.ParkingLot{}.TableName()
	}
	return &ParkingService{db: db, source: source, publisher: publisher}
}

// FetchRaw 讀取原始資料列，欄位名稱依來源而定
func (s *ParkingService) FetchRaw(ctx context.Context) ([]models.RawParkingLot, error) {
	var rows []map[string]any
	if err := s.db.WithContext(ctx).Table(s.source).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch parking lots from %s: %w", s.source, err)
	}
	out := make([]models.RawParkingLot, len(rows))
	for i, r := range rows {
		out[i] = models.RawParkingLot(r)
	}
	return out, nil
}

// ListLots 正規化並依名稱排序
func (s *ParkingService) ListLots(ctx context.Context) ([]models.NormalizedParkingLot, error) {
	rows, err := s.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}
	lots := models.NormalizeAll(rows)
	models.SortLots(lots)
	return lots, nil
}

// GetLot 從主資料表取得單一停車場
func (s *ParkingService) GetLot(ctx context.Context, id string) (*models.ParkingLot, error) {
	var lot models.ParkingLot
	if err := s.db.WithContext(ctx).First(&lot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLotNotFound
		}
		return nil, fmt.Errorf("failed to get parking lot: %w", err)
	}
	return &lot, nil
}

// AddLot 管理員新增停車場；未填空位數時視為全空
func (s *ParkingService) AddLot(ctx context.Context, p models.Principal, in utils.LotInput) (*models.ParkingLot, error) {
	if !p.IsAdmin {
		return nil, &ForbiddenError{Message: MsgAdminAddLot}
	}
	if in.Available == nil || in.Available == "" {
		in.Available = in.Capacity
	}
	results := utils.ValidateParkingLot(in)
	if !utils.AllValidationsPassed(results) {
		return nil, newValidationError(results)
	}

	capacity, _ := utils.ParseInt(in.Capacity)
	available, _ := utils.ParseInt(in.Available)
	lot := models.ParkingLot{
		Name:          strings.TrimSpace(in.Name),
		Capacity:      capacity,
		TakenSpaces:   max(0, capacity-available),
		Location:      strings.TrimSpace(in.Location),
		Latitude:      optionalFloat(in.Latitude),
		Longitude:     optionalFloat(in.Longitude),
		SchemaVersion: models.SchemaV2,
	}
	if id := strings.TrimSpace(in.Concept3DID); id != "" {
		lot.Concept3DID = &id
	}

	if err := s.db.WithContext(ctx).Create(&lot).Error; err != nil {
		logger.FromContext(ctx).Error("Failed to add parking lot", "error", err)
		return nil, fmt.Errorf("failed to add parking lot: %w", err)
	}
	logger.FromContext(ctx).Info("Parking lot added", "lot_id", lot.ID, "by", p.Email)
	s.publish(ctx, realtime.EventInsert, &lot, nil)
	return &lot, nil
}

// UpdateStatus 管理員直接更新已佔用車位；負數視為 0，超過容量則拒絕
func (s *ParkingService) UpdateStatus(ctx context.Context, p models.Principal, lotID string, taken int) (*models.ParkingLot, error) {
	if !p.IsAdmin {
		return nil, &ForbiddenError{Message: MsgAdminUpdateStatus}
	}
	taken = max(0, taken)

	var updated, before models.ParkingLot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&before, "id = ?", lotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLotNotFound
			}
			return err
		}
		if taken > before.Capacity {
			return &ValidationError{Fields: map[string]string{"taken_spaces": MsgTakenOutOfRange}}
		}
		updated = before
		updated.TakenSpaces = taken
		return tx.Model(&updated).Update("taken_spaces", taken).Error
	})
	if err != nil {
		return nil, wrapWriteError("failed to update parking status", err)
	}
	logger.FromContext(ctx).Info("Parking status updated", "lot_id", lotID, "taken", taken, "by", p.Email)
	s.publish(ctx, realtime.EventUpdate, &updated, &before)
	return &updated, nil
}

func (s *ParkingService) publish(ctx context.Context, kind string, lot, old *models.ParkingLot) {
	if s.publisher == nil {
		return
	}
	ev := realtime.ChangeEvent{
		Table:      models.ParkingLot{}.TableName(),
		Type:       kind,
		CommitTime: time.Now().UTC(),
	}
	if lot != nil {
		ev.New = lot.ToRaw()
	}
	if old != nil {
		ev.Old = old.ToRaw()
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logger.FromContext(ctx).Warn("Failed to publish change event", "type", kind, "error", err)
	}
}

// wrapWriteError 保留 sentinel 與驗證錯誤，其餘加上說明
func wrapWriteError(msg string, err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, ErrLotNotFound),
		errors.Is(err, ErrRequestNotFound),
		errors.Is(err, ErrRequestNotPending):
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func optionalFloat(v any) *float64 {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	f, ok := utils.ParseFloat(v)
	if !ok {
		return nil
	}
	return &f
}
