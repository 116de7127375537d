package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"campusparking/logger"
	"campusparking/models"
	"campusparking/realtime"
)

// StatusRequestService 非管理員提交、管理員審核的狀態更新申請
type StatusRequestService struct {
	db   *gorm.DB
	lots *ParkingService
}

func NewStatusRequestService(db *gorm.DB, lots *ParkingService) *StatusRequestService {
	return &StatusRequestService{db: db, lots: lots}
}

// Submit 任何登入使用者皆可提交，範圍檢查與直接更新相同
func (s *StatusRequestService) Submit(ctx context.Context, p models.Principal, lotID string, taken int) (*models.StatusRequest, error) {
	if p.UserID == "" {
		return nil, &ForbiddenError{Message: MsgSignInRequired}
	}
	taken = max(0, taken)

	lot, err := s.lots.GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if taken > lot.Capacity {
		return nil, &ValidationError{Fields: map[string]string{"taken_spaces": MsgTakenOutOfRange}}
	}

	req := models.StatusRequest{
		LotID:                lot.ID,
		LotName:              lot.Name,
		RequestedTakenSpaces: taken,
		RequestedBy:          p.UserID,
		RequestedByEmail:     p.Email,
		Status:               models.RequestPending,
	}
	if err := s.db.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, fmt.Errorf("failed to submit status request: %w", err)
	}
	logger.FromContext(ctx).Info("Status request submitted", "request_id", req.ID, "lot_id", lot.ID, "by", p.Email)
	return &req, nil
}

// ListPending 管理員查看待審核申請，新的在前
func (s *StatusRequestService) ListPending(ctx context.Context, p models.Principal) ([]models.StatusRequest, error) {
	if !p.IsAdmin {
		return nil, &ForbiddenError{Message: MsgAdminReview}
	}
	var reqs []models.StatusRequest
	err := s.db.WithContext(ctx).
		Where("status = ?", models.RequestPending).
		Order("requested_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list status requests: %w", err)
	}
	return reqs, nil
}

// Approve 在同一個 transaction 內寫入停車場並結案申請
func (s *StatusRequestService) Approve(ctx context.Context, p models.Principal, id string) (*models.StatusRequest, error) {
	if !p.IsAdmin {
		return nil, &ForbiddenError{Message: MsgAdminReview}
	}

	var req models.StatusRequest
	var before, after models.ParkingLot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadPending(tx, id, &req); err != nil {
			return err
		}
		if err := tx.First(&before, "id = ?", req.LotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLotNotFound
			}
			return err
		}
		if req.RequestedTakenSpaces > before.Capacity {
			return &ValidationError{Fields: map[string]string{"taken_spaces": MsgTakenOutOfRange}}
		}
		after = before
		after.TakenSpaces = req.RequestedTakenSpaces
		if err := tx.Model(&after).Update("taken_spaces", after.TakenSpaces).Error; err != nil {
			return err
		}
		return resolve(tx, &req, models.RequestApproved, p.UserID)
	})
	if err != nil {
		return nil, wrapWriteError("failed to approve status request", err)
	}
	logger.FromContext(ctx).Info("Status request approved", "request_id", id, "by", p.Email)
	s.lots.publish(ctx, realtime.EventUpdate, &after, &before)
	return &req, nil
}

// Reject 駁回申請，不改動停車場
func (s *StatusRequestService) Reject(ctx context.Context, p models.Principal, id string) (*models.StatusRequest, error) {
	if !p.IsAdmin {
		return nil, &ForbiddenError{Message: MsgAdminReview}
	}
	var req models.StatusRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadPending(tx, id, &req); err != nil {
			return err
		}
		return resolve(tx, &req, models.RequestRejected, p.UserID)
	})
	if err != nil {
		return nil, wrapWriteError("failed to reject status request", err)
	}
	logger.FromContext(ctx).Info("Status request rejected", "request_id", id, "by", p.Email)
	return &req, nil
}

func loadPending(tx *gorm.DB, id string, req *models.StatusRequest) error {
	if err := tx.First(req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return err
	}
	if !req.IsPending() {
		return ErrRequestNotPending
	}
	return nil
}

// resolve 只在狀態仍為 pending 時轉換，避免兩個管理員同時審核
func resolve(tx *gorm.DB, req *models.StatusRequest, status, by string) error {
	now := time.Now().UTC()
	res := tx.Model(&models.StatusRequest{}).
		Where("id = ? AND status = ?", req.ID, models.RequestPending).
		Updates(map[string]any{"status": status, "resolved_at": now, "resolved_by": by})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRequestNotPending
	}
	req.Status = status
	req.ResolvedAt = &now
	req.ResolvedBy = &by
	return nil
}
