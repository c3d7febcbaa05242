package repositories

import (
	"context"
	"errors"

	"harvestpay/internal/models"

	"gorm.io/gorm"
)

// DisputeRepository persists buyer dispute records.
type DisputeRepository interface {
	Create(ctx context.Context, d *models.Dispute) error
	FindByID(ctx context.Context, id uint) (*models.Dispute, error)
	Update(ctx context.Context, d *models.Dispute) error
	ListByFarmer(ctx context.Context, farmerID uint) ([]models.Dispute, error)
	ListByStatus(ctx context.Context, status models.DisputeStatus) ([]models.Dispute, error)
	// CountBlockingByFarmer counts open/investigating disputes against the
	// farmer's orders. A non-zero count holds the farmer's payouts.
	CountBlockingByFarmer(ctx context.Context, farmerID uint) (int64, error)
}

type disputeRepository struct {
	db *gorm.DB
}

func NewDisputeRepository(db *gorm.DB) DisputeRepository {
	return &disputeRepository{db: db}
}

func (r *disputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *disputeRepository) FindByID(ctx context.Context, id uint) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.WithContext(ctx).First(&d, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDisputeNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *disputeRepository) Update(ctx context.Context, d *models.Dispute) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *disputeRepository) ListByFarmer(ctx context.Context, farmerID uint) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.WithContext(ctx).
		Where("farmer_id = ?", farmerID).
		Order("created_at DESC").
		Find(&disputes).Error
	return disputes, err
}

func (r *disputeRepository) ListByStatus(ctx context.Context, status models.DisputeStatus) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&disputes).Error
	return disputes, err
}

func (r *disputeRepository) CountBlockingByFarmer(ctx context.Context, farmerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Dispute{}).
		Where("farmer_id = ? AND status IN ?", farmerID,
			[]models.DisputeStatus{models.DisputeStatusOpen, models.DisputeStatusInvestigating}).
		Count(&count).Error
	return count, err
}
