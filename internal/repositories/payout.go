package repositories

import (
	"context"
	"errors"

	"harvestpay/internal/models"

	"gorm.io/gorm"
)

// PayoutRepository persists farmer payout records.
type PayoutRepository interface {
	Create(ctx context.Context, p *models.Payout) error
	FindByID(ctx context.Context, id uint) (*models.Payout, error)
	Update(ctx context.Context, p *models.Payout) error
	ListByStatus(ctx context.Context, statuses ...models.PayoutStatus) ([]models.Payout, error)
	ListByFarmer(ctx context.Context, farmerID uint) ([]models.Payout, error)
}

type payoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

func (r *payoutRepository) Create(ctx context.Context, p *models.Payout) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *payoutRepository) FindByID(ctx context.Context, id uint) (*models.Payout, error) {
	var p models.Payout
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *payoutRepository) Update(ctx context.Context, p *models.Payout) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *payoutRepository) ListByStatus(ctx context.Context, statuses ...models.PayoutStatus) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("requested_at ASC").
		Find(&payouts).Error
	return payouts, err
}

func (r *payoutRepository) ListByFarmer(ctx context.Context, farmerID uint) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.WithContext(ctx).
		Where("farmer_id = ?", farmerID).
		Order("requested_at DESC").
		Find(&payouts).Error
	return payouts, err
}
