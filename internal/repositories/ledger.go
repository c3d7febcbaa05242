package repositories

import (
	"context"
	"errors"
	"fmt"

	"harvestpay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository persists the append-only transaction ledger.
type LedgerRepository interface {
	// Insert appends a new entry. Returns ErrDuplicateTransaction when the
	// id already exists; the insert must be atomic with respect to the id
	// index so retried appends are safe.
	Insert(ctx context.Context, tx *models.Transaction) error
	FindByID(ctx context.Context, id string) (*models.Transaction, error)
	Update(ctx context.Context, tx *models.Transaction) error
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	SumAmount(ctx context.Context, typ models.TransactionType, status models.TransactionStatus) (int64, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Insert(ctx context.Context, tx *models.Transaction) error {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(tx)
	if res.Error != nil {
		return fmt.Errorf("insert transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDuplicateTransaction
	}
	return nil
}

func (r *ledgerRepository) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *ledgerRepository) Update(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Save(tx).Error
}

func (r *ledgerRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&models.Transaction{})
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.RelatedID != "" {
		q = q.Where("related_id = ?", filter.RelatedID)
	}
	if !filter.From.IsZero() {
		q = q.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("created_at < ?", filter.To)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var txs []models.Transaction
	err := q.Order("seq ASC").Limit(limit).Offset(filter.Offset).Find(&txs).Error
	return txs, err
}

func (r *ledgerRepository) SumAmount(ctx context.Context, typ models.TransactionType, status models.TransactionStatus) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("type = ? AND status = ?", typ, status).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}
