// Package ledger owns the append-only transaction ledger, the single
// source of truth for all monetary reporting. No other component derives
// a balance without it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"harvestpay/internal/models"
	"harvestpay/internal/repositories"
	"harvestpay/internal/utils/lock"

	"github.com/google/uuid"
)

// AppendInput describes a new ledger entry. ID is optional: callers supply
// one to make retried appends idempotent, otherwise a uuid is assigned.
type AppendInput struct {
	ID            string
	Type          models.TransactionType
	Status        models.TransactionStatus
	Amount        models.Money
	Description   string
	RelatedID     string
	PaymentMethod string
}

type Service struct {
	repo  repositories.LedgerRepository
	locks lock.KeyedMutex
	now   func() time.Time
}

func NewService(repo repositories.LedgerRepository) *Service {
	if repo == nil {
		panic("ledger repository is required")
	}
	return &Service{repo: repo, now: time.Now}
}

// Append stores a new entry and returns it with its assigned id. Appending
// twice with the same caller-supplied id stores exactly one record; the
// second call fails with ErrDuplicateTransaction.
func (s *Service) Append(ctx context.Context, in AppendInput) (*models.Transaction, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	status := in.Status
	if status == "" {
		status = models.TransactionStatusPending
	}
	switch status {
	case models.TransactionStatusPending, models.TransactionStatusCompleted, models.TransactionStatusOnHold:
	default:
		return nil, ErrInvalidStatus
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}

	now := s.now().UTC()
	tx := &models.Transaction{
		ID:            id,
		Type:          in.Type,
		Status:        status,
		Amount:        in.Amount,
		Description:   in.Description,
		RelatedID:     in.RelatedID,
		PaymentMethod: in.PaymentMethod,
		CreatedAt:     now,
	}
	if status == models.TransactionStatusCompleted {
		tx.CompletedAt = &now
	}

	if err := s.repo.Insert(ctx, tx); err != nil {
		if errors.Is(err, repositories.ErrDuplicateTransaction) {
			return nil, ErrDuplicateTransaction
		}
		return nil, fmt.Errorf("append transaction: %w", err)
	}
	return tx, nil
}

// Finalize transitions a pending or on-hold entry to completed or failed.
// Finalizing an entry already in the requested status is a no-op so retried
// calls converge; any other change to a terminal entry is illegal.
func (s *Service) Finalize(ctx context.Context, id string, status models.TransactionStatus, completedAt time.Time) (*models.Transaction, error) {
	if status != models.TransactionStatusCompleted && status != models.TransactionStatusFailed {
		return nil, ErrIllegalTransition
	}

	unlock := s.locks.Lock("transaction:" + id)
	defer unlock()

	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, ErrUnknownTransaction
		}
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	if tx.Status == status {
		return tx, nil
	}
	if tx.Status.Terminal() {
		return nil, ErrIllegalTransition
	}

	at := completedAt.UTC()
	tx.Status = status
	tx.CompletedAt = &at
	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("finalize transaction: %w", err)
	}
	return tx, nil
}

// Query returns entries matching the filter in append (seq) order. The
// filter's limit/offset make the sequence restartable; reads have no side
// effects.
func (s *Service) Query(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	return s.repo.List(ctx, filter)
}

// TotalByType sums entries of one type and status, in minor units.
func (s *Service) TotalByType(ctx context.Context, typ models.TransactionType, status models.TransactionStatus) (models.Money, error) {
	total, err := s.repo.SumAmount(ctx, typ, status)
	if err != nil {
		return models.Money{}, fmt.Errorf("sum transactions: %w", err)
	}
	return models.NewMoney(total, models.DefaultCurrency), nil
}
