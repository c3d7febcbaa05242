// Package dispute owns the lifecycle of a buyer dispute against an order.
//
// Legal transitions: open -> investigating -> {resolved, refunded}, plus
// the fast-track open -> refunded without an investigation step. Terminal
// states are final. While a dispute is open or investigating, the
// settlement coordinator blocks processing of the farmer's payouts.
package dispute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"harvestpay/internal/models"
	"harvestpay/internal/repositories"
	"harvestpay/internal/utils/lock"
)

// OpenInput carries everything needed to file a dispute. Identifiers come
// from the order/catalog collaborator.
type OpenInput struct {
	OrderID    string
	BuyerID    uint
	BuyerName  string
	FarmerID   uint
	FarmerName string
	Amount     models.Money
	Reason     string
}

type Service struct {
	repo  repositories.DisputeRepository
	locks lock.KeyedMutex
	now   func() time.Time
}

func NewService(repo repositories.DisputeRepository) *Service {
	if repo == nil {
		panic("dispute repository is required")
	}
	return &Service{repo: repo, now: time.Now}
}

// Open files a new dispute in the open state.
func (s *Service) Open(ctx context.Context, in OpenInput) (*models.Dispute, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	d := &models.Dispute{
		OrderID:    in.OrderID,
		BuyerID:    in.BuyerID,
		BuyerName:  in.BuyerName,
		FarmerID:   in.FarmerID,
		FarmerName: in.FarmerName,
		Amount:     in.Amount,
		Reason:     in.Reason,
		Status:     models.DisputeStatusOpen,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create dispute: %w", err)
	}
	return d, nil
}

// BeginInvestigation moves open to investigating.
func (s *Service) BeginInvestigation(ctx context.Context, id uint) (*models.Dispute, error) {
	unlock := s.locks.Lock(disputeKey(id))
	defer unlock()

	d, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != models.DisputeStatusOpen {
		return nil, ErrIllegalTransition
	}
	d.Status = models.DisputeStatusInvestigating
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("begin investigation: %w", err)
	}
	return d, nil
}

// Resolve closes a dispute from open or investigating. With shouldRefund
// the dispute ends refunded, otherwise resolved; the refund transaction
// itself is appended by the settlement coordinator.
func (s *Service) Resolve(ctx context.Context, id uint, resolution string, shouldRefund bool) (*models.Dispute, error) {
	unlock := s.locks.Lock(disputeKey(id))
	defer unlock()

	d, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Status.Blocking() {
		return nil, ErrIllegalTransition
	}

	now := s.now().UTC()
	if shouldRefund {
		d.Status = models.DisputeStatusRefunded
	} else {
		d.Status = models.DisputeStatusResolved
	}
	d.Resolution = resolution
	d.ResolvedAt = &now
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("resolve dispute: %w", err)
	}
	return d, nil
}

// HasBlockingDisputeForFarmer reports whether any open or investigating
// dispute references one of the farmer's orders.
func (s *Service) HasBlockingDisputeForFarmer(ctx context.Context, farmerID uint) (bool, error) {
	count, err := s.repo.CountBlockingByFarmer(ctx, farmerID)
	if err != nil {
		return false, fmt.Errorf("count blocking disputes: %w", err)
	}
	return count > 0, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Dispute, error) {
	return s.get(ctx, id)
}

func (s *Service) ListByFarmer(ctx context.Context, farmerID uint) ([]models.Dispute, error) {
	return s.repo.ListByFarmer(ctx, farmerID)
}

func (s *Service) ListByStatus(ctx context.Context, status models.DisputeStatus) ([]models.Dispute, error) {
	return s.repo.ListByStatus(ctx, status)
}

func (s *Service) get(ctx context.Context, id uint) (*models.Dispute, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrDisputeNotFound) {
			return nil, ErrUnknownDispute
		}
		return nil, fmt.Errorf("find dispute: %w", err)
	}
	return d, nil
}

func disputeKey(id uint) string {
	return fmt.Sprintf("dispute:%d", id)
}
