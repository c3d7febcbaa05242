// Package payout owns the lifecycle of a single farmer payout from request
// to completion or failure.
//
// Legal transitions:
//
//	pending_approval --approve--> approved
//	pending_approval --reject---> failed
//	approved         --process--> processing
//	processing       --complete-> completed
//	processing       --fail-----> failed
//
// Anything else fails with ErrIllegalTransition and leaves the record
// untouched. Calls against the same payout id are serialized by a per-id
// lock so two callers cannot both observe pending_approval and approve.
package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"harvestpay/internal/models"
	"harvestpay/internal/repositories"
	"harvestpay/internal/services/commission"
	"harvestpay/internal/utils/lock"
)

type Service struct {
	repo  repositories.PayoutRepository
	calc  *commission.Calculator
	locks lock.KeyedMutex
	now   func() time.Time
}

func NewService(cfg Config) *Service {
	if cfg.Repo == nil {
		panic("payout repository is required")
	}
	if cfg.Calc == nil {
		cfg.Calc = commission.NewCalculator()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Service{repo: cfg.Repo, calc: cfg.Calc, now: cfg.Clock}
}

// Request opens a payout in pending_approval. Commission and net are
// computed once here; the release date is the request time plus the
// holding period.
func (s *Service) Request(ctx context.Context, in RequestInput) (*models.Payout, error) {
	if !in.TotalAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if in.HoldingPeriodDays < 0 {
		return nil, ErrInvalidHoldingPeriod
	}

	fee, net, err := s.calc.Split(in.TotalAmount, in.RatePercent)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &models.Payout{
		FarmerID:          in.FarmerID,
		FarmerName:        in.FarmerName,
		Email:             in.Email,
		TotalAmount:       in.TotalAmount,
		Commission:        fee,
		NetAmount:         net,
		Status:            models.PayoutStatusPendingApproval,
		PaymentMethod:     in.PaymentMethod,
		AccountNumber:     in.AccountNumber,
		RequestedAt:       now,
		HoldingPeriodDays: in.HoldingPeriodDays,
		ReleaseDate:       now.AddDate(0, 0, in.HoldingPeriodDays),
		Notes:             in.Notes,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create payout: %w", err)
	}
	return p, nil
}

// Approve moves pending_approval to approved. Approval may precede the
// release date; release gating happens at MarkProcessing.
func (s *Service) Approve(ctx context.Context, id uint, approvedBy string) (*models.Payout, error) {
	unlock := s.locks.Lock(payoutKey(id))
	defer unlock()

	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PayoutStatusPendingApproval {
		return nil, ErrIllegalTransition
	}

	now := s.now().UTC()
	p.Status = models.PayoutStatusApproved
	p.ApprovedAt = &now
	p.ApprovedBy = approvedBy
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("approve payout: %w", err)
	}
	return p, nil
}

// Reject moves pending_approval straight to failed.
func (s *Service) Reject(ctx context.Context, id uint, reason string) (*models.Payout, error) {
	unlock := s.locks.Lock(payoutKey(id))
	defer unlock()

	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PayoutStatusPendingApproval {
		return nil, ErrIllegalTransition
	}
	s.markFailed(p, reason)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("reject payout: %w", err)
	}
	return p, nil
}

// MarkProcessing moves approved to processing once the holding period has
// elapsed. Processing marks disbursement intent; Complete and Fail reflect
// the provider outcome. The dispute gate lives in the settlement
// coordinator, which calls this only when no open dispute holds the
// farmer's funds.
func (s *Service) MarkProcessing(ctx context.Context, id uint) (*models.Payout, error) {
	unlock := s.locks.Lock(payoutKey(id))
	defer unlock()

	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PayoutStatusApproved {
		return nil, ErrIllegalTransition
	}
	if s.now().UTC().Before(p.ReleaseDate) {
		return nil, ErrHoldingPeriodNotElapsed
	}

	now := s.now().UTC()
	p.Status = models.PayoutStatusProcessing
	p.ProcessedAt = &now
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("process payout: %w", err)
	}
	return p, nil
}

// Complete moves processing to completed.
func (s *Service) Complete(ctx context.Context, id uint) (*models.Payout, error) {
	unlock := s.locks.Lock(payoutKey(id))
	defer unlock()

	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PayoutStatusProcessing {
		return nil, ErrIllegalTransition
	}

	now := s.now().UTC()
	p.Status = models.PayoutStatusCompleted
	p.CompletedAt = &now
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("complete payout: %w", err)
	}
	return p, nil
}

// Fail moves processing or pending_approval to failed. The net amount
// becomes payable again in a future request; the engine does not retry.
func (s *Service) Fail(ctx context.Context, id uint, reason string) (*models.Payout, error) {
	unlock := s.locks.Lock(payoutKey(id))
	defer unlock()

	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PayoutStatusProcessing && p.Status != models.PayoutStatusPendingApproval {
		return nil, ErrIllegalTransition
	}
	s.markFailed(p, reason)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("fail payout: %w", err)
	}
	return p, nil
}

// AttachLedgerEntry links the pending ledger transaction appended for this
// payout so the coordinator can finalize it later.
func (s *Service) AttachLedgerEntry(ctx context.Context, id uint, entryID string) error {
	unlock := s.locks.Lock(payoutKey(id))
	defer unlock()

	p, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	p.LedgerEntryID = entryID
	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("attach ledger entry: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Payout, error) {
	return s.get(ctx, id)
}

func (s *Service) ListByStatus(ctx context.Context, statuses ...models.PayoutStatus) ([]models.Payout, error) {
	return s.repo.ListByStatus(ctx, statuses...)
}

func (s *Service) ListByFarmer(ctx context.Context, farmerID uint) ([]models.Payout, error) {
	return s.repo.ListByFarmer(ctx, farmerID)
}

func (s *Service) get(ctx context.Context, id uint) (*models.Payout, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPayoutNotFound) {
			return nil, ErrUnknownPayout
		}
		return nil, fmt.Errorf("find payout: %w", err)
	}
	return p, nil
}

func (s *Service) markFailed(p *models.Payout, reason string) {
	p.Status = models.PayoutStatusFailed
	if reason != "" {
		if p.Notes != "" {
			p.Notes += "; "
		}
		p.Notes += reason
	}
}

func payoutKey(id uint) string {
	return fmt.Sprintf("payout:%d", id)
}
