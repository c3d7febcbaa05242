// Package settlement is the façade external collaborators call. It
// orchestrates the ledger, the payout state machine and the dispute
// resolver, and enforces the cross-component invariants: only the
// coordinator writes the ledger, and a payout cannot be released while an
// open dispute holds the farmer's funds.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"harvestpay/internal/models"
	"harvestpay/internal/services/disbursement"
	"harvestpay/internal/services/dispute"
	"harvestpay/internal/services/ledger"
	"harvestpay/internal/services/payout"

	"github.com/sirupsen/logrus"
)

// Config wires the coordinator. Ledger, Payouts and Disputes are required;
// everything else has a safe default.
type Config struct {
	Ledger     *ledger.Service
	Payouts    *payout.Service
	Disputes   *dispute.Service
	Orders     OrderDirectory
	Provider   disbursement.Provider
	Authorizer Authorizer
	Cache      ReportCache
	Logger     *logrus.Logger

	// CommissionRatePercent and HoldingPeriodDays apply to every new
	// payout request. Rate changes never touch existing payouts.
	CommissionRatePercent float64
	HoldingPeriodDays     int
	Currency              string
}

type Service struct {
	ledger      *ledger.Service
	payouts     *payout.Service
	disputes    *dispute.Service
	orders      OrderDirectory
	provider    disbursement.Provider
	authz       Authorizer
	cache       ReportCache
	log         *logrus.Logger
	ratePercent float64
	holdingDays int
	currency    string
}

func NewService(cfg Config) *Service {
	if cfg.Ledger == nil {
		panic("ledger service is required")
	}
	if cfg.Payouts == nil {
		panic("payout service is required")
	}
	if cfg.Disputes == nil {
		panic("dispute service is required")
	}
	if cfg.Provider == nil {
		cfg.Provider = disbursement.ManualProvider{}
	}
	if cfg.Authorizer == nil {
		cfg.Authorizer = PermitAll{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Currency == "" {
		cfg.Currency = models.DefaultCurrency
	}
	return &Service{
		ledger:      cfg.Ledger,
		payouts:     cfg.Payouts,
		disputes:    cfg.Disputes,
		orders:      cfg.Orders,
		provider:    cfg.Provider,
		authz:       cfg.Authorizer,
		cache:       cfg.Cache,
		log:         cfg.Logger,
		ratePercent: cfg.CommissionRatePercent,
		holdingDays: cfg.HoldingPeriodDays,
		currency:    cfg.Currency,
	}
}

// PayoutRequest is what external collaborators supply to open a payout.
// Amounts are in minor currency units.
type PayoutRequest struct {
	FarmerID      uint   `json:"farmer_id"`
	FarmerName    string `json:"farmer_name"`
	Email         string `json:"email"`
	TotalAmount   int64  `json:"total_amount"`
	PaymentMethod string `json:"payment_method"`
	AccountNumber string `json:"account_number"`
	Notes         string `json:"notes"`
}

// DisputeRequest is what a buyer's contest of an order carries. FarmerID
// may be zero when an OrderDirectory is configured; it is then resolved
// from the order.
type DisputeRequest struct {
	OrderID    string `json:"order_id"`
	BuyerID    uint   `json:"buyer_id"`
	BuyerName  string `json:"buyer_name"`
	FarmerID   uint   `json:"farmer_id"`
	FarmerName string `json:"farmer_name"`
	Amount     int64  `json:"amount"`
	Reason     string `json:"reason"`
}

// RequestPayout opens a payout and appends the matching pending ledger
// entry for the net amount. The ledger entry id is stored on the payout so
// completion and failure can finalize it.
func (s *Service) RequestPayout(ctx context.Context, req PayoutRequest) (*models.Payout, error) {
	p, err := s.payouts.Request(ctx, payout.RequestInput{
		FarmerID:          req.FarmerID,
		FarmerName:        req.FarmerName,
		Email:             req.Email,
		TotalAmount:       models.NewMoney(req.TotalAmount, s.currency),
		RatePercent:       s.ratePercent,
		HoldingPeriodDays: s.holdingDays,
		PaymentMethod:     req.PaymentMethod,
		AccountNumber:     req.AccountNumber,
		Notes:             req.Notes,
	})
	if err != nil {
		return nil, err
	}

	entry, err := s.ledger.Append(ctx, ledger.AppendInput{
		Type:          models.TransactionTypePayout,
		Status:        models.TransactionStatusPending,
		Amount:        p.NetAmount,
		Description:   fmt.Sprintf("payout to %s", p.FarmerName),
		RelatedID:     payoutRef(p.ID),
		PaymentMethod: p.PaymentMethod,
	})
	if err != nil {
		// Without a ledger entry the payout cannot be reconciled; close it
		// out rather than leave it half-created.
		if _, ferr := s.payouts.Fail(ctx, p.ID, "ledger append failed"); ferr != nil {
			s.log.WithError(ferr).WithField("payout_id", p.ID).Error("could not fail payout after ledger error")
		}
		return nil, err
	}
	if err := s.payouts.AttachLedgerEntry(ctx, p.ID, entry.ID); err != nil {
		return nil, err
	}
	p.LedgerEntryID = entry.ID

	s.log.WithFields(logrus.Fields{
		"payout_id": p.ID,
		"farmer_id": p.FarmerID,
		"gross":     p.TotalAmount.Amount,
		"net":       p.NetAmount.Amount,
	}).Info("payout requested")
	return p, nil
}

// ApprovePayout records an approval by the given actor.
func (s *Service) ApprovePayout(ctx context.Context, actorID uint, payoutID uint) (*models.Payout, error) {
	if !s.authz.Authorize(actorID, ActionApprovePayout, payoutRef(payoutID)) {
		return nil, ErrUnauthorized
	}
	return s.payouts.Approve(ctx, payoutID, strconv.FormatUint(uint64(actorID), 10))
}

// ProcessPayout releases an approved payout to the disbursement provider.
// It fails with ErrDisputeBlocksPayout while any open or investigating
// dispute references the farmer's orders, and with
// payout.ErrHoldingPeriodNotElapsed before the release date. The provider
// call is issued after the payout lock is released; the record stays in
// processing as the in-flight marker, so a crash mid-call is recoverable
// by polling the provider and then calling CompletePayout or FailPayout.
func (s *Service) ProcessPayout(ctx context.Context, payoutID uint) (*models.Payout, error) {
	p, err := s.payouts.Get(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	blocked, err := s.disputes.HasBlockingDisputeForFarmer(ctx, p.FarmerID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrDisputeBlocksPayout
	}

	p, err = s.payouts.MarkProcessing(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	if err := s.provider.Disburse(ctx, disbursement.Request{
		PayoutID:      p.ID,
		AccountNumber: p.AccountNumber,
		NetAmount:     p.NetAmount,
		PaymentMethod: p.PaymentMethod,
		Description:   fmt.Sprintf("harvestpay payout %d", p.ID),
	}); err != nil {
		if _, ferr := s.FailPayout(ctx, payoutID, "disbursement submission failed"); ferr != nil {
			s.log.WithError(ferr).WithField("payout_id", payoutID).Error("could not fail payout after submission error")
		}
		return nil, fmt.Errorf("submit disbursement: %w", err)
	}

	s.log.WithField("payout_id", p.ID).Info("payout submitted for disbursement")
	return p, nil
}

// CompletePayout records the provider's success. The ledger settles first:
// the pending payout entry is finalized and the platform commission is
// booked under a deterministic id, both retry-safe, and only then does the
// payout itself turn completed. A store error at any step leaves the payout
// in processing and a repeated call converges; commission is only ever
// counted on completed payouts.
func (s *Service) CompletePayout(ctx context.Context, payoutID uint) (*models.Payout, error) {
	p, err := s.payouts.Get(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PayoutStatusProcessing {
		return nil, payout.ErrIllegalTransition
	}

	if p.LedgerEntryID != "" {
		if _, err := s.ledger.Finalize(ctx, p.LedgerEntryID, models.TransactionStatusCompleted, time.Now().UTC()); err != nil {
			return nil, err
		}
	}
	if p.Commission.IsPositive() {
		_, err := s.ledger.Append(ctx, ledger.AppendInput{
			ID:          commissionRef(p.ID),
			Type:        models.TransactionTypeCommission,
			Status:      models.TransactionStatusCompleted,
			Amount:      p.Commission,
			Description: fmt.Sprintf("platform commission on payout %d", p.ID),
			RelatedID:   payoutRef(p.ID),
		})
		if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
			return nil, err
		}
	}

	p, err = s.payouts.Complete(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"payout_id": p.ID,
		"net":       p.NetAmount.Amount,
	}).Info("payout completed")
	return p, nil
}

// FailPayout records the provider's failure. The ledger entry is finalized
// as failed before the payout record turns, so a store error leaves the
// payout non-terminal and a repeated call converges. A failed payout is a
// normal terminal outcome, not a system fault.
func (s *Service) FailPayout(ctx context.Context, payoutID uint, reason string) (*models.Payout, error) {
	p, err := s.payouts.Get(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PayoutStatusProcessing && p.Status != models.PayoutStatusPendingApproval {
		return nil, payout.ErrIllegalTransition
	}

	if p.LedgerEntryID != "" {
		if _, err := s.ledger.Finalize(ctx, p.LedgerEntryID, models.TransactionStatusFailed, time.Now().UTC()); err != nil {
			return nil, err
		}
	}

	p, err = s.payouts.Fail(ctx, payoutID, reason)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"payout_id": p.ID,
		"reason":    reason,
	}).Info("payout failed")
	return p, nil
}

// RejectPayout declines a payout at review time, before approval. The
// pending ledger entry is finalized as failed first, same as FailPayout.
func (s *Service) RejectPayout(ctx context.Context, actorID uint, payoutID uint, reason string) (*models.Payout, error) {
	if !s.authz.Authorize(actorID, ActionApprovePayout, payoutRef(payoutID)) {
		return nil, ErrUnauthorized
	}

	p, err := s.payouts.Get(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PayoutStatusPendingApproval {
		return nil, payout.ErrIllegalTransition
	}

	if p.LedgerEntryID != "" {
		if _, err := s.ledger.Finalize(ctx, p.LedgerEntryID, models.TransactionStatusFailed, time.Now().UTC()); err != nil {
			return nil, err
		}
	}

	p, err = s.payouts.Reject(ctx, payoutID, reason)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"payout_id": p.ID,
		"actor_id":  actorID,
	}).Info("payout rejected")
	return p, nil
}

// OpenDispute files a buyer dispute. From this moment until the dispute
// reaches a terminal state, the farmer's not-yet-disbursed payouts cannot
// be processed.
func (s *Service) OpenDispute(ctx context.Context, req DisputeRequest) (*models.Dispute, error) {
	farmerID := req.FarmerID
	if farmerID == 0 && s.orders != nil {
		id, err := s.orders.FarmerForOrder(ctx, req.OrderID)
		if err != nil {
			return nil, ErrUnknownOrder
		}
		farmerID = id
	}

	d, err := s.disputes.Open(ctx, dispute.OpenInput{
		OrderID:    req.OrderID,
		BuyerID:    req.BuyerID,
		BuyerName:  req.BuyerName,
		FarmerID:   farmerID,
		FarmerName: req.FarmerName,
		Amount:     models.NewMoney(req.Amount, s.currency),
		Reason:     req.Reason,
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"dispute_id": d.ID,
		"order_id":   d.OrderID,
		"farmer_id":  d.FarmerID,
	}).Info("dispute opened, farmer payouts held until resolution")
	return d, nil
}

// InvestigateDispute moves an open dispute into investigation.
func (s *Service) InvestigateDispute(ctx context.Context, disputeID uint) (*models.Dispute, error) {
	return s.disputes.BeginInvestigation(ctx, disputeID)
}

// ResolveDispute closes a dispute. When upheld with a refund, a completed
// refund ledger entry is appended for the disputed amount, keyed to the
// order. The commission already taken on the farmer's payout is not
// clawed back.
func (s *Service) ResolveDispute(ctx context.Context, actorID uint, disputeID uint, resolution string, shouldRefund bool) (*models.Dispute, error) {
	if !s.authz.Authorize(actorID, ActionResolveDispute, disputeRef(disputeID)) {
		return nil, ErrUnauthorized
	}

	d, err := s.disputes.Resolve(ctx, disputeID, resolution, shouldRefund)
	if err != nil {
		return nil, err
	}

	if shouldRefund {
		if _, err := s.ledger.Append(ctx, ledger.AppendInput{
			Type:        models.TransactionTypeRefund,
			Status:      models.TransactionStatusCompleted,
			Amount:      d.Amount,
			Description: fmt.Sprintf("refund to %s for order %s", d.BuyerName, d.OrderID),
			RelatedID:   d.OrderID,
		}); err != nil {
			return nil, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"dispute_id": d.ID,
		"refunded":   shouldRefund,
	}).Info("dispute resolved")
	return d, nil
}

func (s *Service) GetPayout(ctx context.Context, id uint) (*models.Payout, error) {
	return s.payouts.Get(ctx, id)
}

func (s *Service) GetDispute(ctx context.Context, id uint) (*models.Dispute, error) {
	return s.disputes.Get(ctx, id)
}

func (s *Service) FarmerPayouts(ctx context.Context, farmerID uint) ([]models.Payout, error) {
	return s.payouts.ListByFarmer(ctx, farmerID)
}

func payoutRef(id uint) string {
	return fmt.Sprintf("payout-%d", id)
}

func disputeRef(id uint) string {
	return fmt.Sprintf("dispute-%d", id)
}

// commissionRef is the deterministic ledger id for a payout's commission
// entry; appending it twice stores exactly one record.
func commissionRef(id uint) string {
	return fmt.Sprintf("commission-payout-%d", id)
}
