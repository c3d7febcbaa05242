package settlement

import (
	"context"
	"time"

	"harvestpay/internal/models"
)

// Reporting cache keys and TTL. Reports tolerate short staleness; writes
// do not invalidate.
const (
	cacheKeyRevenue     = "reports:revenue"
	cacheKeyCommissions = "reports:commissions"
	reportCacheTTL      = time.Minute
)

// TotalRevenue is the gross settled volume: completed payout net plus the
// commission booked on those payouts, summed from the ledger.
func (s *Service) TotalRevenue(ctx context.Context) (models.Money, error) {
	if total, ok := s.cachedMoney(ctx, cacheKeyRevenue); ok {
		return total, nil
	}

	net, err := s.ledger.TotalByType(ctx, models.TransactionTypePayout, models.TransactionStatusCompleted)
	if err != nil {
		return models.Money{}, err
	}
	fees, err := s.ledger.TotalByType(ctx, models.TransactionTypeCommission, models.TransactionStatusCompleted)
	if err != nil {
		return models.Money{}, err
	}

	total := net.Add(fees)
	s.cacheMoney(ctx, cacheKeyRevenue, total)
	return total, nil
}

// TotalCommissions sums the commission booked on completed payouts.
func (s *Service) TotalCommissions(ctx context.Context) (models.Money, error) {
	if total, ok := s.cachedMoney(ctx, cacheKeyCommissions); ok {
		return total, nil
	}

	total, err := s.ledger.TotalByType(ctx, models.TransactionTypeCommission, models.TransactionStatusCompleted)
	if err != nil {
		return models.Money{}, err
	}
	s.cacheMoney(ctx, cacheKeyCommissions, total)
	return total, nil
}

// PendingPayouts lists every payout that has not reached a terminal state.
func (s *Service) PendingPayouts(ctx context.Context) ([]models.Payout, error) {
	return s.payouts.ListByStatus(ctx,
		models.PayoutStatusPendingApproval,
		models.PayoutStatusApproved,
		models.PayoutStatusProcessing,
	)
}

// CompletedPayouts lists payouts that settled successfully.
func (s *Service) CompletedPayouts(ctx context.Context) ([]models.Payout, error) {
	return s.payouts.ListByStatus(ctx, models.PayoutStatusCompleted)
}

// Transactions exposes the ledger query surface for reporting.
func (s *Service) Transactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	return s.ledger.Query(ctx, filter)
}

func (s *Service) cachedMoney(ctx context.Context, key string) (models.Money, bool) {
	if s.cache == nil {
		return models.Money{}, false
	}
	var m models.Money
	found, err := s.cache.Get(ctx, key, &m)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("report cache read failed")
		return models.Money{}, false
	}
	return m, found
}

func (s *Service) cacheMoney(ctx context.Context, key string, m models.Money) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetWithTTL(ctx, key, m, reportCacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("report cache write failed")
	}
}
