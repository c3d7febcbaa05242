package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"harvestpay/internal/models"
	"harvestpay/internal/repositories"
	"harvestpay/internal/services/disbursement"
	"harvestpay/internal/services/dispute"
	"harvestpay/internal/services/ledger"
	"harvestpay/internal/services/payout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory repositories backing the real engine services, so these tests
// exercise the coordinator against the same code paths production runs.

type memLedgerRepo struct {
	mu         sync.Mutex
	byID       map[string]*models.Transaction
	seq        uint64
	failUpdate error // consumed by the next Update
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{byID: make(map[string]*models.Transaction)}
}

func (r *memLedgerRepo) Insert(_ context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[tx.ID]; exists {
		return repositories.ErrDuplicateTransaction
	}
	r.seq++
	tx.Seq = r.seq
	cp := *tx
	r.byID[tx.ID] = &cp
	return nil
}

func (r *memLedgerRepo) FindByID(_ context.Context, id string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (r *memLedgerRepo) Update(_ context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		err := r.failUpdate
		r.failUpdate = nil
		return err
	}
	if _, ok := r.byID[tx.ID]; !ok {
		return repositories.ErrTransactionNotFound
	}
	cp := *tx
	r.byID[tx.ID] = &cp
	return nil
}

func (r *memLedgerRepo) List(_ context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Transaction
	for _, tx := range r.byID {
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if filter.RelatedID != "" && tx.RelatedID != filter.RelatedID {
			continue
		}
		out = append(out, *tx)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Seq < out[i].Seq {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (r *memLedgerRepo) SumAmount(_ context.Context, typ models.TransactionType, status models.TransactionStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, tx := range r.byID {
		if tx.Type == typ && tx.Status == status {
			total += tx.Amount.Amount
		}
	}
	return total, nil
}

type memPayoutRepo struct {
	mu         sync.Mutex
	byID       map[uint]*models.Payout
	nextID     uint
	failUpdate error // consumed by the next Update
}

func newMemPayoutRepo() *memPayoutRepo {
	return &memPayoutRepo{byID: make(map[uint]*models.Payout)}
}

func (r *memPayoutRepo) Create(_ context.Context, p *models.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *memPayoutRepo) FindByID(_ context.Context, id uint) (*models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrPayoutNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPayoutRepo) Update(_ context.Context, p *models.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		err := r.failUpdate
		r.failUpdate = nil
		return err
	}
	if _, ok := r.byID[p.ID]; !ok {
		return repositories.ErrPayoutNotFound
	}
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *memPayoutRepo) ListByStatus(_ context.Context, statuses ...models.PayoutStatus) ([]models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payout
	for _, p := range r.byID {
		for _, s := range statuses {
			if p.Status == s {
				out = append(out, *p)
				break
			}
		}
	}
	return out, nil
}

func (r *memPayoutRepo) ListByFarmer(_ context.Context, farmerID uint) ([]models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payout
	for _, p := range r.byID {
		if p.FarmerID == farmerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type memDisputeRepo struct {
	mu     sync.Mutex
	byID   map[uint]*models.Dispute
	nextID uint
}

func newMemDisputeRepo() *memDisputeRepo {
	return &memDisputeRepo{byID: make(map[uint]*models.Dispute)}
}

func (r *memDisputeRepo) Create(_ context.Context, d *models.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	d.ID = r.nextID
	cp := *d
	r.byID[d.ID] = &cp
	return nil
}

func (r *memDisputeRepo) FindByID(_ context.Context, id uint) (*models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrDisputeNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memDisputeRepo) Update(_ context.Context, d *models.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[d.ID]; !ok {
		return repositories.ErrDisputeNotFound
	}
	cp := *d
	r.byID[d.ID] = &cp
	return nil
}

func (r *memDisputeRepo) ListByFarmer(_ context.Context, farmerID uint) ([]models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Dispute
	for _, d := range r.byID {
		if d.FarmerID == farmerID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *memDisputeRepo) ListByStatus(_ context.Context, status models.DisputeStatus) ([]models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Dispute
	for _, d := range r.byID {
		if d.Status == status {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *memDisputeRepo) CountBlockingByFarmer(_ context.Context, farmerID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, d := range r.byID {
		if d.FarmerID == farmerID && d.Status.Blocking() {
			n++
		}
	}
	return n, nil
}

// recordingProvider captures disbursement submissions and can be told to
// reject them.
type recordingProvider struct {
	mu       sync.Mutex
	requests []disbursement.Request
	err      error
}

func (p *recordingProvider) Disburse(_ context.Context, req disbursement.Request) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.requests = append(p.requests, req)
	return nil
}

type stubOrders map[string]uint

func (s stubOrders) FarmerForOrder(_ context.Context, orderID string) (uint, error) {
	id, ok := s[orderID]
	if !ok {
		return 0, errors.New("no such order")
	}
	return id, nil
}

type denyAll struct{}

func (denyAll) Authorize(uint, string, string) bool { return false }

type memCache struct {
	mu      sync.Mutex
	entries map[string]models.Money
	hits    int
}

func (c *memCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.hits++
	out, ok := dest.(*models.Money)
	if !ok {
		return false, errors.New("unexpected destination type")
	}
	*out = m
	return true, nil
}

func (c *memCache) SetWithTTL(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]models.Money)
	}
	c.entries[key] = value.(models.Money)
	return nil
}

type engine struct {
	svc      *Service
	ledger   *memLedgerRepo
	payouts  *memPayoutRepo
	disputes *memDisputeRepo
	provider *recordingProvider
	now      time.Time
	mu       sync.Mutex
}

func (e *engine) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

func (e *engine) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func newEngine(tweak func(*Config)) *engine {
	e := &engine{
		ledger:   newMemLedgerRepo(),
		payouts:  newMemPayoutRepo(),
		disputes: newMemDisputeRepo(),
		provider: &recordingProvider{},
		now:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	cfg := Config{
		Ledger:                ledger.NewService(e.ledger),
		Payouts:               payout.NewService(payout.Config{Repo: e.payouts, Clock: e.clock}),
		Disputes:              dispute.NewService(e.disputes),
		Orders:                stubOrders{"order-42": 7},
		Provider:              e.provider,
		CommissionRatePercent: 5,
		HoldingPeriodDays:     7,
		Currency:              "GHS",
	}
	if tweak != nil {
		tweak(&cfg)
	}
	e.svc = NewService(cfg)
	return e
}

func amaPayout() PayoutRequest {
	return PayoutRequest{
		FarmerID:      7,
		FarmerName:    "Ama",
		Email:         "ama@example.com",
		TotalAmount:   1000,
		PaymentMethod: "mobile_money",
		AccountNumber: "0244000001",
	}
}

func kofiDispute() DisputeRequest {
	return DisputeRequest{
		OrderID:   "order-42",
		BuyerID:   3,
		BuyerName: "Kofi",
		Amount:    200,
		Reason:    "produce arrived spoiled",
	}
}

// requestAndProcess drives a fresh payout to processing.
func requestAndProcess(t *testing.T, e *engine) *models.Payout {
	t.Helper()
	ctx := context.Background()

	p, err := e.svc.RequestPayout(ctx, amaPayout())
	require.NoError(t, err)
	_, err = e.svc.ApprovePayout(ctx, 1, p.ID)
	require.NoError(t, err)
	e.advance(8 * 24 * time.Hour)
	p, err = e.svc.ProcessPayout(ctx, p.ID)
	require.NoError(t, err)
	return p
}

// The full happy path: request, approve, wait out the holding period,
// process, complete. The ledger ends with a completed 950 payout entry and
// a completed 50 commission entry, and the reports reconcile back to the
// original 1000.
func TestSettlement_PayoutEndToEnd(t *testing.T) {
	e := newEngine(nil)
	ctx := context.Background()

	p, err := e.svc.RequestPayout(ctx, amaPayout())
	require.NoError(t, err)
	assert.Equal(t, int64(50), p.Commission.Amount)
	assert.Equal(t, int64(950), p.NetAmount.Amount)
	require.NotEmpty(t, p.LedgerEntryID)

	// the pending ledger entry exists from the moment of the request
	entry, err := e.svc.Transactions(ctx, models.TransactionFilter{RelatedID: "payout-1"})
	require.NoError(t, err)
	require.Len(t, entry, 1)
	assert.Equal(t, models.TransactionStatusPending, entry[0].Status)
	assert.Equal(t, int64(950), entry[0].Amount.Amount)

	_, err = e.svc.ApprovePayout(ctx, 1, p.ID)
	require.NoError(t, err)

	// holding period gates processing
	_, err = e.svc.ProcessPayout(ctx, p.ID)
	assert.ErrorIs(t, err, payout.ErrHoldingPeriodNotElapsed)

	e.advance(7 * 24 * time.Hour)

	_, err = e.svc.ProcessPayout(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, e.provider.requests, 1)
	assert.Equal(t, int64(950), e.provider.requests[0].NetAmount.Amount)
	assert.Equal(t, "0244000001", e.provider.requests[0].AccountNumber)

	p, err = e.svc.CompletePayout(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusCompleted, p.Status)

	txs, err := e.svc.Transactions(ctx, models.TransactionFilter{RelatedID: "payout-1"})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TransactionTypePayout, txs[0].Type)
	assert.Equal(t, models.TransactionStatusCompleted, txs[0].Status)
	assert.Equal(t, models.TransactionTypeCommission, txs[1].Type)
	assert.Equal(t, int64(50), txs[1].Amount.Amount)

	revenue, err := e.svc.TotalRevenue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), revenue.Amount)

	fees, err := e.svc.TotalCommissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), fees.Amount)
}

// An open dispute against the farmer's order holds the payout; resolving
// it releases the hold. A refund resolution books a completed refund entry
// for the disputed amount without touching the commission.
func TestSettlement_DisputeBlocksPayout(t *testing.T) {
	e := newEngine(nil)
	ctx := context.Background()

	p, err := e.svc.RequestPayout(ctx, amaPayout())
	require.NoError(t, err)
	_, err = e.svc.ApprovePayout(ctx, 1, p.ID)
	require.NoError(t, err)
	e.advance(8 * 24 * time.Hour)

	d, err := e.svc.OpenDispute(ctx, kofiDispute())
	require.NoError(t, err)
	assert.Equal(t, uint(7), d.FarmerID, "farmer resolved from the order")

	_, err = e.svc.ProcessPayout(ctx, p.ID)
	assert.ErrorIs(t, err, ErrDisputeBlocksPayout)
	assert.Empty(t, e.provider.requests, "nothing reached the provider")

	_, err = e.svc.InvestigateDispute(ctx, d.ID)
	require.NoError(t, err)
	_, err = e.svc.ProcessPayout(ctx, p.ID)
	assert.ErrorIs(t, err, ErrDisputeBlocksPayout, "investigation still blocks")

	_, err = e.svc.ResolveDispute(ctx, 1, d.ID, "refund the buyer", true)
	require.NoError(t, err)

	refunds, err := e.svc.Transactions(ctx, models.TransactionFilter{Type: models.TransactionTypeRefund})
	require.NoError(t, err)
	require.Len(t, refunds, 1)
	assert.Equal(t, int64(200), refunds[0].Amount.Amount)
	assert.Equal(t, "order-42", refunds[0].RelatedID)
	assert.Equal(t, models.TransactionStatusCompleted, refunds[0].Status)

	// the hold is gone
	_, err = e.svc.ProcessPayout(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, e.provider.requests, 1)
}

func TestSettlement_ProviderFailureFailsPayout(t *testing.T) {
	e := newEngine(nil)
	e.provider.err = errors.New("provider unavailable")
	ctx := context.Background()

	p, err := e.svc.RequestPayout(ctx, amaPayout())
	require.NoError(t, err)
	_, err = e.svc.ApprovePayout(ctx, 1, p.ID)
	require.NoError(t, err)
	e.advance(8 * 24 * time.Hour)

	_, err = e.svc.ProcessPayout(ctx, p.ID)
	require.Error(t, err)

	p, err = e.svc.GetPayout(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusFailed, p.Status)

	// the pending ledger entry is finalized as failed, never left dangling
	txs, err := e.svc.Transactions(ctx, models.TransactionFilter{RelatedID: "payout-1"})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionStatusFailed, txs[0].Status)

	revenue, err := e.svc.TotalRevenue(ctx)
	require.NoError(t, err)
	assert.Zero(t, revenue.Amount, "failed payouts contribute nothing")
}

// A store error while finalizing the ledger entry must not strand the
// books: the payout stays in processing, nothing is booked, and a repeated
// completion settles both sides.
func TestSettlement_CompleteRetriesAfterLedgerError(t *testing.T) {
	e := newEngine(nil)
	ctx := context.Background()

	p := requestAndProcess(t, e)

	e.ledger.failUpdate = errors.New("connection reset")
	_, err := e.svc.CompletePayout(ctx, p.ID)
	require.Error(t, err)

	got, err := e.svc.GetPayout(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusProcessing, got.Status, "payout untouched until the ledger settles")

	txs, err := e.svc.Transactions(ctx, models.TransactionFilter{RelatedID: "payout-1"})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionStatusPending, txs[0].Status)

	fees, err := e.svc.TotalCommissions(ctx)
	require.NoError(t, err)
	assert.Zero(t, fees.Amount, "no commission booked on the failed attempt")

	p, err = e.svc.CompletePayout(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusCompleted, p.Status)

	txs, err = e.svc.Transactions(ctx, models.TransactionFilter{RelatedID: "payout-1"})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TransactionStatusCompleted, txs[0].Status)
	assert.Equal(t, models.TransactionTypeCommission, txs[1].Type)
}

// A store error on the payout record itself, after the ledger has settled,
// must converge on retry: the second completion re-finalizes and re-books
// as no-ops and exactly one commission entry survives.
func TestSettlement_CompleteRetriesAfterPayoutStoreError(t *testing.T) {
	e := newEngine(nil)
	ctx := context.Background()

	p := requestAndProcess(t, e)

	e.payouts.failUpdate = errors.New("connection reset")
	_, err := e.svc.CompletePayout(ctx, p.ID)
	require.Error(t, err)

	got, err := e.svc.GetPayout(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusProcessing, got.Status)

	p, err = e.svc.CompletePayout(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusCompleted, p.Status)

	commissions, err := e.svc.Transactions(ctx, models.TransactionFilter{Type: models.TransactionTypeCommission})
	require.NoError(t, err)
	require.Len(t, commissions, 1, "one commission entry across both attempts")
	assert.Equal(t, int64(50), commissions[0].Amount.Amount)

	revenue, err := e.svc.TotalRevenue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), revenue.Amount)
}

func TestSettlement_RejectPayout(t *testing.T) {
	e := newEngine(nil)
	ctx := context.Background()

	p, err := e.svc.RequestPayout(ctx, amaPayout())
	require.NoError(t, err)

	p, err = e.svc.RejectPayout(ctx, 1, p.ID, "account number mismatch")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusFailed, p.Status)
	assert.Contains(t, p.Notes, "account number mismatch")

	txs, err := e.svc.Transactions(ctx, models.TransactionFilter{RelatedID: "payout-1"})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionStatusFailed, txs[0].Status)

	// a rejected payout cannot be approved afterwards
	_, err = e.svc.ApprovePayout(ctx, 1, p.ID)
	assert.ErrorIs(t, err, payout.ErrIllegalTransition)
}

func TestSettlement_RejectedPayoutFinalizesLedger(t *testing.T) {
	e := newEngine(nil)
	ctx := context.Background()

	p, err := e.svc.RequestPayout(ctx, amaPayout())
	require.NoError(t, err)

	_, err = e.svc.FailPayout(ctx, p.ID, "account number mismatch")
	require.NoError(t, err)

	txs, err := e.svc.Transactions(ctx, models.TransactionFilter{RelatedID: "payout-1"})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionStatusFailed, txs[0].Status)
}

func TestSettlement_Unauthorized(t *testing.T) {
	e := newEngine(func(cfg *Config) {
		cfg.Authorizer = denyAll{}
	})
	ctx := context.Background()

	p, err := e.svc.RequestPayout(ctx, amaPayout())
	require.NoError(t, err)

	_, err = e.svc.ApprovePayout(ctx, 1, p.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = e.svc.RejectPayout(ctx, 1, p.ID, "x")
	assert.ErrorIs(t, err, ErrUnauthorized)

	d, err := e.svc.OpenDispute(ctx, kofiDispute())
	require.NoError(t, err)
	_, err = e.svc.ResolveDispute(ctx, 1, d.ID, "x", false)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// nothing moved
	got, err := e.svc.GetPayout(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusPendingApproval, got.Status)
}

func TestSettlement_UnknownOrder(t *testing.T) {
	e := newEngine(nil)

	req := kofiDispute()
	req.OrderID = "order-404"
	_, err := e.svc.OpenDispute(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestSettlement_ExplicitFarmerSkipsDirectory(t *testing.T) {
	e := newEngine(nil)

	req := kofiDispute()
	req.OrderID = "order-404"
	req.FarmerID = 9

	d, err := e.svc.OpenDispute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, uint(9), d.FarmerID)
}

func TestSettlement_PendingPayouts(t *testing.T) {
	e := newEngine(nil)
	ctx := context.Background()

	first, err := e.svc.RequestPayout(ctx, amaPayout())
	require.NoError(t, err)

	second := amaPayout()
	second.FarmerID = 8
	second.FarmerName = "Kwame"
	_, err = e.svc.RequestPayout(ctx, second)
	require.NoError(t, err)

	pending, err := e.svc.PendingPayouts(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = e.svc.ApprovePayout(ctx, 1, first.ID)
	require.NoError(t, err)
	e.advance(8 * 24 * time.Hour)
	_, err = e.svc.ProcessPayout(ctx, first.ID)
	require.NoError(t, err)
	_, err = e.svc.CompletePayout(ctx, first.ID)
	require.NoError(t, err)

	pending, err = e.svc.PendingPayouts(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "completed payouts drop off the pending report")

	completed, err := e.svc.CompletedPayouts(ctx)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, first.ID, completed[0].ID)
}

func TestSettlement_ReportCache(t *testing.T) {
	cache := &memCache{}
	e := newEngine(func(cfg *Config) {
		cfg.Cache = cache
	})
	ctx := context.Background()

	revenue, err := e.svc.TotalRevenue(ctx)
	require.NoError(t, err)
	assert.Zero(t, revenue.Amount)

	// second read is served from the cache
	_, err = e.svc.TotalRevenue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
}
