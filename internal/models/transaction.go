package models

import "time"

// TransactionType classifies how money moved.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypePayout     TransactionType = "payout"
	TransactionTypeCommission TransactionType = "commission"
)

// TransactionStatus tracks a ledger entry through its lifecycle.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusOnHold    TransactionStatus = "on_hold"
)

// Terminal reports whether no further status transition is legal.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// Transaction is one entry in the append-only ledger, the source of truth
// for all monetary reporting. Entries are immutable once appended except
// for status finalization (pending/on_hold to completed/failed).
type Transaction struct {
	ID            string            `gorm:"primarykey;size:64" json:"id"`
	Seq           uint64            `gorm:"autoIncrement;uniqueIndex" json:"seq"`
	Type          TransactionType   `gorm:"size:32;not null;index" json:"type"`
	Status        TransactionStatus `gorm:"size:32;not null;index" json:"status"`
	Amount        Money             `gorm:"embedded" json:"amount"`
	Description   string            `json:"description,omitempty"`
	RelatedID     string            `gorm:"size:64;index" json:"related_id,omitempty"`
	PaymentMethod string            `gorm:"size:32" json:"payment_method,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

// TransactionFilter selects ledger entries for queries. Zero values leave
// a dimension unconstrained.
type TransactionFilter struct {
	Type      TransactionType
	Status    TransactionStatus
	RelatedID string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
