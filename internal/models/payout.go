package models

import "time"

// PayoutStatus tracks a farmer payout through its lifecycle.
type PayoutStatus string

const (
	PayoutStatusPendingApproval PayoutStatus = "pending_approval"
	PayoutStatusApproved        PayoutStatus = "approved"
	PayoutStatusProcessing      PayoutStatus = "processing"
	PayoutStatusCompleted       PayoutStatus = "completed"
	PayoutStatusFailed          PayoutStatus = "failed"
)

// Terminal reports whether no further transition is legal.
func (s PayoutStatus) Terminal() bool {
	return s == PayoutStatusCompleted || s == PayoutStatusFailed
}

// Payout is a commission-adjusted disbursement owed to a farmer.
// Commission and net are computed once at request time and never
// recomputed; rate changes do not retroactively affect existing payouts.
type Payout struct {
	ID                uint         `gorm:"primarykey" json:"id"`
	FarmerID          uint         `gorm:"not null;index" json:"farmer_id"`
	FarmerName        string       `json:"farmer_name"`
	Email             string       `json:"email"`
	TotalAmount       Money        `gorm:"embedded;embeddedPrefix:total_" json:"total_amount"`
	Commission        Money        `gorm:"embedded;embeddedPrefix:commission_" json:"commission"`
	NetAmount         Money        `gorm:"embedded;embeddedPrefix:net_" json:"net_amount"`
	Status            PayoutStatus `gorm:"size:32;not null;index" json:"status"`
	PaymentMethod     string       `gorm:"size:32" json:"payment_method"`
	AccountNumber     string       `gorm:"size:64" json:"account_number"`
	RequestedAt       time.Time    `json:"requested_at"`
	ApprovedAt        *time.Time   `json:"approved_at,omitempty"`
	ApprovedBy        string       `gorm:"size:64" json:"approved_by,omitempty"`
	ProcessedAt       *time.Time   `json:"processed_at,omitempty"`
	CompletedAt       *time.Time   `json:"completed_at,omitempty"`
	HoldingPeriodDays int          `json:"holding_period_days"`
	ReleaseDate       time.Time    `json:"release_date"`
	Notes             string       `json:"notes,omitempty"`
	// LedgerEntryID links the pending payout transaction appended at
	// request time so the coordinator can finalize it on completion.
	LedgerEntryID string `gorm:"size:64;index" json:"ledger_entry_id,omitempty"`
}
