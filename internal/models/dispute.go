package models

import "time"

// DisputeStatus tracks a buyer dispute through its lifecycle.
type DisputeStatus string

const (
	DisputeStatusOpen          DisputeStatus = "open"
	DisputeStatusInvestigating DisputeStatus = "investigating"
	DisputeStatusResolved      DisputeStatus = "resolved"
	DisputeStatusRefunded      DisputeStatus = "refunded"
)

// Terminal reports whether no further transition is legal.
func (s DisputeStatus) Terminal() bool {
	return s == DisputeStatusResolved || s == DisputeStatusRefunded
}

// Blocking reports whether the dispute still holds the farmer's payouts.
func (s DisputeStatus) Blocking() bool {
	return s == DisputeStatusOpen || s == DisputeStatusInvestigating
}

// Dispute is a buyer's contest of an order. While open or investigating it
// blocks processing of the farmer's not-yet-disbursed payouts; the hold is
// enforced at process time by the settlement coordinator, not stored here.
type Dispute struct {
	ID         uint          `gorm:"primarykey" json:"id"`
	OrderID    string        `gorm:"size:64;not null;index" json:"order_id"`
	BuyerID    uint          `gorm:"not null" json:"buyer_id"`
	BuyerName  string        `json:"buyer_name"`
	FarmerID   uint          `gorm:"not null;index" json:"farmer_id"`
	FarmerName string        `json:"farmer_name"`
	Amount     Money         `gorm:"embedded" json:"amount"`
	Reason     string        `json:"reason"`
	Status     DisputeStatus `gorm:"size:32;not null;index" json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
	Resolution string        `json:"resolution,omitempty"`
}
