package settlement

import (
	"context"
	"time"
)

// Settlement actions gated by the Authorizer.
const (
	ActionApprovePayout  = "payout:approve"
	ActionResolveDispute = "dispute:resolve"
)

// Authorizer confirms an actor may perform a privileged settlement action.
// How roles and permissions are modelled lives upstream; this is the one
// capability the engine consumes at its boundary.
type Authorizer interface {
	Authorize(actorID uint, action string, resourceID string) bool
}

// PermitAll trusts the upstream access-control collaborator to have
// already authorized the caller. It is the default.
type PermitAll struct{}

func (PermitAll) Authorize(uint, string, string) bool { return true }

// OrderDirectory resolves a marketplace order to the farmer paid for it.
// Implemented by the order/catalog collaborator.
type OrderDirectory interface {
	FarmerForOrder(ctx context.Context, orderID string) (uint, error)
}

// ReportCache keeps reporting aggregates warm. Implemented by the Redis
// cache service; a nil cache disables caching.
type ReportCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}
