package services

import (
	"context"

	"github.com/ferreirogomes/quotapool/models"
)

// Store is the persistence interface for the pool engine. Lookups are keyed
// (pool id, user id, or the pair); no ordered iteration is required except
// ListHoldingsByPool, which exists for reconciliation and tests. The SaveX
// methods commit every record of one engine operation atomically.
type Store interface {
	// Users
	SaveUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)

	// Pools. Lifecycle is the only field mutated outside the composite
	// SaveX methods, so the write is narrowed to the flag and can never
	// clobber the share or yield counters.
	CreatePool(ctx context.Context, pool models.AssetPool) (models.AssetPool, error)
	GetPool(ctx context.Context, id int64) (models.AssetPool, error)
	SetPoolActive(ctx context.Context, poolID int64, active bool) error

	// Holdings
	GetHolding(ctx context.Context, userID string, poolID int64) (models.UserHolding, error)
	ListHoldingsByPool(ctx context.Context, poolID int64) ([]models.UserHolding, error)
	// GetUserAggregate returns a zero-valued aggregate, not an error, for
	// users who never purchased.
	GetUserAggregate(ctx context.Context, userID string) (models.UserAggregate, error)

	// Yield
	GetYieldState(ctx context.Context, poolID int64) (models.PoolYieldState, error)
	GetDistribution(ctx context.Context, id string) (models.Distribution, error)

	// Platform settings. GetSettings returns a zero fee rate when nothing
	// was ever saved.
	GetSettings(ctx context.Context) (models.PlatformSettings, error)
	SaveSettings(ctx context.Context, settings models.PlatformSettings) error

	// Composite mutations, one transaction each.
	SavePurchase(ctx context.Context, update PurchaseUpdate) error
	SaveDistribution(ctx context.Context, update DistributionUpdate) error
	SaveClaim(ctx context.Context, update ClaimUpdate) error
}

// PurchaseUpdate carries every record touched by one share purchase.
type PurchaseUpdate struct {
	Pool      models.AssetPool
	Holding   models.UserHolding
	Aggregate models.UserAggregate
}

// DistributionUpdate carries every record touched by one yield deposit.
type DistributionUpdate struct {
	Pool   models.AssetPool
	Yield  models.PoolYieldState
	Record models.Distribution
}

// ClaimUpdate advances a holder's checkpoint after payout.
type ClaimUpdate struct {
	Holding models.UserHolding
}
