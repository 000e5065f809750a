package models

import "time"

// UserHolding is one user's share position in one pool. The checkpoint is
// the pool's yield-per-share value at the user's last claim or purchase;
// claims settle the delta between the pool accumulator and this value, so a
// buyer never collects yield distributed before they entered.
type UserHolding struct {
	UserID          string    `db:"user_id" json:"user_id"`
	PoolID          int64     `db:"pool_id" json:"pool_id"`
	Shares          int64     `db:"shares" json:"shares"`
	YieldCheckpoint int64     `db:"yield_checkpoint" json:"yield_checkpoint"` // scaled by services.Scale
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// UserAggregate caches a user's share total across all pools. It is updated
// in the same transaction as any holding change and must always equal the
// sum of that user's holdings.
type UserAggregate struct {
	UserID      string    `db:"user_id" json:"user_id"`
	TotalShares int64     `db:"total_shares" json:"total_shares"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
