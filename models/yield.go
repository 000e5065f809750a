package models

import "time"

// PoolYieldState tracks cumulative yield accounting for one pool.
// YieldPerShare is a fixed-point accumulator (scaled by services.Scale) and
// never decreases. Dust is the integer-division remainder retained in pool
// custody and rolled into the next distribution.
type PoolYieldState struct {
	PoolID              int64     `db:"pool_id" json:"pool_id"`
	TotalYieldAvailable int64     `db:"total_yield_available" json:"total_yield_available"`
	YieldPerShare       int64     `db:"yield_per_share" json:"yield_per_share"`
	Dust                int64     `db:"dust" json:"dust"`
	LastDistribution    time.Time `db:"last_distribution" json:"last_distribution"`
}

// Distribution is the audit record of one yield deposit.
type Distribution struct {
	ID          string    `db:"id" json:"id"`
	PoolID      int64     `db:"pool_id" json:"pool_id"`
	Caller      string    `db:"caller" json:"caller"`
	GrossAmount int64     `db:"gross_amount" json:"gross_amount"`
	FeeAmount   int64     `db:"fee_amount" json:"fee_amount"`
	NetAmount   int64     `db:"net_amount" json:"net_amount"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
