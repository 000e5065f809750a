package models

import "time"

// AssetPool represents fractional ownership of one real-world or digital
// asset, sized by a maximum share count. Identity, pricing and capacity are
// fixed at creation; only the share counter, the distributed-yield total and
// the active flag move afterwards.
type AssetPool struct {
	ID                    int64     `db:"id" json:"id"`
	Creator               string    `db:"creator" json:"creator"`
	AssetName             string    `db:"asset_name" json:"asset_name"`
	AssetDescription      string    `db:"asset_description" json:"asset_description"`
	AssetType             string    `db:"asset_type" json:"asset_type"`
	TokenPrice            int64     `db:"token_price" json:"token_price"` // reward-token units per share
	MaxShares             int64     `db:"max_shares" json:"max_shares"`
	CurrentShares         int64     `db:"current_shares" json:"current_shares"`
	TotalYieldDistributed int64     `db:"total_yield_distributed" json:"total_yield_distributed"`
	IsActive              bool      `db:"is_active" json:"is_active"`
	Custody               string    `db:"custody" json:"custody"` // wallet holding this pool's tokens
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}

// PlatformSettings holds registry-wide administrative state.
type PlatformSettings struct {
	FeeRateBps int64     `db:"fee_rate_bps" json:"fee_rate_bps"` // basis points, capped at 1000
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
