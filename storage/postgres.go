package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ferreirogomes/quotapool/models"
	"github.com/ferreirogomes/quotapool/services"
)

// Keyed lookups and the composite ledger mutations. Every SaveX method runs
// inside one transaction so an engine operation commits all of its records
// or none of them.

func (d *DB) SaveUser(ctx context.Context, user models.User) error {
	query := `INSERT INTO users (id, name, email, wallet, created_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (id) DO UPDATE SET name = $2, email = $3, wallet = $4`
	if _, err := d.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.Wallet, user.CreatedAt); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (d *DB) GetUser(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := d.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, services.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// CreatePool assigns the next sequential id and creates the pool's empty
// yield state in the same transaction.
func (d *DB) CreatePool(ctx context.Context, pool models.AssetPool) (models.AssetPool, error) {
	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return models.AssetPool{}, fmt.Errorf("begin create pool: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO pools
	          (creator, asset_name, asset_description, asset_type, token_price,
	           max_shares, current_shares, total_yield_distributed, is_active, custody, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING id`
	if err := tx.GetContext(ctx, &pool.ID, query,
		pool.Creator, pool.AssetName, pool.AssetDescription, pool.AssetType,
		pool.TokenPrice, pool.MaxShares, pool.CurrentShares,
		pool.TotalYieldDistributed, pool.IsActive, pool.Custody, pool.CreatedAt,
	); err != nil {
		return models.AssetPool{}, fmt.Errorf("insert pool: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pool_yield_state (pool_id) VALUES ($1)`, pool.ID); err != nil {
		return models.AssetPool{}, fmt.Errorf("insert yield state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.AssetPool{}, fmt.Errorf("commit create pool: %w", err)
	}
	return pool, nil
}

func (d *DB) GetPool(ctx context.Context, id int64) (models.AssetPool, error) {
	var pool models.AssetPool
	err := d.GetContext(ctx, &pool, `SELECT * FROM pools WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AssetPool{}, services.ErrPoolNotFound
	}
	if err != nil {
		return models.AssetPool{}, fmt.Errorf("get pool: %w", err)
	}
	return pool, nil
}

func (d *DB) SetPoolActive(ctx context.Context, poolID int64, active bool) error {
	res, err := d.ExecContext(ctx,
		`UPDATE pools SET is_active = $2 WHERE id = $1`, poolID, active)
	if err != nil {
		return fmt.Errorf("set pool active: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.ErrPoolNotFound
	}
	return nil
}

func (d *DB) GetHolding(ctx context.Context, userID string, poolID int64) (models.UserHolding, error) {
	var holding models.UserHolding
	err := d.GetContext(ctx, &holding,
		`SELECT * FROM holdings WHERE user_id = $1 AND pool_id = $2`, userID, poolID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserHolding{}, services.ErrHoldingNotFound
	}
	if err != nil {
		return models.UserHolding{}, fmt.Errorf("get holding: %w", err)
	}
	return holding, nil
}

func (d *DB) ListHoldingsByPool(ctx context.Context, poolID int64) ([]models.UserHolding, error) {
	var holdings []models.UserHolding
	if err := d.SelectContext(ctx, &holdings,
		`SELECT * FROM holdings WHERE pool_id = $1`, poolID); err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	return holdings, nil
}

func (d *DB) GetUserAggregate(ctx context.Context, userID string) (models.UserAggregate, error) {
	var aggregate models.UserAggregate
	err := d.GetContext(ctx, &aggregate,
		`SELECT * FROM user_aggregates WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserAggregate{UserID: userID}, nil
	}
	if err != nil {
		return models.UserAggregate{}, fmt.Errorf("get user aggregate: %w", err)
	}
	return aggregate, nil
}

func (d *DB) GetYieldState(ctx context.Context, poolID int64) (models.PoolYieldState, error) {
	var state models.PoolYieldState
	err := d.GetContext(ctx, &state,
		`SELECT * FROM pool_yield_state WHERE pool_id = $1`, poolID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PoolYieldState{}, services.ErrPoolNotFound
	}
	if err != nil {
		return models.PoolYieldState{}, fmt.Errorf("get yield state: %w", err)
	}
	return state, nil
}

func (d *DB) GetDistribution(ctx context.Context, id string) (models.Distribution, error) {
	var dist models.Distribution
	err := d.GetContext(ctx, &dist, `SELECT * FROM distributions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Distribution{}, services.ErrDistributionNotFound
	}
	if err != nil {
		return models.Distribution{}, fmt.Errorf("get distribution: %w", err)
	}
	return dist, nil
}

func (d *DB) GetSettings(ctx context.Context) (models.PlatformSettings, error) {
	var settings models.PlatformSettings
	err := d.GetContext(ctx, &settings,
		`SELECT fee_rate_bps, updated_at FROM platform_settings WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PlatformSettings{}, nil
	}
	if err != nil {
		return models.PlatformSettings{}, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

func (d *DB) SaveSettings(ctx context.Context, settings models.PlatformSettings) error {
	query := `INSERT INTO platform_settings (id, fee_rate_bps, updated_at)
	          VALUES (1, $1, $2)
	          ON CONFLICT (id) DO UPDATE SET fee_rate_bps = $1, updated_at = $2`
	if _, err := d.ExecContext(ctx, query, settings.FeeRateBps, settings.UpdatedAt); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (d *DB) SavePurchase(ctx context.Context, update services.PurchaseUpdate) error {
	return d.inTx(ctx, "purchase", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE pools SET current_shares = $2 WHERE id = $1`,
			update.Pool.ID, update.Pool.CurrentShares); err != nil {
			return fmt.Errorf("update pool shares: %w", err)
		}

		holdingQuery := `INSERT INTO holdings (user_id, pool_id, shares, yield_checkpoint, updated_at)
		                 VALUES ($1, $2, $3, $4, $5)
		                 ON CONFLICT (user_id, pool_id)
		                 DO UPDATE SET shares = $3, yield_checkpoint = $4, updated_at = $5`
		if _, err := tx.ExecContext(ctx, holdingQuery,
			update.Holding.UserID, update.Holding.PoolID, update.Holding.Shares,
			update.Holding.YieldCheckpoint, update.Holding.UpdatedAt); err != nil {
			return fmt.Errorf("upsert holding: %w", err)
		}

		aggregateQuery := `INSERT INTO user_aggregates (user_id, total_shares, updated_at)
		                   VALUES ($1, $2, $3)
		                   ON CONFLICT (user_id)
		                   DO UPDATE SET total_shares = $2, updated_at = $3`
		if _, err := tx.ExecContext(ctx, aggregateQuery,
			update.Aggregate.UserID, update.Aggregate.TotalShares, update.Aggregate.UpdatedAt); err != nil {
			return fmt.Errorf("upsert aggregate: %w", err)
		}
		return nil
	})
}

func (d *DB) SaveDistribution(ctx context.Context, update services.DistributionUpdate) error {
	return d.inTx(ctx, "distribution", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE pools SET total_yield_distributed = $2 WHERE id = $1`,
			update.Pool.ID, update.Pool.TotalYieldDistributed); err != nil {
			return fmt.Errorf("update pool yield total: %w", err)
		}

		stateQuery := `UPDATE pool_yield_state
		               SET total_yield_available = $2, yield_per_share = $3, dust = $4, last_distribution = $5
		               WHERE pool_id = $1`
		if _, err := tx.ExecContext(ctx, stateQuery,
			update.Yield.PoolID, update.Yield.TotalYieldAvailable,
			update.Yield.YieldPerShare, update.Yield.Dust, update.Yield.LastDistribution); err != nil {
			return fmt.Errorf("update yield state: %w", err)
		}

		recordQuery := `INSERT INTO distributions (id, pool_id, caller, gross_amount, fee_amount, net_amount, created_at)
		                VALUES ($1, $2, $3, $4, $5, $6, $7)`
		if _, err := tx.ExecContext(ctx, recordQuery,
			update.Record.ID, update.Record.PoolID, update.Record.Caller,
			update.Record.GrossAmount, update.Record.FeeAmount,
			update.Record.NetAmount, update.Record.CreatedAt); err != nil {
			return fmt.Errorf("insert distribution record: %w", err)
		}
		return nil
	})
}

func (d *DB) SaveClaim(ctx context.Context, update services.ClaimUpdate) error {
	return d.inTx(ctx, "claim", func(tx *sqlx.Tx) error {
		query := `UPDATE holdings
		          SET yield_checkpoint = $3, updated_at = $4
		          WHERE user_id = $1 AND pool_id = $2`
		res, err := tx.ExecContext(ctx, query,
			update.Holding.UserID, update.Holding.PoolID,
			update.Holding.YieldCheckpoint, update.Holding.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update holding checkpoint: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return services.ErrHoldingNotFound
		}
		return nil
	})
}

func (d *DB) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}
	return nil
}
