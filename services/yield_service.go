package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ferreirogomes/quotapool/models"
)

// YieldService owns the per-pool yield-per-share accumulator. Distributions
// raise the accumulator by floor((net+dust)*Scale/current_shares); claims
// settle the delta between the accumulator and the caller's own checkpoint,
// never the full accumulator, so repeated claims pay out exactly once.
type YieldService struct {
	store    Store
	gateway  TokenGateway
	locks    *PoolLocks
	adminID  string
	treasury string // wallet receiving the platform fee
	log      *logrus.Entry
}

func NewYieldService(store Store, gateway TokenGateway, locks *PoolLocks, adminID, treasuryWallet string, log *logrus.Logger) *YieldService {
	return &YieldService{
		store:    store,
		gateway:  gateway,
		locks:    locks,
		adminID:  adminID,
		treasury: treasuryWallet,
		log:      log.WithField("service", "yield"),
	}
}

// Distribute deposits yieldAmount reward tokens into a pool for pro-rata
// distribution. Only the pool creator or the administrator may call. The
// platform fee is deducted up front and pushed to the treasury; the net
// amount, plus any dust retained from earlier distributions, feeds the
// accumulator. Division dust stays in custody and rolls into the next call.
func (s *YieldService) Distribute(ctx context.Context, poolID int64, callerID string, yieldAmount int64) (models.Distribution, error) {
	if yieldAmount <= 0 {
		return models.Distribution{}, fmt.Errorf("%w: yield amount must be positive", ErrInvalidAmount)
	}

	unlock := s.locks.Lock(poolID)
	defer unlock()

	pool, err := s.store.GetPool(ctx, poolID)
	if err != nil {
		return models.Distribution{}, err
	}
	if callerID != pool.Creator && callerID != s.adminID {
		return models.Distribution{}, fmt.Errorf("%w: only pool creator or administrator may distribute", ErrUnauthorized)
	}
	if !pool.IsActive {
		return models.Distribution{}, fmt.Errorf("%w: pool %d no longer accepts distributions", ErrPoolInactive, poolID)
	}
	if pool.CurrentShares == 0 {
		return models.Distribution{}, fmt.Errorf("%w: no shares to distribute into", ErrInsufficientShares)
	}

	caller, err := s.store.GetUser(ctx, callerID)
	if err != nil {
		return models.Distribution{}, err
	}

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return models.Distribution{}, err
	}

	yield, err := s.store.GetYieldState(ctx, poolID)
	if err != nil {
		return models.Distribution{}, err
	}

	fee := mulDiv(yieldAmount, settings.FeeRateBps, 10_000)
	net := yieldAmount - fee

	if fee > 0 {
		if err := s.gateway.Transfer(ctx, fee, caller.Wallet, s.treasury); err != nil {
			return models.Distribution{}, fmt.Errorf("%w: %w", ErrGatewayFailure, err)
		}
	}
	if err := s.gateway.Transfer(ctx, net, caller.Wallet, pool.Custody); err != nil {
		if fee > 0 {
			if refundErr := s.gateway.Transfer(ctx, fee, s.treasury, caller.Wallet); refundErr != nil {
				s.log.WithError(refundErr).WithField("pool_id", poolID).
					Error("fee rollback transfer failed; treasury requires reconciliation")
			}
		}
		return models.Distribution{}, fmt.Errorf("%w: %w", ErrGatewayFailure, err)
	}

	now := time.Now().UTC()
	effective := net + yield.Dust
	deltaPerShare := mulDiv(effective, Scale, pool.CurrentShares)
	distributed := mulDiv(deltaPerShare, pool.CurrentShares, Scale)

	yield.YieldPerShare += deltaPerShare
	yield.TotalYieldAvailable += net
	yield.Dust = effective - distributed
	yield.LastDistribution = now
	pool.TotalYieldDistributed += net

	record := models.Distribution{
		ID:          uuid.New().String(),
		PoolID:      poolID,
		Caller:      callerID,
		GrossAmount: yieldAmount,
		FeeAmount:   fee,
		NetAmount:   net,
		CreatedAt:   now,
	}

	update := DistributionUpdate{Pool: pool, Yield: yield, Record: record}
	if err := s.store.SaveDistribution(ctx, update); err != nil {
		if refundErr := s.gateway.Transfer(ctx, net, pool.Custody, caller.Wallet); refundErr != nil {
			s.log.WithError(refundErr).WithField("pool_id", poolID).
				Error("distribution rollback transfer failed; custody requires reconciliation")
		}
		if fee > 0 {
			if refundErr := s.gateway.Transfer(ctx, fee, s.treasury, caller.Wallet); refundErr != nil {
				s.log.WithError(refundErr).WithField("pool_id", poolID).
					Error("fee rollback transfer failed; treasury requires reconciliation")
			}
		}
		return models.Distribution{}, fmt.Errorf("save distribution: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"pool_id":         poolID,
		"caller":          callerID,
		"gross":           yieldAmount,
		"fee":             fee,
		"net":             net,
		"delta_per_share": deltaPerShare,
	}).Info("yield distributed")

	return record, nil
}

// Claim pays the caller the yield accrued on their shares since their last
// checkpoint and advances the checkpoint to the current accumulator. Claims
// stay available after a pool is deactivated.
func (s *YieldService) Claim(ctx context.Context, poolID int64, callerID string) (int64, error) {
	unlock := s.locks.Lock(poolID)
	defer unlock()

	pool, err := s.store.GetPool(ctx, poolID)
	if err != nil {
		return 0, err
	}

	holding, err := s.store.GetHolding(ctx, callerID, poolID)
	if err != nil {
		return 0, err
	}
	if holding.Shares == 0 {
		return 0, fmt.Errorf("%w: holding has no shares", ErrInsufficientShares)
	}

	yield, err := s.store.GetYieldState(ctx, poolID)
	if err != nil {
		return 0, err
	}

	claimable := mulDiv(holding.Shares, yield.YieldPerShare-holding.YieldCheckpoint, Scale)
	if claimable == 0 {
		return 0, ErrNothingToClaim
	}

	caller, err := s.store.GetUser(ctx, callerID)
	if err != nil {
		return 0, err
	}

	if err := s.gateway.Transfer(ctx, claimable, pool.Custody, caller.Wallet); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrGatewayFailure, err)
	}

	holding.YieldCheckpoint = yield.YieldPerShare
	holding.UpdatedAt = time.Now().UTC()

	if err := s.store.SaveClaim(ctx, ClaimUpdate{Holding: holding}); err != nil {
		if refundErr := s.gateway.Transfer(ctx, claimable, caller.Wallet, pool.Custody); refundErr != nil {
			s.log.WithError(refundErr).WithFields(logrus.Fields{
				"pool_id": poolID,
				"caller":  callerID,
				"amount":  claimable,
			}).Error("claim rollback transfer failed; custody requires reconciliation")
		}
		return 0, fmt.Errorf("save claim: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"pool_id": poolID,
		"caller":  callerID,
		"amount":  claimable,
	}).Info("yield claimed")

	return claimable, nil
}

// GetYieldState returns a pool's cumulative yield accounting.
func (s *YieldService) GetYieldState(ctx context.Context, poolID int64) (models.PoolYieldState, error) {
	return s.store.GetYieldState(ctx, poolID)
}

// GetDistribution returns one distribution audit record.
func (s *YieldService) GetDistribution(ctx context.Context, id string) (models.Distribution, error) {
	return s.store.GetDistribution(ctx, id)
}
