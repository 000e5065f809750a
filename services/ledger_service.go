package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ferreirogomes/quotapool/models"
)

// LedgerService tracks per-user share holdings. A purchase moves tokens
// through the gateway first and commits the bookkeeping second, in one store
// transaction; if the commit fails the pulled tokens are refunded so the
// ledger and custody never disagree.
type LedgerService struct {
	store   Store
	gateway TokenGateway
	locks   *PoolLocks
	log     *logrus.Entry
}

func NewLedgerService(store Store, gateway TokenGateway, locks *PoolLocks, log *logrus.Logger) *LedgerService {
	return &LedgerService{
		store:   store,
		gateway: gateway,
		locks:   locks,
		log:     log.WithField("service", "ledger"),
	}
}

// PurchaseReceipt reports the outcome of a share purchase.
type PurchaseReceipt struct {
	PoolID          int64 `json:"pool_id"`
	SharesPurchased int64 `json:"shares_purchased"`
	TotalCost       int64 `json:"total_cost"`
	YieldSettled    int64 `json:"yield_settled"`
}

// Purchase buys sharesAmount shares in a pool for the buyer, pulling
// shares*price reward tokens from the buyer's wallet into pool custody.
// Every purchase re-checkpoints the buyer at the pool's current
// yield-per-share: a first purchase so yield distributed before entry is
// never claimable, a repeat purchase after settling the yield accrued on
// the existing shares, so the new shares collect nothing retroactively.
func (s *LedgerService) Purchase(ctx context.Context, poolID int64, buyerID string, sharesAmount int64) (PurchaseReceipt, error) {
	if sharesAmount <= 0 {
		return PurchaseReceipt{}, fmt.Errorf("%w: shares amount must be positive", ErrInvalidAmount)
	}

	unlock := s.locks.Lock(poolID)
	defer unlock()

	pool, err := s.store.GetPool(ctx, poolID)
	if err != nil {
		return PurchaseReceipt{}, err
	}
	if !pool.IsActive {
		return PurchaseReceipt{}, fmt.Errorf("%w: pool %d no longer accepts purchases", ErrPoolInactive, poolID)
	}
	if sharesAmount > math.MaxInt64/pool.TokenPrice {
		return PurchaseReceipt{}, fmt.Errorf("%w: total cost overflows", ErrInvalidAmount)
	}
	if pool.CurrentShares+sharesAmount > pool.MaxShares {
		return PurchaseReceipt{}, fmt.Errorf("%w: %d of %d shares already sold", ErrCapacityExceeded, pool.CurrentShares, pool.MaxShares)
	}

	buyer, err := s.store.GetUser(ctx, buyerID)
	if err != nil {
		return PurchaseReceipt{}, err
	}

	yield, err := s.store.GetYieldState(ctx, poolID)
	if err != nil {
		return PurchaseReceipt{}, err
	}

	now := time.Now().UTC()
	var accrued int64
	holding, err := s.store.GetHolding(ctx, buyerID, poolID)
	switch {
	case errors.Is(err, ErrHoldingNotFound):
		holding = models.UserHolding{UserID: buyerID, PoolID: poolID}
	case err != nil:
		return PurchaseReceipt{}, err
	default:
		// Repeat purchase: the existing shares have earned yield since the
		// last checkpoint. Settle it now, because the checkpoint advance
		// below would otherwise erase the entitlement, and the new shares
		// must not collect it either.
		accrued = mulDiv(holding.Shares, yield.YieldPerShare-holding.YieldCheckpoint, Scale)
	}
	holding.YieldCheckpoint = yield.YieldPerShare
	holding.Shares += sharesAmount
	holding.UpdatedAt = now

	aggregate, err := s.store.GetUserAggregate(ctx, buyerID)
	if err != nil {
		return PurchaseReceipt{}, err
	}
	aggregate.UserID = buyerID
	aggregate.TotalShares += sharesAmount
	aggregate.UpdatedAt = now

	totalCost := sharesAmount * pool.TokenPrice

	// Tokens move before any bookkeeping; a rejected transfer leaves the
	// ledger untouched.
	if accrued > 0 {
		if err := s.gateway.Transfer(ctx, accrued, pool.Custody, buyer.Wallet); err != nil {
			return PurchaseReceipt{}, fmt.Errorf("%w: %w", ErrGatewayFailure, err)
		}
	}
	if err := s.gateway.Transfer(ctx, totalCost, buyer.Wallet, pool.Custody); err != nil {
		if accrued > 0 {
			if refundErr := s.gateway.Transfer(ctx, accrued, buyer.Wallet, pool.Custody); refundErr != nil {
				s.log.WithError(refundErr).WithFields(logrus.Fields{
					"pool_id": poolID,
					"buyer":   buyerID,
					"amount":  accrued,
				}).Error("settlement rollback transfer failed; custody requires reconciliation")
			}
		}
		return PurchaseReceipt{}, fmt.Errorf("%w: %w", ErrGatewayFailure, err)
	}

	pool.CurrentShares += sharesAmount

	update := PurchaseUpdate{Pool: pool, Holding: holding, Aggregate: aggregate}
	if err := s.store.SavePurchase(ctx, update); err != nil {
		// Custody already received the tokens; push them back, along with
		// any settled yield, so the failed operation leaves no trace.
		if refundErr := s.gateway.Transfer(ctx, totalCost, pool.Custody, buyer.Wallet); refundErr != nil {
			s.log.WithError(refundErr).WithFields(logrus.Fields{
				"pool_id": poolID,
				"buyer":   buyerID,
				"amount":  totalCost,
			}).Error("purchase rollback transfer failed; custody requires reconciliation")
		}
		if accrued > 0 {
			if refundErr := s.gateway.Transfer(ctx, accrued, buyer.Wallet, pool.Custody); refundErr != nil {
				s.log.WithError(refundErr).WithFields(logrus.Fields{
					"pool_id": poolID,
					"buyer":   buyerID,
					"amount":  accrued,
				}).Error("settlement rollback transfer failed; custody requires reconciliation")
			}
		}
		return PurchaseReceipt{}, fmt.Errorf("save purchase: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"pool_id": poolID,
		"buyer":   buyerID,
		"shares":  sharesAmount,
		"cost":    totalCost,
		"settled": accrued,
	}).Info("shares purchased")

	return PurchaseReceipt{
		PoolID:          poolID,
		SharesPurchased: sharesAmount,
		TotalCost:       totalCost,
		YieldSettled:    accrued,
	}, nil
}

// GetHolding returns one user's position in one pool.
func (s *LedgerService) GetHolding(ctx context.Context, userID string, poolID int64) (models.UserHolding, error) {
	return s.store.GetHolding(ctx, userID, poolID)
}

// GetUserTotalShares returns the cached all-pool share total for a user.
// Users without holdings have a zero total.
func (s *LedgerService) GetUserTotalShares(ctx context.Context, userID string) (int64, error) {
	aggregate, err := s.store.GetUserAggregate(ctx, userID)
	if err != nil {
		return 0, err
	}
	return aggregate.TotalShares, nil
}
