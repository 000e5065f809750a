package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ferreirogomes/quotapool/services"
)

// The reference walkthrough: one holder buys 10 shares at 100 each, 500
// yield is distributed, the holder claims the full 500, and an immediate
// second claim pays nothing.
func TestDistributeAndClaimSoleHolder(t *testing.T) {
	e := newEnv(t, map[string]int64{"wallet-alice": 10_000})
	ctx := context.Background()
	pool := e.createPool(t, aliceID, 100, 1000)

	_, err := e.ledger.Purchase(ctx, pool.ID, aliceID, 10)
	require.NoError(t, err)

	record, err := e.yield.Distribute(ctx, pool.ID, aliceID, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), record.GrossAmount)
	assert.Equal(t, int64(0), record.FeeAmount)

	state, err := e.yield.GetYieldState(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, 500*services.Scale/10, state.YieldPerShare)
	assert.Equal(t, int64(500), state.TotalYieldAvailable)

	updated, err := e.registry.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), updated.TotalYieldDistributed)

	claimed, err := e.yield.Claim(ctx, pool.ID, aliceID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), claimed)

	_, err = e.yield.Claim(ctx, pool.ID, aliceID)
	assert.ErrorIs(t, err, services.ErrNothingToClaim)
}

func TestDistributeRequiresShares(t *testing.T) {
	e := newEnv(t, map[string]int64{"wallet-alice": 10_000})
	ctx := context.Background()
	pool := e.createPool(t, aliceID, 100, 1000)

	_, err := e.yield.Distribute(ctx, pool.ID, aliceID, 500)
	assert.ErrorIs(t, err, services.ErrInsufficientShares)
	assert.Equal(t, 0, e.gateway.transferCount())
}

func TestDistributeAuthorization(t *testing.T) {
	e := newEnv(t, map[string]int64{"wallet-alice": 10_000, "wallet-admin": 10_000, "wallet-bob": 10_000})
	ctx := context.Background()
	pool := e.createPool(t, aliceID, 100, 1000)
	_, err := e.ledger.Purchase(ctx, pool.ID, aliceID, 10)
	require.NoError(t, err)

	_, err = e.yield.Distribute(ctx, pool.ID, bobID, 100)
	assert.ErrorIs(t, err, services.ErrUnauthorized)

	// Administrator may distribute into anyone's pool.
	_, err = e.yield.Distribute(ctx, pool.ID, adminID, 100)
	require.NoError(t, err)
}

func TestDistributeRejectsInactivePoolButClaimSurvives(t *testing.T) {
	e := newEnv(t, map[string]int64{"wallet-alice": 10_000})
	ctx := context.Background()
	pool := e.createPool(t, aliceID, 100, 1000)

	_, err := e.ledger.Purchase(ctx, pool.ID, aliceID, 10)
	require.NoError(t, err)
	_, err = e.yield.Distribute(ctx, pool.ID, aliceID, 500)
	require.NoError(t, err)

	_, err = e.registry.Deactivate(ctx, pool.ID, aliceID)
	require.NoError(t, err)

	_, err = e.yield.Distribute(ctx, pool.ID, aliceID, 100)
	assert.ErrorIs(t, err, services.ErrPoolInactive)

	// Archived pools keep serving claims.
	claimed, err := e.yield.Claim(ctx, pool.ID, aliceID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), claimed)
}

func TestLateBuyerDoesNotClaimEarlierYield(t *testing.T) {
	e := newEnv(t, map[string]int64{"wallet-alice": 10_000, "wallet-bob": 10_000})
	ctx := context.Background()
	pool := e.createPool(t, aliceID, 100, 1000)

	_, err := e.ledger.Purchase(ctx, pool.ID, aliceID, 10)
	require.NoError(t, err)
	_, err = e.yield.Distribute(ctx, pool.ID, aliceID, 500)
	require.NoError(t, err)

	// Bob enters after the distribution: his checkpoint is the current
	// accumulator, so nothing is claimable yet.
	_, err = e.ledger.Purchase(ctx, pool.ID, bobID, 10)
	require.NoError(t, err)

	state, err := e.yield.GetYieldState(ctx, pool.ID)
	require.NoError(t, err)
	holding, err := e.ledger.GetHolding(ctx, bobID, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, state.YieldPerShare, holding.YieldCheckpoint)

	_, err = e.yield.Claim(ctx, pool.ID, bobID)
	assert.ErrorIs(t, err, services.ErrNothingToClaim)

	// Alice still collects the full earlier distribution.
	claimed, err := e.yield.Claim(ctx, pool.ID, aliceID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), claimed)

	// The next distribution splits pro rata between both holders.
	_, err = e.yield.Distribute(ctx, pool.ID, aliceID, 400)
	require.NoError(t, err)
	aliceShare, err := e.yield.Claim(ctx, pool.ID, aliceID)
	require.NoError(t, err)
	bobShare, err := e.yield.Claim(ctx, pool.ID, bobID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), aliceShare)
	assert.Equal(t, int64(200), bobShare)
}

func TestDistributionDustIsCarriedForward(t *testing.T) {
	e := newEnv(t, map[string]int64{"wallet-alice": 10_000})
	ctx := context.Background()
	pool := e.createPool(t, aliceID, 100, 1000)

	_, err := e.ledger.Purchase(ctx, pool.ID, aliceID, 3)
	require.NoError(t, err)

	// 10 over 3 shares: 1 base unit cannot be divided and stays as dust.
	_, err = e.yield.Distribute(ctx, pool.ID, aliceID, 10)
	require.NoError(t, err)

	state, err := e.yield.GetYieldState(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3_333_333), state.YieldPerShare)
	assert.Equal(t, int64(1), state.Dust)

	// The retained unit joins the next distribution's numerator.
	_, err = e.yield.Distribute(ctx, pool.ID, aliceID, 10)
	require.NoError(t, err)

	state, err = e.yield.GetYieldState(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3_333_333+3_666_666), state.YieldPerShare)
	assert.Equal(t, int64(1), state.Dust)

	claimed, err := e.yield.Claim(ctx, pool.ID, aliceID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), claimed)

	// Only the purchase proceeds remain in custody after the claim.
	assert.Equal(t, int64(300), e.gateway.balance(custody))
}

func TestDistributeDeductsPlatformFee(t *testing.T) {
	e := newEnv(t, map[string]int64{"wallet-alice": 10_000})
	ctx := context.Background()
	pool := e.createPool(t, aliceID, 100, 1000)

	_, err := e.ledger.Purchase(ctx, pool.ID, aliceID, 10)
	require.NoError(t, err)
	_, err = e.registry.SetPlatformFeeRate(ctx, adminID, 250) // 2.5%
	require.NoError(t, err)

	record, err := e.yield.Distribute(ctx, pool.ID, aliceID, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), record.GrossAmount)
	assert.Equal(t, int64(25), record.FeeAmount)
	assert.Equal(t, int64(975), record.NetAmount)

	assert.Equal(t, int64(25), e.gateway.balance(treasury))

	state, err := e.yield.GetYieldState(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(975), state.TotalYieldAvailable)

	// Holders split the net amount.
	claimed, err := e.yield.Claim(ctx, pool.ID, aliceID)
	require.NoError(t, err)
	assert.Equal(t, int64(975), claimed)
}

func TestDistributeInvalidAmount(t *testing.T) {
	e := newEnv(t, nil)
	pool := e.createPool(t, aliceID, 100, 1000)

	_, err := e.yield.Distribute(context.Background(), pool.ID, aliceID, 0)
	assert.ErrorIs(t, err, services.ErrInvalidAmount)
}

func TestClaimWithoutHolding(t *testing.T) {
	e := newEnv(t, nil)
	pool := e.createPool(t, aliceID, 100, 1000)

	_, err := e.yield.Claim(context.Background(), pool.ID, bobID)
	assert.ErrorIs(t, err, services.ErrHoldingNotFound)
}

func TestClaimStoreFailureReturnsTokensToCustody(t *testing.T) {
	e := newEnv(t, map[string]int64{"wallet-alice": 10_000})
	ctx := context.Background()
	pool := e.createPool(t, aliceID, 100, 1000)

	_, err := e.ledger.Purchase(ctx, pool.ID, aliceID, 10)
	require.NoError(t, err)
	_, err = e.yield.Distribute(ctx, pool.ID, aliceID, 500)
	require.NoError(t, err)

	broken := &failingStore{Store: e.store, failSaveClaim: true}
	yield := services.NewYieldService(broken, e.gateway, services.NewPoolLocks(), adminID, treasury, testLogger())

	custodyBefore := e.gateway.balance(custody)
	_, err = yield.Claim(ctx, pool.ID, aliceID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errStorageOffline)
	assert.Equal(t, custodyBefore, e.gateway.balance(custody))

	// The checkpoint never advanced, so the claim remains available.
	claimed, err := e.yield.Claim(ctx, pool.ID, aliceID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), claimed)
}

func TestAccumulatorMonotonicity(t *testing.T) {
	e := newEnv(t, map[string]int64{"wallet-alice": 1_000_000, "wallet-bob": 1_000_000})
	ctx := context.Background()
	pool := e.createPool(t, aliceID, 10, 10_000)

	var lastPerShare, lastDistributed int64
	steps := []struct {
		op     string
		buyer  string
		amount int64
	}{
		{"buy", aliceID, 7},
		{"distribute", aliceID, 100},
		{"buy", bobID, 13},
		{"distribute", aliceID, 333},
		{"claim", aliceID, 0},
		{"distribute", aliceID, 59},
		{"claim", bobID, 0},
		{"buy", aliceID, 20},
		{"distribute", aliceID, 1},
	}
	for _, step := range steps {
		switch step.op {
		case "buy":
			_, err := e.ledger.Purchase(ctx, pool.ID, step.buyer, step.amount)
			require.NoError(t, err)
		case "distribute":
			_, err := e.yield.Distribute(ctx, pool.ID, step.buyer, step.amount)
			require.NoError(t, err)
		case "claim":
			_, err := e.yield.Claim(ctx, pool.ID, step.buyer)
			if err != nil {
				assert.ErrorIs(t, err, services.ErrNothingToClaim)
			}
		}

		state, err := e.yield.GetYieldState(ctx, pool.ID)
		require.NoError(t, err)
		updated, err := e.registry.GetPool(ctx, pool.ID)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, state.YieldPerShare, lastPerShare)
		assert.GreaterOrEqual(t, updated.TotalYieldDistributed, lastDistributed)
		lastPerShare = state.YieldPerShare
		lastDistributed = updated.TotalYieldDistributed

		holdings, err := e.store.ListHoldingsByPool(ctx, pool.ID)
		require.NoError(t, err)
		var sum int64
		for _, h := range holdings {
			sum += h.Shares
		}
		assert.Equal(t, updated.CurrentShares, sum)
	}
}

func TestDistributeNetTransferFailureRefundsFee(t *testing.T) {
	e := newEnv(t, map[string]int64{"wallet-alice": 10_000})
	ctx := context.Background()
	pool := e.createPool(t, aliceID, 100, 1000)
	_, err := e.ledger.Purchase(ctx, pool.ID, aliceID, 10)
	require.NoError(t, err)
	_, err = e.registry.SetPlatformFeeRate(ctx, adminID, 250)
	require.NoError(t, err)

	gateway := new(mockGateway)
	gateway.On("Transfer", mock.Anything, int64(25), "wallet-alice", treasury).Return(nil).Once()
	gateway.On("Transfer", mock.Anything, int64(975), "wallet-alice", custody).Return(errStorageOffline).Once()
	// The collected fee goes back when the net leg fails.
	gateway.On("Transfer", mock.Anything, int64(25), treasury, "wallet-alice").Return(nil).Once()

	yield := services.NewYieldService(e.store, gateway, services.NewPoolLocks(), adminID, treasury, testLogger())
	_, err = yield.Distribute(ctx, pool.ID, aliceID, 1000)
	assert.ErrorIs(t, err, services.ErrGatewayFailure)
	gateway.AssertExpectations(t)
}

func TestDistributeGatewayFailureLeavesStateUntouched(t *testing.T) {
	e := newEnv(t, map[string]int64{"wallet-alice": 10_000})
	ctx := context.Background()
	pool := e.createPool(t, aliceID, 100, 1000)
	_, err := e.ledger.Purchase(ctx, pool.ID, aliceID, 10)
	require.NoError(t, err)

	// Drained wallet: the pull is rejected before any bookkeeping.
	_, err = e.yield.Distribute(ctx, pool.ID, aliceID, 50_000)
	assert.ErrorIs(t, err, services.ErrGatewayFailure)

	state, err := e.yield.GetYieldState(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.YieldPerShare)
	assert.Equal(t, int64(0), state.TotalYieldAvailable)
}
