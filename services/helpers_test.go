package services_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ferreirogomes/quotapool/models"
	"github.com/ferreirogomes/quotapool/services"
	"github.com/ferreirogomes/quotapool/storage"
)

const (
	adminID  = "user-admin"
	aliceID  = "user-alice"
	bobID    = "user-bob"
	custody  = "wallet-custody"
	treasury = "wallet-treasury"
)

var errStorageOffline = errors.New("storage offline")

// fakeGateway is a balance-tracking TokenGateway for scenario tests.
type fakeGateway struct {
	mu        sync.Mutex
	balances  map[string]int64
	transfers int
}

func newFakeGateway(balances map[string]int64) *fakeGateway {
	if balances == nil {
		balances = make(map[string]int64)
	}
	return &fakeGateway{balances: balances}
}

func (g *fakeGateway) Transfer(_ context.Context, amount int64, from, to string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.balances[from] < amount {
		return fmt.Errorf("%w: %d available, %d required", services.ErrInsufficientBalance, g.balances[from], amount)
	}
	g.balances[from] -= amount
	g.balances[to] += amount
	g.transfers++
	return nil
}

func (g *fakeGateway) balance(wallet string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balances[wallet]
}

func (g *fakeGateway) transferCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.transfers
}

// mockGateway asserts on individual transfer calls.
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Transfer(ctx context.Context, amount int64, from, to string) error {
	args := m.Called(ctx, amount, from, to)
	return args.Error(0)
}

// failingStore wraps a real store and fails selected composite mutations,
// simulating a database outage after tokens already moved.
type failingStore struct {
	services.Store
	failSavePurchase     bool
	failSaveDistribution bool
	failSaveClaim        bool
}

func (s *failingStore) SavePurchase(ctx context.Context, update services.PurchaseUpdate) error {
	if s.failSavePurchase {
		return errStorageOffline
	}
	return s.Store.SavePurchase(ctx, update)
}

func (s *failingStore) SaveDistribution(ctx context.Context, update services.DistributionUpdate) error {
	if s.failSaveDistribution {
		return errStorageOffline
	}
	return s.Store.SaveDistribution(ctx, update)
}

func (s *failingStore) SaveClaim(ctx context.Context, update services.ClaimUpdate) error {
	if s.failSaveClaim {
		return errStorageOffline
	}
	return s.Store.SaveClaim(ctx, update)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// env wires the full engine against a memory store and a fake gateway, with
// admin, alice and bob registered.
type env struct {
	store    *storage.MemStore
	gateway  *fakeGateway
	registry *services.RegistryService
	ledger   *services.LedgerService
	yield    *services.YieldService
}

func newEnv(t *testing.T, balances map[string]int64) *env {
	t.Helper()

	store := storage.NewMemStore()
	gateway := newFakeGateway(balances)
	log := testLogger()
	locks := services.NewPoolLocks()

	e := &env{
		store:    store,
		gateway:  gateway,
		registry: services.NewRegistryService(store, locks, adminID, custody, log),
		ledger:   services.NewLedgerService(store, gateway, locks, log),
		yield:    services.NewYieldService(store, gateway, locks, adminID, treasury, log),
	}

	ctx := context.Background()
	for _, u := range []struct{ id, wallet string }{
		{adminID, "wallet-admin"},
		{aliceID, "wallet-alice"},
		{bobID, "wallet-bob"},
	} {
		require.NoError(t, store.SaveUser(ctx, models.User{
			ID:        u.id,
			Name:      u.id,
			Wallet:    u.wallet,
			CreatedAt: time.Now().UTC(),
		}))
	}
	return e
}

func (e *env) createPool(t *testing.T, creator string, price, maxShares int64) models.AssetPool {
	t.Helper()
	pool, err := e.registry.CreatePool(context.Background(), creator, services.CreatePoolParams{
		AssetName:  "Downtown Office Tower",
		AssetType:  "real-estate",
		TokenPrice: price,
		MaxShares:  maxShares,
	})
	require.NoError(t, err)
	return pool
}
