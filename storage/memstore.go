package storage

import (
	"context"
	"sync"

	"github.com/ferreirogomes/quotapool/models"
	"github.com/ferreirogomes/quotapool/services"
)

type holdingKey struct {
	userID string
	poolID int64
}

// MemStore is an in-memory services.Store for tests and local development.
// Each composite mutation commits under one mutex hold, matching the
// all-or-nothing semantics of the SQL transactions in postgres.go.
type MemStore struct {
	mu            sync.Mutex
	nextPoolID    int64
	users         map[string]models.User
	pools         map[int64]models.AssetPool
	holdings      map[holdingKey]models.UserHolding
	aggregates    map[string]models.UserAggregate
	yieldStates   map[int64]models.PoolYieldState
	distributions map[string]models.Distribution
	settings      models.PlatformSettings
}

func NewMemStore() *MemStore {
	return &MemStore{
		nextPoolID:    1,
		users:         make(map[string]models.User),
		pools:         make(map[int64]models.AssetPool),
		holdings:      make(map[holdingKey]models.UserHolding),
		aggregates:    make(map[string]models.UserAggregate),
		yieldStates:   make(map[int64]models.PoolYieldState),
		distributions: make(map[string]models.Distribution),
	}
}

func (m *MemStore) SaveUser(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *MemStore) GetUser(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return models.User{}, services.ErrUserNotFound
	}
	return user, nil
}

func (m *MemStore) CreatePool(_ context.Context, pool models.AssetPool) (models.AssetPool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pool.ID = m.nextPoolID
	m.nextPoolID++
	m.pools[pool.ID] = pool
	m.yieldStates[pool.ID] = models.PoolYieldState{PoolID: pool.ID}
	return pool, nil
}

func (m *MemStore) GetPool(_ context.Context, id int64) (models.AssetPool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pool, ok := m.pools[id]
	if !ok {
		return models.AssetPool{}, services.ErrPoolNotFound
	}
	return pool, nil
}

func (m *MemStore) SetPoolActive(_ context.Context, poolID int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pool, ok := m.pools[poolID]
	if !ok {
		return services.ErrPoolNotFound
	}
	pool.IsActive = active
	m.pools[poolID] = pool
	return nil
}

func (m *MemStore) GetHolding(_ context.Context, userID string, poolID int64) (models.UserHolding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	holding, ok := m.holdings[holdingKey{userID, poolID}]
	if !ok {
		return models.UserHolding{}, services.ErrHoldingNotFound
	}
	return holding, nil
}

func (m *MemStore) ListHoldingsByPool(_ context.Context, poolID int64) ([]models.UserHolding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var holdings []models.UserHolding
	for key, holding := range m.holdings {
		if key.poolID == poolID {
			holdings = append(holdings, holding)
		}
	}
	return holdings, nil
}

func (m *MemStore) GetUserAggregate(_ context.Context, userID string) (models.UserAggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	aggregate, ok := m.aggregates[userID]
	if !ok {
		return models.UserAggregate{UserID: userID}, nil
	}
	return aggregate, nil
}

func (m *MemStore) GetYieldState(_ context.Context, poolID int64) (models.PoolYieldState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.yieldStates[poolID]
	if !ok {
		return models.PoolYieldState{}, services.ErrPoolNotFound
	}
	return state, nil
}

func (m *MemStore) GetDistribution(_ context.Context, id string) (models.Distribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dist, ok := m.distributions[id]
	if !ok {
		return models.Distribution{}, services.ErrDistributionNotFound
	}
	return dist, nil
}

func (m *MemStore) GetSettings(_ context.Context) (models.PlatformSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *MemStore) SaveSettings(_ context.Context, settings models.PlatformSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
	return nil
}

func (m *MemStore) SavePurchase(_ context.Context, update services.PurchaseUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pools[update.Pool.ID]; !ok {
		return services.ErrPoolNotFound
	}
	m.pools[update.Pool.ID] = update.Pool
	m.holdings[holdingKey{update.Holding.UserID, update.Holding.PoolID}] = update.Holding
	m.aggregates[update.Aggregate.UserID] = update.Aggregate
	return nil
}

func (m *MemStore) SaveDistribution(_ context.Context, update services.DistributionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pools[update.Pool.ID]; !ok {
		return services.ErrPoolNotFound
	}
	m.pools[update.Pool.ID] = update.Pool
	m.yieldStates[update.Yield.PoolID] = update.Yield
	m.distributions[update.Record.ID] = update.Record
	return nil
}

func (m *MemStore) SaveClaim(_ context.Context, update services.ClaimUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := holdingKey{update.Holding.UserID, update.Holding.PoolID}
	if _, ok := m.holdings[key]; !ok {
		return services.ErrHoldingNotFound
	}
	m.holdings[key] = update.Holding
	return nil
}
