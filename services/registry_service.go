package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ferreirogomes/quotapool/models"
)

// Bounds for pool metadata text fields.
const (
	maxAssetNameLen        = 128
	maxAssetDescriptionLen = 1024
	maxAssetTypeLen        = 64

	// MaxFeeRateBps caps the platform fee at 10%.
	MaxFeeRateBps int64 = 1000
)

// RegistryService creates pools and owns their lifecycle flags and the
// platform settings. Pool metadata is immutable after creation; only the
// active flag and the fee rate change here.
type RegistryService struct {
	store   Store
	locks   *PoolLocks
	adminID string
	custody string // platform custody wallet assigned to new pools
	log     *logrus.Entry
}

func NewRegistryService(store Store, locks *PoolLocks, adminID, custodyWallet string, log *logrus.Logger) *RegistryService {
	return &RegistryService{
		store:   store,
		locks:   locks,
		adminID: adminID,
		custody: custodyWallet,
		log:     log.WithField("service", "registry"),
	}
}

// CreatePoolParams are the caller-supplied immutable pool fields.
type CreatePoolParams struct {
	AssetName        string `json:"asset_name"`
	AssetDescription string `json:"asset_description"`
	AssetType        string `json:"asset_type"`
	TokenPrice       int64  `json:"token_price"`
	MaxShares        int64  `json:"max_shares"`
}

// CreatePool validates the parameters, assigns the next sequential id and
// stores the pool with zero shares, zero distributed yield and active=true.
func (s *RegistryService) CreatePool(ctx context.Context, creator string, params CreatePoolParams) (models.AssetPool, error) {
	if params.TokenPrice <= 0 {
		return models.AssetPool{}, fmt.Errorf("%w: token price must be positive", ErrInvalidParameter)
	}
	if params.MaxShares <= 0 {
		return models.AssetPool{}, fmt.Errorf("%w: max shares must be positive", ErrInvalidParameter)
	}
	if params.AssetName == "" || len(params.AssetName) > maxAssetNameLen {
		return models.AssetPool{}, fmt.Errorf("%w: asset name must be 1-%d characters", ErrInvalidParameter, maxAssetNameLen)
	}
	if len(params.AssetDescription) > maxAssetDescriptionLen {
		return models.AssetPool{}, fmt.Errorf("%w: asset description exceeds %d characters", ErrInvalidParameter, maxAssetDescriptionLen)
	}
	if len(params.AssetType) > maxAssetTypeLen {
		return models.AssetPool{}, fmt.Errorf("%w: asset type exceeds %d characters", ErrInvalidParameter, maxAssetTypeLen)
	}

	if _, err := s.store.GetUser(ctx, creator); err != nil {
		return models.AssetPool{}, err
	}

	pool := models.AssetPool{
		Creator:          creator,
		AssetName:        params.AssetName,
		AssetDescription: params.AssetDescription,
		AssetType:        params.AssetType,
		TokenPrice:       params.TokenPrice,
		MaxShares:        params.MaxShares,
		CurrentShares:    0,
		IsActive:         true,
		Custody:          s.custody,
		CreatedAt:        time.Now().UTC(),
	}

	created, err := s.store.CreatePool(ctx, pool)
	if err != nil {
		return models.AssetPool{}, fmt.Errorf("create pool: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"pool_id":     created.ID,
		"creator":     creator,
		"token_price": created.TokenPrice,
		"max_shares":  created.MaxShares,
	}).Info("pool created")

	return created, nil
}

// GetPool returns a pool by id.
func (s *RegistryService) GetPool(ctx context.Context, poolID int64) (models.AssetPool, error) {
	return s.store.GetPool(ctx, poolID)
}

// SetActive flips a pool's active flag. Only the pool creator or the
// platform administrator may call. Deactivated pools reject purchases and
// distributions but keep serving claims.
func (s *RegistryService) SetActive(ctx context.Context, poolID int64, caller string, active bool) (models.AssetPool, error) {
	unlock := s.locks.Lock(poolID)
	defer unlock()

	pool, err := s.store.GetPool(ctx, poolID)
	if err != nil {
		return models.AssetPool{}, err
	}
	if caller != pool.Creator && caller != s.adminID {
		return models.AssetPool{}, fmt.Errorf("%w: only pool creator or administrator may change lifecycle", ErrUnauthorized)
	}
	if pool.IsActive == active {
		return pool, nil
	}

	if err := s.store.SetPoolActive(ctx, poolID, active); err != nil {
		return models.AssetPool{}, fmt.Errorf("set pool active: %w", err)
	}
	pool.IsActive = active

	s.log.WithFields(logrus.Fields{
		"pool_id": poolID,
		"caller":  caller,
		"active":  active,
	}).Info("pool lifecycle changed")

	return pool, nil
}

// Deactivate archives a pool. Pools are never deleted so claim history
// survives deactivation.
func (s *RegistryService) Deactivate(ctx context.Context, poolID int64, caller string) (models.AssetPool, error) {
	return s.SetActive(ctx, poolID, caller, false)
}

// SetPlatformFeeRate stores the fee rate deducted from distributions.
// Administrator only; capped at MaxFeeRateBps.
func (s *RegistryService) SetPlatformFeeRate(ctx context.Context, caller string, rateBps int64) (models.PlatformSettings, error) {
	if caller != s.adminID {
		return models.PlatformSettings{}, fmt.Errorf("%w: only the administrator may set the fee rate", ErrUnauthorized)
	}
	if rateBps < 0 || rateBps > MaxFeeRateBps {
		return models.PlatformSettings{}, fmt.Errorf("%w: fee rate must be 0-%d basis points", ErrInvalidParameter, MaxFeeRateBps)
	}

	settings := models.PlatformSettings{
		FeeRateBps: rateBps,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return models.PlatformSettings{}, fmt.Errorf("save settings: %w", err)
	}

	s.log.WithField("fee_rate_bps", rateBps).Info("platform fee rate updated")
	return settings, nil
}

// GetSettings returns the platform settings. Stores report a zero fee rate
// when none were ever saved.
func (s *RegistryService) GetSettings(ctx context.Context) (models.PlatformSettings, error) {
	return s.store.GetSettings(ctx)
}
