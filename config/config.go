package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds everything main needs to wire the engine.
type Config struct {
	ListenAddr     string `yaml:"listen_addr"`
	DatabaseURL    string `yaml:"database_url"`
	UseMemoryStore bool   `yaml:"use_memory_store"` // dev mode, skips postgres

	SolanaRPCURL string `yaml:"solana_rpc_url"`
	SolanaWSURL  string `yaml:"solana_ws_url"`
	RewardMint   string `yaml:"reward_mint"`   // SPL mint of the reward token
	OperatorKey  string `yaml:"operator_key"`  // base58 private key, fee payer and delegate

	CustodyWallet  string `yaml:"custody_wallet"`  // platform custody for pool funds
	TreasuryWallet string `yaml:"treasury_wallet"` // platform fee destination
	AdminUserID    string `yaml:"admin_user_id"`
}

// Load reads the yaml config file, then applies environment overrides of the
// form QUOTAPOOL_<FIELD>. A missing file is fine; env vars alone can carry a
// deployment.
func Load(path string) (Config, error) {
	cfg := Config{
		ListenAddr:   ":8080",
		SolanaRPCURL: "http://localhost:8899",
		SolanaWSURL:  "ws://localhost:8900",
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	overrideString(&cfg.ListenAddr, "QUOTAPOOL_LISTEN_ADDR")
	overrideString(&cfg.DatabaseURL, "QUOTAPOOL_DATABASE_URL")
	overrideString(&cfg.SolanaRPCURL, "QUOTAPOOL_SOLANA_RPC_URL")
	overrideString(&cfg.SolanaWSURL, "QUOTAPOOL_SOLANA_WS_URL")
	overrideString(&cfg.RewardMint, "QUOTAPOOL_REWARD_MINT")
	overrideString(&cfg.OperatorKey, "QUOTAPOOL_OPERATOR_KEY")
	overrideString(&cfg.CustodyWallet, "QUOTAPOOL_CUSTODY_WALLET")
	overrideString(&cfg.TreasuryWallet, "QUOTAPOOL_TREASURY_WALLET")
	overrideString(&cfg.AdminUserID, "QUOTAPOOL_ADMIN_USER_ID")
	if os.Getenv("QUOTAPOOL_USE_MEMORY_STORE") == "true" {
		cfg.UseMemoryStore = true
	}

	if !cfg.UseMemoryStore && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database_url is required unless use_memory_store is set")
	}
	if cfg.CustodyWallet == "" {
		return Config{}, fmt.Errorf("custody_wallet is required")
	}
	if cfg.TreasuryWallet == "" {
		return Config{}, fmt.Errorf("treasury_wallet is required")
	}

	return cfg, nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
