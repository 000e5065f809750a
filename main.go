package main

import (
	"context"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ferreirogomes/quotapool/blockchain_listener"
	"github.com/ferreirogomes/quotapool/config"
	"github.com/ferreirogomes/quotapool/handlers"
	"github.com/ferreirogomes/quotapool/services"
	"github.com/ferreirogomes/quotapool/storage"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	configPath := os.Getenv("QUOTAPOOL_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	var store services.Store
	if cfg.UseMemoryStore {
		log.Warn("running with in-memory store; state is lost on restart")
		store = storage.NewMemStore()
	} else {
		db, err := storage.NewDB(cfg.DatabaseURL, log)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to database")
		}
		defer db.Close()
		store = db
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var gateway services.TokenGateway
	if cfg.UseMemoryStore {
		gateway = services.NewDevGateway(log)
	} else {
		solanaGateway, err := services.NewSolanaGateway(cfg.SolanaRPCURL, cfg.RewardMint, cfg.OperatorKey, log)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize solana gateway")
		}
		gateway = solanaGateway

		watcher, err := blockchain_listener.NewCustodyWatcher(
			ctx, cfg.SolanaRPCURL, cfg.SolanaWSURL,
			cfg.CustodyWallet, cfg.RewardMint, solanaGateway.OperatorWallet(), log,
		)
		if err != nil {
			log.WithError(err).Warn("custody watcher unavailable; continuing without on-chain audit")
		} else {
			go watcher.Run(ctx)
		}
	}

	locks := services.NewPoolLocks()
	registryService := services.NewRegistryService(store, locks, cfg.AdminUserID, cfg.CustodyWallet, log)
	ledgerService := services.NewLedgerService(store, gateway, locks, log)
	yieldService := services.NewYieldService(store, gateway, locks, cfg.AdminUserID, cfg.TreasuryWallet, log)

	poolHandler := handlers.NewPoolHandler(registryService)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService)
	yieldHandler := handlers.NewYieldHandler(yieldService)
	userHandler := handlers.NewUserHandler(store)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.URLFormat)

	r.Route("/pools", func(r chi.Router) {
		r.Post("/", poolHandler.CreatePool)
		r.Get("/{id}", poolHandler.GetPool)
		r.Put("/{id}/active", poolHandler.SetActive)
		r.Post("/{id}/purchase", ledgerHandler.Purchase)
		r.Get("/{id}/holdings/{userID}", ledgerHandler.GetHolding)
		r.Post("/{id}/distribute", yieldHandler.Distribute)
		r.Post("/{id}/claim", yieldHandler.Claim)
		r.Get("/{id}/yield", yieldHandler.GetYieldState)
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", userHandler.CreateUser)
		r.Get("/{id}", userHandler.GetUser)
		r.Get("/{id}/shares", ledgerHandler.GetUserShares)
	})

	r.Route("/platform", func(r chi.Router) {
		r.Put("/fee-rate", poolHandler.SetFeeRate)
		r.Get("/settings", poolHandler.GetSettings)
	})

	r.Get("/distributions/{id}", yieldHandler.GetDistribution)

	log.WithField("addr", cfg.ListenAddr).Info("pool ledger listening")
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
