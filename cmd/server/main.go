// Command server wires the ledger core and serves it over HTTP.
//
// Configuration is environment-driven:
//
//	STORE             postgres | memory (default memory, seeded with demo data)
//	POSTGRES_HOST     database host (default localhost)
//	POSTGRES_USER     database user (default postgres)
//	POSTGRES_PASSWORD database password (default postgres)
//	POSTGRES_DB       database name (default ledger_core)
//	REDIS_ADDR        optional Redis address for the read cache
//	LISTEN_ADDR       HTTP listen address (default :8080)
//	LOG_LEVEL         debug | info | warn | error (default info)
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ledger-core/pkg/api"
	"ledger-core/pkg/beneficiary"
	"ledger-core/pkg/history"
	"ledger-core/pkg/ledger"
	"ledger-core/pkg/logging"
	promMetrics "ledger-core/pkg/metrics/prometheus"
	"ledger-core/pkg/readcache"
	"ledger-core/pkg/resolver"
	"ledger-core/pkg/store"
	memstore "ledger-core/pkg/store/memory"
	pgstore "ledger-core/pkg/store/postgres"
	"ledger-core/pkg/transfer"
)

func main() {
	logger, err := logging.NewLoggerFromEnv()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	collector := promMetrics.NewCollector("ledger_core")
	registry := prometheus.NewRegistry()
	if err := collector.RegisterWith(registry); err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	var (
		st          store.Store
		benRegistry beneficiary.Registry
	)
	switch getEnv("STORE", "memory") {
	case "postgres":
		cfg := pgstore.DefaultConfig()
		cfg.Host = getEnv("POSTGRES_HOST", cfg.Host)
		if port := os.Getenv("POSTGRES_PORT"); port != "" {
			if p, err := strconv.Atoi(port); err == nil {
				cfg.Port = p
			}
		}
		cfg.User = getEnv("POSTGRES_USER", cfg.User)
		cfg.Password = getEnv("POSTGRES_PASSWORD", cfg.Password)
		cfg.Database = getEnv("POSTGRES_DB", cfg.Database)

		pg, err := pgstore.NewStore(cfg)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		st = pg

		benRegistry, err = beneficiary.NewPostgresRegistry(pg.DB())
		if err != nil {
			logger.Fatal("failed to init beneficiary registry", zap.Error(err))
		}
		logger.Info("postgres store initialized", zap.String("host", cfg.Host))
	default:
		mem := memstore.NewStore()
		memRegistry := beneficiary.NewMemoryRegistry()
		seedDemoData(mem, memRegistry, logger)
		st = mem
		benRegistry = memRegistry
		logger.Info("in-memory store initialized with demo data")
	}
	defer st.Close()

	var cache readcache.Cache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisCfg := readcache.DefaultRedisConfig()
		redisCfg.Addr = addr
		cache, err = readcache.NewRedisCache(redisCfg)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		logger.Info("redis read cache initialized", zap.String("addr", addr))
	} else {
		cache = readcache.NewMemoryCache(readcache.DefaultMemoryConfig())
		logger.Info("in-memory read cache initialized")
	}
	defer cache.Close()

	res := resolver.New(st, resolver.DefaultConfig(), logger)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := res.Seed(ctx); err != nil {
		logger.Warn("failed to seed account filter", zap.Error(err))
	}
	cancel()

	reader := history.NewReader(st,
		history.WithCache(cache),
		history.WithMetrics(collector),
		history.WithLogger(logger),
	)

	breakered := beneficiary.NewBreakerRegistry(
		benRegistry, beneficiary.DefaultBreakerConfig(), collector, logger)

	executor := transfer.NewExecutor(st, res,
		transfer.WithBeneficiaries(breakered),
		transfer.WithInvalidator(reader),
		transfer.WithMetrics(collector),
		transfer.WithLogger(logger),
	)

	serverCfg := api.DefaultServerConfig()
	serverCfg.Address = getEnv("LISTEN_ADDR", serverCfg.Address)
	server := api.NewServer(executor, reader, registry, logger, serverCfg)
	server.Start()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

// seedDemoData loads a small fixture set so the memory-backed server is
// usable out of the box.
func seedDemoData(st *memstore.Store, reg *beneficiary.MemoryRegistry, logger *logging.Logger) {
	ctx := context.Background()
	opened := time.Now().UTC().AddDate(-1, 0, 0)

	accounts := []*ledger.Account{
		{
			ID: uuid.NewString(), OwnerID: "cust-1001", Number: "100200304412",
			Type: ledger.AccountSavings, Status: ledger.StatusActive, Currency: "INR",
			LedgerBalance:    decimal.RequireFromString("10000.00"),
			AvailableBalance: decimal.RequireFromString("10000.00"),
			OpenedAt:         opened,
		},
		{
			ID: uuid.NewString(), OwnerID: "cust-1001", Number: "100200309925",
			Type: ledger.AccountCurrent, Status: ledger.StatusActive, Currency: "INR",
			LedgerBalance:    decimal.RequireFromString("2500.00"),
			AvailableBalance: decimal.RequireFromString("2000.00"),
			OpenedAt:         opened,
		},
		{
			ID: uuid.NewString(), OwnerID: "cust-2002", Number: "200300401188",
			Type: ledger.AccountSavings, Status: ledger.StatusActive, Currency: "INR",
			LedgerBalance:    decimal.RequireFromString("500.00"),
			AvailableBalance: decimal.RequireFromString("500.00"),
			OpenedAt:         opened,
		},
	}
	for _, a := range accounts {
		if err := st.CreateAccount(ctx, a); err != nil {
			logger.Warn("failed to seed account", zap.Error(err))
		}
	}

	reg.Add(&ledger.Beneficiary{
		ID:            uuid.NewString(),
		OwnerID:       "cust-1001",
		Name:          "Asha Patel",
		AccountNumber: "200300401188",
	})
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
