package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/prediction-market-engine/internal/market-engine/market"
	"github.com/radieske/prediction-market-engine/internal/market-engine/settlement"
	"github.com/radieske/prediction-market-engine/internal/oracle"
	"github.com/radieske/prediction-market-engine/internal/outcome-sync/adapter"
	"github.com/radieske/prediction-market-engine/internal/shared/config"
	"github.com/radieske/prediction-market-engine/internal/shared/db"
	"github.com/radieske/prediction-market-engine/internal/shared/logger"
	"github.com/radieske/prediction-market-engine/internal/shared/metrics"
)

// Worker que espelha outcomes do venue externo: mercados espelhados com aposta
// ativa são consultados e, quando o venue finaliza, a liquidação passa pelo
// mesmo Settlement Engine dos demais fluxos.
func main() {
	cfg := config.Load()
	log, err := logger.New("outcome-sync-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	sync := &adapter.Adapter{
		Log:      log,
		Registry: market.NewRegistry(pg),
		Oracle:   oracle.New(cfg.VenueBaseURL),
		Settler:  settlement.NewEngine(pg),
		Cache:    adapter.NewMetaCache(cfg.OracleCacheTTL, time.Now),
	}

	// Servidor de métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, pg.PingContext)
	defer metricsSrv.Close()
	log.Info("metrics/health", zap.String("addr", metricsSrv.Addr))

	log.Info("outcome-sync worker started",
		zap.String("venue", cfg.VenueBaseURL),
		zap.Duration("interval", cfg.SyncInterval),
		zap.Duration("cacheTtl", cfg.OracleCacheTTL),
	)

	if err := sync.Run(context.Background(), cfg.SyncInterval); err != nil && err != context.Canceled {
		log.Fatal("sync loop", zap.Error(err))
	}
}
