package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/prediction-market-engine/internal/market-engine/market"
	"github.com/radieske/prediction-market-engine/internal/market-engine/settlement"
	"github.com/radieske/prediction-market-engine/internal/oracle"
	"github.com/radieske/prediction-market-engine/internal/shared/config"
	"github.com/radieske/prediction-market-engine/internal/shared/db"
	"github.com/radieske/prediction-market-engine/internal/shared/logger"
	"github.com/radieske/prediction-market-engine/internal/shared/metrics"
)

// Worker agendado: avança o ciclo de vida dos mercados por tempo (sweep) e
// roda os resolvers automáticos dos mercados internos vencidos.
func main() {
	cfg := config.Load()
	log, err := logger.New("market-sweep-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	registry := market.NewRegistry(pg)
	resolver := &settlement.AutoResolver{
		Log:      log,
		Registry: registry,
		Oracle:   oracle.New(cfg.OracleBaseURL),
		Engine:   settlement.NewEngine(pg),
	}

	// Servidor de métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, pg.PingContext)
	defer metricsSrv.Close()
	log.Info("metrics/health", zap.String("addr", metricsSrv.Addr))

	log.Info("sweep worker started", zap.Duration("interval", cfg.SweepInterval))

	ctx := context.Background()
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		opened, closed, err := registry.Sweep(ctx)
		if err != nil {
			log.Warn("sweep failed", zap.Error(err))
		} else if opened > 0 || closed > 0 {
			log.Info("sweep pass", zap.Int64("opened", opened), zap.Int64("closed", closed))
		}

		if err := resolver.RunOnce(ctx); err != nil {
			log.Warn("auto resolve pass failed", zap.Error(err))
		}

		<-ticker.C
	}
}
