package main

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/prediction-market-engine/internal/market-engine/betting"
	httpapi "github.com/radieske/prediction-market-engine/internal/market-engine/http"
	"github.com/radieske/prediction-market-engine/internal/market-engine/ledger"
	"github.com/radieske/prediction-market-engine/internal/market-engine/market"
	"github.com/radieske/prediction-market-engine/internal/market-engine/payout"
	"github.com/radieske/prediction-market-engine/internal/market-engine/producer"
	"github.com/radieske/prediction-market-engine/internal/market-engine/settlement"
	"github.com/radieske/prediction-market-engine/internal/shared/cache"
	"github.com/radieske/prediction-market-engine/internal/shared/config"
	"github.com/radieske/prediction-market-engine/internal/shared/db"
	skafka "github.com/radieske/prediction-market-engine/internal/shared/kafka"
	"github.com/radieske/prediction-market-engine/internal/shared/logger"
	"github.com/radieske/prediction-market-engine/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	// Inicializa logger estruturado
	log, err := logger.New("market-engine", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "market-engine"), zap.String("env", cfg.Env))

	// Conexão com Postgres (ledger, mercados, apostas, saques)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis para o cache do leaderboard
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka producers: bet_placed e market_resolved
	betWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer betWriter.Close()
	resolvedWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMarketResolved)
	defer resolvedWriter.Close()
	publ := producer.NewKafkaPublisher(betWriter, resolvedWriter)

	// Predicado opaco de admin: o mecanismo de autenticação real fica fora do engine
	isAdmin := func(token string) bool {
		return cfg.AdminToken != "" && token == cfg.AdminToken
	}

	api := httpapi.NewServer(
		log,
		ledger.NewStore(pg),
		market.NewRegistry(pg),
		betting.NewRepo(pg),
		settlement.NewEngine(pg),
		payout.NewRepo(pg),
		publ,
		isAdmin,
		rdb,
	)

	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}

	// Servidor de métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, pg.PingContext)
	defer metricsSrv.Close()
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
