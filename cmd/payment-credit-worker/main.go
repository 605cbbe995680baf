package main

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/prediction-market-engine/internal/market-engine/ledger"
	"github.com/radieske/prediction-market-engine/internal/shared/config"
	"github.com/radieske/prediction-market-engine/internal/shared/db"
	"github.com/radieske/prediction-market-engine/internal/shared/kafka"
	"github.com/radieske/prediction-market-engine/internal/shared/logger"
	"github.com/radieske/prediction-market-engine/internal/shared/metrics"
	ev "github.com/radieske/prediction-market-engine/pkg/contracts/events"
)

// Worker funds-in: consome payment_completed do provedor de checkout e credita
// o ledger. O checkout em si (cartão, webhook, assinatura) fica fora do engine.
func main() {
	cfg := config.Load()
	log, err := logger.New("payment-credit-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	store := ledger.NewStore(pg)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  strings.Split(cfg.KafkaBrokers, ","),
		GroupID:  "payment-credit",
		Topic:    cfg.TopicPaymentCompleted,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicPaymentCompletedDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPaymentCompletedDLQ)
		defer dlqWriter.Close()
	}

	// Servidor de métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, pg.PingContext)
	defer metricsSrv.Close()
	log.Info("metrics/health", zap.String("addr", metricsSrv.Addr))

	log.Info("payment-credit-worker started", zap.String("consume", cfg.TopicPaymentCompleted))

	ctx := context.Background()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var payment ev.PaymentCompleted
		if jerr := json.Unmarshal(msg.Value, &payment); jerr != nil {
			log.Error("unmarshal payment_completed", zap.Error(jerr))
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, string(msg.Key), msg.Value)
			}
			continue
		}
		if payment.UserKey == "" || payment.TokenAmount <= 0 {
			log.Error("invalid payment event", zap.String("paymentId", payment.PaymentID))
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, payment.PaymentID, msg.Value)
			}
			continue
		}

		// Crédito + contador vitalício em uma transação; retry simples antes da DLQ
		if err := creditWithRetry(ctx, store, &payment); err != nil {
			log.Error("credit failed", zap.String("paymentId", payment.PaymentID), zap.Error(err))
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, payment.PaymentID, msg.Value)
			}
			continue
		}

		metrics.PaymentsCredited.Inc()
		log.Info("payment credited",
			zap.String("paymentId", payment.PaymentID),
			zap.String("userKey", payment.UserKey),
			zap.Int64("tokens", payment.TokenAmount))
	}
}

func creditWithRetry(ctx context.Context, store *ledger.Store, p *ev.PaymentCompleted) error {
	var err error
	for i := 0; i < 3; i++ {
		if _, err = store.Purchase(ctx, p.UserKey, p.TokenAmount); err == nil {
			return nil
		}
		time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
	}
	return err
}
