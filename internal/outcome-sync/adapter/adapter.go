package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/prediction-market-engine/internal/market-engine/market"
	"github.com/radieske/prediction-market-engine/internal/market-engine/settlement"
	"github.com/radieske/prediction-market-engine/internal/oracle"
	"github.com/radieske/prediction-market-engine/internal/shared/metrics"
)

// Registry é a fatia do registro de mercados usada pelo adapter
type Registry interface {
	ListVenueMarketsWithActiveWagers(ctx context.Context) ([]market.Market, error)
}

// VenueOracle lê o estado de mercados no venue externo
type VenueOracle interface {
	GetVenueMarket(ctx context.Context, venueID string) (*oracle.VenueMarket, error)
}

// Settler é o único caminho de liquidação. O adapter jamais credita o ledger
// diretamente: um outcome do venue entra pelo mesmo Resolve de sempre e herda
// a garantia de exactly-once.
type Settler interface {
	Resolve(ctx context.Context, marketID string, outcome market.Outcome, source, resolvedBy string) (*settlement.Report, error)
}

// Adapter sincroniza outcomes do venue externo para mercados espelhados
// que ainda têm apostas ativas.
type Adapter struct {
	Log      *zap.Logger
	Registry Registry
	Oracle   VenueOracle
	Settler  Settler
	Cache    *MetaCache
}

// RunOnce executa uma passada de sincronização
func (a *Adapter) RunOnce(ctx context.Context) error {
	pending, err := a.Registry.ListVenueMarketsWithActiveWagers(ctx)
	if err != nil {
		return fmt.Errorf("list venue markets: %w", err)
	}

	for i := range pending {
		m := &pending[i]

		// Cache só corta chamada quando a última leitura recente dizia
		// "ainda não finalizado"; finalizado exige leitura fresca abaixo
		if meta, ok := a.Cache.Get(m.VenueID); ok && !meta.Finalized {
			continue
		}

		fresh, err := a.Oracle.GetVenueMarket(ctx, m.VenueID)
		if err != nil {
			metrics.OracleErrors.WithLabelValues("venue-sync").Inc()
			a.Log.Warn("venue read failed", zap.String("venueId", m.VenueID), zap.Error(err))
			continue // próxima passada tenta de novo
		}
		a.Cache.Put(m.VenueID, *fresh)

		if !fresh.Finalized {
			continue
		}

		outcome, err := market.ParseOutcome(fresh.Outcome)
		if err != nil {
			a.Log.Error("venue reported unusable outcome, manual resolution required",
				zap.String("marketId", m.ID),
				zap.String("venueId", m.VenueID),
				zap.String("outcome", fresh.Outcome))
			continue
		}

		rep, err := a.Settler.Resolve(ctx, m.ID, outcome, "venue:"+m.VenueID, "outcome-sync")
		if err != nil {
			if errors.Is(err, settlement.ErrAlreadyResolved) {
				continue
			}
			a.Log.Error("venue settlement failed", zap.String("marketId", m.ID), zap.Error(err))
			continue
		}

		metrics.MarketsResolved.WithLabelValues("venue").Inc()
		metrics.TokensPaidOut.Add(float64(rep.TokensPaid))
		a.Log.Info("market settled from venue",
			zap.String("marketId", m.ID),
			zap.String("venueId", m.VenueID),
			zap.String("outcome", string(outcome)),
			zap.Int("winners", rep.Winners),
			zap.Int("losers", rep.Losers))
	}

	return nil
}

// Run roda passadas periódicas até o contexto encerrar
func (a *Adapter) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := a.RunOnce(ctx); err != nil {
			a.Log.Warn("sync pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
