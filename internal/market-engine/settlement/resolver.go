package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/radieske/prediction-market-engine/internal/market-engine/market"
	"github.com/radieske/prediction-market-engine/internal/oracle"
	"github.com/radieske/prediction-market-engine/internal/shared/metrics"
)

// PriceOracle é a fatia do oráculo usada pelos resolvers automáticos
type PriceOracle interface {
	GetQuote(ctx context.Context, ticker string) (*oracle.Quote, error)
}

// Predicate computa o sinal booleano de um mercado a partir do oráculo.
// true mapeia para outcome=yes.
type Predicate func(ctx context.Context, o PriceOracle, m *market.Market) (bool, error)

// ErrNoResolver indica subcategoria sem predicado cadastrado: resolução manual
var ErrNoResolver = errors.New("no resolver for subcategory")

// Catálogo de resolvers por subcategoria. O sinal que paga aposta no fechamento
// diário é close > open da própria sessão (não close vs previous close).
var resolvers = map[string]Predicate{
	"daily-close":  closeAboveOpen,
	"weekly-range": rangeExceedsThreshold,
}

// PredicateFor retorna o resolver da subcategoria, se houver
func PredicateFor(subcategory string) (Predicate, bool) {
	p, ok := resolvers[subcategory]
	return p, ok
}

func closeAboveOpen(ctx context.Context, o PriceOracle, m *market.Market) (bool, error) {
	q, err := o.GetQuote(ctx, m.Ticker)
	if err != nil {
		return false, err
	}
	return q.Close > q.Open, nil
}

type rangeParams struct {
	ThresholdPct float64 `json:"threshold_pct"`
}

func rangeExceedsThreshold(ctx context.Context, o PriceOracle, m *market.Market) (bool, error) {
	var p rangeParams
	if err := json.Unmarshal(m.Parameters, &p); err != nil {
		return false, fmt.Errorf("parse parameters: %w", err)
	}
	if p.ThresholdPct <= 0 {
		// sem threshold não há predicado inequívoco; deixa para resolução manual
		return false, fmt.Errorf("%w: missing threshold_pct", ErrNoResolver)
	}
	q, err := o.GetQuote(ctx, m.Ticker)
	if err != nil {
		return false, err
	}
	if q.PreviousClose == 0 {
		return false, fmt.Errorf("zero previous close for %s", m.Ticker)
	}
	movePct := math.Abs(q.Close-q.PreviousClose) / q.PreviousClose * 100
	return movePct >= p.ThresholdPct, nil
}

// Registry é a fatia do registro de mercados usada pelo AutoResolver
type Registry interface {
	ListDueForAutoResolution(ctx context.Context) ([]market.Market, error)
}

// Resolver é o caminho único de liquidação visto pelo AutoResolver
type Resolver interface {
	Resolve(ctx context.Context, marketID string, outcome market.Outcome, source, resolvedBy string) (*Report, error)
}

// AutoResolver percorre mercados internos vencidos e resolve os que têm
// predicado cadastrado. Falha de oráculo deixa o mercado intocado; a próxima
// passada agendada tenta de novo.
type AutoResolver struct {
	Log      *zap.Logger
	Registry Registry
	Oracle   PriceOracle
	Engine   Resolver
}

// RunOnce executa uma passada de resolução automática
func (a *AutoResolver) RunOnce(ctx context.Context) error {
	due, err := a.Registry.ListDueForAutoResolution(ctx)
	if err != nil {
		return fmt.Errorf("list due markets: %w", err)
	}

	for i := range due {
		m := &due[i]

		pred, ok := PredicateFor(m.Subcategory)
		if !ok {
			a.Log.Info("market requires manual resolution",
				zap.String("marketId", m.ID), zap.String("subcategory", m.Subcategory))
			continue
		}

		green, err := pred(ctx, a.Oracle, m)
		if err != nil {
			metrics.OracleErrors.WithLabelValues("auto-resolve").Inc()
			a.Log.Warn("resolver deferred", zap.String("marketId", m.ID), zap.Error(err))
			continue
		}

		outcome := market.OutcomeNo
		if green {
			outcome = market.OutcomeYes
		}

		rep, err := a.Engine.Resolve(ctx, m.ID, outcome, "auto:"+m.Subcategory, "auto-resolver")
		if err != nil {
			if errors.Is(err, ErrAlreadyResolved) {
				continue // outra passada ou um admin chegou primeiro
			}
			a.Log.Error("auto resolve failed", zap.String("marketId", m.ID), zap.Error(err))
			continue
		}

		metrics.MarketsResolved.WithLabelValues("auto").Inc()
		metrics.TokensPaidOut.Add(float64(rep.TokensPaid))
		a.Log.Info("market auto-resolved",
			zap.String("marketId", m.ID),
			zap.String("outcome", string(outcome)),
			zap.Int("winners", rep.Winners),
			zap.Int("losers", rep.Losers),
			zap.Int64("tokensPaid", rep.TokensPaid))
	}

	return nil
}
