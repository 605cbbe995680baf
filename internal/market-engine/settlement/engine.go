package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/radieske/prediction-market-engine/internal/market-engine/ledger"
	"github.com/radieske/prediction-market-engine/internal/market-engine/market"
)

var (
	ErrAlreadyResolved = errors.New("market already resolved")
	ErrNotResolvable   = errors.New("market not resolvable yet")
)

// Report resume uma liquidação concluída
type Report struct {
	MarketID   string         `json:"market_id"`
	Outcome    market.Outcome `json:"outcome"`
	Winners    int            `json:"winners"`
	Losers     int            `json:"losers"`
	TokensPaid int64          `json:"tokens_paid"`
}

// Engine liquida mercados exatamente uma vez.
// A garantia vem do lock da linha do mercado: quem perde a corrida de resolução
// bloqueia no FOR UPDATE e, ao acordar, enxerga status=resolved.
type Engine struct {
	db  *sql.DB
	now func() time.Time
}

// NewEngine retorna uma instância do motor de liquidação
func NewEngine(db *sql.DB) *Engine { return &Engine{db: db, now: time.Now} }

// NewEngineWithClock permite injetar o relógio para testes
func NewEngineWithClock(db *sql.DB, now func() time.Time) *Engine {
	return &Engine{db: db, now: now}
}

type settledWager struct {
	id              string
	userKey         string
	position        market.Outcome
	tokensWagered   int64
	potentialPayout int64
}

// Resolve fixa o outcome do mercado e paga todas as apostas ativas, em uma
// transação única. Falha em qualquer passo desfaz tudo: pagamento parcial
// nunca é observável.
func (e *Engine) Resolve(ctx context.Context, marketID string, outcome market.Outcome, source, resolvedBy string) (*Report, error) {
	if outcome != market.OutcomeYes && outcome != market.OutcomeNo {
		return nil, market.ErrInvalidOutcome
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// (a) trava o mercado; o guard de idempotência vive aqui
	var (
		status            string
		opensAt, closesAt time.Time
	)
	err = tx.QueryRowContext(ctx, `
		SELECT status, opens_at, closes_at FROM markets WHERE id=$1 FOR UPDATE`, marketID).
		Scan(&status, &opensAt, &closesAt)
	if err == sql.ErrNoRows {
		return nil, market.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock market: %w", err)
	}

	if market.Status(status) == market.StatusResolved {
		return nil, ErrAlreadyResolved
	}

	now := e.now()
	m := market.Market{OpensAt: opensAt, ClosesAt: closesAt, Status: market.Status(status)}
	if market.DeriveStatus(&m, now) == market.StatusUpcoming {
		// upcoming nunca resolve; só open/closed chegam aqui
		return nil, ErrNotResolvable
	}

	// (b) grava o estado terminal do mercado
	_, err = tx.ExecContext(ctx, `
		UPDATE markets
		SET status='resolved', outcome=$1, resolution_source=$2, resolved_at=$3, resolved_by=$4
		WHERE id=$5`,
		string(outcome), source, now, resolvedBy, marketID)
	if err != nil {
		return nil, fmt.Errorf("resolve market: %w", err)
	}

	// (c) enumera as apostas ativas; ordem fixa por user_key define a ordem de
	// lock das contas e evita deadlock entre liquidações concorrentes
	rows, err := tx.QueryContext(ctx, `
		SELECT id, user_key, position, tokens_wagered, potential_payout
		FROM wagers WHERE market_id=$1 AND status='active'
		ORDER BY user_key`, marketID)
	if err != nil {
		return nil, fmt.Errorf("list wagers: %w", err)
	}
	var wagers []settledWager
	for rows.Next() {
		var (
			w   settledWager
			pos string
		)
		if err := rows.Scan(&w.id, &w.userKey, &pos, &w.tokensWagered, &w.potentialPayout); err != nil {
			rows.Close()
			return nil, err
		}
		w.position = market.Outcome(pos)
		wagers = append(wagers, w)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	// (d) paga vencedores, contabiliza perdedores
	rep := &Report{MarketID: marketID, Outcome: outcome}
	for _, w := range wagers {
		if _, err := ledger.LockTx(ctx, tx, w.userKey); err != nil {
			return nil, err
		}

		if w.position == outcome {
			if _, err := tx.ExecContext(ctx, `
				UPDATE wagers SET status='won', tokens_won=$1, settled_at=$2 WHERE id=$3`,
				w.potentialPayout, now, w.id); err != nil {
				return nil, fmt.Errorf("settle wager %s: %w", w.id, err)
			}
			if err := ledger.CreditTx(ctx, tx, w.userKey, w.potentialPayout); err != nil {
				return nil, err
			}
			if err := ledger.RecordWinTx(ctx, tx, w.userKey, w.potentialPayout-w.tokensWagered); err != nil {
				return nil, err
			}
			rep.Winners++
			rep.TokensPaid += w.potentialPayout
		} else {
			if _, err := tx.ExecContext(ctx, `
				UPDATE wagers SET status='lost', tokens_won=0, settled_at=$1 WHERE id=$2`,
				now, w.id); err != nil {
				return nil, fmt.Errorf("settle wager %s: %w", w.id, err)
			}
			if err := ledger.RecordLossTx(ctx, tx, w.userKey, w.tokensWagered); err != nil {
				return nil, err
			}
			rep.Losers++
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return rep, nil
}
