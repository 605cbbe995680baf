package betting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/radieske/prediction-market-engine/internal/market-engine/ledger"
	"github.com/radieske/prediction-market-engine/internal/market-engine/market"
)

var (
	ErrMarketClosed = errors.New("market not open for betting")
	ErrOutOfBounds  = errors.New("stake outside market bounds")
	ErrDuplicateBet = errors.New("duplicate bet for market")
	ErrInvalidStake = errors.New("invalid stake")
)

// Repo implementa o protocolo de colocação de apostas em banco Postgres.
// Cada PlaceBet é uma transação única: ou os cinco efeitos entram juntos
// (débito, wager, volume do lado, contagem de apostadores, snapshot do
// multiplicador) ou nenhum entra.
type Repo struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepo retorna uma instância do repositório de apostas
func NewRepo(db *sql.DB) *Repo { return &Repo{db: db, now: time.Now} }

// NewRepoWithClock permite injetar o relógio para testes
func NewRepoWithClock(db *sql.DB, now func() time.Time) *Repo {
	return &Repo{db: db, now: now}
}

// PlaceBet valida e efetiva uma aposta de forma atômica.
// Ordem de lock fixa em todos os fluxos: Market antes de Account.
func (r *Repo) PlaceBet(ctx context.Context, userKey, marketID string, position market.Outcome, tokens int64) (*market.Wager, error) {
	// Validações de entrada, antes de abrir transação
	if userKey == "" || marketID == "" {
		return nil, ErrInvalidStake
	}
	if tokens <= 0 {
		return nil, ErrInvalidStake
	}
	if position != market.OutcomeYes && position != market.OutcomeNo {
		return nil, market.ErrInvalidOutcome
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// (a) trava o mercado e confirma que segue aberto
	var (
		yesMult, noMult   float64
		minBet, maxBet    int64
		status            string
		opensAt, closesAt time.Time
	)
	err = tx.QueryRowContext(ctx, `
		SELECT yes_multiplier, no_multiplier, min_bet, max_bet, status, opens_at, closes_at
		FROM markets WHERE id=$1 FOR UPDATE`, marketID).
		Scan(&yesMult, &noMult, &minBet, &maxBet, &status, &opensAt, &closesAt)
	if err == sql.ErrNoRows {
		return nil, market.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock market: %w", err)
	}

	now := r.now()
	m := market.Market{
		YesMultiplier: yesMult, NoMultiplier: noMult,
		OpensAt: opensAt, ClosesAt: closesAt,
		Status: market.Status(status),
	}
	if market.DeriveStatus(&m, now) != market.StatusOpen {
		return nil, ErrMarketClosed
	}

	// (b) limites do mercado
	if tokens < minBet || tokens > maxBet {
		return nil, ErrOutOfBounds
	}

	// (c) uma aposta por (user, mercado); o índice único é o backstop da corrida
	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM wagers WHERE user_key=$1 AND market_id=$2`, userKey, marketID).
		Scan(&exists)
	if err == nil {
		return nil, ErrDuplicateBet
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	// (d) trava a conta e debita o stake
	acc, err := ledger.LockTx(ctx, tx, userKey)
	if err != nil {
		return nil, err
	}
	if acc.Balance < tokens {
		return nil, ledger.ErrInsufficientFunds
	}
	if err = ledger.DebitTx(ctx, tx, userKey, tokens); err != nil {
		return nil, err
	}

	// (e) snapshot do multiplicador no momento da aposta
	mult := m.MultiplierFor(position)
	payout := int64(math.Floor(float64(tokens) * mult))

	// (f) insere a aposta
	w := &market.Wager{
		ID:               uuid.NewString(),
		UserKey:          userKey,
		MarketID:         marketID,
		Position:         position,
		TokensWagered:    tokens,
		PotentialPayout:  payout,
		PayoutMultiplier: mult,
		Status:           market.WagerActive,
		CreatedAt:        now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO wagers
		  (id, user_key, market_id, position, tokens_wagered, potential_payout, payout_multiplier, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'active')`,
		w.ID, w.UserKey, w.MarketID, string(w.Position), w.TokensWagered, w.PotentialPayout, w.PayoutMultiplier)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateBet
		}
		return nil, fmt.Errorf("insert wager: %w", err)
	}

	// Atualiza o volume do lado apostado; dois ramos explícitos, sem montar
	// nome de coluna em runtime
	switch position {
	case market.OutcomeYes:
		_, err = tx.ExecContext(ctx, `
			UPDATE markets SET total_yes_tokens = total_yes_tokens + $1,
			                   total_bettors = total_bettors + 1
			WHERE id=$2`, tokens, marketID)
	case market.OutcomeNo:
		_, err = tx.ExecContext(ctx, `
			UPDATE markets SET total_no_tokens = total_no_tokens + $1,
			                   total_bettors = total_bettors + 1
			WHERE id=$2`, tokens, marketID)
	}
	if err != nil {
		return nil, fmt.Errorf("update market volume: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return w, nil
}

// ListBets retorna as apostas do usuário, opcionalmente filtradas por status
func (r *Repo) ListBets(ctx context.Context, userKey string, status market.WagerStatus) ([]market.Wager, error) {
	const cols = `id, user_key, market_id, position, tokens_wagered, potential_payout,
		payout_multiplier, status, tokens_won, created_at, settled_at`

	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+cols+` FROM wagers WHERE user_key=$1 ORDER BY created_at DESC`, userKey)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+cols+` FROM wagers WHERE user_key=$1 AND status=$2 ORDER BY created_at DESC`,
			userKey, string(status))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Wager
	for rows.Next() {
		var (
			w         market.Wager
			pos, st   string
			settledAt sql.NullTime
		)
		if err := rows.Scan(&w.ID, &w.UserKey, &w.MarketID, &pos, &w.TokensWagered,
			&w.PotentialPayout, &w.PayoutMultiplier, &st, &w.TokensWon,
			&w.CreatedAt, &settledAt); err != nil {
			return nil, err
		}
		w.Position = market.Outcome(pos)
		w.Status = market.WagerStatus(st)
		if settledAt.Valid {
			t := settledAt.Time
			w.SettledAt = &t
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
