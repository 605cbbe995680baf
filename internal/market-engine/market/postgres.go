package market

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Registry implementa a persistência de mercados em banco Postgres
type Registry struct {
	db  *sql.DB
	now func() time.Time
}

// NewRegistry retorna uma instância do registro de mercados
func NewRegistry(db *sql.DB) *Registry {
	return &Registry{db: db, now: time.Now}
}

// NewRegistryWithClock permite injetar o relógio (testes determinísticos do sweep)
func NewRegistryWithClock(db *sql.DB, now func() time.Time) *Registry {
	return &Registry{db: db, now: now}
}

const marketColumns = `id, category, subcategory, title, ticker, venue_id, parameters,
	yes_multiplier, no_multiplier, min_bet, max_bet,
	opens_at, closes_at, resolves_at,
	status, outcome, resolution_source, resolved_at, resolved_by,
	total_yes_tokens, total_no_tokens, total_bettors, created_at`

// Create valida e insere um novo mercado; o status inicial é derivado dos timestamps
func (r *Registry) Create(ctx context.Context, m *Market) error {
	if m.Title == "" || m.Category == "" || m.Subcategory == "" {
		return ErrInvalidMarket
	}
	if m.YesMultiplier <= 0 || m.NoMultiplier <= 0 {
		return ErrInvalidMarket
	}
	if m.MinBet <= 0 || m.MaxBet < m.MinBet {
		return ErrInvalidMarket
	}
	if m.OpensAt.After(m.ClosesAt) || m.ClosesAt.After(m.ResolvesAt) {
		return ErrInvalidMarket
	}

	m.ID = uuid.NewString()
	m.Status = DeriveStatus(m, r.now())
	if len(m.Parameters) == 0 {
		m.Parameters = []byte(`{}`)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO markets
		  (id, category, subcategory, title, ticker, venue_id, parameters,
		   yes_multiplier, no_multiplier, min_bet, max_bet,
		   opens_at, closes_at, resolves_at, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		m.ID, m.Category, m.Subcategory, m.Title, m.Ticker, m.VenueID, []byte(m.Parameters),
		m.YesMultiplier, m.NoMultiplier, m.MinBet, m.MaxBet,
		m.OpensAt, m.ClosesAt, m.ResolvesAt, string(m.Status),
	)
	if err != nil {
		return fmt.Errorf("insert market: %w", err)
	}
	return nil
}

// Get retorna um mercado pelo id
func (r *Registry) Get(ctx context.Context, id string) (*Market, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+marketColumns+` FROM markets WHERE id=$1`, id)
	m, err := scanMarket(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return m, err
}

// List retorna mercados, opcionalmente filtrados por status
func (r *Registry) List(ctx context.Context, status Status, limit int) ([]Market, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+marketColumns+` FROM markets ORDER BY closes_at LIMIT $1`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+marketColumns+` FROM markets WHERE status=$1 ORDER BY closes_at LIMIT $2`,
			string(status), limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Sweep persiste as transições derivadas por tempo em uma passada única.
// Idempotente: sem mercado cruzando fronteira de tempo, nada muda.
// A transição para resolved nunca passa por aqui (exige outcome).
func (r *Registry) Sweep(ctx context.Context) (opened, closed int64, err error) {
	now := r.now()

	res, err := r.db.ExecContext(ctx, `
		UPDATE markets SET status='open'
		WHERE status='upcoming' AND opens_at <= $1 AND closes_at > $1`, now)
	if err != nil {
		return 0, 0, fmt.Errorf("sweep open: %w", err)
	}
	opened, _ = res.RowsAffected()

	res, err = r.db.ExecContext(ctx, `
		UPDATE markets SET status='closed'
		WHERE status IN ('upcoming','open') AND closes_at <= $1`, now)
	if err != nil {
		return opened, 0, fmt.Errorf("sweep close: %w", err)
	}
	closed, _ = res.RowsAffected()

	return opened, closed, nil
}

// ListDueForAutoResolution retorna mercados internos (sem venue) que passaram do
// horário de resolução e ainda não foram resolvidos
func (r *Registry) ListDueForAutoResolution(ctx context.Context) ([]Market, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+marketColumns+` FROM markets
		WHERE status IN ('open','closed') AND venue_id = '' AND resolves_at <= $1
		ORDER BY resolves_at`, r.now())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMarkets(rows)
}

// ListVenueMarketsWithActiveWagers retorna mercados espelhados de venue externo
// que ainda têm aposta ativa pendente de liquidação
func (r *Registry) ListVenueMarketsWithActiveWagers(ctx context.Context) ([]Market, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+marketColumns+` FROM markets m
		WHERE m.venue_id <> '' AND m.status <> 'resolved'
		  AND EXISTS (SELECT 1 FROM wagers w WHERE w.market_id = m.id AND w.status = 'active')
		ORDER BY m.closes_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMarkets(rows)
}

func collectMarkets(rows *sql.Rows) ([]Market, error) {
	var out []Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarket(row rowScanner) (*Market, error) {
	var (
		m          Market
		params     []byte
		status     string
		outcome    sql.NullString
		resolvedAt sql.NullTime
	)
	err := row.Scan(
		&m.ID, &m.Category, &m.Subcategory, &m.Title, &m.Ticker, &m.VenueID, &params,
		&m.YesMultiplier, &m.NoMultiplier, &m.MinBet, &m.MaxBet,
		&m.OpensAt, &m.ClosesAt, &m.ResolvesAt,
		&status, &outcome, &m.ResolutionSource, &resolvedAt, &m.ResolvedBy,
		&m.TotalYesTokens, &m.TotalNoTokens, &m.TotalBettors, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Parameters = params
	m.Status = Status(status)
	if outcome.Valid {
		o := Outcome(outcome.String)
		m.Outcome = &o
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		m.ResolvedAt = &t
	}
	return &m, nil
}
