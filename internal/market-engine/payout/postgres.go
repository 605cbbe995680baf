package payout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/prediction-market-engine/internal/market-engine/ledger"
)

// TokensPerUSD é a taxa fixa de conversão usada nos saques
const TokensPerUSD = 100

var (
	ErrNotFound        = errors.New("payout request not found")
	ErrAlreadyReviewed = errors.New("payout request already reviewed")
	ErrInvalidDecision = errors.New("invalid review decision")
	ErrInvalidRequest  = errors.New("invalid payout request")
)

// Request é um pedido de saque. O débito acontece na criação; rejeição estorna.
type Request struct {
	ID           string     `json:"id"`
	UserKey      string     `json:"user_key"`
	TokensAmount int64      `json:"tokens_amount"`
	USDAmount    float64    `json:"usd_amount"`
	Method       string     `json:"method"`
	Destination  string     `json:"destination"`
	Status       string     `json:"status"` // pending | approved | completed | rejected
	ReviewedBy   string     `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Repo implementa pedidos de saque em banco Postgres
type Repo struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepo retorna uma instância do repositório de saques
func NewRepo(db *sql.DB) *Repo { return &Repo{db: db, now: time.Now} }

// Create debita o saldo e registra o pedido pendente, atomicamente
func (r *Repo) Create(ctx context.Context, userKey string, tokens int64, method, destination string) (*Request, error) {
	if userKey == "" || tokens <= 0 || method == "" || destination == "" {
		return nil, ErrInvalidRequest
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

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

	req := &Request{
		ID:           uuid.NewString(),
		UserKey:      userKey,
		TokensAmount: tokens,
		USDAmount:    float64(tokens) / TokensPerUSD,
		Method:       method,
		Destination:  destination,
		Status:       "pending",
		CreatedAt:    r.now(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO payout_requests
		  (id, user_key, tokens_amount, usd_amount, method, destination, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		req.ID, req.UserKey, req.TokensAmount, req.USDAmount, req.Method, req.Destination)
	if err != nil {
		return nil, fmt.Errorf("insert payout request: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return req, nil
}

// Review aplica a decisão do revisor. Rejeição devolve os tokens ao saldo.
// pending -> approved | completed | rejected; approved -> completed | rejected
func (r *Repo) Review(ctx context.Context, payoutID, decision, reviewer string) (*Request, error) {
	switch decision {
	case "approved", "completed", "rejected":
	default:
		return nil, ErrInvalidDecision
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req := &Request{ID: payoutID}
	err = tx.QueryRowContext(ctx, `
		SELECT user_key, tokens_amount, usd_amount, method, destination, status, created_at
		FROM payout_requests WHERE id=$1 FOR UPDATE`, payoutID).
		Scan(&req.UserKey, &req.TokensAmount, &req.USDAmount, &req.Method,
			&req.Destination, &req.Status, &req.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case "completed", "rejected":
		return nil, ErrAlreadyReviewed
	case "approved":
		if decision == "approved" {
			return nil, ErrAlreadyReviewed
		}
	}

	now := r.now()
	if _, err = tx.ExecContext(ctx, `
		UPDATE payout_requests SET status=$1, reviewed_by=$2, reviewed_at=$3 WHERE id=$4`,
		decision, reviewer, now, payoutID); err != nil {
		return nil, fmt.Errorf("review payout: %w", err)
	}

	// Estorna o débito feito na criação
	if decision == "rejected" {
		if _, err = ledger.LockTx(ctx, tx, req.UserKey); err != nil {
			return nil, err
		}
		if err = ledger.CreditTx(ctx, tx, req.UserKey, req.TokensAmount); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	req.Status = decision
	req.ReviewedBy = reviewer
	req.ReviewedAt = &now
	return req, nil
}
