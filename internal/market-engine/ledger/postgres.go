package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("account not found")
)

// Account é o saldo e os contadores vitalícios de um usuário.
// Criada de forma lazy no primeiro toque; nunca removida.
type Account struct {
	UserKey        string
	Balance        int64
	TotalPurchased int64
	TotalWon       int64
	TotalLost      int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Entry é uma linha do leaderboard (net = total_won - total_lost)
type Entry struct {
	UserKey   string `json:"user_key"`
	TotalWon  int64  `json:"total_won"`
	TotalLost int64  `json:"total_lost"`
	Net       int64  `json:"net"`
}

// Store implementa o ledger de tokens em banco Postgres.
// Toda mutação roda sob lock pessimista da linha da conta (FOR UPDATE),
// então leituras-modificações concorrentes na mesma conta não se atropelam.
type Store struct{ db *sql.DB }

// NewStore retorna uma instância do ledger
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// GetOrCreate retorna a conta do usuário, criando-a zerada se não existir
func (s *Store) GetOrCreate(ctx context.Context, userKey string) (*Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	acc, err := LockTx(ctx, tx, userKey)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return acc, nil
}

// Debit remove tokens do saldo; falha com ErrInsufficientFunds se o saldo não cobre
func (s *Store) Debit(ctx context.Context, userKey string, amount int64) (newBalance int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	acc, err := LockTx(ctx, tx, userKey)
	if err != nil {
		return 0, err
	}
	if acc.Balance < amount {
		return 0, ErrInsufficientFunds
	}
	if err = DebitTx(ctx, tx, userKey, amount); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return acc.Balance - amount, nil
}

// Credit adiciona tokens ao saldo, criando a conta se necessário
func (s *Store) Credit(ctx context.Context, userKey string, amount int64) (newBalance int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	acc, err := LockTx(ctx, tx, userKey)
	if err != nil {
		return 0, err
	}
	if err = CreditTx(ctx, tx, userKey, amount); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return acc.Balance + amount, nil
}

// Purchase credita tokens comprados e atualiza o contador vitalício, atomicamente
func (s *Store) Purchase(ctx context.Context, userKey string, amount int64) (newBalance int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	acc, err := LockTx(ctx, tx, userKey)
	if err != nil {
		return 0, err
	}
	if err = CreditTx(ctx, tx, userKey, amount); err != nil {
		return 0, err
	}
	if err = RecordPurchaseTx(ctx, tx, userKey, amount); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return acc.Balance + amount, nil
}

// Leaderboard ranqueia contas por lucro líquido entre quem já teve aposta liquidada
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.user_key, a.total_won, a.total_lost, a.total_won - a.total_lost AS net
		FROM accounts a
		WHERE EXISTS (
			SELECT 1 FROM wagers w
			WHERE w.user_key = a.user_key AND w.status IN ('won','lost')
		)
		ORDER BY net DESC, a.user_key
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserKey, &e.TotalWon, &e.TotalLost, &e.Net); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Helpers de transação ---
// Usados pelos fluxos de aposta, liquidação e saque, que precisam tocar a conta
// dentro da transação deles. A ordem de lock é sempre Market antes de Account.

// LockTx trava a linha da conta com FOR UPDATE, criando-a zerada se não existir
func LockTx(ctx context.Context, tx *sql.Tx, userKey string) (*Account, error) {
	acc := &Account{UserKey: userKey}
	err := tx.QueryRowContext(ctx, `
		SELECT balance, total_purchased, total_won, total_lost, created_at, updated_at
		FROM accounts WHERE user_key=$1 FOR UPDATE`, userKey).
		Scan(&acc.Balance, &acc.TotalPurchased, &acc.TotalWon, &acc.TotalLost,
			&acc.CreatedAt, &acc.UpdatedAt)
	if err == sql.ErrNoRows {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO accounts (user_key, balance) VALUES ($1, 0)`, userKey); err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
		return acc, nil
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// DebitTx debita o saldo; o WHERE reforça o invariante balance >= 0 mesmo se o
// chamador esquecer a checagem pós-lock
func DebitTx(ctx context.Context, tx *sql.Tx, userKey string, amount int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = balance - $1, updated_at = NOW()
		WHERE user_key=$2 AND balance >= $1`, amount, userKey)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// CreditTx credita o saldo da conta (já travada pelo chamador)
func CreditTx(ctx context.Context, tx *sql.Tx, userKey string, amount int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = balance + $1, updated_at = NOW()
		WHERE user_key=$2`, amount, userKey)
	return err
}

// RecordPurchaseTx soma ao contador vitalício de tokens comprados
func RecordPurchaseTx(ctx context.Context, tx *sql.Tx, userKey string, amount int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts SET total_purchased = total_purchased + $1, updated_at = NOW()
		WHERE user_key=$2`, amount, userKey)
	return err
}

// RecordWinTx soma o lucro líquido (payout - stake) ao contador de ganhos
func RecordWinTx(ctx context.Context, tx *sql.Tx, userKey string, profit int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts SET total_won = total_won + $1, updated_at = NOW()
		WHERE user_key=$2`, profit, userKey)
	return err
}

// RecordLossTx soma o valor apostado e perdido ao contador de perdas
func RecordLossTx(ctx context.Context, tx *sql.Tx, userKey string, amount int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts SET total_lost = total_lost + $1, updated_at = NOW()
		WHERE user_key=$2`, amount, userKey)
	return err
}
