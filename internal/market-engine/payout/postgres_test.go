package payout

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/radieske/prediction-market-engine/internal/market-engine/ledger"
)

const (
	lockAccountQuery = `SELECT balance, total_purchased, total_won, total_lost, created_at, updated_at FROM accounts WHERE user_key=\$1 FOR UPDATE`
	lockPayoutQuery  = `SELECT user_key, tokens_amount, usd_amount, method, destination, status, created_at FROM payout_requests WHERE id=\$1 FOR UPDATE`
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Repo{db: db, now: func() time.Time { return now }}, mock
}

func accountRow(balance int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"balance", "total_purchased", "total_won", "total_lost", "created_at", "updated_at"}).
		AddRow(balance, balance, 0, 0, now, now)
}

func payoutRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"user_key", "tokens_amount", "usd_amount", "method", "destination", "status", "created_at"}).
		AddRow("alice@example.com", 500, 5.0, "pix", "alice@bank", status, now)
}

func TestCreate_DebitsAndInsertsPending(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockAccountQuery).WithArgs("alice@example.com").
		WillReturnRows(accountRow(1000))
	mock.ExpectExec(`UPDATE accounts SET balance = balance - \$1`).
		WithArgs(int64(500), "alice@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO payout_requests`).
		WithArgs(sqlmock.AnyArg(), "alice@example.com", int64(500), 5.0, "pix", "alice@bank").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	req, err := repo.Create(context.Background(), "alice@example.com", 500, "pix", "alice@bank")
	assert.NoError(t, err)
	assert.Equal(t, "pending", req.Status)
	assert.Equal(t, 5.0, req.USDAmount) // 500 tokens / 100 por dólar
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_InsufficientFunds(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockAccountQuery).WithArgs("alice@example.com").
		WillReturnRows(accountRow(100))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), "alice@example.com", 500, "pix", "alice@bank")
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_ValidationBeforeTx(t *testing.T) {
	repo, mock := newRepo(t)
	// nenhuma expectativa: rejeição antes de abrir transação

	_, err := repo.Create(context.Background(), "alice@example.com", 0, "pix", "alice@bank")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = repo.Create(context.Background(), "alice@example.com", 500, "", "alice@bank")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReview_Approve(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockPayoutQuery).WithArgs("p1").WillReturnRows(payoutRow("pending"))
	mock.ExpectExec(`UPDATE payout_requests SET status=\$1, reviewed_by=\$2, reviewed_at=\$3 WHERE id=\$4`).
		WithArgs("approved", "admin", now, "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := repo.Review(context.Background(), "p1", "approved", "admin")
	assert.NoError(t, err)
	assert.Equal(t, "approved", req.Status)
	assert.Equal(t, "admin", req.ReviewedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Rejeição estorna o débito da criação, na mesma transação
func TestReview_RejectRefunds(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockPayoutQuery).WithArgs("p1").WillReturnRows(payoutRow("pending"))
	mock.ExpectExec(`UPDATE payout_requests SET status=\$1`).
		WithArgs("rejected", "admin", now, "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(lockAccountQuery).WithArgs("alice@example.com").
		WillReturnRows(accountRow(500))
	mock.ExpectExec(`UPDATE accounts SET balance = balance \+ \$1`).
		WithArgs(int64(500), "alice@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := repo.Review(context.Background(), "p1", "rejected", "admin")
	assert.NoError(t, err)
	assert.Equal(t, "rejected", req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReview_TerminalStatesRejected(t *testing.T) {
	repo, mock := newRepo(t)

	for _, status := range []string{"completed", "rejected"} {
		mock.ExpectBegin()
		mock.ExpectQuery(lockPayoutQuery).WithArgs("p1").WillReturnRows(payoutRow(status))
		mock.ExpectRollback()

		_, err := repo.Review(context.Background(), "p1", "approved", "admin")
		assert.ErrorIs(t, err, ErrAlreadyReviewed)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReview_ApprovedCanComplete(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockPayoutQuery).WithArgs("p1").WillReturnRows(payoutRow("approved"))
	mock.ExpectExec(`UPDATE payout_requests SET status=\$1`).
		WithArgs("completed", "admin", now, "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := repo.Review(context.Background(), "p1", "completed", "admin")
	assert.NoError(t, err)
	assert.Equal(t, "completed", req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReview_InvalidDecision(t *testing.T) {
	repo, mock := newRepo(t)

	_, err := repo.Review(context.Background(), "p1", "maybe", "admin")
	assert.ErrorIs(t, err, ErrInvalidDecision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReview_NotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockPayoutQuery).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"user_key", "tokens_amount", "usd_amount", "method", "destination", "status", "created_at"}))
	mock.ExpectRollback()

	_, err := repo.Review(context.Background(), "missing", "approved", "admin")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
