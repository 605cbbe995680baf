package market

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_Create_Validation(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	reg := NewRegistry(db)
	base := Market{
		Category:      "crypto",
		Subcategory:   "daily-close",
		Title:         "BTC fecha em alta hoje?",
		YesMultiplier: 2.0,
		NoMultiplier:  1.8,
		MinBet:        10,
		MaxBet:        500,
		OpensAt:       time.Now(),
		ClosesAt:      time.Now().Add(time.Hour),
		ResolvesAt:    time.Now().Add(2 * time.Hour),
	}

	t.Run("missing title", func(t *testing.T) {
		m := base
		m.Title = ""
		assert.ErrorIs(t, reg.Create(context.Background(), &m), ErrInvalidMarket)
	})

	t.Run("non-positive multiplier", func(t *testing.T) {
		m := base
		m.YesMultiplier = 0
		assert.ErrorIs(t, reg.Create(context.Background(), &m), ErrInvalidMarket)
	})

	t.Run("max below min", func(t *testing.T) {
		m := base
		m.MaxBet = 5
		assert.ErrorIs(t, reg.Create(context.Background(), &m), ErrInvalidMarket)
	})

	t.Run("closes before opens", func(t *testing.T) {
		m := base
		m.ClosesAt = m.OpensAt.Add(-time.Minute)
		assert.ErrorIs(t, reg.Create(context.Background(), &m), ErrInvalidMarket)
	})

	t.Run("resolves before closes", func(t *testing.T) {
		m := base
		m.ResolvesAt = m.ClosesAt.Add(-time.Minute)
		assert.ErrorIs(t, reg.Create(context.Background(), &m), ErrInvalidMarket)
	})
}

func TestRegistry_Create_DerivesInitialStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := NewRegistryWithClock(db, func() time.Time { return now })

	m := Market{
		Category:      "crypto",
		Subcategory:   "daily-close",
		Title:         "BTC fecha em alta hoje?",
		Ticker:        "BTC-USD",
		YesMultiplier: 2.0,
		NoMultiplier:  1.8,
		MinBet:        10,
		MaxBet:        500,
		OpensAt:       now.Add(-time.Hour),
		ClosesAt:      now.Add(time.Hour),
		ResolvesAt:    now.Add(2 * time.Hour),
	}

	mock.ExpectExec("INSERT INTO markets").
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, reg.Create(context.Background(), &m))
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, StatusOpen, m.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistry_Sweep(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := NewRegistryWithClock(db, func() time.Time { return now })

	t.Run("advances both boundaries in one pass", func(t *testing.T) {
		mock.ExpectExec(`UPDATE markets SET status='open' WHERE status='upcoming' AND opens_at <= \$1 AND closes_at > \$1`).
			WithArgs(now).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(`UPDATE markets SET status='closed' WHERE status IN \('upcoming','open'\) AND closes_at <= \$1`).
			WithArgs(now).
			WillReturnResult(sqlmock.NewResult(0, 2))

		opened, closed, err := reg.Sweep(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, int64(3), opened)
		assert.Equal(t, int64(2), closed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("idempotent when nothing crossed a boundary", func(t *testing.T) {
		mock.ExpectExec(`UPDATE markets SET status='open'`).
			WithArgs(now).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`UPDATE markets SET status='closed'`).
			WithArgs(now).
			WillReturnResult(sqlmock.NewResult(0, 0))

		opened, closed, err := reg.Sweep(context.Background())
		assert.NoError(t, err)
		assert.Zero(t, opened)
		assert.Zero(t, closed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
