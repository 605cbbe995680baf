package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	opens := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	closes := opens.Add(24 * time.Hour)
	resolves := closes.Add(time.Hour)

	m := &Market{OpensAt: opens, ClosesAt: closes, ResolvesAt: resolves, Status: StatusUpcoming}

	tests := []struct {
		name string
		now  time.Time
		want Status
	}{
		{"before open", opens.Add(-time.Minute), StatusUpcoming},
		{"exactly at open", opens, StatusOpen},
		{"mid window", opens.Add(12 * time.Hour), StatusOpen},
		{"exactly at close", closes, StatusClosed},
		{"after close", closes.Add(time.Hour), StatusClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(m, tt.now))
		})
	}

	t.Run("resolved is terminal", func(t *testing.T) {
		r := &Market{OpensAt: opens, ClosesAt: closes, ResolvesAt: resolves, Status: StatusResolved}
		// mesmo num instante dentro da janela de apostas
		assert.Equal(t, StatusResolved, DeriveStatus(r, opens.Add(time.Hour)))
	})
}

func TestParseOutcome(t *testing.T) {
	o, err := ParseOutcome("yes")
	assert.NoError(t, err)
	assert.Equal(t, OutcomeYes, o)

	o, err = ParseOutcome("no")
	assert.NoError(t, err)
	assert.Equal(t, OutcomeNo, o)

	_, err = ParseOutcome("maybe")
	assert.ErrorIs(t, err, ErrInvalidOutcome)

	_, err = ParseOutcome("")
	assert.ErrorIs(t, err, ErrInvalidOutcome)
}
