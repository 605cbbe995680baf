package market

import "time"

// Status é a máquina de estados linear do mercado:
// upcoming -> open -> closed -> resolved
// A única transição que exige outcome é para resolved (nunca disparada por tempo).
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusOpen     Status = "open"
	StatusClosed   Status = "closed"
	StatusResolved Status = "resolved"
)

// DeriveStatus calcula o status de um mercado num instante dado.
// Função pura: resolved é terminal, o resto deriva só dos timestamps.
func DeriveStatus(m *Market, now time.Time) Status {
	if m.Status == StatusResolved {
		return StatusResolved
	}
	switch {
	case now.Before(m.OpensAt):
		return StatusUpcoming
	case now.Before(m.ClosesAt):
		return StatusOpen
	default:
		return StatusClosed
	}
}
