package market

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("market not found")
	ErrInvalidOutcome = errors.New("invalid outcome")
	ErrInvalidMarket  = errors.New("invalid market spec")
)

// Outcome é o lado binário de um mercado ("yes"/"no").
// Usado tanto para a posição de uma aposta quanto para o resultado final.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// ParseOutcome valida a entrada externa antes de abrir qualquer transação
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeYes, OutcomeNo:
		return Outcome(s), nil
	default:
		return "", ErrInvalidOutcome
	}
}

// Market é a proposição binária persistida no Postgres.
type Market struct {
	ID               string
	Category         string
	Subcategory      string
	Title            string
	Ticker           string          // símbolo do oráculo de preços (resolução automática)
	VenueID          string          // id no venue externo; vazio = mercado interno
	Parameters       json.RawMessage // payload semi-estruturado da regra de resolução
	YesMultiplier    float64
	NoMultiplier     float64
	MinBet           int64
	MaxBet           int64
	OpensAt          time.Time
	ClosesAt         time.Time
	ResolvesAt       time.Time
	Status           Status
	Outcome          *Outcome // nil até resolver
	ResolutionSource string
	ResolvedAt       *time.Time
	ResolvedBy       string
	TotalYesTokens   int64
	TotalNoTokens    int64
	TotalBettors     int
	CreatedAt        time.Time
}

// MultiplierFor retorna o multiplicador fixado para um lado do mercado
func (m *Market) MultiplierFor(side Outcome) float64 {
	if side == OutcomeYes {
		return m.YesMultiplier
	}
	return m.NoMultiplier
}

// WagerStatus é o ciclo de vida de uma aposta.
type WagerStatus string

const (
	WagerActive    WagerStatus = "active"
	WagerWon       WagerStatus = "won"
	WagerLost      WagerStatus = "lost"
	WagerCancelled WagerStatus = "cancelled"
)

// Wager é a posição de um usuário em um mercado. Única por (user_key, market_id).
type Wager struct {
	ID               string
	UserKey          string
	MarketID         string
	Position         Outcome
	TokensWagered    int64
	PotentialPayout  int64
	PayoutMultiplier float64 // snapshot no momento da aposta, imutável
	Status           WagerStatus
	TokensWon        int64
	CreatedAt        time.Time
	SettledAt        *time.Time
}
