package dto

import "time"

type BalanceResponse struct {
	UserKey        string `json:"user_key"`
	Balance        int64  `json:"balance"`
	TotalPurchased int64  `json:"total_purchased"`
	TotalWon       int64  `json:"total_won"`
	TotalLost      int64  `json:"total_lost"`
}

type WagerResponse struct {
	WagerID          string     `json:"wager_id"`
	UserKey          string     `json:"user_key"`
	MarketID         string     `json:"market_id"`
	Position         string     `json:"position"`
	TokensWagered    int64      `json:"tokens_wagered"`
	PotentialPayout  int64      `json:"potential_payout"`
	PayoutMultiplier float64    `json:"payout_multiplier"`
	Status           string     `json:"status"`
	TokensWon        int64      `json:"tokens_won"`
	CreatedAt        time.Time  `json:"created_at"`
	SettledAt        *time.Time `json:"settled_at,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
