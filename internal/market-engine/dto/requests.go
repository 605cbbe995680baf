package dto

import (
	"encoding/json"
	"time"
)

type PlaceBetRequest struct {
	UserKey  string `json:"user_key"`
	MarketID string `json:"market_id"`
	Position string `json:"position"` // "yes" | "no"
	Tokens   int64  `json:"tokens"`
}

type CreateMarketRequest struct {
	Category      string          `json:"category"`
	Subcategory   string          `json:"subcategory"`
	Title         string          `json:"title"`
	Ticker        string          `json:"ticker,omitempty"`
	VenueID       string          `json:"venue_id,omitempty"`
	Parameters    json.RawMessage `json:"parameters,omitempty"`
	YesMultiplier float64         `json:"yes_multiplier"`
	NoMultiplier  float64         `json:"no_multiplier"`
	MinBet        int64           `json:"min_bet"`
	MaxBet        int64           `json:"max_bet"`
	OpensAt       time.Time       `json:"opens_at"`
	ClosesAt      time.Time       `json:"closes_at"`
	ResolvesAt    time.Time       `json:"resolves_at"`
}

type ResolveMarketRequest struct {
	Outcome string `json:"outcome"` // "yes" | "no"
	Source  string `json:"source"`
}

type RequestPayoutRequest struct {
	UserKey     string `json:"user_key"`
	Tokens      int64  `json:"tokens"`
	Method      string `json:"method"`
	Destination string `json:"destination"`
}

type ReviewPayoutRequest struct {
	Decision string `json:"decision"` // "approved" | "completed" | "rejected"
	Reviewer string `json:"reviewer"`
}
