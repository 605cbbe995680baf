package events

type BetPlaced struct {
	WagerID         string  `json:"wager_id"`
	UserKey         string  `json:"user_key"`
	MarketID        string  `json:"market_id"`
	Position        string  `json:"position"` // "yes" | "no"
	TokensWagered   int64   `json:"tokens_wagered"`
	PotentialPayout int64   `json:"potential_payout"`
	Multiplier      float64 `json:"multiplier"`
	TsUnixMs        int64   `json:"ts_unix_ms"`
}
