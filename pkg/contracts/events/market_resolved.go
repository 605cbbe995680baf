package events

type MarketResolved struct {
	MarketID   string `json:"market_id"`
	Outcome    string `json:"outcome"` // "yes" | "no"
	Source     string `json:"source"`
	ResolvedBy string `json:"resolved_by"`
	Winners    int    `json:"winners"`
	Losers     int    `json:"losers"`
	TokensPaid int64  `json:"tokens_paid"`
	TsUnixMs   int64  `json:"ts_unix_ms"`
}
