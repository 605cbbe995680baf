package topics

const (
	// Apostas e liquidação
	BetPlaced      = "bet_placed"
	MarketResolved = "market_resolved"

	// Funds-in (checkout externo concluído)
	PaymentCompleted    = "payment_completed"
	PaymentCompletedDLQ = "payment_completed_dlq"
)
