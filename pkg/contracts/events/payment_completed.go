package events

// Evento publicado pelo provedor de checkout quando um pagamento é concluído.
// O payment-credit-worker consome e credita o ledger.
type PaymentCompleted struct {
	PaymentID   string `json:"payment_id"`
	UserKey     string `json:"user_key"`
	TokenAmount int64  `json:"token_amount"`
	TsUnixMs    int64  `json:"ts_unix_ms"`
}
