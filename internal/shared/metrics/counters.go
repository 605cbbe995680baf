package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Contadores principais do engine. Registrados no registry default,
// expostos pelo servidor de métricas de cada serviço.
var (
	BetsPlaced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_bets_placed_total",
		Help: "Apostas aceitas e persistidas.",
	})

	BetsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_bets_rejected_total",
		Help: "Apostas rejeitadas, por motivo.",
	}, []string{"reason"})

	MarketsResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_markets_resolved_total",
		Help: "Mercados liquidados, por origem da resolução.",
	}, []string{"source"})

	TokensPaidOut = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_tokens_paid_out_total",
		Help: "Tokens creditados a vencedores na liquidação.",
	})

	OracleErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_oracle_errors_total",
		Help: "Falhas de consulta ao oráculo/venue, por fase.",
	}, []string{"phase"})

	PaymentsCredited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_payments_credited_total",
		Help: "Eventos de pagamento concluído creditados no ledger.",
	})
)

func init() {
	prometheus.MustRegister(
		BetsPlaced,
		BetsRejected,
		MarketsResolved,
		TokensPaidOut,
		OracleErrors,
		PaymentsCredited,
	)
}
