package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/prediction-market-engine/internal/market-engine/betting"
	"github.com/radieske/prediction-market-engine/internal/market-engine/dto"
	"github.com/radieske/prediction-market-engine/internal/market-engine/ledger"
	"github.com/radieske/prediction-market-engine/internal/market-engine/market"
	"github.com/radieske/prediction-market-engine/internal/market-engine/payout"
	"github.com/radieske/prediction-market-engine/internal/market-engine/settlement"
	"github.com/radieske/prediction-market-engine/internal/shared/metrics"
	"github.com/radieske/prediction-market-engine/pkg/contracts/events"
)

// Publisher publica os eventos do engine no Kafka
type Publisher interface {
	PublishBetPlaced(context.Context, events.BetPlaced) error
	PublishMarketResolved(context.Context, events.MarketResolved) error
}

// Server expõe a superfície HTTP do engine.
// O roteamento externo (gateway, auth de usuário) fica fora daqui; o único
// gate local é o predicado opaco isAdmin nas rotas administrativas.
type Server struct {
	log      *zap.Logger
	ledger   *ledger.Store
	registry *market.Registry
	betting  *betting.Repo
	settle   *settlement.Engine
	payouts  *payout.Repo
	publ     Publisher
	isAdmin  func(token string) bool
	lb       *lbCache
}

func NewServer(
	log *zap.Logger,
	l *ledger.Store,
	reg *market.Registry,
	b *betting.Repo,
	s *settlement.Engine,
	p *payout.Repo,
	publ Publisher,
	isAdmin func(string) bool,
	rdb *redis.Client,
) *Server {
	return &Server{
		log: log, ledger: l, registry: reg, betting: b, settle: s,
		payouts: p, publ: publ, isAdmin: isAdmin, lb: &lbCache{r: rdb},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/balance", s.getBalance)
	r.Post("/v1/bets", s.placeBet)
	r.Get("/v1/bets", s.listBets)
	r.Get("/v1/markets", s.listMarkets)
	r.Get("/v1/markets/{id}", s.getMarket)
	r.Post("/v1/markets", s.createMarket)              // admin
	r.Post("/v1/markets/{id}/resolve", s.resolveMarket) // admin
	r.Post("/v1/payouts", s.requestPayout)
	r.Post("/v1/payouts/{id}/review", s.reviewPayout) // admin
	r.Get("/v1/leaderboard", s.leaderboard)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, betting.ErrInvalidStake),
		errors.Is(err, betting.ErrOutOfBounds),
		errors.Is(err, market.ErrInvalidOutcome),
		errors.Is(err, market.ErrInvalidMarket),
		errors.Is(err, payout.ErrInvalidRequest),
		errors.Is(err, payout.ErrInvalidDecision):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, market.ErrNotFound),
		errors.Is(err, payout.ErrNotFound),
		errors.Is(err, ledger.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, betting.ErrMarketClosed),
		errors.Is(err, betting.ErrDuplicateBet),
		errors.Is(err, settlement.ErrAlreadyResolved),
		errors.Is(err, settlement.ErrNotResolvable),
		errors.Is(err, payout.ErrAlreadyReviewed),
		errors.Is(err, ledger.ErrInsufficientFunds):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
}

func (s *Server) admin(w http.ResponseWriter, r *http.Request) bool {
	if !s.isAdmin(r.Header.Get("X-Admin-Token")) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "admin required"})
		return false
	}
	return true
}

// getBalance retorna (ou cria) a conta do usuário
func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	userKey := r.URL.Query().Get("userKey")
	if userKey == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userKey required"})
		return
	}
	acc, err := s.ledger.GetOrCreate(r.Context(), userKey)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BalanceResponse{
		UserKey:        userKey,
		Balance:        acc.Balance,
		TotalPurchased: acc.TotalPurchased,
		TotalWon:       acc.TotalWon,
		TotalLost:      acc.TotalLost,
	})
}

// placeBet coloca uma aposta e publica o evento bet_placed
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	pos, err := market.ParseOutcome(req.Position)
	if err != nil {
		metrics.BetsRejected.WithLabelValues("validation").Inc()
		writeErr(w, err)
		return
	}

	wager, err := s.betting.PlaceBet(r.Context(), req.UserKey, req.MarketID, pos, req.Tokens)
	if err != nil {
		metrics.BetsRejected.WithLabelValues(rejectReason(err)).Inc()
		writeErr(w, err)
		return
	}
	metrics.BetsPlaced.Inc()

	_ = s.publ.PublishBetPlaced(r.Context(), events.BetPlaced{
		WagerID:         wager.ID,
		UserKey:         wager.UserKey,
		MarketID:        wager.MarketID,
		Position:        string(wager.Position),
		TokensWagered:   wager.TokensWagered,
		PotentialPayout: wager.PotentialPayout,
		Multiplier:      wager.PayoutMultiplier,
	})

	writeJSON(w, http.StatusCreated, toWagerResponse(wager))
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, betting.ErrMarketClosed):
		return "market_closed"
	case errors.Is(err, betting.ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, betting.ErrDuplicateBet):
		return "duplicate"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, market.ErrNotFound):
		return "not_found"
	default:
		return "other"
	}
}

// listBets lista as apostas do usuário, com filtro opcional de status
func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	userKey := r.URL.Query().Get("userKey")
	if userKey == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userKey required"})
		return
	}
	status := market.WagerStatus(r.URL.Query().Get("status"))
	switch status {
	case "", market.WagerActive, market.WagerWon, market.WagerLost, market.WagerCancelled:
	default:
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid status filter"})
		return
	}

	wagers, err := s.betting.ListBets(r.Context(), userKey, status)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]dto.WagerResponse, 0, len(wagers))
	for i := range wagers {
		out = append(out, toWagerResponse(&wagers[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listMarkets(w http.ResponseWriter, r *http.Request) {
	status := market.Status(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.registry.List(r.Context(), status, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getMarket(w http.ResponseWriter, r *http.Request) {
	m, err := s.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// createMarket cria um novo mercado (somente admin)
func (s *Server) createMarket(w http.ResponseWriter, r *http.Request) {
	if !s.admin(w, r) {
		return
	}
	var req dto.CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	m := &market.Market{
		Category:      req.Category,
		Subcategory:   req.Subcategory,
		Title:         req.Title,
		Ticker:        req.Ticker,
		VenueID:       req.VenueID,
		Parameters:    req.Parameters,
		YesMultiplier: req.YesMultiplier,
		NoMultiplier:  req.NoMultiplier,
		MinBet:        req.MinBet,
		MaxBet:        req.MaxBet,
		OpensAt:       req.OpensAt,
		ClosesAt:      req.ClosesAt,
		ResolvesAt:    req.ResolvesAt,
	}
	if err := s.registry.Create(r.Context(), m); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// resolveMarket liquida um mercado com outcome informado pelo admin
func (s *Server) resolveMarket(w http.ResponseWriter, r *http.Request) {
	if !s.admin(w, r) {
		return
	}
	var req dto.ResolveMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	outcome, err := market.ParseOutcome(req.Outcome)
	if err != nil {
		writeErr(w, err)
		return
	}
	source := req.Source
	if source == "" {
		source = "admin"
	}

	marketID := chi.URLParam(r, "id")
	rep, err := s.settle.Resolve(r.Context(), marketID, outcome, source, "admin")
	if err != nil {
		writeErr(w, err)
		return
	}
	metrics.MarketsResolved.WithLabelValues("admin").Inc()
	metrics.TokensPaidOut.Add(float64(rep.TokensPaid))

	_ = s.publ.PublishMarketResolved(r.Context(), events.MarketResolved{
		MarketID:   rep.MarketID,
		Outcome:    string(rep.Outcome),
		Source:     source,
		ResolvedBy: "admin",
		Winners:    rep.Winners,
		Losers:     rep.Losers,
		TokensPaid: rep.TokensPaid,
	})

	writeJSON(w, http.StatusOK, rep)
}

// requestPayout cria um pedido de saque (débito imediato)
func (s *Server) requestPayout(w http.ResponseWriter, r *http.Request) {
	var req dto.RequestPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	pr, err := s.payouts.Create(r.Context(), req.UserKey, req.Tokens, req.Method, req.Destination)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pr)
}

// reviewPayout aplica a decisão do revisor sobre um pedido de saque
func (s *Server) reviewPayout(w http.ResponseWriter, r *http.Request) {
	if !s.admin(w, r) {
		return
	}
	var req dto.ReviewPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	pr, err := s.payouts.Review(r.Context(), chi.URLParam(r, "id"), req.Decision, req.Reviewer)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pr)
}

// leaderboard ranqueia contas por lucro líquido; cacheado no Redis por 30s
func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var cached []ledger.Entry
	if ok, _ := s.lb.Get(r.Context(), limit, &cached); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	entries, err := s.ledger.Leaderboard(r.Context(), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = s.lb.Set(r.Context(), limit, entries, 30*time.Second)
	writeJSON(w, http.StatusOK, entries)
}

func toWagerResponse(w *market.Wager) dto.WagerResponse {
	return dto.WagerResponse{
		WagerID:          w.ID,
		UserKey:          w.UserKey,
		MarketID:         w.MarketID,
		Position:         string(w.Position),
		TokensWagered:    w.TokensWagered,
		PotentialPayout:  w.PotentialPayout,
		PayoutMultiplier: w.PayoutMultiplier,
		Status:           string(w.Status),
		TokensWon:        w.TokensWon,
		CreatedAt:        w.CreatedAt,
		SettledAt:        w.SettledAt,
	}
}
