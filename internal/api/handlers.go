// internal/api/handlers.go
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rovshanmuradov/prediction-pump/internal/engine"
	"github.com/rovshanmuradov/prediction-pump/internal/market"
	"github.com/rovshanmuradov/prediction-pump/internal/oracle"
	"github.com/rovshanmuradov/prediction-pump/internal/storage/models"
)

// handleCreateMarket создаёт рынок. POST /api/v1/markets
func (s *Server) handleCreateMarket(w http.ResponseWriter, r *http.Request) {
	var req engine.CreateMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	m, err := s.engine.CreateMarket(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Рынок создан неактивным, хранилище ещё пустое.
	writeJSON(w, http.StatusCreated, newMarketView(m, 0))
}

type activateBody struct {
	SeedLiquidity uint64 `json:"seed_liquidity"`
}

// handleActivateMarket открывает торговлю с посевной ликвидностью.
// POST /api/v1/markets/{id}/activate
func (s *Server) handleActivateMarket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	var body activateBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	m, err := s.engine.ActivateMarket(r.Context(), id, body.SeedLiquidity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newMarketView(m, body.SeedLiquidity))
}

type listMarketsResponse struct {
	Markets []*market.Market `json:"markets"`
	Count   int              `json:"count"`
}

// handleListMarkets отдаёт рынки, новые первыми. GET /api/v1/markets?open=true
func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseListOpts(r)
	onlyOpen := r.URL.Query().Get("open") == "true"

	markets, err := s.engine.ListMarkets(r.Context(), onlyOpen, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if markets == nil {
		markets = []*market.Market{}
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{Markets: markets, Count: len(markets)})
}

// handleGetMarket отдаёт рынок с производными величинами.
// GET /api/v1/markets/{id}
func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	m, vault, err := s.engine.GetMarket(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newMarketView(m, vault))
}

// handleQuote считает сделку без исполнения.
// GET /api/v1/markets/{id}/quote?side=buy&outcome=yes&amount=1000
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	outcome, err := parseOutcome(r.URL.Query().Get("outcome"))
	if err != nil || !outcome.Valid() {
		writeError(w, http.StatusBadRequest, "outcome must be yes or no")
		return
	}

	amount, err := parseUint64(r, "amount")
	if err != nil || amount == 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive integer")
		return
	}

	var q *engine.Quote
	switch side := r.URL.Query().Get("side"); side {
	case "", "buy":
		q, err = s.engine.QuoteBuy(r.Context(), id, outcome, amount)
	case "sell":
		q, err = s.engine.QuoteSell(r.Context(), id, outcome, amount)
	default:
		writeError(w, http.StatusBadRequest, "side must be buy or sell")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newQuoteView(q))
}

type tradeBody struct {
	Side    string `json:"side"`
	Outcome string `json:"outcome"`
	Amount  uint64 `json:"amount"`
	Trader  string `json:"trader"`
	Limit   uint64 `json:"limit"`
}

type tradeResultView struct {
	*engine.TradeResult
	ValueSOL string `json:"value_sol"`
}

// handleExecuteTrade исполняет покупку или продажу.
// POST /api/v1/markets/{id}/trades
func (s *Server) handleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	var body tradeBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	outcome, err := parseOutcome(body.Outcome)
	if err != nil || !outcome.Valid() {
		writeError(w, http.StatusBadRequest, "outcome must be yes or no")
		return
	}
	if body.Amount == 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive integer")
		return
	}

	req := engine.TradeRequest{
		MarketID: id,
		Outcome:  outcome,
		Amount:   body.Amount,
		Trader:   body.Trader,
		Limit:    body.Limit,
	}

	var result *engine.TradeResult
	switch body.Side {
	case "buy":
		result, err = s.engine.ExecuteBuy(r.Context(), req)
	case "sell":
		result, err = s.engine.ExecuteSell(r.Context(), req)
	default:
		writeError(w, http.StatusBadRequest, "side must be buy or sell")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tradeResultView{
		TradeResult: result,
		ValueSOL:    displaySOL(result.Value),
	})
}

// tradeView — запись журнала сделок наружу; хранимая модель не выходит
// за пределы слоя хранения.
type tradeView struct {
	MarketID    uuid.UUID `json:"market_id"`
	Trader      string    `json:"trader"`
	Side        string    `json:"side"`
	Outcome     string    `json:"outcome"`
	Amount      uint64    `json:"amount"`
	Value       uint64    `json:"value"`
	ValueSOL    string    `json:"value_sol"`
	NewSupply   uint64    `json:"new_supply"`
	SlippageBps uint16    `json:"slippage_bps"`
	ExecutedAt  time.Time `json:"executed_at"`
}

func newTradeView(rec *models.TradeRecord) tradeView {
	return tradeView{
		MarketID:    rec.MarketID,
		Trader:      rec.Trader,
		Side:        rec.Side,
		Outcome:     market.Outcome(rec.Outcome).String(),
		Amount:      rec.Amount,
		Value:       rec.Value,
		ValueSOL:    displaySOL(rec.Value),
		NewSupply:   rec.NewSupply,
		SlippageBps: rec.SlippageBps,
		ExecutedAt:  rec.ExecutedAt,
	}
}

type listTradesResponse struct {
	Trades []tradeView `json:"trades"`
	Count  int         `json:"count"`
}

// handleListTrades отдаёт журнал сделок рынка, свежие первыми.
// GET /api/v1/markets/{id}/trades
func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	limit, offset := parseListOpts(r)
	records, err := s.engine.ListTrades(r.Context(), id, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	trades := make([]tradeView, 0, len(records))
	for _, rec := range records {
		trades = append(trades, newTradeView(rec))
	}

	writeJSON(w, http.StatusOK, listTradesResponse{Trades: trades, Count: len(trades)})
}

type providerBody struct {
	ID          string              `json:"id"`
	Type        oracle.ProviderType `json:"type"`
	Reliability uint16              `json:"reliability"`
}

// handleAddProvider регистрирует провайдера оракула.
// POST /api/v1/oracle/providers
func (s *Server) handleAddProvider(w http.ResponseWriter, r *http.Request) {
	var body providerBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.ID == "" {
		writeError(w, http.StatusBadRequest, "provider id is required")
		return
	}

	p, err := s.engine.AddOracleProvider(body.ID, body.Type, body.Reliability)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

type listProvidersResponse struct {
	Providers []oracle.Provider `json:"providers"`
	Count     int               `json:"count"`
}

// handleListProviders отдаёт реестр провайдеров.
// GET /api/v1/oracle/providers
func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers := s.engine.ListOracleProviders()
	if providers == nil {
		providers = []oracle.Provider{}
	}
	writeJSON(w, http.StatusOK, listProvidersResponse{Providers: providers, Count: len(providers)})
}

type oracleDataBody struct {
	MarketID   uuid.UUID `json:"market_id"`
	ProviderID string    `json:"provider_id"`
	Outcome    string    `json:"outcome"`
	Confidence uint16    `json:"confidence"`
}

// handleSubmitOracleData принимает показание оракула.
// POST /api/v1/oracle/data
func (s *Server) handleSubmitOracleData(w http.ResponseWriter, r *http.Request) {
	var body oracleDataBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	outcome, err := parseOutcome(body.Outcome)
	if err != nil || !outcome.Valid() {
		writeError(w, http.StatusBadRequest, "outcome must be yes or no")
		return
	}

	data, err := s.engine.SubmitOracleData(r.Context(), engine.SubmitOracleRequest{
		MarketID:   body.MarketID,
		ProviderID: body.ProviderID,
		Outcome:    outcome,
		Confidence: body.Confidence,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, data)
}

type settleBody struct {
	OracleDataID uuid.UUID `json:"oracle_data_id"`
}

type settleResponse struct {
	MarketID       uuid.UUID              `json:"market_id"`
	Settlement     *market.SettlementData `json:"settlement"`
	TotalPayoutSOL string                 `json:"total_payout_sol"`
}

// handleSettleMarket рассчитывает рынок по показанию оракула.
// POST /api/v1/markets/{id}/settle
func (s *Server) handleSettleMarket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	var body settleBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.engine.SettleMarket(r.Context(), id, body.OracleDataID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settleResponse{
		MarketID:       id,
		Settlement:     res,
		TotalPayoutSOL: displaySOL(res.TotalPayout),
	})
}

type claimBody struct {
	Claimer    string `json:"claimer"`
	HolderMint string `json:"holder_mint"`
	Balance    uint64 `json:"balance"`
}

type claimResultView struct {
	*engine.ClaimResult
	PayoutSOL string `json:"payout_sol"`
}

// handleClaimPayout выплачивает долю пула держателю выигрышных токенов.
// POST /api/v1/markets/{id}/claims
func (s *Server) handleClaimPayout(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	var body claimBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.Balance == 0 {
		writeError(w, http.StatusBadRequest, "balance must be a positive integer")
		return
	}

	res, err := s.engine.ClaimPayout(r.Context(), engine.ClaimRequest{
		MarketID:   id,
		Claimer:    body.Claimer,
		HolderMint: body.HolderMint,
		Balance:    body.Balance,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, claimResultView{
		ClaimResult: res,
		PayoutSOL:   displaySOL(res.Payout),
	})
}

// handleOpenDispute открывает спор против рассчитанного показания.
// POST /api/v1/disputes
func (s *Server) handleOpenDispute(w http.ResponseWriter, r *http.Request) {
	var req engine.DisputeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	d, err := s.engine.OpenDispute(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

// handleGetDispute отдаёт спор с его голосами.
// GET /api/v1/disputes/{id}
func (s *Server) handleGetDispute(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dispute id")
		return
	}

	d, err := s.engine.GetDispute(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

type voteBody struct {
	Voter   string `json:"voter"`
	Outcome string `json:"outcome"`
	Weight  uint64 `json:"weight"`
}

// handleCastVote принимает голос по спору. В отличие от торговли здесь
// допустим и "uphold" — голос за исходный результат.
// POST /api/v1/disputes/{id}/votes
func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dispute id")
		return
	}

	var body voteBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	outcome, err := parseOutcome(body.Outcome)
	if err != nil {
		writeError(w, http.StatusBadRequest, "outcome must be yes, no or uphold")
		return
	}

	if err := s.engine.CastVote(r.Context(), id, body.Voter, outcome, body.Weight); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// handleResolveDispute подводит итог голосования после закрытия окна.
// POST /api/v1/disputes/{id}/resolve
func (s *Server) handleResolveDispute(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dispute id")
		return
	}

	res, err := s.engine.ResolveDispute(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
