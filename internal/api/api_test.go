// internal/api/api_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/prediction-pump/internal/curve"
	"github.com/rovshanmuradov/prediction-pump/internal/engine"
	"github.com/rovshanmuradov/prediction-pump/internal/events"
	"github.com/rovshanmuradov/prediction-pump/internal/market"
	"github.com/rovshanmuradov/prediction-pump/internal/settlement"
	"github.com/rovshanmuradov/prediction-pump/internal/storage/memory"
)

type apiFixture struct {
	server *Server
	svc    *engine.Service
	store  *memory.Storage
	ts     *httptest.Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger, 64)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	})

	store := memory.New()
	svc, err := engine.NewService(engine.ServiceConfig{
		Logger:  logger,
		Storage: store,
		Bus:     bus,
	})
	require.NoError(t, err)

	srv, err := NewServer(Config{Addr: ":0"}, svc, bus, nil, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv.StartStream(ctx)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &apiFixture{server: srv, svc: svc, store: store, ts: ts}
}

// doJSON шлёт запрос и разбирает ответ в out (если out != nil).
func (f *apiFixture) doJSON(t *testing.T, method, path string, body, out any) int {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.ts.URL+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func marketBody() map[string]any {
	return map[string]any{
		"creator":         "5Zzguz4NsSRFxGkHfM4FmsFpGZiCDtY72zH2jzMcqkJx",
		"description":     "BTC above 100k by March?",
		"resolution_date": time.Now().Add(30 * 24 * time.Hour).Format(time.RFC3339),
		"oracle_source":   "pyth-main",
		"outcome_mints":   []string{"So11111111111111111111111111111111111111112", "So11111111111111111111111111111111111111113"},
		"params": map[string]any{
			"initial_price":   1000,
			"curve_steepness": 10000,
			"max_supply":      1_000_000,
			"fee_rate_bps":    100,
		},
	}
}

// createActiveMarket прогоняет создание и активацию через HTTP.
func (f *apiFixture) createActiveMarket(t *testing.T) uuid.UUID {
	t.Helper()

	var created marketView
	status := f.doJSON(t, http.MethodPost, "/api/v1/markets", marketBody(), &created)
	require.Equal(t, http.StatusCreated, status)

	id := created.Market.ID
	status = f.doJSON(t, http.MethodPost, "/api/v1/markets/"+id.String()+"/activate",
		map[string]any{"seed_liquidity": market.MinimumLiquidityThreshold}, nil)
	require.Equal(t, http.StatusOK, status)
	return id
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	var health map[string]any
	status := f.doJSON(t, http.MethodGet, "/healthz", nil, &health)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", health["status"])
}

func TestCreateMarketEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	var created marketView
	status := f.doJSON(t, http.MethodPost, "/api/v1/markets", marketBody(), &created)
	require.Equal(t, http.StatusCreated, status)

	assert.NotEqual(t, uuid.Nil, created.Market.ID)
	assert.False(t, created.Market.Status.Active)
	assert.Equal(t, uint64(0), created.Vault)
	// Спот на пустом рынке равен начальной цене.
	assert.Equal(t, uint64(1000), created.YesPrice)
	assert.Equal(t, "0.1", created.YesPriceDisplay)
}

func TestCreateMarketValidation(t *testing.T) {
	f := newAPIFixture(t)

	// Кривая с нулевой крутизной не проходит доменную валидацию.
	bad := marketBody()
	bad["params"] = map[string]any{
		"initial_price":   1000,
		"curve_steepness": 0,
		"max_supply":      1_000_000,
		"fee_rate_bps":    100,
	}
	status := f.doJSON(t, http.MethodPost, "/api/v1/markets", bad, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	// Опечатка в имени поля — это 400, а не молчаливый ноль.
	typo := marketBody()
	delete(typo, "creator")
	typo["craetor"] = "someone"
	status = f.doJSON(t, http.MethodPost, "/api/v1/markets", typo, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGetMarketEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createActiveMarket(t)

	var view marketView
	status := f.doJSON(t, http.MethodGet, "/api/v1/markets/"+id.String(), nil, &view)
	require.Equal(t, http.StatusOK, status)

	assert.True(t, view.Market.Status.Active)
	assert.Equal(t, uint64(market.MinimumLiquidityThreshold), view.Vault)
	assert.Equal(t, "0.001", view.VaultSOL)

	// Неизвестный рынок и кривой UUID.
	status = f.doJSON(t, http.MethodGet, "/api/v1/markets/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status = f.doJSON(t, http.MethodGet, "/api/v1/markets/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListMarketsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.createActiveMarket(t)

	var second marketView
	status := f.doJSON(t, http.MethodPost, "/api/v1/markets", marketBody(), &second)
	require.Equal(t, http.StatusCreated, status)

	var list listMarketsResponse
	status = f.doJSON(t, http.MethodGet, "/api/v1/markets", nil, &list)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, list.Count)

	// Фильтр open скрывает неактивированный рынок.
	status = f.doJSON(t, http.MethodGet, "/api/v1/markets?open=true", nil, &list)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, list.Count)
	assert.True(t, list.Markets[0].Status.Active)
}

func TestQuoteEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createActiveMarket(t)

	var q quoteView
	path := fmt.Sprintf("/api/v1/markets/%s/quote?side=buy&outcome=yes&amount=10000", id)
	status := f.doJSON(t, http.MethodGet, path, nil, &q)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, uint64(25_250_000), q.Value)
	assert.Equal(t, "0.02525", q.ValueSOL)
	assert.Equal(t, uint64(1000), q.SpotPrice)
	assert.Equal(t, uint16(15_250), q.SlippageBps)

	// Невалидные параметры запроса.
	status = f.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/markets/%s/quote?outcome=maybe&amount=1", id), nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status = f.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/markets/%s/quote?outcome=yes&amount=0", id), nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status = f.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/markets/%s/quote?outcome=yes&amount=1&side=hold", id), nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTradeEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createActiveMarket(t)

	var result tradeResultView
	status := f.doJSON(t, http.MethodPost, "/api/v1/markets/"+id.String()+"/trades",
		map[string]any{"side": "buy", "outcome": "yes", "amount": 10_000, "trader": "trader-1"}, &result)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, uint64(25_250_000), result.Value)
	assert.Equal(t, uint64(10_000), result.NewSupply)
	assert.Equal(t, "0.02525", result.ValueSOL)

	// Казна выросла на полную стоимость покупки.
	var view marketView
	status = f.doJSON(t, http.MethodGet, "/api/v1/markets/"+id.String(), nil, &view)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, uint64(market.MinimumLiquidityThreshold+25_250_000), view.Vault)
	assert.Equal(t, uint64(4000), view.YesPrice)

	// Журнал сделок.
	var trades listTradesResponse
	status = f.doJSON(t, http.MethodGet, "/api/v1/markets/"+id.String()+"/trades", nil, &trades)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, trades.Count)
	assert.Equal(t, "buy", trades.Trades[0].Side)
}

func TestTradeEndpointRejections(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createActiveMarket(t)

	// Лимит ниже стоимости — конфликт.
	status := f.doJSON(t, http.MethodPost, "/api/v1/markets/"+id.String()+"/trades",
		map[string]any{"side": "buy", "outcome": "yes", "amount": 10_000, "trader": "t", "limit": 1}, nil)
	assert.Equal(t, http.StatusConflict, status)

	// Сторона обязательна.
	status = f.doJSON(t, http.MethodPost, "/api/v1/markets/"+id.String()+"/trades",
		map[string]any{"outcome": "yes", "amount": 1, "trader": "t"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// Торговля на неактивном рынке запрещена.
	var inactive marketView
	st := f.doJSON(t, http.MethodPost, "/api/v1/markets", marketBody(), &inactive)
	require.Equal(t, http.StatusCreated, st)
	status = f.doJSON(t, http.MethodPost, "/api/v1/markets/"+inactive.Market.ID.String()+"/trades",
		map[string]any{"side": "buy", "outcome": "yes", "amount": 1, "trader": "t"}, nil)
	assert.Equal(t, http.StatusConflict, status)
}

// settleFixture доводит рынок через HTTP до состояния "готов к расчёту":
// активен, есть покупка, провайдер зарегистрирован, показание подано.
func settleFixture(t *testing.T, f *apiFixture) (marketID uuid.UUID, dataID uuid.UUID) {
	t.Helper()
	marketID = f.createActiveMarket(t)

	status := f.doJSON(t, http.MethodPost, "/api/v1/markets/"+marketID.String()+"/trades",
		map[string]any{"side": "buy", "outcome": "yes", "amount": 10_000, "trader": "winner"}, nil)
	require.Equal(t, http.StatusOK, status)

	status = f.doJSON(t, http.MethodPost, "/api/v1/oracle/providers",
		map[string]any{"id": "pyth-main", "type": "pyth", "reliability": 9000}, nil)
	require.Equal(t, http.StatusCreated, status)

	var data struct {
		ID uuid.UUID `json:"id"`
	}
	status = f.doJSON(t, http.MethodPost, "/api/v1/oracle/data",
		map[string]any{"market_id": marketID, "provider_id": "pyth-main", "outcome": "yes", "confidence": 9500}, &data)
	require.Equal(t, http.StatusCreated, status)

	return marketID, data.ID
}

// rewindResolution сдвигает дату разрешения в прошлое прямо в хранилище.
func rewindResolution(t *testing.T, f *apiFixture, marketID uuid.UUID) {
	t.Helper()
	rec, err := f.store.GetMarket(context.Background(), marketID)
	require.NoError(t, err)
	rec.ResolutionDate = time.Now().Add(-time.Minute)
	require.NoError(t, f.store.UpdateMarket(context.Background(), rec))
}

func TestOracleProvidersEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	status := f.doJSON(t, http.MethodPost, "/api/v1/oracle/providers",
		map[string]any{"id": "pyth-main", "type": "pyth", "reliability": 9000}, nil)
	require.Equal(t, http.StatusCreated, status)

	// Повторная регистрация — конфликт.
	status = f.doJSON(t, http.MethodPost, "/api/v1/oracle/providers",
		map[string]any{"id": "pyth-main", "type": "pyth", "reliability": 9000}, nil)
	assert.Equal(t, http.StatusConflict, status)

	// Неизвестный тип провайдера.
	status = f.doJSON(t, http.MethodPost, "/api/v1/oracle/providers",
		map[string]any{"id": "tarot", "type": "tarot", "reliability": 100}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	var list listProvidersResponse
	status = f.doJSON(t, http.MethodGet, "/api/v1/oracle/providers", nil, &list)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "pyth-main", list.Providers[0].ID)
}

func TestSettlementEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	marketID, dataID := settleFixture(t, f)

	// До даты разрешения расчёт не проходит.
	status := f.doJSON(t, http.MethodPost, "/api/v1/markets/"+marketID.String()+"/settle",
		map[string]any{"oracle_data_id": dataID}, nil)
	assert.Equal(t, http.StatusConflict, status)

	rewindResolution(t, f, marketID)

	var settled settleResponse
	status = f.doJSON(t, http.MethodPost, "/api/v1/markets/"+marketID.String()+"/settle",
		map[string]any{"oracle_data_id": dataID}, &settled)
	require.Equal(t, http.StatusOK, status)

	pool := uint64(market.MinimumLiquidityThreshold + 25_250_000)
	assert.Equal(t, pool, settled.Settlement.TotalPayout)
	assert.Equal(t, uint64(10_000), settled.Settlement.WinningSupply)
	assert.Equal(t, "0.02625", settled.TotalPayoutSOL)

	// Единственный держатель забирает весь пул.
	var claim claimResultView
	status = f.doJSON(t, http.MethodPost, "/api/v1/markets/"+marketID.String()+"/claims",
		map[string]any{"claimer": "winner", "holder_mint": "So11111111111111111111111111111111111111112", "balance": 10_000}, &claim)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, pool, claim.Payout)
	assert.Equal(t, uint64(0), claim.RemainingVault)

	// Проигравший минт не участвует в выплатах.
	status = f.doJSON(t, http.MethodPost, "/api/v1/markets/"+marketID.String()+"/claims",
		map[string]any{"claimer": "loser", "holder_mint": "So11111111111111111111111111111111111111113", "balance": 1}, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestDisputeEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	marketID, dataID := settleFixture(t, f)
	rewindResolution(t, f, marketID)

	status := f.doJSON(t, http.MethodPost, "/api/v1/markets/"+marketID.String()+"/settle",
		map[string]any{"oracle_data_id": dataID}, nil)
	require.Equal(t, http.StatusOK, status)

	// Стейк ниже минимума отклоняется.
	status = f.doJSON(t, http.MethodPost, "/api/v1/disputes",
		map[string]any{"market_id": marketID, "oracle_data_id": dataID, "disputer": "whale", "reason": "outcome is wrong", "stake": 1}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	var d settlement.Dispute
	status = f.doJSON(t, http.MethodPost, "/api/v1/disputes",
		map[string]any{"market_id": marketID, "oracle_data_id": dataID, "disputer": "whale", "reason": "outcome is wrong", "stake": 1_000_000}, &d)
	require.Equal(t, http.StatusCreated, status)

	status = f.doJSON(t, http.MethodPost, "/api/v1/disputes/"+d.ID.String()+"/votes",
		map[string]any{"voter": "v1", "outcome": "uphold", "weight": 10}, nil)
	assert.Equal(t, http.StatusOK, status)

	// Повторный голос того же участника — конфликт.
	status = f.doJSON(t, http.MethodPost, "/api/v1/disputes/"+d.ID.String()+"/votes",
		map[string]any{"voter": "v1", "outcome": "no", "weight": 10}, nil)
	assert.Equal(t, http.StatusConflict, status)

	// Окно голосования ещё открыто.
	status = f.doJSON(t, http.MethodPost, "/api/v1/disputes/"+d.ID.String()+"/resolve", nil, nil)
	assert.Equal(t, http.StatusConflict, status)

	// Закрываем окно прямо в хранилище.
	rec, err := f.store.GetDispute(context.Background(), d.ID)
	require.NoError(t, err)
	rec.VotingEndsAt = time.Now().Add(-time.Second)
	require.NoError(t, f.store.UpdateDispute(context.Background(), rec))

	var res settlement.Resolution
	status = f.doJSON(t, http.MethodPost, "/api/v1/disputes/"+d.ID.String()+"/resolve", nil, &res)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, res.Upheld)

	var got settlement.Dispute
	status = f.doJSON(t, http.MethodGet, "/api/v1/disputes/"+d.ID.String(), nil, &got)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, got.Resolved)
}

func TestWebsocketStream(t *testing.T) {
	f := newAPIFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	readEnvelope := func() wsEnvelope {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var env wsEnvelope
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	}

	// Первым приходит служебный конверт.
	hello := readEnvelope()
	assert.Equal(t, "system", hello.Channel)

	// Создание рынка через движок долетает до клиента событием шины.
	_, err = f.svc.CreateMarket(context.Background(), engine.CreateMarketRequest{
		Creator:        "5Zzguz4NsSRFxGkHfM4FmsFpGZiCDtY72zH2jzMcqkJx",
		Description:    "BTC above 100k by March?",
		ResolutionDate: time.Now().Add(30 * 24 * time.Hour),
		OracleSource:   "pyth-main",
		OutcomeMints:   []string{"So11111111111111111111111111111111111111112", "So11111111111111111111111111111111111111113"},
		Params: curve.Params{
			InitialPrice:   1000,
			CurveSteepness: 10000,
			MaxSupply:      1_000_000,
			FeeRateBps:     100,
		},
	})
	require.NoError(t, err)

	env := readEnvelope()
	assert.Equal(t, string(events.MarketCreated), env.Channel)
	assert.NotEmpty(t, env.Data)
}

func TestHubSubscriptionFilter(t *testing.T) {
	c := &wsClient{subs: make(map[string]bool)}

	// Пустой список подписок — все каналы.
	assert.True(t, c.subscribed("trade.executed"))

	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{"trade.executed"}})
	assert.True(t, c.subscribed("trade.executed"))
	assert.False(t, c.subscribed("price.updated"))

	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{"trade.executed"}})
	assert.True(t, c.subscribed("price.updated"), "после снятия последней подписки снова все каналы")
}

func TestStatusForMapping(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(engine.ErrMarketNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(engine.ErrSlippageExceeded))
	assert.Equal(t, http.StatusConflict, statusFor(market.ErrMarketNotActive))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(curve.ErrInvalidCurveParams))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(fmt.Errorf("wrapped: %w", market.ErrInvalidResolutionDate)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("boom")))
}

func TestParseOutcome(t *testing.T) {
	for raw, want := range map[string]market.Outcome{
		"yes": market.OutcomeYes, "YES": market.OutcomeYes, "0": market.OutcomeYes,
		"no": market.OutcomeNo, "1": market.OutcomeNo,
		"uphold": market.OutcomeUphold, "255": market.OutcomeUphold,
	} {
		got, err := parseOutcome(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := parseOutcome("maybe")
	assert.ErrorIs(t, err, market.ErrUnknownOutcome)
}
