// internal/api/server.go

// Package api — HTTP и websocket фасад движка. JSON-эндпоинты покрывают
// весь жизненный цикл рынка: создание, торговлю, показания оракулов,
// расчёт, выплаты и споры; websocket транслирует события шины.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/prediction-pump/internal/engine"
	"github.com/rovshanmuradov/prediction-pump/internal/events"
	"github.com/rovshanmuradov/prediction-pump/internal/metrics"
)

// streamedEvents — типы событий, которые сервер пересылает в websocket.
// Имя типа служит именем канала подписки.
var streamedEvents = []events.EventType{
	events.MarketCreated,
	events.MarketActivated,
	events.MarketSettled,
	events.TradeExecuted,
	events.PriceUpdated,
	events.PayoutClaimed,
	events.DisputeOpened,
	events.DisputeResolved,
}

// Config — настройки HTTP-сервера.
type Config struct {
	Addr        string
	CORSOrigins []string // пусто = разрешены все
}

// Server обслуживает REST API и websocket-поток поверх движка.
type Server struct {
	cfg        Config
	engine     *engine.Service
	bus        *events.Bus
	hub        *Hub
	logger     *zap.Logger
	httpServer *http.Server

	subs []events.Subscription
}

// NewServer собирает сервер: маршруты, middleware и мост из событийной
// шины в websocket-хаб.
func NewServer(cfg Config, svc *engine.Service, bus *events.Bus, collector *metrics.Collector, logger *zap.Logger) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("api: engine service is required")
	}
	if bus == nil {
		return nil, fmt.Errorf("api: event bus is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("api: logger is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	s := &Server{
		cfg:    cfg,
		engine: svc,
		bus:    bus,
		hub:    NewHub(logger, collector),
		logger: logger.Named("api"),
	}

	router := mux.NewRouter()
	s.routes(router)

	var handler http.Handler = router
	handler = s.loggingMiddleware(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) routes(r *mux.Router) {
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.hub.HandleWS).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()

	// Рынки.
	v1.HandleFunc("/markets", s.handleCreateMarket).Methods(http.MethodPost)
	v1.HandleFunc("/markets", s.handleListMarkets).Methods(http.MethodGet)
	v1.HandleFunc("/markets/{id}", s.handleGetMarket).Methods(http.MethodGet)
	v1.HandleFunc("/markets/{id}/activate", s.handleActivateMarket).Methods(http.MethodPost)

	// Котировки и сделки.
	v1.HandleFunc("/markets/{id}/quote", s.handleQuote).Methods(http.MethodGet)
	v1.HandleFunc("/markets/{id}/trades", s.handleExecuteTrade).Methods(http.MethodPost)
	v1.HandleFunc("/markets/{id}/trades", s.handleListTrades).Methods(http.MethodGet)

	// Оракулы.
	v1.HandleFunc("/oracle/providers", s.handleAddProvider).Methods(http.MethodPost)
	v1.HandleFunc("/oracle/providers", s.handleListProviders).Methods(http.MethodGet)
	v1.HandleFunc("/oracle/data", s.handleSubmitOracleData).Methods(http.MethodPost)

	// Расчёт и выплаты.
	v1.HandleFunc("/markets/{id}/settle", s.handleSettleMarket).Methods(http.MethodPost)
	v1.HandleFunc("/markets/{id}/claims", s.handleClaimPayout).Methods(http.MethodPost)

	// Споры.
	v1.HandleFunc("/disputes", s.handleOpenDispute).Methods(http.MethodPost)
	v1.HandleFunc("/disputes/{id}", s.handleGetDispute).Methods(http.MethodGet)
	v1.HandleFunc("/disputes/{id}/votes", s.handleCastVote).Methods(http.MethodPost)
	v1.HandleFunc("/disputes/{id}/resolve", s.handleResolveDispute).Methods(http.MethodPost)
}

// StartStream запускает websocket-хаб и мост из событийной шины.
// Отдельно от Run, чтобы тесты могли гонять поток через httptest.
func (s *Server) StartStream(ctx context.Context) {
	go s.hub.Run(ctx)
	s.bridgeEvents()
}

// Run поднимает websocket-хаб, подписывается на шину и слушает HTTP до
// отмены контекста. Возвращается после полного останова сервера.
func (s *Server) Run(ctx context.Context) error {
	s.StartStream(ctx)
	defer s.unsubscribeAll()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🌐 HTTP server listening", zap.String("addr", s.cfg.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api: listen: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api: shutdown: %w", err)
		}
		<-errCh
		s.logger.Info("HTTP server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

// bridgeEvents подписывает хаб на все транслируемые типы событий: каждое
// событие уезжает клиентам в конверте с именем канала.
func (s *Server) bridgeEvents() {
	for _, t := range streamedEvents {
		channel := string(t)
		sub := s.bus.SubscribeFunc(t, func(ctx context.Context, event events.Event) error {
			payload, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("api: marshal event %s: %w", channel, err)
			}
			env, err := json.Marshal(wsEnvelope{
				Channel: channel,
				Data:    payload,
				Time:    time.Now(),
			})
			if err != nil {
				return err
			}
			s.hub.Broadcast(channel, env)
			return nil
		})
		s.subs = append(s.subs, sub)
	}
}

func (s *Server) unsubscribeAll() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
}

// Handler отдаёт корневой HTTP-обработчик. Нужен тестам, чтобы гонять
// запросы через httptest без реального listen.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"ws_clients": s.hub.ClientCount(),
	})
}

// loggingMiddleware пишет строку на каждый запрос: метод, путь, статус,
// длительность.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr))
	})
}

// statusWriter перехватывает код ответа для логирования.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Hijack пробрасывает http.Hijacker, иначе апгрейд до websocket не
// пройдёт через middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

// corsMiddleware выставляет CORS-заголовки для разрешённых origin-ов.
// Пустой список разрешает всех.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}
				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
