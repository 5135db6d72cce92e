// internal/metrics/collector.go
package metrics

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricType представляет тип метрики
type MetricType string

const (
	TradeCounterType       MetricType = "trade_counter"
	TradeDurationType      MetricType = "trade_duration"
	QuoteLatencyType       MetricType = "quote_latency"
	SettlementCounterType  MetricType = "settlement_counter"
	MarketSupplyType       MetricType = "market_supply"
	MarketPriceType        MetricType = "market_price"
	WebsocketClientsType   MetricType = "websocket_clients"
	EventsDroppedType      MetricType = "events_dropped"
	CacheOperationType     MetricType = "cache_operations"
	ChainMirrorLatencyType MetricType = "chain_mirror_latency"
)

// Collector управляет набором метрик движка
type Collector struct {
	metrics sync.Map
}

// NewCollector создает новый экземпляр коллектора метрик
func NewCollector() *Collector {
	c := &Collector{}
	c.initializeMetrics()
	return c
}

var registerOnce sync.Once

func (c *Collector) initializeMetrics() {
	metricsMap := map[MetricType]prometheus.Collector{
		TradeCounterType:       tradeCounter,
		TradeDurationType:      tradeDuration,
		QuoteLatencyType:       quoteLatency,
		SettlementCounterType:  settlementCounter,
		MarketSupplyType:       marketSupply,
		MarketPriceType:        marketPrice,
		WebsocketClientsType:   websocketClients,
		EventsDroppedType:      eventsDropped,
		CacheOperationType:     cacheOperations,
		ChainMirrorLatencyType: chainMirrorLatency,
	}

	for metricType, metric := range metricsMap {
		c.metrics.Store(metricType, metric)
	}
	// Метрики — переменные пакета; регистрируем их один раз,
	// сколько бы коллекторов ни создали.
	registerOnce.Do(func() {
		for _, metric := range metricsMap {
			prometheus.MustRegister(metric)
		}
	})
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}

// RecordTrade records an executed or rejected trade
func (c *Collector) RecordTrade(side string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	tradeCounter.WithLabelValues(status, side).Inc()
	if success {
		tradeDuration.WithLabelValues(side).Observe(duration.Seconds())
	}
}

// RecordQuote records latency of a pure pricing call
func (c *Collector) RecordQuote(kind string, duration time.Duration) {
	quoteLatency.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordSettlementOp counts settle/claim/dispute/resolve operations
func (c *Collector) RecordSettlementOp(op string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	settlementCounter.WithLabelValues(op, status).Inc()
}

// SetMarketState publishes the current supply and spot price of one side
func (c *Collector) SetMarketState(marketID uuid.UUID, side string, supply, price uint64) {
	marketSupply.WithLabelValues(marketID.String(), side).Set(float64(supply))
	marketPrice.WithLabelValues(marketID.String(), side).Set(float64(price))
}

// WSClientConnected / WSClientDisconnected track live websocket clients
func (c *Collector) WSClientConnected()    { websocketClients.Inc() }
func (c *Collector) WSClientDisconnected() { websocketClients.Dec() }

// SetEventsDropped mirrors the event bus drop counter
func (c *Collector) SetEventsDropped(total uint64) {
	eventsDropped.Set(float64(total))
}

// RecordCacheOp counts cache lookups by result
func (c *Collector) RecordCacheOp(op string, hit bool) {
	result := "hit"
	if !hit {
		result = "miss"
	}
	cacheOperations.WithLabelValues(op, result).Inc()
}

// RecordChainMirror records one account poll round trip
func (c *Collector) RecordChainMirror(duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	chainMirrorLatency.WithLabelValues(status).Observe(duration.Seconds())
}

// Определение метрик
var (
	tradeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prediction_pump",
			Name:      "trades_total",
			Help:      "Total number of trades processed",
		},
		[]string{"status", "side"},
	)

	tradeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prediction_pump",
			Name:      "trade_duration_seconds",
			Help:      "Trade execution duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"side"},
	)

	quoteLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prediction_pump",
			Name:      "quote_latency_seconds",
			Help:      "Pricing call latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10),
		},
		[]string{"kind"},
	)

	settlementCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prediction_pump",
			Name:      "settlement_operations_total",
			Help:      "Settlement, claim and dispute operations",
		},
		[]string{"op", "status"},
	)

	marketSupply = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "prediction_pump",
			Name:      "market_supply",
			Help:      "Outstanding outcome token supply per market side",
		},
		[]string{"market_id", "side"},
	)

	marketPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "prediction_pump",
			Name:      "market_spot_price",
			Help:      "Current spot price per market side, atomic units",
		},
		[]string{"market_id", "side"},
	)

	websocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "prediction_pump",
			Name:      "websocket_clients",
			Help:      "Number of connected websocket clients",
		},
	)

	eventsDropped = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "prediction_pump",
			Name:      "events_dropped_total",
			Help:      "Events dropped by the bus because the queue was full",
		},
	)

	cacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prediction_pump",
			Name:      "cache_operations_total",
			Help:      "Cache lookups by operation and result",
		},
		[]string{"op", "result"},
	)

	chainMirrorLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prediction_pump",
			Name:      "chain_mirror_latency_seconds",
			Help:      "On-chain account poll latency in seconds",
		},
		[]string{"status"},
	)
)
