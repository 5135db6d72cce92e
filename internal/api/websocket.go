// internal/api/websocket.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/prediction-pump/internal/metrics"
)

const (
	// writeWait — максимум на запись одного фрейма клиенту.
	writeWait = 10 * time.Second

	// pongWait — сколько ждём pong, прежде чем признать клиента мёртвым.
	pongWait = 60 * time.Second

	// pingPeriod должен быть меньше pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize ограничивает входящие сообщения: клиенты шлют только
	// короткие subscribe-запросы.
	maxMessageSize = 4096

	// sendBufferSize — буфер исходящих сообщений на клиента. Переполнение
	// означает, что клиент не успевает читать, и мы его отключаем.
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Доступом управляет обратный прокси перед движком.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsEnvelope — рамка каждого исходящего сообщения: имя канала и полезная
// нагрузка события как есть.
type wsEnvelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
	Time    time.Time       `json:"time"`
}

// subscribeMsg — запрос клиента на подписку. Пока клиент ничего не
// прислал, он получает все каналы.
type subscribeMsg struct {
	Action   string   `json:"action"` // "subscribe" или "unsubscribe"
	Channels []string `json:"channels"`
}

type broadcastMsg struct {
	channel string
	payload []byte
}

// wsClient — одно websocket-соединение. Запись идёт только через канал
// send: писать в conn напрямую из нескольких горутин нельзя.
type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu   sync.RWMutex
	subs map[string]bool
}

// Hub раздаёт события движка всем подключённым websocket-клиентам.
// Источник сообщений — событийная шина: сервер пересылает сюда каждое
// событие уже в сериализованном виде.
type Hub struct {
	logger  *zap.Logger
	metrics *metrics.Collector

	mu      sync.RWMutex
	clients map[*wsClient]struct{}

	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan broadcastMsg
}

// NewHub создаёт хаб. Collector может быть nil — тогда метрики
// подключений не ведутся.
func NewHub(logger *zap.Logger, collector *metrics.Collector) *Hub {
	return &Hub{
		logger:     logger.Named("ws_hub"),
		metrics:    collector,
		clients:    make(map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan broadcastMsg, sendBufferSize),
	}
}

// Run крутит цикл хаба до отмены контекста. При выходе все клиентские
// соединения закрываются.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("📡 Websocket hub started")

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.logger.Info("Websocket hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.WSClientConnected()
			}
			h.logger.Debug("websocket client connected", zap.Int("total", total))

		case c := <-h.unregister:
			h.dropClient(c)

		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*wsClient
			for c := range h.clients {
				if !c.subscribed(msg.channel) {
					continue
				}
				select {
				case c.send <- msg.payload:
				default:
					// Буфер полон: клиент безнадёжно отстал.
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range slow {
				h.logger.Warn("dropping slow websocket client",
					zap.String("channel", msg.channel))
				h.dropClient(c)
			}
		}
	}
}

// Broadcast отправляет сериализованное событие всем подписанным
// клиентам. Не блокирует: при переполнении очереди хаба сообщение
// теряется, о чём остаётся запись в логе.
func (h *Hub) Broadcast(channel string, payload []byte) {
	select {
	case h.broadcast <- broadcastMsg{channel: channel, payload: payload}:
	default:
		h.logger.Debug("websocket broadcast queue full, message dropped",
			zap.String("channel", channel))
	}
}

// ClientCount возвращает число живых подключений.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS апгрейдит HTTP-запрос до websocket и запускает насосы
// чтения и записи клиента.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool),
	}

	h.register <- c

	go c.writePump()
	go c.readPump()

	c.sendHello()
}

func (h *Hub) dropClient(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if ok {
		if h.metrics != nil {
			h.metrics.WSClientDisconnected()
		}
		h.logger.Debug("websocket client disconnected")
	}
}

// sendHello сразу после подключения шлёт служебный конверт, чтобы клиент
// знал, что канал живой.
func (c *wsClient) sendHello() {
	hello, err := json.Marshal(wsEnvelope{
		Channel: "system",
		Data:    json.RawMessage(`{"status":"connected"}`),
		Time:    time.Now(),
	})
	if err != nil {
		return
	}
	select {
	case c.send <- hello:
	default:
	}
}

// subscribed: пустой список подписок означает «всё подряд».
func (c *wsClient) subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.subs) == 0 {
		return true
	}
	return c.subs[channel]
}

func (c *wsClient) handleSubscription(msg subscribeMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Action {
	case "subscribe":
		for _, ch := range msg.Channels {
			c.subs[ch] = true
		}
	case "unsubscribe":
		for _, ch := range msg.Channels {
			delete(c.subs, ch)
		}
	}
}

// readPump читает входящие сообщения: нас интересуют только
// subscribe-запросы и pong-и, всё остальное игнорируется.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var sub subscribeMsg
		if err := json.Unmarshal(raw, &sub); err == nil && sub.Action != "" {
			c.handleSubscription(sub)
		}
	}
}

// writePump гонит сообщения из канала send в соединение и пингует
// клиента, пока тот жив.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Хаб закрыл канал.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
