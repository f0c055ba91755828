package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"connect4_bot/internal/domain"
	"connect4_bot/internal/matchmaking"
	"connect4_bot/internal/metrics"
)

// Hub - подключения WebApp по игрокам. у игрока может быть несколько вкладок
type Hub struct {
	mu      sync.RWMutex
	clients map[domain.PlayerID]map[*Client]struct{}
	log     *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[domain.PlayerID]map[*Client]struct{}),
		log:     log,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.Player.ID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.Player.ID] = set
	}
	set[c] = struct{}{}
	h.log.Debug("client registered", "player_id", c.Player.ID, "connections", len(set))
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.Player.ID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.Send)
	if len(set) == 0 {
		delete(h.clients, c.Player.ID)
	}
	h.log.Debug("client unregistered", "player_id", c.Player.ID)
}

// Connected - число игроков с открытым WebApp
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify рассылает события подключенным адресатам.
// медленный клиент с полным буфером пропускает событие, цикл движка не ждет
func (h *Hub) Notify(events []matchmaking.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	for _, ev := range events {
		var payload []byte
		for _, to := range ev.To {
			set := h.clients[to.ID]
			if len(set) == 0 {
				continue
			}
			if payload == nil {
				var err error
				if payload, err = json.Marshal(ev); err != nil {
					h.log.Error("marshal event failed", "kind", ev.Kind, "error", err)
					break
				}
			}
			for c := range set {
				select {
				case c.Send <- payload:
				default:
					metrics.DeliveryErrors.WithLabelValues("websocket").Inc()
					h.log.Warn("client buffer full, event dropped", "player_id", to.ID, "kind", ev.Kind)
				}
			}
		}
	}
}
