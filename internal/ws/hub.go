package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/servicehub-backend/internal/logger"
)

// Hub рассылает события ленты подписчикам конкретного провайдера.
type Hub struct {
	mu         sync.RWMutex
	topics     map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
}

type message struct {
	providerID uuid.UUID
	payload    []byte
}

// Envelope формат сообщения: "type" имя события, "data" полезная нагрузка.
type Envelope struct {
	Type       string      `json:"type"`
	ProviderID uuid.UUID   `json:"provider_id"`
	Data       interface{} `json:"data"`
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		topics:     make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 64),
		done:       make(chan struct{}),
	}
}

// Run главный цикл хаба; завершается по ctx и закрывает всех клиентов.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.providerID, msg.payload)
		}
	}
}

// Register подписывает клиента на ленту.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister отписывает клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish ставит событие в очередь. При переполненной очереди событие
// отбрасывается: лента не должна тормозить запись отзывов.
func (h *Hub) Publish(providerID uuid.UUID, event string, data interface{}) {
	raw, err := json.Marshal(Envelope{Type: event, ProviderID: providerID, Data: data})
	if err != nil {
		logger.WithFields(logrus.Fields{
			"event": event,
			"error": err.Error(),
		}).Error("ws: не удалось сериализовать событие")
		return
	}

	select {
	case h.broadcast <- message{providerID: providerID, payload: raw}:
	case <-h.done:
	default:
		logger.WithFields(logrus.Fields{
			"event":       event,
			"provider_id": providerID,
		}).Warn("ws: очередь событий переполнена, событие пропущено")
	}
}

// SubscriberCount число подписчиков ленты провайдера.
func (h *Hub) SubscriberCount(providerID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[providerID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.topics[client.providerID]; !ok {
		h.topics[client.providerID] = make(map[*Client]struct{})
	}
	h.topics[client.providerID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.topics[client.providerID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
		}
		if len(clients) == 0 {
			delete(h.topics, client.providerID)
		}
	}
}

func (h *Hub) send(providerID uuid.UUID, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.topics[providerID]
	for client := range clients {
		select {
		case client.send <- payload:
		default:
			// медленный клиент: отключаем
			delete(clients, client)
			close(client.send)
		}
	}
	if len(clients) == 0 {
		delete(h.topics, providerID)
	}
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for providerID, clients := range h.topics {
		for client := range clients {
			close(client.send)
		}
		delete(h.topics, providerID)
	}
}
