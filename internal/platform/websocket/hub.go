// Package websocket pushes dashboard events to signed-in browsers. Clients
// subscribe to topics and receive the events published on them; a client may
// only hold topics its principal is entitled to.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medipay/medipay/internal/platform/auth"
)

const (
	TopicInsurance = "insurance"
	TopicExplorer  = "explorer"
)

// Event is a notification sent to subscribed clients.
type Event struct {
	Type       string          `json:"type"`
	Topic      string          `json:"topic"`
	Resource   string          `json:"resource"`
	ResourceID string          `json:"resource_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals payload into an event for topic.
func NewEvent(eventType, topic, resource, resourceID string, payload interface{}) (Event, error) {
	ev := Event{
		Type:       eventType,
		Topic:      topic,
		Resource:   resource,
		ResourceID: resourceID,
		Timestamp:  time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s event: %w", eventType, err)
		}
		ev.Data = data
	}
	return ev, nil
}

// ClientMessage is an inbound subscribe/unsubscribe request.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// EventPublisher publishes events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// OwnerTopic is the private topic of a dashboard owner.
func OwnerTopic(role auth.Role, id string) string {
	if role == auth.RoleInsurance {
		return TopicInsurance
	}
	return string(role) + "/" + id
}

// TopicsFor lists the topics p may subscribe to.
func TopicsFor(p auth.Principal) []string {
	return []string{OwnerTopic(p.Role, p.OwnerID()), TopicExplorer}
}

// Client is a single websocket connection.
type Client struct {
	ID      string
	UserID  string
	Topics  []string
	Send    chan []byte
	allowed map[string]bool
}

// NewClient creates a client for p with a buffered send queue. It starts
// subscribed to its owner topic.
func NewClient(id string, p auth.Principal, buffer int) *Client {
	allowed := make(map[string]bool)
	for _, t := range TopicsFor(p) {
		allowed[t] = true
	}
	return &Client{
		ID:      id,
		UserID:  p.UserID,
		Topics:  []string{OwnerTopic(p.Role, p.OwnerID())},
		Send:    make(chan []byte, buffer),
		allowed: allowed,
	}
}

// Hub tracks clients and their topic subscriptions.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> set of clients
	all     map[*Client]struct{}
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger.With().Str("component", "events").Logger(),
	}
}

// Register adds a client and subscribes it to its initial topics.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		h.add(topic, client)
	}
}

func (h *Hub) add(topic string, client *Client) {
	if h.clients[topic] == nil {
		h.clients[topic] = make(map[*Client]struct{})
	}
	h.clients[topic][client] = struct{}{}
}

func (h *Hub) remove(topic string, client *Client) {
	if subscribers, ok := h.clients[topic]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.clients, topic)
		}
	}
}

// Unregister removes a client from every topic and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for _, topic := range client.Topics {
		h.remove(topic, client)
	}
	delete(h.all, client)
	close(client.Send)
}

// Subscribe adds topics to a registered client. Topics the client is not
// entitled to are ignored and returned.
func (h *Hub) Subscribe(client *Client, topics []string) (rejected []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range topics {
		if !client.allowed[topic] {
			rejected = append(rejected, topic)
			continue
		}
		if _, already := h.clients[topic][client]; already {
			continue
		}
		h.add(topic, client)
		client.Topics = append(client.Topics, topic)
	}
	return rejected
}

// Unsubscribe removes topics from a registered client.
func (h *Hub) Unsubscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removeSet := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		removeSet[t] = struct{}{}
		h.remove(t, client)
	}

	remaining := make([]string, 0, len(client.Topics))
	for _, t := range client.Topics {
		if _, rm := removeSet[t]; !rm {
			remaining = append(remaining, t)
		}
	}
	client.Topics = remaining
}

// ProcessMessage dispatches a ClientMessage to Subscribe or Unsubscribe.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		if rejected := h.Subscribe(client, msg.Topics); len(rejected) > 0 {
			h.logger.Warn().Str("client_id", client.ID).Strs("topics", rejected).Msg("subscription refused")
		}
	case "unsubscribe":
		h.Unsubscribe(client, msg.Topics)
	}
}

// Broadcast sends event to every subscriber of topic. Clients whose buffer is
// full miss the event.
func (h *Hub) Broadcast(topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Msg("marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[topic] {
		select {
		case client.Send <- data:
		default:
			h.logger.Debug().Str("client_id", client.ID).Msg("send buffer full, event dropped")
		}
	}
}

// Publish implements EventPublisher.
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.Broadcast(event.Topic, event)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// TopicCount returns the number of clients subscribed to topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}
