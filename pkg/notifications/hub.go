package notifications

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/metrics"
)

// Update is the frame sent to a user's connections.
type Update struct {
	Message interface{} `json:"message"`
}

type delivery struct {
	group  string
	update Update
}

// GroupName is the fan-out group every connection of a user joins.
func GroupName(userID uuid.UUID) string {
	return "notifications_" + userID.String()
}

// Hub tracks websocket clients by group and delivers updates to them.
type Hub struct {
	groups     map[string]map[*Client]bool
	deliveries chan delivery
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

// NewHub accepts connections from origins allowed by checkOrigin. A nil
// checkOrigin accepts same-host origins only.
func NewHub(checkOrigin func(origin string) bool) *Hub {
	h := &Hub{
		groups:     map[string]map[*Client]bool{},
		deliveries: make(chan delivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	if checkOrigin != nil {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || checkOrigin(origin)
		}
	}
	return h
}

// Run serves registrations and deliveries until ctx is done, then closes
// every client. Cancellation is a clean stop and returns nil.
func (h *Hub) Run(ctx context.Context) error {
	log := logging.Component("notifications")
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for _, clients := range h.groups {
				for c := range clients {
					close(c.send)
				}
			}
			h.groups = map[string]map[*Client]bool{}
			h.mu.Unlock()
			metrics.WebSocketClients.Set(0)
			return nil

		case c := <-h.register:
			h.mu.Lock()
			if h.groups[c.group] == nil {
				h.groups[c.group] = map[*Client]bool{}
			}
			h.groups[c.group][c] = true
			h.mu.Unlock()
			metrics.WebSocketClients.Inc()
			log.Debug().Str("group", c.group).Msg("websocket client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.groups[c.group]; ok && clients[c] {
				delete(clients, c)
				close(c.send)
				if len(clients) == 0 {
					delete(h.groups, c.group)
				}
				metrics.WebSocketClients.Dec()
			}
			h.mu.Unlock()
			log.Debug().Str("group", c.group).Msg("websocket client disconnected")

		case d := <-h.deliveries:
			h.mu.RLock()
			for c := range h.groups[d.group] {
				select {
				case c.send <- d.update:
					metrics.WebSocketMessages.Inc()
				default:
					log.Warn().Str("group", d.group).Msg("dropping update for slow websocket client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NotifyUser sends {"message": message} to every connection of userID.
func (h *Hub) NotifyUser(userID uuid.UUID, message interface{}) {
	select {
	case h.deliveries <- delivery{group: GroupName(userID), update: Update{Message: message}}:
	case <-h.done:
	}
}

// ClientCount reports the open connections of userID.
func (h *Hub) ClientCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[GroupName(userID)])
}

// ServeWS upgrades an authenticated request and joins the user's group.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := newClient(h, conn, GroupName(userID))
	select {
	case h.register <- c:
	case <-h.done:
		return conn.Close()
	}
	c.start()
	return nil
}
