package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const relayChannel = "chatcore:events"

// ConversationGroup is the group every connection to a conversation joins.
func ConversationGroup(id uuid.UUID) string {
	return "conversation:" + id.String()
}

// UserGroup is a user's personal notification channel.
func UserGroup(id uuid.UUID) string {
	return "user:" + id.String()
}

// Hub tracks live connections by group and fans events out to them.
// With a Redis client every broadcast goes through Pub/Sub so that all
// instances deliver to their own members; without one delivery is local.
type Hub struct {
	// group -> connections; a user may hold several connections per group
	groups map[string]map[*Client]struct{}
	mu     sync.RWMutex

	rdb *redis.Client
	log *zap.Logger
}

// NewHub creates a Hub. rdb may be nil for a single instance.
func NewHub(rdb *redis.Client, log *zap.Logger) *Hub {
	return &Hub{
		groups: make(map[string]map[*Client]struct{}),
		rdb:    rdb,
		log:    log,
	}
}

// envelope is the relayed form of a broadcast.
type envelope struct {
	Group       string          `json:"group"`
	ExcludeConn uuid.UUID       `json:"exclude_conn"`
	ExcludeUser uuid.UUID       `json:"exclude_user"`
	Event       json.RawMessage `json:"event"`
}

// Run relays broadcasts from Redis to local members until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	if h.rdb == nil {
		<-ctx.Done()
		return nil
	}

	pubsub := h.rdb.Subscribe(ctx, relayChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	h.log.Info("hub relay subscribed", zap.String("channel", relayChannel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.log.Warn("hub relay: bad envelope", zap.Error(err))
				continue
			}
			h.deliverLocal(env)
		}
	}
}

// Register adds the client to its group. It reports whether this is the
// user's first connection in the group.
func (h *Hub) Register(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[client.group]
	if !ok {
		members = make(map[*Client]struct{})
		h.groups[client.group] = members
	}
	first := !hasUser(members, client.UserID)
	members[client] = struct{}{}

	h.log.Debug("client registered",
		zap.String("group", client.group),
		zap.String("user_id", client.UserID.String()),
		zap.Int("connections", len(members)))
	return first
}

// Unregister removes the client and closes its send queue. It reports
// whether the user has no connection left in the group. Unregistering an
// unknown client is a no-op.
func (h *Hub) Unregister(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[client.group]
	if !ok {
		client.closeSend()
		return false
	}
	if _, ok := members[client]; !ok {
		client.closeSend()
		return false
	}

	delete(members, client)
	client.closeSend()
	if len(members) == 0 {
		delete(h.groups, client.group)
	}

	h.log.Debug("client unregistered",
		zap.String("group", client.group),
		zap.String("user_id", client.UserID.String()))
	return !hasUser(members, client.UserID)
}

// Broadcast sends event to every connection in group.
func (h *Hub) Broadcast(group string, event any) {
	h.publish(group, uuid.Nil, uuid.Nil, event)
}

// BroadcastExceptConn skips one connection, typically the sender's.
func (h *Hub) BroadcastExceptConn(group string, conn *Client, event any) {
	h.publish(group, conn.ID, uuid.Nil, event)
}

// BroadcastExceptUser skips every connection of userID.
func (h *Hub) BroadcastExceptUser(group string, userID uuid.UUID, event any) {
	h.publish(group, uuid.Nil, userID, event)
}

// SendToUser delivers event to the user's personal channel.
func (h *Hub) SendToUser(userID uuid.UUID, event any) {
	h.Broadcast(UserGroup(userID), event)
}

// Connected reports whether userID has a connection in group on this
// instance.
func (h *Hub) Connected(group string, userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return hasUser(h.groups[group], userID)
}

func (h *Hub) publish(group string, excludeConn, excludeUser uuid.UUID, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("hub: marshal event", zap.String("group", group), zap.Error(err))
		return
	}
	env := envelope{
		Group:       group,
		ExcludeConn: excludeConn,
		ExcludeUser: excludeUser,
		Event:       data,
	}

	if h.rdb == nil {
		h.deliverLocal(env)
		return
	}

	payload, err := json.Marshal(env)
	if err != nil {
		h.log.Error("hub: marshal envelope", zap.Error(err))
		return
	}
	if err := h.rdb.Publish(context.Background(), relayChannel, payload).Err(); err != nil {
		// local members still get it
		h.log.Warn("hub: publish failed", zap.String("group", group), zap.Error(err))
		h.deliverLocal(env)
	}
}

func (h *Hub) deliverLocal(env envelope) {
	var slow []*Client

	h.mu.RLock()
	for client := range h.groups[env.Group] {
		if client.ID == env.ExcludeConn || client.UserID == env.ExcludeUser {
			continue
		}
		if !client.enqueue(env.Event) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// A full queue drops the connection; its pumps unregister it.
	for _, client := range slow {
		h.log.Warn("dropping slow connection",
			zap.String("group", env.Group),
			zap.String("user_id", client.UserID.String()))
		client.closeSend()
	}
}

func hasUser(members map[*Client]struct{}, userID uuid.UUID) bool {
	for c := range members {
		if c.UserID == userID {
			return true
		}
	}
	return false
}
