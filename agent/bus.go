package agent

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// ActionAuthSuccess is broadcast after the bridge has stored a new session.
const ActionAuthSuccess = "auth_success"

// Message is the agent's runtime broadcast payload.
type Message struct {
	Action string `json:"action"`
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

const subscriberBuffer = 16

// Bus fans broadcast messages out to every subscriber. Delivery is
// best-effort: a subscriber that stopped draining its channel is skipped,
// never waited on.
type Bus struct {
	mu   sync.RWMutex
	subs []chan Message
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new listener and returns its channel.
func (b *Bus) Subscribe() <-chan Message {
	ch := make(chan Message, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, ch)
	return ch
}

// Broadcast delivers msg to every subscriber without blocking.
func (b *Bus) Broadcast(msg Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			log.Warn().Str("action", msg.Action).Msg("dropping broadcast for slow subscriber")
		}
	}
}
