// Package broadcast fans round and per-user events out to the transport.
// Delivery is fire-and-forget: a slow or disconnected viewer never stalls
// the round clock or a settlement.
package broadcast

// Broadcaster is the boundary the game engine publishes through. It is
// constructed and injected explicitly; there is no process-wide instance.
type Broadcaster interface {
	// PublishRound fans an event out to every viewer of the round.
	PublishRound(event any)
	// PublishUser delivers an event to one participant's connections.
	PublishUser(userID string, event any)
}

// Nop discards every event. Stands in when no transport is attached.
type Nop struct{}

func (Nop) PublishRound(any)        {}
func (Nop) PublishUser(string, any) {}
