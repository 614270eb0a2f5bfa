package chat

import (
	"log/slog"

	"github.com/samber/lo"
)

// Broadcaster fans one event out to every live connection of a set of
// users. Delivery is best effort: a connection that fails its push is
// closed and pruned from the registry, and the failure is never
// surfaced to the caller.
type Broadcaster struct {
	registry *Registry
	log      *slog.Logger
}

func NewBroadcaster(registry *Registry, log *slog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, log: log}
}

func (b *Broadcaster) Deliver(userIDs []uint, event any) {
	for _, userID := range lo.Uniq(userIDs) {
		for _, conn := range b.registry.ConnectionsFor(userID) {
			if err := conn.Send(event); err != nil {
				b.log.Warn("dropping dead connection",
					"user_id", userID,
					"conn_id", conn.ID(),
					"error", err,
				)
				_ = conn.Close()
				b.registry.Unregister(userID, conn)
			}
		}
	}
}
