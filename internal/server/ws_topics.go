package server

import (
	"time"

	"github.com/f5devcentral/llm-inference-lb/internal/pool"
)

// poolsSnapshotInterval is how often TopicPools re-broadcasts a full status
// snapshot of every registered pool.
const poolsSnapshotInterval = 2 * time.Second

// StreamPoolSnapshots starts the TopicPools snapshot stream: a full status
// snapshot of the store every poolsSnapshotInterval until the hub stops.
func (h *Hub) StreamPoolSnapshots(store *pool.Store) {
	go func() {
		ticker := time.NewTicker(poolsSnapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				pools := store.All()
				statuses := make([]PoolStatus, 0, len(pools))
				for _, p := range pools {
					statuses = append(statuses, poolStatusOf(p))
				}
				h.Broadcast(TopicPools, PoolsStatus{Pools: statuses})
			}
		}
	}()
}
