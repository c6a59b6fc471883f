package game

// SnapshotOrdering selects how the gate treats transform snapshots that
// may have arrived out of order.
type SnapshotOrdering int

const (
	// OrderingArrival admits every snapshot in arrival order. Matching
	// what the server actually emits, the transform schema carries no
	// server timestamp, so arrival order is the only order available.
	OrderingArrival SnapshotOrdering = iota
	// OrderingRejectStale drops snapshots whose server time is not
	// newer than the last admitted one for that entity. It only has
	// effect for snapshots that carry a non-zero server time.
	OrderingRejectStale
)

// SnapshotGate decides per entity whether an incoming transform snapshot
// should be applied. It is owned by the world and called only from the
// simulation goroutine.
type SnapshotGate struct {
	ordering SnapshotOrdering
	lastSeen map[uint32]int64
}

func NewSnapshotGate(ordering SnapshotOrdering) *SnapshotGate {
	return &SnapshotGate{
		ordering: ordering,
		lastSeen: make(map[uint32]int64),
	}
}

// Admit reports whether a snapshot for entity id with the given server
// time should be applied, and records it if so. A zero serverTime means
// the snapshot carries no ordering information and is always admitted.
func (g *SnapshotGate) Admit(id uint32, serverTime int64) bool {
	if g.ordering == OrderingArrival || serverTime == 0 {
		return true
	}
	if last, ok := g.lastSeen[id]; ok && serverTime <= last {
		return false
	}
	g.lastSeen[id] = serverTime
	return true
}

// Forget clears the ordering history for an entity, e.g. after it leaves
// the room. Without this a rejoining player could have every snapshot
// rejected against a stale watermark.
func (g *SnapshotGate) Forget(id uint32) {
	delete(g.lastSeen, id)
}
