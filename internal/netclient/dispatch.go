package netclient

import (
	"github.com/rs/zerolog/log"

	"github.com/skirmish/client/internal/protocol"
)

// Handler receives a decoded message for an opcode it subscribed to.
// Binary opcodes deliver the protocol struct (TransformSnapshot,
// ProjectileSpawn, []ProjectileSpawn, ProjectileDestroy, PongFrame);
// JSON opcodes deliver their typed payload; unrecognized JSON opcodes
// deliver the raw payload bytes.
type Handler func(msg any)

// dispatchTable maps opcodes to subscriber lists. It is built once during
// setup and never mutated afterwards, so dispatch can iterate without
// locking or invalidation hazards.
type dispatchTable struct {
	subscribers map[protocol.Opcode][]Handler
	sealed      bool
}

func newDispatchTable() *dispatchTable {
	return &dispatchTable{subscribers: make(map[protocol.Opcode][]Handler)}
}

func (d *dispatchTable) subscribe(op protocol.Opcode, h Handler) {
	if d.sealed {
		log.Error().Str("opcode", op.String()).Msg("subscribe after connect ignored")
		return
	}
	d.subscribers[op] = append(d.subscribers[op], h)
}

func (d *dispatchTable) seal() {
	d.sealed = true
}

func (d *dispatchTable) dispatch(op protocol.Opcode, msg any) int {
	handlers := d.subscribers[op]
	for _, h := range handlers {
		h(msg)
	}
	return len(handlers)
}
