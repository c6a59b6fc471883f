package netclient

import "sync/atomic"

// telemetryCounters tracks connection health for logging and tests.
type telemetryCounters struct {
	queueEvictions   atomic.Uint64
	malformedDropped atomic.Uint64
	unknownDropped   atomic.Uint64
	sendDropped      atomic.Uint64
	reconnects       atomic.Uint64
	disconnects      atomic.Uint64
	messagesHandled  atomic.Uint64
}

// TelemetrySnapshot is a point-in-time copy of the counters.
type TelemetrySnapshot struct {
	QueueEvictions   uint64 `json:"queueEvictions"`
	MalformedDropped uint64 `json:"malformedDropped"`
	UnknownDropped   uint64 `json:"unknownDropped"`
	SendDropped      uint64 `json:"sendDropped"`
	Reconnects       uint64 `json:"reconnects"`
	Disconnects      uint64 `json:"disconnects"`
	MessagesHandled  uint64 `json:"messagesHandled"`
}

func (t *telemetryCounters) Snapshot() TelemetrySnapshot {
	return TelemetrySnapshot{
		QueueEvictions:   t.queueEvictions.Load(),
		MalformedDropped: t.malformedDropped.Load(),
		UnknownDropped:   t.unknownDropped.Load(),
		SendDropped:      t.sendDropped.Load(),
		Reconnects:       t.reconnects.Load(),
		Disconnects:      t.disconnects.Load(),
		MessagesHandled:  t.messagesHandled.Load(),
	}
}
