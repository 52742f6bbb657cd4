// Package monitor tracks per-socket connection status for the Transport
// layer without ever sitting in the hot path of a send or receive.
package monitor

import (
	"sync"

	"github.com/Kobeeeef/XTABLES/pkg/monitoring"
)

// Status is a logical socket's connection state.
type Status int

const (
	StatusUnknown Status = iota
	StatusConnected
	StatusConnectDelayed
	StatusConnectRetried
	StatusDisconnected
	StatusMonitorStopped
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusConnectDelayed:
		return "connect_delayed"
	case StatusConnectRetried:
		return "connect_retried"
	case StatusDisconnected:
		return "disconnected"
	case StatusMonitorStopped:
		return "monitor_stopped"
	default:
		return "unknown"
	}
}

// gaugeValue maps a Status to the numeric value exported on the
// connection-status gauge; higher is healthier.
func (s Status) gaugeValue() float64 {
	switch s {
	case StatusConnected:
		return 1
	case StatusConnectDelayed, StatusConnectRetried:
		return 0.5
	default:
		return 0
	}
}

// Monitor is a read-mostly status table keyed by logical socket name
// ("push", "req", "sub", "registry-push"), served from a sync.Map so
// Status reads never contend with Attach/Detach/Set writers.
type Monitor struct {
	statuses sync.Map // string -> Status
	metrics  *monitoring.ClientMetrics

	mu        sync.Mutex
	listeners map[string][]func(name string, from, to Status)
}

// New builds a Monitor. metrics may be nil, in which case status
// transitions are tracked but not exported to Prometheus.
func New(metrics *monitoring.ClientMetrics) *Monitor {
	return &Monitor{
		metrics:   metrics,
		listeners: make(map[string][]func(name string, from, to Status)),
	}
}

// Attach registers name with an initial UNKNOWN status. Idempotent.
func (m *Monitor) Attach(name string) {
	m.statuses.LoadOrStore(name, StatusUnknown)
}

// Detach removes name from the status table. Idempotent.
func (m *Monitor) Detach(name string) {
	m.statuses.Delete(name)
	if m.metrics != nil {
		m.metrics.ConnectionStatus.WithLabelValues(name).Set(0)
	}
}

// Status returns the current status for name, or UNKNOWN if never
// attached.
func (m *Monitor) Status(name string) Status {
	v, ok := m.statuses.Load(name)
	if !ok {
		return StatusUnknown
	}
	return v.(Status)
}

// Set records a status transition for name and exports it to
// Prometheus. Safe to call from any goroutine; never blocks on a
// Transport operation.
func (m *Monitor) Set(name string, to Status) {
	prevVal, _ := m.statuses.Swap(name, to)
	from := StatusUnknown
	if prevVal != nil {
		from = prevVal.(Status)
	}
	if m.metrics != nil {
		m.metrics.ConnectionStatus.WithLabelValues(name).Set(to.gaugeValue())
	}
	if from == to {
		return
	}
	m.mu.Lock()
	cbs := append([]func(name string, from, to Status){}, m.listeners[name]...)
	cbs = append(cbs, m.listeners[""]...) // listeners registered for all sockets
	m.mu.Unlock()
	for _, cb := range cbs {
		cb(name, from, to)
	}
}

// OnTransition registers a callback invoked whenever name's status
// changes. Pass an empty name to listen to every socket.
func (m *Monitor) OnTransition(name string, cb func(name string, from, to Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners[name] = append(m.listeners[name], cb)
}

// Snapshot returns a copy of the current status table, for diagnostics.
func (m *Monitor) Snapshot() map[string]Status {
	out := make(map[string]Status)
	m.statuses.Range(func(k, v interface{}) bool {
		out[k.(string)] = v.(Status)
		return true
	})
	return out
}
