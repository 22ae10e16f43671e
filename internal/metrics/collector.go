// file: internal/metrics/collector.go

// Package metrics records protocol engine health and performance on Prometheus collectors
// and keeps a small in-process snapshot for health endpoints.
package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Roles label which side of the protocol recorded a request.
const (
	RoleClient = "client"
	RoleServer = "server"
)

// Outcomes label how a request ended.
const (
	OutcomeOK             = "ok"
	OutcomeRemoteError    = "remote_error"
	OutcomeTransportError = "transport_error"
	OutcomeTimeout        = "timeout"
)

// Snapshot is a point-in-time summary served by health endpoints.
type Snapshot struct {
	StartTime      time.Time   `json:"startTime"`
	Uptime         string      `json:"uptime"`
	GoVersion      string      `json:"goVersion"`
	NumGoroutines  int         `json:"numGoroutines"`
	TotalRequests  int         `json:"totalRequests"`
	FailedRequests int         `json:"failedRequests"`
	Reconnects     int         `json:"reconnects"`
	LastErrors     []ErrorInfo `json:"lastErrors,omitempty"`
}

// ErrorInfo contains details about a recorded error.
type ErrorInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
}

// Collector owns the Prometheus instruments. A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	reconnects *prometheus.CounterVec
	pending    *prometheus.GaugeVec
	state      *prometheus.GaugeVec
	discarded  *prometheus.CounterVec
	toolCalls  *prometheus.CounterVec

	mu          sync.Mutex
	startTime   time.Time
	total       int
	failed      int
	reconnected int
	errorBuffer []ErrorInfo
	bufferSize  int
}

// NewCollector creates a collector registered on its own registry.
func NewCollector(errorBufferSize int) *Collector {
	if errorBufferSize <= 0 {
		errorBufferSize = 20
	}
	c := &Collector{
		registry:   prometheus.NewRegistry(),
		startTime:  time.Now(),
		bufferSize: errorBufferSize,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolwire_requests_total",
			Help: "JSON-RPC requests by role, method and outcome.",
		}, []string{"role", "method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "toolwire_request_duration_seconds",
			Help:    "JSON-RPC request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"role", "method"}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolwire_reconnects_total",
			Help: "Client reconnect sequences by remote and result.",
		}, []string{"remote", "result"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "toolwire_pending_requests",
			Help: "Requests awaiting a response per transport.",
		}, []string{"transport"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "toolwire_client_state",
			Help: "Client connection state (0 disconnected, 1 connecting, 2 connected, 3 reconnecting).",
		}, []string{"remote"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolwire_discarded_responses_total",
			Help: "Inbound responses dropped because no request was waiting for them.",
		}, []string{"transport", "reason"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolwire_tool_calls_total",
			Help: "Tool executions by tool and result.",
		}, []string{"tool", "result"}),
	}
	c.registry.MustRegister(c.requests, c.duration, c.reconnects, c.pending, c.state, c.discarded, c.toolCalls)
	return c
}

// Registry exposes the registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Requests exposes the request counter, mainly for tests.
func (c *Collector) Requests() *prometheus.CounterVec { return c.requests }

// ToolCalls exposes the tool call counter.
func (c *Collector) ToolCalls() *prometheus.CounterVec { return c.toolCalls }

// Reconnects exposes the reconnect counter.
func (c *Collector) Reconnects() *prometheus.CounterVec { return c.reconnects }

// ClientState exposes the client state gauge.
func (c *Collector) ClientState() *prometheus.GaugeVec { return c.state }

// RecordRequest counts one finished request.
func (c *Collector) RecordRequest(role, method, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(role, method, outcome).Inc()
	c.duration.WithLabelValues(role, method).Observe(elapsed.Seconds())

	c.mu.Lock()
	c.total++
	if outcome != OutcomeOK {
		c.failed++
	}
	c.mu.Unlock()
}

// RecordReconnect counts a finished reconnect sequence.
func (c *Collector) RecordReconnect(remote string, success bool) {
	if c == nil {
		return
	}
	result := "success"
	if !success {
		result = "exhausted"
	}
	c.reconnects.WithLabelValues(remote, result).Inc()
	c.mu.Lock()
	c.reconnected++
	c.mu.Unlock()
}

// SetPending sets the number of outstanding requests on a transport.
func (c *Collector) SetPending(transport string, n int) {
	if c == nil {
		return
	}
	c.pending.WithLabelValues(transport).Set(float64(n))
}

// SetClientState records the ordinal of a client's connection state.
func (c *Collector) SetClientState(remote string, ordinal float64) {
	if c == nil {
		return
	}
	c.state.WithLabelValues(remote).Set(ordinal)
}

// RecordDiscardedResponse counts a response nobody was waiting for.
func (c *Collector) RecordDiscardedResponse(transport, reason string) {
	if c == nil {
		return
	}
	c.discarded.WithLabelValues(transport, reason).Inc()
}

// RecordToolCall counts a tool execution.
func (c *Collector) RecordToolCall(tool, result string) {
	if c == nil {
		return
	}
	c.toolCalls.WithLabelValues(tool, result).Inc()
}

// RecordError keeps the most recent errors for the health snapshot.
func (c *Collector) RecordError(component, message string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorBuffer = append(c.errorBuffer, ErrorInfo{Timestamp: time.Now(), Component: component, Message: message})
	if len(c.errorBuffer) > c.bufferSize {
		c.errorBuffer = c.errorBuffer[len(c.errorBuffer)-c.bufferSize:]
	}
}

// Snapshot returns the current summary.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{GoVersion: runtime.Version(), NumGoroutines: runtime.NumGoroutine()}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	errs := make([]ErrorInfo, len(c.errorBuffer))
	copy(errs, c.errorBuffer)
	return Snapshot{
		StartTime:      c.startTime,
		Uptime:         time.Since(c.startTime).Round(time.Second).String(),
		GoVersion:      runtime.Version(),
		NumGoroutines:  runtime.NumGoroutine(),
		TotalRequests:  c.total,
		FailedRequests: c.failed,
		Reconnects:     c.reconnected,
		LastErrors:     errs,
	}
}
