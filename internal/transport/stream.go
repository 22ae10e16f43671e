// file: internal/transport/stream.go
package transport

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/logging"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
	"github.com/dkoosis/toolwire/internal/metrics"
)

// DefaultQueueSize bounds the outgoing message queue of a stream transport.
const DefaultQueueSize = 64

const drainTimeout = 5 * time.Second

// StreamTransport speaks newline-delimited JSON-RPC over a reader/writer pair.
//
// One goroutine owns the read half and routes every inbound line: responses resolve the
// pending table, notifications go to the subscriber, and peer requests are answered. A
// second goroutine owns the write half and drains a bounded queue, so frames are never
// interleaved and senders do not block on a slow peer.
type StreamTransport struct {
	name    string
	logger  logging.Logger
	metrics *metrics.Collector
	opts    Options

	reader *NDJSONReader
	rc     io.Closer
	writer *NDJSONWriter
	wc     io.Closer

	pending *pendingTable
	queue   chan []byte

	started    atomic.Bool
	startOnce  sync.Once
	closeOnce  sync.Once
	finishOnce sync.Once
	closing    chan struct{}
	writerDone chan struct{}
	readerDone chan struct{}
	done       chan struct{}

	errMu sync.Mutex
	err   error
}

// NewStreamTransport wraps r and w. r and w are closed by Close when they implement
// io.Closer. name labels logs and metrics.
func NewStreamTransport(name string, r io.Reader, w io.Writer, opts Options) *StreamTransport {
	t := &StreamTransport{
		name:       name,
		logger:     opts.logger(name),
		metrics:    opts.Metrics,
		opts:       opts,
		reader:     NewNDJSONReader(r),
		writer:     NewNDJSONWriter(w),
		pending:    newPendingTable(),
		queue:      make(chan []byte, DefaultQueueSize),
		closing:    make(chan struct{}),
		writerDone: make(chan struct{}),
		readerDone: make(chan struct{}),
		done:       make(chan struct{}),
	}
	if c, ok := r.(io.Closer); ok {
		t.rc = c
	}
	if c, ok := w.(io.Closer); ok {
		t.wc = c
	}
	return t
}

// Start launches the reader and writer goroutines. It is idempotent.
func (t *StreamTransport) Start(_ context.Context) error {
	t.startOnce.Do(func() {
		t.started.Store(true)
		go t.readLoop()
		go t.writeLoop()
	})
	return nil
}

// Send enqueues req and waits for the response carrying the same id.
func (t *StreamTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal %s request", req.Method)
	}
	ch, err := t.pending.add(req.ID)
	if err != nil {
		return nil, err
	}
	t.metrics.SetPending(t.name, t.pending.len())
	defer func() { t.metrics.SetPending(t.name, t.pending.len()) }()

	if err := t.enqueue(ctx, data, req.Method); err != nil {
		t.pending.remove(req.ID)
		return nil, err
	}

	select {
	case r := <-ch:
		return r.resp, r.err
	case <-ctx.Done():
		// The peer is not told; a late response will find no entry and be discarded.
		t.pending.remove(req.ID)
		return nil, contextError(ctx, req.Method)
	}
}

// Notify enqueues a notification.
func (t *StreamTransport) Notify(ctx context.Context, n *protocol.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s notification", n.Method)
	}
	return t.enqueue(ctx, data, n.Method)
}

func (t *StreamTransport) enqueue(ctx context.Context, data []byte, method string) error {
	select {
	case <-t.closing:
		return NewClosedError(method, t.Err())
	case <-t.done:
		return NewClosedError(method, t.Err())
	default:
	}
	select {
	case t.queue <- data:
		return nil
	case <-t.closing:
		return NewClosedError(method, t.Err())
	case <-t.done:
		return NewClosedError(method, t.Err())
	case <-ctx.Done():
		return contextError(ctx, method)
	}
}

// Done is closed when the stream can no longer carry messages.
func (t *StreamTransport) Done() <-chan struct{} { return t.done }

// Err reports the reason the stream finished.
func (t *StreamTransport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

// Close flushes the outgoing queue, closes both halves, and fails anything still pending.
func (t *StreamTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closing)
		if t.started.Load() {
			select {
			case <-t.writerDone:
			case <-time.After(drainTimeout):
				t.logger.Warn("Timed out draining outgoing queue.", "queued", len(t.queue))
			}
		}
		if t.wc != nil {
			if err := t.wc.Close(); err != nil {
				t.logger.Debug("Error closing write half.", "error", err)
			}
		}
		t.finish(NewClosedError("close", errors.New("transport closed by client")))
		if t.rc != nil {
			_ = t.rc.Close()
		}
	})
	return nil
}

// finish records why the stream ended, fails all waiters and closes Done. Only the first
// call has any effect.
func (t *StreamTransport) finish(err error) {
	t.finishOnce.Do(func() {
		t.errMu.Lock()
		t.err = err
		t.errMu.Unlock()
		t.pending.failAll(err)
		t.metrics.SetPending(t.name, 0)
		close(t.done)
		t.logger.Debug("Stream transport finished.", "reason", err)
	})
}

func (t *StreamTransport) writeLoop() {
	defer close(t.writerDone)
	for {
		select {
		case data := <-t.queue:
			if !t.write(data) {
				return
			}
		case <-t.done:
			return
		case <-t.closing:
			for {
				select {
				case data := <-t.queue:
					if !t.write(data) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (t *StreamTransport) write(data []byte) bool {
	if err := t.writer.WriteMessage(data); err != nil {
		var tErr *Error
		if errors.As(err, &tErr) && tErr.Type == ErrorTypeMessageSize {
			t.logger.Error("Dropping oversized outgoing message.", "error", err)
			return true
		}
		t.logger.Warn("Write to peer failed.", "error", err)
		t.finish(NewClosedError("write", err))
		return false
	}
	return true
}

func (t *StreamTransport) readLoop() {
	defer close(t.readerDone)
	for {
		line, err := t.reader.ReadMessage()
		if err != nil {
			var tErr *Error
			if errors.As(err, &tErr) && tErr.Type == ErrorTypeMessageSize {
				t.logger.Warn("Skipping oversized inbound message.", "error", err)
				continue
			}
			if !errors.Is(err, io.EOF) {
				t.logger.Debug("Read from peer failed.", "error", err)
			}
			t.finish(NewClosedError("read", errors.Wrap(err, "peer stream ended")))
			return
		}
		t.dispatch(line)
	}
}

func (t *StreamTransport) dispatch(line []byte) {
	env, err := protocol.Decode(line)
	if err != nil {
		t.logger.Warn("Discarding undecodable message from peer.", "error", NewParseError(line, err))
		return
	}
	switch env.Kind {
	case protocol.KindResponse:
		if !t.pending.resolve(env.Response) {
			t.logger.Warn("Discarding response with no pending request.", "id", env.Response.ID.String())
			t.metrics.RecordDiscardedResponse(t.name, "unmatched")
		}
	case protocol.KindNotification:
		t.opts.notify(env.Notification)
	case protocol.KindRequest:
		t.answerPeerRequest(env.Request)
	}
}

// answerPeerRequest replies to requests the peer sends us. Only ping is supported.
func (t *StreamTransport) answerPeerRequest(req *protocol.Request) {
	var resp *protocol.Response
	if req.Method == protocol.MethodPing {
		resp, _ = protocol.NewResultResponse(req.ID, nil)
	} else {
		resp = protocol.NewErrorResponse(req.ID, &protocol.ErrorObject{
			Code:    protocol.CodeMethodNotFound,
			Message: "Method not found: " + req.Method,
		})
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	select {
	case t.queue <- data:
	default:
		t.logger.Warn("Outgoing queue full; dropping reply to peer request.", "method", req.Method)
	}
}
