// file: internal/transport/pending.go
package transport

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
)

type result struct {
	resp *protocol.Response
	err  error
}

// pendingTable correlates outstanding requests with their responses. Each entry is a
// one-shot channel; resolving removes the entry under the lock, so a response can reach
// at most one waiter and a second response for the same id finds nothing.
type pendingTable struct {
	mu      sync.Mutex
	entries map[protocol.ID]chan result
	closed  error
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[protocol.ID]chan result)}
}

// add registers id. It fails if id is already outstanding or the table has been failed.
func (p *pendingTable) add(id protocol.ID) (<-chan result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed != nil {
		return nil, p.closed
	}
	if _, exists := p.entries[id]; exists {
		return nil, errors.Newf("request id %s is already outstanding", id)
	}
	ch := make(chan result, 1)
	p.entries[id] = ch
	return ch, nil
}

// resolve delivers resp to its waiter and reports whether one existed.
func (p *pendingTable) resolve(resp *protocol.Response) bool {
	p.mu.Lock()
	ch, ok := p.entries[resp.ID]
	if ok {
		delete(p.entries, resp.ID)
	}
	p.mu.Unlock()
	if ok {
		ch <- result{resp: resp}
	}
	return ok
}

// remove drops id without delivering anything, after a timeout or failed send.
func (p *pendingTable) remove(id protocol.ID) {
	p.mu.Lock()
	delete(p.entries, id)
	p.mu.Unlock()
}

// failAll fails every waiter with err and rejects future adds.
func (p *pendingTable) failAll(err error) {
	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[protocol.ID]chan result)
	if p.closed == nil {
		p.closed = err
	}
	p.mu.Unlock()
	for _, ch := range entries {
		ch <- result{err: err}
	}
}

func (p *pendingTable) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
