// pkg/client/pending.go
package client

import (
	"sort"
	"sync"
	"time"

	"render-worker/internal/models"
)

type result struct {
	resp *models.Response
	err  error
}

// pendingEntry holds the channel a caller waits on for one request id.
type pendingEntry struct {
	ch      chan result
	action  models.Action
	created time.Time
}

// inFlight describes a request that was failed by failAll.
type inFlight struct {
	ID     int
	Action models.Action
	Age    time.Duration
}

// pendingMap correlates responses with in-flight requests by request id.
// Once failAll has run the map is closed and register refuses new waiters.
type pendingMap struct {
	mu      sync.Mutex
	entries map[int]*pendingEntry
	err     error
}

func newPendingMap() *pendingMap {
	return &pendingMap{entries: map[int]*pendingEntry{}}
}

// register records a waiter for id and returns its channel, or the error
// that closed the map.
func (p *pendingMap) register(id int, action models.Action) (<-chan result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	ch := make(chan result, 1)
	p.entries[id] = &pendingEntry{ch: ch, action: action, created: time.Now()}
	return ch, nil
}

// unregister drops id without delivering anything (used on timeout or send failure).
func (p *pendingMap) unregister(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, id)
}

// resolve delivers resp to the waiter for its request id and reports whether
// anyone was waiting.
func (p *pendingMap) resolve(resp *models.Response) bool {
	p.mu.Lock()
	entry, ok := p.entries[resp.RequestID]
	if ok {
		delete(p.entries, resp.RequestID)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}
	entry.ch <- result{resp: resp}
	return true
}

// failAll closes the map with err and fails every outstanding request,
// oldest first. The first error wins.
func (p *pendingMap) failAll(err error) []inFlight {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	toFail := p.entries
	p.entries = map[int]*pendingEntry{}
	p.mu.Unlock()

	now := time.Now()
	failed := make([]inFlight, 0, len(toFail))
	for id, e := range toFail {
		e.ch <- result{err: err}
		failed = append(failed, inFlight{ID: id, Action: e.action, Age: now.Sub(e.created)})
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].Age > failed[j].Age })
	return failed
}

func (p *pendingMap) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
