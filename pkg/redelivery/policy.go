package redelivery

import (
	"sync"

	"github.com/downfa11-org/go-journal/pkg/metrics"
	"github.com/downfa11-org/go-journal/pkg/types"
	"github.com/downfa11-org/go-journal/util"
)

// BackoutHandler is notified once an event has used up its retries.
type BackoutHandler func(ev types.Event)

// Policy tracks short-term, in-memory retries of events the gateway failed to send.
// Nothing here is persisted; the journal covers process crashes.
//
// Every Redeliver call for an event consumes one of its retryCount attempts, so the
// event is backed out on the retryCount-th call without an intervening Delivered.
type Policy struct {
	retryCount int

	mu        sync.Mutex
	remaining map[string]int
	pending   []types.Event
	queued    map[string]struct{}
	onBackout BackoutHandler

	log *util.Logger
}

func NewPolicy(retryCount int) *Policy {
	if retryCount < 1 {
		retryCount = 1
	}
	return &Policy{
		retryCount: retryCount,
		remaining:  make(map[string]int),
		queued:     make(map[string]struct{}),
		log:        util.NewLogger("redelivery"),
	}
}

// SetBackoutHandler replaces the default backout behavior, which only logs.
func (p *Policy) SetBackoutHandler(h BackoutHandler) {
	p.mu.Lock()
	p.onBackout = h
	p.mu.Unlock()
}

// Redeliver records a failed send attempt for each event. An event already waiting in
// the pending queue is not queued a second time, but the attempt still counts.
func (p *Policy) Redeliver(events ...types.Event) {
	var dropped []types.Event

	p.mu.Lock()
	for _, ev := range events {
		left, tracked := p.remaining[ev.MessageID]
		if !tracked {
			left = p.retryCount
		}

		left--
		if left > 0 {
			p.remaining[ev.MessageID] = left
			p.push(ev)
			continue
		}

		delete(p.remaining, ev.MessageID)
		p.unqueue(ev.MessageID)
		dropped = append(dropped, ev)
	}
	p.publish()
	handler := p.onBackout
	p.mu.Unlock()

	for _, ev := range dropped {
		metrics.RedeliveryBackouts.Inc()
		if handler != nil {
			handler(ev)
			continue
		}
		p.OnBackout(ev)
	}
}

// Delivered clears tracking for each event, including any queued retry.
func (p *Policy) Delivered(events ...types.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ev := range events {
		delete(p.remaining, ev.MessageID)
		p.unqueue(ev.MessageID)
	}
	p.publish()
}

// NextRedeliver pops the oldest pending event.
func (p *Policy) NextRedeliver() (types.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) == 0 {
		return types.Event{}, false
	}
	ev := p.pending[0]
	p.pending[0] = types.Event{}
	p.pending = p.pending[1:]
	delete(p.queued, ev.MessageID)
	p.publish()
	return ev, true
}

// OnBackout is the default backout behavior.
func (p *Policy) OnBackout(ev types.Event) {
	p.log.Error("giving up on %s after %d attempts", ev.MessageID, p.retryCount)
}

// Remaining reports the attempts left for id and whether it is tracked at all.
func (p *Policy) Remaining(id string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.remaining[id]
	return n, ok
}

func (p *Policy) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Policy) push(ev types.Event) {
	if _, ok := p.queued[ev.MessageID]; ok {
		return
	}
	p.queued[ev.MessageID] = struct{}{}
	p.pending = append(p.pending, ev)
}

func (p *Policy) unqueue(id string) {
	if _, ok := p.queued[id]; !ok {
		return
	}
	delete(p.queued, id)
	for i, ev := range p.pending {
		if ev.MessageID == id {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return
		}
	}
}

func (p *Policy) publish() {
	metrics.RedeliveryPending.Set(float64(len(p.pending)))
}
