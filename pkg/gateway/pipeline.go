package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/downfa11-org/go-journal/pkg/redelivery"
	"github.com/downfa11-org/go-journal/pkg/types"
	"github.com/downfa11-org/go-journal/util"
)

// Sender is the outbound transport. A returned error is treated as transient.
type Sender interface {
	Send(ctx context.Context, ev types.Event) error
}

// Pipeline journals every outgoing message before it is sent, so an unconfirmed message
// survives a crash and comes back through the journal's Read queue. Send failures within
// the process are retried through the redelivery policy.
type Pipeline struct {
	journal types.Journal
	policy  *redelivery.Policy
	sender  Sender
	log     *util.Logger
}

func NewPipeline(j types.Journal, policy *redelivery.Policy, sender Sender) *Pipeline {
	return &Pipeline{
		journal: j,
		policy:  policy,
		sender:  sender,
		log:     util.NewLogger("gateway"),
	}
}

// Send journals msg under id and hands it to the sender. A send failure is not returned
// to the caller: the message is durable and will be retried.
func (p *Pipeline) Send(ctx context.Context, id string, msg *types.Message) error {
	if id == "" {
		id = util.NewMessageID()
	}
	if err := p.journal.Create(id, msg); err != nil {
		return fmt.Errorf("journal %s: %w", id, err)
	}
	p.deliver(ctx, types.Event{MessageID: id, Message: msg})
	return nil
}

// Confirm is called once the receiver acknowledged id. Duplicate confirmations are fine.
func (p *Pipeline) Confirm(id string) (bool, error) {
	p.policy.Delivered(types.Event{MessageID: id})
	return p.journal.Delete(id)
}

// Pump resends everything currently waiting in the retry queue, then everything the
// journal republished. It returns the number of send attempts made.
func (p *Pipeline) Pump(ctx context.Context) int {
	attempts := 0
	for ctx.Err() == nil {
		ev, ok := p.policy.NextRedeliver()
		if !ok {
			break
		}
		p.deliver(ctx, ev)
		attempts++
	}
	for ctx.Err() == nil {
		entry, ok := p.journal.Read()
		if !ok {
			break
		}
		p.deliver(ctx, types.Event{MessageID: entry.MessageID, Message: entry.Message})
		attempts++
	}
	return attempts
}

// Run pumps every interval until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.Pump(ctx); n > 0 {
				p.log.Debug("pumped %d events", n)
			}
		}
	}
}

func (p *Pipeline) deliver(ctx context.Context, ev types.Event) {
	err := p.sender.Send(ctx, ev)
	if err == nil {
		p.policy.Delivered(ev)
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// still journaled; picked up again after restart or the next sweep
		return
	}
	p.log.Warn("send %s failed: %v", ev.MessageID, err)
	p.policy.Redeliver(ev)
}
