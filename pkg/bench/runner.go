package bench

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/downfa11-org/go-journal/pkg/gateway"
	"github.com/downfa11-org/go-journal/pkg/journal"
	"github.com/downfa11-org/go-journal/pkg/redelivery"
	"github.com/downfa11-org/go-journal/pkg/types"
)

// discardSender acknowledges every event without sending it anywhere.
type discardSender struct{}

func (discardSender) Send(context.Context, types.Event) error { return nil }

type BenchmarkRunner struct {
	Store               *journal.Store
	NumProducers        int
	MessagesPerProducer int
	PayloadSize         int
	RetryCount          int
	Confirm             bool
}

type Result struct {
	Messages  int
	Failed    int64
	Confirmed int64
	Duration  time.Duration
}

func (r Result) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Messages) / r.Duration.Seconds()
}

func NewBenchmarkRunner(st *journal.Store, producers, messages, payloadSize, retryCount int, confirm bool) *BenchmarkRunner {
	return &BenchmarkRunner{
		Store:               st,
		NumProducers:        producers,
		MessagesPerProducer: messages,
		PayloadSize:         payloadSize,
		RetryCount:          retryCount,
		Confirm:             confirm,
	}
}

// Run pushes every message through the gateway pipeline and, when Confirm is set,
// acknowledges it right away.
func (b *BenchmarkRunner) Run(ctx context.Context) Result {
	p := gateway.NewPipeline(b.Store, redelivery.NewPolicy(b.RetryCount), discardSender{})
	body := []byte(strings.Repeat("x", b.PayloadSize))

	var failed, confirmed atomic.Int64
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < b.NumProducers; i++ {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			for n := 0; n < b.MessagesPerProducer; n++ {
				id := fmt.Sprintf("bench-%d-%d", pid, n)
				if err := p.Send(ctx, id, &types.Message{Body: body}); err != nil {
					failed.Add(1)
					continue
				}
				if !b.Confirm {
					continue
				}
				if ok, err := p.Confirm(id); err == nil && ok {
					confirmed.Add(1)
				}
			}
		}(i)
	}
	wg.Wait()

	return Result{
		Messages:  b.NumProducers * b.MessagesPerProducer,
		Failed:    failed.Load(),
		Confirmed: confirmed.Load(),
		Duration:  time.Since(start),
	}
}

func (b *BenchmarkRunner) Print(r Result) {
	fmt.Printf("\n🧪 BENCHMARK RESULT [journal] 🧪\n")
	fmt.Printf("-------------------------------------\n")
	fmt.Printf(" Producers     : %d\n", b.NumProducers)
	fmt.Printf(" Payload       : %d bytes\n", b.PayloadSize)
	fmt.Printf(" Total Messages: %d\n", r.Messages)
	fmt.Printf(" Failed        : %d\n", r.Failed)
	fmt.Printf(" Confirmed     : %d\n", r.Confirmed)
	fmt.Printf(" Duration      : %v\n", r.Duration)
	fmt.Printf(" Throughput    : %.2f msg/sec\n", r.Throughput())
	fmt.Printf("-------------------------------------\n")
}
