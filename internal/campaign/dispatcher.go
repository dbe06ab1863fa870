package campaign

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/zulandar/shepherd/internal/directory"
	"github.com/zulandar/shepherd/internal/transport"
)

// Status is the per-recipient outcome of one dispatch.
type Status string

const (
	StatusSent    Status = "enviado"
	StatusFailed  Status = "erro"
	StatusSkipped Status = "pulado"
)

// Result is the outcome for one recipient.
type Result struct {
	Recipient directory.Person
	Status    Status
	Err       string // transport error detail, empty unless StatusFailed
}

// Summary aggregates one dispatch. Callers use it for logging and the admin
// status surface, never for control flow.
type Summary struct {
	Total   int
	Sent    int
	Failed  int
	Skipped int
}

func (s Summary) String() string {
	return fmt.Sprintf("total=%d sent=%d failed=%d skipped=%d", s.Total, s.Sent, s.Failed, s.Skipped)
}

// RenderFunc builds the message text for one recipient.
type RenderFunc func(p directory.Person) string

// Dispatcher sends one message per recipient in fixed-size batches with
// pacing between sends and batches. Failures are recorded and isolated;
// nothing is retried.
type Dispatcher struct {
	adapter   transport.Adapter
	batchSize int
	pacer     Pacer
	out       io.Writer
}

// DispatcherOpts holds parameters for creating a Dispatcher.
type DispatcherOpts struct {
	Adapter   transport.Adapter
	BatchSize int       // defaults to DefaultBatchSize
	Pacer     Pacer     // defaults to NewSleepPacer with default delays
	Out       io.Writer // defaults to os.Stdout
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts DispatcherOpts) (*Dispatcher, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("campaign: dispatcher: adapter is required")
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	pacer := opts.Pacer
	if pacer == nil {
		pacer = NewSleepPacer(DefaultMessageDelay, DefaultBatchDelay)
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Dispatcher{
		adapter:   opts.Adapter,
		batchSize: batchSize,
		pacer:     pacer,
		out:       out,
	}, nil
}

// Dispatch sends render(p) to every recipient. Recipients without a phone
// are skipped without a transport call; a transport failure for one
// recipient is recorded and does not abort the batch or later batches.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []directory.Person, render RenderFunc) ([]Result, Summary) {
	results := make([]Result, 0, len(recipients))
	summary := Summary{Total: len(recipients)}

	batches := (len(recipients) + d.batchSize - 1) / d.batchSize
	for b := 0; b < batches; b++ {
		if b > 0 {
			d.pacer.BetweenBatches()
		}
		start := b * d.batchSize
		end := start + d.batchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		fmt.Fprintf(d.out, "campaign: dispatch: batch %d/%d (%d recipients)\n", b+1, batches, end-start)

		for _, p := range recipients[start:end] {
			if p.Phone == "" {
				summary.Skipped++
				results = append(results, Result{Recipient: p, Status: StatusSkipped})
				continue
			}
			d.pacer.BeforeMessage()
			err := d.adapter.Send(ctx, transport.OutboundMessage{To: p.Phone, Text: render(p)})
			if err != nil {
				summary.Failed++
				results = append(results, Result{Recipient: p, Status: StatusFailed, Err: err.Error()})
				fmt.Fprintf(d.out, "campaign: dispatch: send to %s failed: %v\n", p.Phone, err)
				continue
			}
			summary.Sent++
			results = append(results, Result{Recipient: p, Status: StatusSent})
		}
	}

	fmt.Fprintf(d.out, "campaign: dispatch: done (%s)\n", summary)
	return results, summary
}
