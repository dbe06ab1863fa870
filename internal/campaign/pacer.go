// Package campaign runs the daily notification sweeps (birthdays, visitor
// follow-up, event announcements) and the batched outbound dispatcher.
package campaign

import "time"

// Default outbound pacing values. WhatsApp throttles aggressive senders, so
// the dispatcher spaces messages within a batch and pauses between batches.
const (
	DefaultBatchSize    = 20
	DefaultMessageDelay = 500 * time.Millisecond
	DefaultBatchDelay   = 10 * time.Second
)

// Pacer controls outbound pacing. The dispatcher consults it before every
// send and between batches; tests inject a no-op to avoid wall-clock waits.
type Pacer interface {
	BeforeMessage()
	BetweenBatches()
}

type sleepPacer struct {
	messageDelay time.Duration
	batchDelay   time.Duration
}

// NewSleepPacer returns the production pacer: fixed sleeps between messages
// and between batches. Non-positive durations fall back to the defaults.
func NewSleepPacer(messageDelay, batchDelay time.Duration) Pacer {
	if messageDelay <= 0 {
		messageDelay = DefaultMessageDelay
	}
	if batchDelay <= 0 {
		batchDelay = DefaultBatchDelay
	}
	return &sleepPacer{messageDelay: messageDelay, batchDelay: batchDelay}
}

func (p *sleepPacer) BeforeMessage()  { time.Sleep(p.messageDelay) }
func (p *sleepPacer) BetweenBatches() { time.Sleep(p.batchDelay) }

type nopPacer struct{}

// NopPacer returns a pacer that never waits.
func NopPacer() Pacer { return nopPacer{} }

func (nopPacer) BeforeMessage()  {}
func (nopPacer) BetweenBatches() {}
