// Package notify forwards campaign run reports to operator channels.
// Reports arrive over a channel from the scheduler; delivery is best-effort
// and never feeds back into scheduling.
package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/zulandar/shepherd/internal/campaign"
)

// Sink delivers one run report to some operator channel.
type Sink interface {
	Deliver(ctx context.Context, report campaign.RunReport) error
}

// Notifier fans run reports out to its sinks. One sink's failure does not
// stop delivery to the others.
type Notifier struct {
	sinks []Sink
	out   io.Writer
}

// NotifierOpts holds parameters for creating a Notifier.
type NotifierOpts struct {
	Sinks []Sink
	Out   io.Writer // defaults to os.Stdout
}

// NewNotifier creates a Notifier. Zero sinks is valid; reports are then
// consumed and logged only.
func NewNotifier(opts NotifierOpts) *Notifier {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Notifier{sinks: opts.Sinks, out: out}
}

// Run consumes reports until the channel closes or ctx is cancelled.
func (n *Notifier) Run(ctx context.Context, reports <-chan campaign.RunReport) {
	for {
		select {
		case report, ok := <-reports:
			if !ok {
				return
			}
			n.deliver(ctx, report)
		case <-ctx.Done():
			return
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, report campaign.RunReport) {
	fmt.Fprintf(n.out, "notify: run report %s (%d campaigns)\n", report.Date, len(report.Campaigns))
	for _, sink := range n.sinks {
		if err := sink.Deliver(ctx, report); err != nil {
			log.Printf("notify: deliver: %v", err)
		}
	}
}

// FormatReport renders one run report as chat text.
func FormatReport(report campaign.RunReport) string {
	var b strings.Builder
	b.WriteString("✅ *Verificação diária concluída*\n")
	fmt.Fprintf(&b, "📅 %s", report.Date)
	if report.Manual {
		b.WriteString(" (execução manual)")
	}
	b.WriteString("\n")
	labels := map[string]string{
		"birthdays": "🎂 Aniversariantes",
		"visitors":  "👥 Visitantes",
		"events":    "📅 Eventos",
	}
	for _, c := range report.Campaigns {
		label := labels[c.Campaign]
		if label == "" {
			label = c.Campaign
		}
		if c.Err != "" {
			fmt.Fprintf(&b, "%s: ❌ %s\n", label, c.Err)
			continue
		}
		fmt.Fprintf(&b, "%s: %d enviados, %d falhas, %d pulados (total %d)\n",
			label, c.Summary.Sent, c.Summary.Failed, c.Summary.Skipped, c.Summary.Total)
	}
	return strings.TrimRight(b.String(), "\n")
}
