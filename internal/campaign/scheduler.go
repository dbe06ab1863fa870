package campaign

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/shepherd/internal/directory"
	"github.com/zulandar/shepherd/internal/models"
	"gorm.io/gorm"
)

// Default scheduler values.
const (
	DefaultAnchorCron   = "0 9 * * *"
	DefaultTick         = time.Minute
	DefaultStartupDelay = 2 * time.Second
	DefaultLookback     = 7
	DefaultLookahead    = 7
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// RunReport describes one daily run: when it ran and how each campaign went.
type RunReport struct {
	Date       string // local calendar day, YYYY-MM-DD
	StartedAt  time.Time
	FinishedAt time.Time
	Manual     bool
	Campaigns  []CampaignResult
}

// CampaignResult is the outcome of one campaign within a run.
type CampaignResult struct {
	Campaign string // "birthdays", "visitors", "events"
	Summary  Summary
	Err      string // pull failure detail, empty on success
}

// StatusSnapshot is the scheduler state exposed to the admin surfaces.
type StatusSnapshot struct {
	State       string     `json:"state"` // "idle", "running", "done_today"
	HasRunToday bool       `json:"hasRunToday"`
	AnchorCron  string     `json:"anchorCron"`
	LastReport  *RunReport `json:"lastReport,omitempty"`
}

// Scheduler fires the three daily campaigns at most once per local calendar
// day, anchored at a cron-configured time. A minute tick checks the anchor;
// the flag resets at local midnight; only one run may be in flight.
type Scheduler struct {
	gateway    directory.Gateway
	dispatcher *Dispatcher
	db         *gorm.DB // optional; persists CampaignRun rows
	schedule   cron.Schedule
	anchorExpr string
	tick       time.Duration
	startDelay time.Duration
	lookback   int
	lookahead  int
	reports    chan<- RunReport
	now        func() time.Time
	out        io.Writer

	mu          sync.Mutex
	running     bool
	hasRunToday bool
	currentDay  string
	lastReport  *RunReport
}

// SchedulerOpts holds parameters for creating a Scheduler.
type SchedulerOpts struct {
	Gateway    directory.Gateway
	Dispatcher *Dispatcher
	DB         *gorm.DB // optional run log
	AnchorCron string   // 5-field cron, defaults to DefaultAnchorCron (09:00)
	Tick       time.Duration
	// StartupDelay bounds the late-start guard: when the process starts
	// after the anchor on a day that has not run, the run fires after this
	// delay so dependent subsystems can finish initializing.
	StartupDelay        time.Duration
	VisitorLookbackDays int
	EventLookaheadDays  int
	Reports             chan<- RunReport // optional; best-effort delivery
	Now                 func() time.Time // defaults to time.Now
	Out                 io.Writer        // defaults to os.Stdout
}

// NewScheduler creates a Scheduler.
func NewScheduler(opts SchedulerOpts) (*Scheduler, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("campaign: scheduler: gateway is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("campaign: scheduler: dispatcher is required")
	}
	expr := opts.AnchorCron
	if expr == "" {
		expr = DefaultAnchorCron
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("campaign: scheduler: parse anchor %q: %w", expr, err)
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	startDelay := opts.StartupDelay
	if startDelay <= 0 {
		startDelay = DefaultStartupDelay
	}
	lookback := opts.VisitorLookbackDays
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	lookahead := opts.EventLookaheadDays
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Scheduler{
		gateway:    opts.Gateway,
		dispatcher: opts.Dispatcher,
		db:         opts.DB,
		schedule:   schedule,
		anchorExpr: expr,
		tick:       tick,
		startDelay: startDelay,
		lookback:   lookback,
		lookahead:  lookahead,
		reports:    opts.Reports,
		now:        now,
		out:        out,
		currentDay: now().Format("2006-01-02"),
	}, nil
}

// Start runs the tick loop until ctx is cancelled. It returns immediately;
// ticks and runs happen on a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	fmt.Fprintf(s.out, "campaign: scheduler: started (anchor %q, tick %s)\n", s.anchorExpr, s.tick)

	// Late-start guard: if the process comes up after the anchor on a day
	// that has not run yet, fire once after a short delay instead of
	// waiting for tomorrow.
	if s.anchorReached(s.now()) {
		fmt.Fprintf(s.out, "campaign: scheduler: anchor already passed, running after %s\n", s.startDelay)
		go func() {
			select {
			case <-time.After(s.startDelay):
				s.onTick(ctx)
			case <-ctx.Done():
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.onTick(ctx)
			case <-ctx.Done():
				fmt.Fprintf(s.out, "campaign: scheduler: stopped\n")
				return
			}
		}
	}()
}

// onTick advances the day boundary and fires the daily run when the anchor
// has been reached and today has not run yet. A tick during a run is a no-op.
func (s *Scheduler) onTick(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	day := now.Format("2006-01-02")
	if day != s.currentDay {
		s.currentDay = day
		s.hasRunToday = false
		fmt.Fprintf(s.out, "campaign: scheduler: new day %s, flag reset\n", day)
	}
	due := !s.hasRunToday && !s.running && s.anchorReached(now)
	s.mu.Unlock()

	if due {
		if _, err := s.run(ctx, false); err != nil {
			log.Printf("campaign: scheduler: daily run: %v", err)
		}
	}
}

// anchorReached reports whether today's anchor time has passed.
func (s *Scheduler) anchorReached(now time.Time) bool {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	anchor := s.schedule.Next(midnight.Add(-time.Second))
	return anchor.Year() == now.Year() && anchor.YearDay() == now.YearDay() && !now.Before(anchor)
}

// RunNow triggers the daily run immediately, regardless of the anchor.
// Returns an error when a run is already in flight.
func (s *Scheduler) RunNow(ctx context.Context) error {
	_, err := s.run(ctx, true)
	return err
}

// run executes the three campaigns in sequence. Each campaign's failure is
// isolated; hasRunToday flips regardless of individual campaign errors.
func (s *Scheduler) run(ctx context.Context, manual bool) (*RunReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("campaign: scheduler: run already in progress")
	}
	s.running = true
	s.mu.Unlock()

	started := s.now()
	report := &RunReport{
		Date:      started.Format("2006-01-02"),
		StartedAt: started,
		Manual:    manual,
	}
	fmt.Fprintf(s.out, "campaign: scheduler: daily run started (%s)\n", report.Date)

	report.Campaigns = append(report.Campaigns, s.runBirthdays(ctx))
	report.Campaigns = append(report.Campaigns, s.runVisitors(ctx))
	report.Campaigns = append(report.Campaigns, s.runEvents(ctx))
	report.FinishedAt = s.now()

	s.persistRuns(report)

	s.mu.Lock()
	s.running = false
	s.hasRunToday = true
	s.currentDay = report.Date
	s.lastReport = report
	s.mu.Unlock()

	if s.reports != nil {
		select {
		case s.reports <- *report:
		default:
			log.Printf("campaign: scheduler: report channel full, dropping report")
		}
	}

	fmt.Fprintf(s.out, "campaign: scheduler: daily run finished\n")
	return report, nil
}

// persistRuns writes one CampaignRun row per campaign, best-effort.
func (s *Scheduler) persistRuns(report *RunReport) {
	if s.db == nil {
		return
	}
	for _, c := range report.Campaigns {
		row := models.CampaignRun{
			Campaign: c.Campaign,
			RunDate:  report.Date,
			Total:    c.Summary.Total,
			Sent:     c.Summary.Sent,
			Failed:   c.Summary.Failed,
			Skipped:  c.Summary.Skipped,
			Error:    c.Err,
		}
		if err := s.db.Create(&row).Error; err != nil {
			log.Printf("campaign: scheduler: persist run %s: %v", c.Campaign, err)
		}
	}
}

// Status returns the scheduler state for the admin surfaces.
func (s *Scheduler) Status() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := "idle"
	switch {
	case s.running:
		state = "running"
	case s.hasRunToday:
		state = "done_today"
	}
	return StatusSnapshot{
		State:       state,
		HasRunToday: s.hasRunToday,
		AnchorCron:  s.anchorExpr,
		LastReport:  s.lastReport,
	}
}

// StatusText renders the scheduler state for the operator chat channel.
func (s *Scheduler) StatusText() string {
	snap := s.Status()
	text := fmt.Sprintf("🔄 Verificações automáticas: %s\nEstado: %s", snap.AnchorCron, snap.State)
	if snap.LastReport != nil {
		text += fmt.Sprintf("\nÚltima execução: %s", snap.LastReport.Date)
		for _, c := range snap.LastReport.Campaigns {
			text += fmt.Sprintf("\n• %s: %s", c.Campaign, c.Summary)
			if c.Err != "" {
				text += fmt.Sprintf(" (erro: %s)", c.Err)
			}
		}
	}
	return text
}
