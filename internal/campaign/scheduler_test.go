package campaign

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/shepherd/internal/db"
	"github.com/zulandar/shepherd/internal/directory"
	"github.com/zulandar/shepherd/internal/models"
	"github.com/zulandar/shepherd/internal/transport"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ---------------------------------------------------------------------------
// Stub gateway
// ---------------------------------------------------------------------------

type stubGateway struct {
	birthdays    []directory.Person
	visitors     []directory.Person
	events       []models.Event
	members      map[string][]directory.Person
	visitorsErr  error
	birthdaysErr error
}

func (g *stubGateway) FindIdentityRecord(string) (*directory.Person, error) { return nil, nil }
func (g *stubGateway) ListTenantsForIdentity(string) ([]directory.Membership, error) {
	return nil, nil
}
func (g *stubGateway) GetTenantProfile(string) (*models.Tenant, error) { return nil, nil }
func (g *stubGateway) ListMembers(tenantID string) ([]directory.Person, error) {
	return g.members[tenantID], nil
}
func (g *stubGateway) ListVisitors(string) ([]directory.Person, error) { return nil, nil }
func (g *stubGateway) ListEvents(string) ([]models.Event, error)       { return nil, nil }
func (g *stubGateway) ListAllBirthdaysToday() ([]directory.Person, error) {
	return g.birthdays, g.birthdaysErr
}
func (g *stubGateway) ListRecentVisitors(int) ([]directory.Person, error) {
	return g.visitors, g.visitorsErr
}
func (g *stubGateway) ListUpcomingEvents(int) ([]models.Event, error) { return g.events, nil }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func testScheduler(t *testing.T, gw directory.Gateway, clock *fakeClock) (*Scheduler, *transport.MockAdapter) {
	t.Helper()
	adapter := transport.NewMockAdapter()
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("connect mock: %v", err)
	}
	dispatcher, err := NewDispatcher(DispatcherOpts{
		Adapter: adapter,
		Pacer:   NopPacer(),
		Out:     &strings.Builder{},
	})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	sched, err := NewScheduler(SchedulerOpts{
		Gateway:    gw,
		Dispatcher: dispatcher,
		Now:        clock.Now,
		Out:        &strings.Builder{},
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return sched, adapter
}

// ---------------------------------------------------------------------------
// Anchor and at-most-once semantics
// ---------------------------------------------------------------------------

func TestScheduler_FiresOnceAfterAnchor(t *testing.T) {
	gw := &stubGateway{birthdays: []directory.Person{{Name: "Maria", Phone: "5571911112222"}}}
	clock := &fakeClock{now: time.Date(2026, 8, 30, 8, 59, 0, 0, time.UTC)}
	sched, adapter := testScheduler(t, gw, clock)
	ctx := context.Background()

	// Before the anchor nothing fires.
	sched.onTick(ctx)
	if adapter.SentCount() != 0 {
		t.Fatalf("fired before anchor: %d sends", adapter.SentCount())
	}

	// At the anchor minute the run fires exactly once, even with repeated
	// ticks inside the same minute and later the same day.
	clock.now = time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	sched.onTick(ctx)
	if adapter.SentCount() != 1 {
		t.Fatalf("SentCount = %d after anchor, want 1", adapter.SentCount())
	}
	sched.onTick(ctx)
	clock.now = time.Date(2026, 8, 30, 15, 30, 0, 0, time.UTC)
	sched.onTick(ctx)
	if adapter.SentCount() != 1 {
		t.Errorf("SentCount = %d, want still 1 (at most once per day)", adapter.SentCount())
	}
	if !sched.Status().HasRunToday {
		t.Error("HasRunToday not set")
	}
}

func TestScheduler_MidnightResetAllowsNextDay(t *testing.T) {
	gw := &stubGateway{birthdays: []directory.Person{{Name: "Maria", Phone: "5571911112222"}}}
	clock := &fakeClock{now: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)}
	sched, adapter := testScheduler(t, gw, clock)
	ctx := context.Background()

	sched.onTick(ctx)
	if adapter.SentCount() != 1 {
		t.Fatalf("SentCount = %d, want 1", adapter.SentCount())
	}

	// Crossing midnight resets the flag; the next anchor fires again.
	clock.now = time.Date(2026, 8, 31, 0, 0, 30, 0, time.UTC)
	sched.onTick(ctx)
	if sched.Status().HasRunToday {
		t.Error("flag not reset after midnight")
	}
	clock.now = time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	sched.onTick(ctx)
	if adapter.SentCount() != 2 {
		t.Errorf("SentCount = %d, want 2 after next-day anchor", adapter.SentCount())
	}
}

func TestScheduler_RunNowIgnoresAnchor(t *testing.T) {
	gw := &stubGateway{birthdays: []directory.Person{{Name: "Maria", Phone: "5571911112222"}}}
	clock := &fakeClock{now: time.Date(2026, 8, 30, 7, 0, 0, 0, time.UTC)}
	sched, adapter := testScheduler(t, gw, clock)

	if err := sched.RunNow(context.Background()); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if adapter.SentCount() != 1 {
		t.Errorf("SentCount = %d, want 1", adapter.SentCount())
	}
	if !sched.Status().HasRunToday {
		t.Error("manual run did not set HasRunToday")
	}
}

func TestScheduler_CampaignFailureIsIsolated(t *testing.T) {
	gw := &stubGateway{
		birthdays:   []directory.Person{{Name: "Maria", Phone: "5571911112222"}},
		visitorsErr: errors.New("store down"),
		events: []models.Event{
			{TenantID: "central", Title: "Conferência", StartDate: time.Date(2026, 9, 2, 19, 0, 0, 0, time.UTC)},
		},
		members: map[string][]directory.Person{
			"central": {{Name: "João", Phone: "5571933334444"}},
		},
	}
	clock := &fakeClock{now: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)}
	sched, adapter := testScheduler(t, gw, clock)

	report, err := sched.run(context.Background(), false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Birthday and event messages went out despite the visitor pull failing.
	if adapter.SentCount() != 2 {
		t.Errorf("SentCount = %d, want 2", adapter.SentCount())
	}
	if len(report.Campaigns) != 3 {
		t.Fatalf("got %d campaign results, want 3", len(report.Campaigns))
	}
	if report.Campaigns[1].Campaign != "visitors" || !strings.Contains(report.Campaigns[1].Err, "store down") {
		t.Errorf("visitors result = %+v", report.Campaigns[1])
	}
	if report.Campaigns[0].Summary.Sent != 1 || report.Campaigns[2].Summary.Sent != 1 {
		t.Errorf("summaries = %+v / %+v", report.Campaigns[0].Summary, report.Campaigns[2].Summary)
	}
	if !sched.Status().HasRunToday {
		t.Error("a failing campaign must not block the hasRunToday flip")
	}
}

func TestScheduler_ReportsFlowToChannel(t *testing.T) {
	gw := &stubGateway{}
	clock := &fakeClock{now: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)}
	adapter := transport.NewMockAdapter()
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("connect mock: %v", err)
	}
	dispatcher, err := NewDispatcher(DispatcherOpts{Adapter: adapter, Pacer: NopPacer(), Out: &strings.Builder{}})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	reports := make(chan RunReport, 1)
	sched, err := NewScheduler(SchedulerOpts{
		Gateway:    gw,
		Dispatcher: dispatcher,
		Reports:    reports,
		Now:        clock.Now,
		Out:        &strings.Builder{},
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	if err := sched.RunNow(context.Background()); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	select {
	case report := <-reports:
		if report.Date != "2026-08-30" || !report.Manual {
			t.Errorf("report = %+v", report)
		}
	default:
		t.Fatal("no report delivered")
	}
}

func TestScheduler_InvalidAnchorCron(t *testing.T) {
	gw := &stubGateway{}
	adapter := transport.NewMockAdapter()
	dispatcher, err := NewDispatcher(DispatcherOpts{Adapter: adapter, Out: &strings.Builder{}})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	_, err = NewScheduler(SchedulerOpts{Gateway: gw, Dispatcher: dispatcher, AnchorCron: "not a cron"})
	if err == nil {
		t.Fatal("invalid cron accepted")
	}
}

// ---------------------------------------------------------------------------
// End to end over a real store
// ---------------------------------------------------------------------------

func TestScheduler_BirthdayRunEndToEnd(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	store, err := directory.NewStore(directory.StoreOpts{DB: gdb, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	// A has no birthday today; B does. Both phones are stored raw and must
	// come back canonicalized.
	if err := gdb.Create(&models.Member{TenantID: "central", Name: "A", Phone: "71988880000", BirthDate: "15/01/1990"}).Error; err != nil {
		t.Fatalf("create A: %v", err)
	}
	if err := gdb.Create(&models.Member{TenantID: "central", Name: "B", Phone: "5571999121838", BirthDate: "30/08/1985"}).Error; err != nil {
		t.Fatalf("create B: %v", err)
	}

	clock := &fakeClock{now: now}
	adapter := transport.NewMockAdapter()
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("connect mock: %v", err)
	}
	dispatcher, err := NewDispatcher(DispatcherOpts{Adapter: adapter, Pacer: NopPacer(), Out: &strings.Builder{}})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	sched, err := NewScheduler(SchedulerOpts{
		Gateway:    store,
		Dispatcher: dispatcher,
		DB:         gdb,
		Now:        clock.Now,
		Out:        &strings.Builder{},
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	report, err := sched.run(context.Background(), false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	birthdays := report.Campaigns[0]
	want := Summary{Total: 1, Sent: 1, Failed: 0, Skipped: 0}
	if birthdays.Summary != want {
		t.Errorf("birthday summary = %+v, want %+v", birthdays.Summary, want)
	}
	sent := adapter.AllSent()
	if len(sent) != 1 || sent[0].To != "557199121838" {
		t.Fatalf("sent = %+v, want exactly one message to B's canonical phone", sent)
	}
	if !strings.Contains(sent[0].Text, "B") {
		t.Errorf("message = %q", sent[0].Text)
	}

	// The run log persisted one row per campaign.
	var runs []models.CampaignRun
	if err := gdb.Order("id").Find(&runs).Error; err != nil {
		t.Fatalf("load runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d CampaignRun rows, want 3", len(runs))
	}
	if runs[0].Campaign != "birthdays" || runs[0].Sent != 1 || runs[0].RunDate != "2026-08-30" {
		t.Errorf("run row = %+v", runs[0])
	}
}
