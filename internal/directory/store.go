package directory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zulandar/shepherd/internal/models"
	"github.com/zulandar/shepherd/internal/phone"
	"gorm.io/gorm"
)

// Store implements Gateway over a GORM database.
type Store struct {
	db         *gorm.DB
	strategies []lookupStrategy
	now        func() time.Time
}

// StoreOpts holds parameters for creating a Store.
type StoreOpts struct {
	DB  *gorm.DB
	Now func() time.Time // defaults to time.Now; injectable for tests
}

// NewStore creates a Store with the default tenant lookup chain.
func NewStore(opts StoreOpts) (*Store, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("directory: store: db is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		db:         opts.DB,
		strategies: defaultLookupChain(),
		now:        now,
	}, nil
}

// FindIdentityRecord scans members first, then visitors, returning the first
// record whose canonical phone matches. Returns (nil, nil) when no record
// matches.
func (s *Store) FindIdentityRecord(identity string) (*Person, error) {
	if identity == "" {
		return nil, nil
	}

	var members []models.Member
	if err := s.db.Find(&members).Error; err != nil {
		return nil, fmt.Errorf("directory: find identity: %w", err)
	}
	for _, m := range members {
		if phone.Canonicalize(m.Phone) == identity {
			p := memberPerson(m)
			return &p, nil
		}
	}

	var visitors []models.Visitor
	if err := s.db.Find(&visitors).Error; err != nil {
		return nil, fmt.Errorf("directory: find identity: %w", err)
	}
	for _, v := range visitors {
		if phone.Canonicalize(v.Phone) == identity {
			p := visitorPerson(v)
			return &p, nil
		}
	}

	return nil, nil
}

// ListTenantsForIdentity returns one Membership per tenant where the
// identity appears as a member.
func (s *Store) ListTenantsForIdentity(identity string) ([]Membership, error) {
	if identity == "" {
		return nil, nil
	}

	var members []models.Member
	if err := s.db.Order("tenant_id").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("directory: list tenants for identity: %w", err)
	}

	var memberships []Membership
	for _, m := range members {
		if phone.Canonicalize(m.Phone) != identity {
			continue
		}
		name := m.TenantID
		if t, err := s.GetTenantProfile(m.TenantID); err == nil && t != nil {
			name = t.Name
		}
		memberships = append(memberships, Membership{
			TenantID:   m.TenantID,
			TenantName: name,
			Person:     memberPerson(m),
		})
	}
	return memberships, nil
}

// GetTenantProfile resolves a tenant through the ordered lookup chain;
// the first strategy that produces a tenant wins. Returns (nil, nil) when
// no strategy matches.
func (s *Store) GetTenantProfile(tenantID string) (*models.Tenant, error) {
	if tenantID == "" {
		return nil, nil
	}
	for _, strat := range s.strategies {
		t, err := strat.tryResolve(s.db, tenantID)
		if err != nil {
			return nil, fmt.Errorf("directory: tenant lookup %q: %w", tenantID, err)
		}
		if t != nil {
			return t, nil
		}
	}
	return nil, nil
}

// ListMembers returns all members of one tenant with normalized phones.
func (s *Store) ListMembers(tenantID string) ([]Person, error) {
	var members []models.Member
	if err := s.db.Where("tenant_id = ?", tenantID).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("directory: list members %s: %w", tenantID, err)
	}
	people := make([]Person, 0, len(members))
	for _, m := range members {
		people = append(people, memberPerson(m))
	}
	return people, nil
}

// ListVisitors returns all visitors of one tenant with normalized phones.
func (s *Store) ListVisitors(tenantID string) ([]Person, error) {
	var visitors []models.Visitor
	if err := s.db.Where("tenant_id = ?", tenantID).Find(&visitors).Error; err != nil {
		return nil, fmt.Errorf("directory: list visitors %s: %w", tenantID, err)
	}
	people := make([]Person, 0, len(visitors))
	for _, v := range visitors {
		people = append(people, visitorPerson(v))
	}
	return people, nil
}

// ListEvents returns all events of one tenant.
func (s *Store) ListEvents(tenantID string) ([]models.Event, error) {
	var events []models.Event
	if err := s.db.Where("tenant_id = ?", tenantID).Order("start_date").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("directory: list events %s: %w", tenantID, err)
	}
	return events, nil
}

// ListAllBirthdaysToday matches birth day+month against today across members
// and visitors of every tenant. The birth year is ignored entirely, so a
// record without a real year still matches; Feb 29 birthdates only match on
// Feb 29.
func (s *Store) ListAllBirthdaysToday() ([]Person, error) {
	now := s.now()
	day, month := now.Day(), int(now.Month())

	var people []Person

	var members []models.Member
	if err := s.db.Where("birth_date <> ''").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("directory: birthdays: %w", err)
	}
	for _, m := range members {
		if birthdayMatches(m.BirthDate, day, month) {
			people = append(people, memberPerson(m))
		}
	}

	var visitors []models.Visitor
	if err := s.db.Where("birth_date <> ''").Find(&visitors).Error; err != nil {
		return nil, fmt.Errorf("directory: birthdays: %w", err)
	}
	for _, v := range visitors {
		if birthdayMatches(v.BirthDate, day, month) {
			people = append(people, visitorPerson(v))
		}
	}

	return people, nil
}

// ListRecentVisitors returns uncontacted visitors across every tenant whose
// visit date falls within the lookback window, both ends inclusive at day
// granularity.
func (s *Store) ListRecentVisitors(daysAgo int) ([]Person, error) {
	now := s.now()
	from := startOfDay(now.AddDate(0, 0, -daysAgo))
	until := startOfDay(now).AddDate(0, 0, 1)

	var visitors []models.Visitor
	if err := s.db.
		Where("visit_date IS NOT NULL AND visit_date >= ? AND visit_date < ? AND contacted = ?", from, until, false).
		Find(&visitors).Error; err != nil {
		return nil, fmt.Errorf("directory: recent visitors: %w", err)
	}

	people := make([]Person, 0, len(visitors))
	for _, v := range visitors {
		people = append(people, visitorPerson(v))
	}
	return people, nil
}

// ListUpcomingEvents returns events across every tenant starting within the
// lookahead window, both ends inclusive at day granularity.
func (s *Store) ListUpcomingEvents(daysAhead int) ([]models.Event, error) {
	now := s.now()
	from := startOfDay(now)
	until := from.AddDate(0, 0, daysAhead+1)

	var events []models.Event
	if err := s.db.
		Where("start_date >= ? AND start_date < ?", from, until).
		Order("start_date").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("directory: upcoming events: %w", err)
	}
	return events, nil
}

// birthdayMatches parses a legacy DD/MM/YYYY birth date and compares day and
// month. Malformed dates never match.
func birthdayMatches(birthDate string, day, month int) bool {
	parts := strings.Split(birthDate, "/")
	if len(parts) != 3 {
		return false
	}
	d, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	return d == day && m == month
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func memberPerson(m models.Member) Person {
	return Person{
		TenantID:  m.TenantID,
		Name:      m.Name,
		Phone:     phone.Canonicalize(m.Phone),
		BirthDate: m.BirthDate,
	}
}

func visitorPerson(v models.Visitor) Person {
	return Person{
		TenantID:  v.TenantID,
		Name:      v.Name,
		Phone:     phone.Canonicalize(v.Phone),
		BirthDate: v.BirthDate,
		VisitDate: v.VisitDate,
		Contacted: v.Contacted,
	}
}
