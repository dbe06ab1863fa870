// Package directory provides read access to tenant data: members, visitors,
// events, and tenant profiles, keyed by canonical phone identity.
package directory

import (
	"time"

	"github.com/zulandar/shepherd/internal/models"
)

// Person is the tenant-scoped view of a member or visitor record. Phone is
// always canonical (see internal/phone); BirthDate keeps the legacy
// DD/MM/YYYY spelling.
type Person struct {
	TenantID  string
	Name      string
	Phone     string
	BirthDate string
	VisitDate *time.Time
	Contacted bool
}

// Membership describes one tenant a person belongs to. Order within a slice
// follows store enumeration order and is only stable within one session.
type Membership struct {
	TenantID   string
	TenantName string
	Person     Person
}

// Gateway is the read contract the engagement engine needs from the
// directory store. Lookup misses are (nil, nil) / empty slices, not errors;
// a non-nil error means the store itself was unreachable.
type Gateway interface {
	// FindIdentityRecord returns the first member or visitor record whose
	// canonical phone equals identity, across all tenants.
	FindIdentityRecord(identity string) (*Person, error)

	// ListTenantsForIdentity returns every tenant membership for one
	// identity.
	ListTenantsForIdentity(identity string) ([]Membership, error)

	// GetTenantProfile resolves a tenant through the lookup fallback chain.
	GetTenantProfile(tenantID string) (*models.Tenant, error)

	ListMembers(tenantID string) ([]Person, error)
	ListVisitors(tenantID string) ([]Person, error)
	ListEvents(tenantID string) ([]models.Event, error)

	// ListAllBirthdaysToday returns persons across every tenant whose
	// birth day and month equal today's; the year is ignored.
	ListAllBirthdaysToday() ([]Person, error)

	// ListRecentVisitors returns persons across every tenant whose visit
	// date falls in [today-daysAgo, today] and who have not been contacted.
	ListRecentVisitors(daysAgo int) ([]Person, error)

	// ListUpcomingEvents returns events across every tenant whose start
	// date falls in [today, today+daysAhead].
	ListUpcomingEvents(daysAhead int) ([]models.Event, error)
}
