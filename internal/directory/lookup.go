package directory

import (
	"errors"
	"strings"

	"github.com/zulandar/shepherd/internal/models"
	"gorm.io/gorm"
)

// lookupStrategy is one step of the tenant resolution chain. A miss is
// (nil, nil) so the chain can move on to the next step.
type lookupStrategy interface {
	tryResolve(db *gorm.DB, key string) (*models.Tenant, error)
}

// defaultLookupChain resolves a tenant key in order: exact primary key,
// registered alias, then a case-insensitive name scan.
func defaultLookupChain() []lookupStrategy {
	return []lookupStrategy{
		byID{},
		byAlias{},
		byNameScan{},
	}
}

// byID matches the tenant primary key exactly.
type byID struct{}

func (byID) tryResolve(db *gorm.DB, key string) (*models.Tenant, error) {
	var t models.Tenant
	err := db.First(&t, "id = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// byAlias consults the alias table, then loads the aliased tenant.
type byAlias struct{}

func (byAlias) tryResolve(db *gorm.DB, key string) (*models.Tenant, error) {
	var a models.TenantAlias
	err := db.First(&a, "alias = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return byID{}.tryResolve(db, a.TenantID)
}

// byNameScan walks all tenants and matches on name, first exact
// case-insensitive, then substring. Last resort for legacy keys that were
// display names rather than ids.
type byNameScan struct{}

func (byNameScan) tryResolve(db *gorm.DB, key string) (*models.Tenant, error) {
	var tenants []models.Tenant
	if err := db.Order("id").Find(&tenants).Error; err != nil {
		return nil, err
	}

	lower := strings.ToLower(key)
	for i := range tenants {
		if strings.ToLower(tenants[i].Name) == lower {
			return &tenants[i], nil
		}
	}
	for i := range tenants {
		if strings.Contains(strings.ToLower(tenants[i].Name), lower) {
			return &tenants[i], nil
		}
	}
	return nil, nil
}
