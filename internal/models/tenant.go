package models

import "encoding/json"

// Tenant is one independently administered church. Members, visitors, and
// events are scoped to exactly one tenant.
type Tenant struct {
	ID              string `gorm:"primaryKey;size:64"`
	Name            string `gorm:"size:128;not null"`
	Address         string `gorm:"type:text"`
	CEP             string `gorm:"size:16"`
	Phone           string `gorm:"size:32"`
	Email           string `gorm:"size:128"`
	PixKey          string `gorm:"size:128"`
	Phrase          string `gorm:"type:text"`
	PhraseOfDay     string `gorm:"type:text"`
	WorshipSchedule string `gorm:"type:json"`
}

// TenantAlias maps a legacy identifier (old collection keys, renamed ids)
// to a current tenant. Consulted by the profile lookup fallback chain.
type TenantAlias struct {
	Alias    string `gorm:"primaryKey;size:64"`
	TenantID string `gorm:"size:64;not null;index"`
}

// ServiceTime is one worship service slot within a weekday.
type ServiceTime struct {
	Name     string `json:"name"`
	Time     string `json:"time"`
	Minister string `json:"minister,omitempty"`
}

// Schedule parses the WorshipSchedule JSON column into a weekday map
// (lowercase English day names, e.g. "sunday"). Returns an empty map for
// an empty or malformed column.
func (t *Tenant) Schedule() map[string][]ServiceTime {
	if t.WorshipSchedule == "" {
		return map[string][]ServiceTime{}
	}
	var sched map[string][]ServiceTime
	if err := json.Unmarshal([]byte(t.WorshipSchedule), &sched); err != nil {
		return map[string][]ServiceTime{}
	}
	return sched
}
