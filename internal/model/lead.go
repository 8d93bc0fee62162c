package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Lead is a normalized prospect record. Email (lowercased, trimmed) is the
// natural key: ingesting the same address twice updates the existing row.
type Lead struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	FirstName       string          `json:"first_name,omitempty"`
	LastName        string          `json:"last_name,omitempty"`
	FullName        string          `json:"full_name,omitempty"`
	Title           string          `json:"title,omitempty"`
	Seniority       string          `json:"seniority,omitempty"`
	CompanyName     string          `json:"company_name,omitempty"`
	CompanyDomain   string          `json:"company_domain,omitempty"`
	CompanySize     string          `json:"company_size,omitempty"`
	CompanyIndustry string          `json:"company_industry,omitempty"`
	Location        string          `json:"location,omitempty"`
	City            string          `json:"city,omitempty"`
	State           string          `json:"state,omitempty"`
	Country         string          `json:"country,omitempty"`
	LinkedInURL     string          `json:"linkedin_url,omitempty"`
	EmailVerified   bool            `json:"email_verified"`
	Phone           string          `json:"phone,omitempty"`
	Source          string          `json:"source,omitempty"`
	RawData         json.RawMessage `json:"raw_data,omitempty"`
	RunID           string          `json:"run_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NormalizeEmail returns the canonical dedup key form of an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Merge overlays incoming onto l field by field: a non-empty incoming value
// wins, an empty one keeps the existing value. EmailVerified merges via OR
// since an unset flag must not clear a verified one. The merge is explicit
// per column so the override contract stays auditable.
func (l *Lead) Merge(incoming Lead) {
	pick := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	pick(&l.FirstName, incoming.FirstName)
	pick(&l.LastName, incoming.LastName)
	pick(&l.FullName, incoming.FullName)
	pick(&l.Title, incoming.Title)
	pick(&l.Seniority, incoming.Seniority)
	pick(&l.CompanyName, incoming.CompanyName)
	pick(&l.CompanyDomain, incoming.CompanyDomain)
	pick(&l.CompanySize, incoming.CompanySize)
	pick(&l.CompanyIndustry, incoming.CompanyIndustry)
	pick(&l.Location, incoming.Location)
	pick(&l.City, incoming.City)
	pick(&l.State, incoming.State)
	pick(&l.Country, incoming.Country)
	pick(&l.LinkedInURL, incoming.LinkedInURL)
	pick(&l.Phone, incoming.Phone)
	l.EmailVerified = l.EmailVerified || incoming.EmailVerified
	if len(incoming.RawData) > 0 {
		l.RawData = incoming.RawData
	}
}

// CompanySizeBucket maps an employee count onto the fixed size bands used
// across adapters and scoring. Zero or negative counts yield "".
func CompanySizeBucket(employees int) string {
	switch {
	case employees <= 0:
		return ""
	case employees <= 50:
		return "1-50"
	case employees <= 200:
		return "51-200"
	case employees <= 500:
		return "201-500"
	case employees <= 1000:
		return "501-1000"
	default:
		return "1000+"
	}
}
