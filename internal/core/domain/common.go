package domain

import "time"

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"`
}

// CompanyRef identifies one (tenant, company) combination. Tenant and company
// records themselves are owned by external collaborators; the ledger only
// carries their identifiers.
type CompanyRef struct {
	TenantID  string `json:"tenantID"`
	CompanyID string `json:"companyID"`
}
