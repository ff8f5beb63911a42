package tenants

import "context"

// ListFilter selects tenants. Active is tri-state: nil matches both.
type ListFilter struct {
	Search string // substring of name or slug, case-insensitive
	Active *bool
	Offset int
	Limit  int
}

// ListResult is one page of tenants plus the total match count
type ListResult struct {
	Tenants []*Tenant `json:"tenants"`
	Total   int       `json:"total"`
	Offset  int       `json:"offset"`
	Limit   int       `json:"limit"`
}

type Repo interface {
	Upsert(ctx context.Context, tenant *Tenant) error
	Delete(ctx context.Context, tenantID string) error
	Get(ctx context.Context, tenantID string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	List(ctx context.Context, filter ListFilter) (ListResult, error)
}
