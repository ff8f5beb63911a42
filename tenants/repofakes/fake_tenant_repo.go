package tenantrepofakes

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/jrsteele09/go-tenant-admin/internal/utils"
	"github.com/jrsteele09/go-tenant-admin/tenants"
)

var _ tenants.Repo = (*FakeTenantRepo)(nil)

type FakeTenantRepo struct {
	tenants map[string]*tenants.Tenant
	lock    sync.RWMutex
}

func NewFakeTenantRepo() tenants.Repo {
	return &FakeTenantRepo{
		tenants: make(map[string]*tenants.Tenant),
	}
}

func (tr *FakeTenantRepo) Upsert(_ context.Context, tenantData *tenants.Tenant) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tenantData.ID == "" {
		tenantData.ID = uuid.New().String()
	}
	for _, t := range tr.tenants {
		if t.Slug == tenantData.Slug && t.ID != tenantData.ID {
			return apperrors.ErrSlugTaken
		}
	}
	stored := *tenantData
	tr.tenants[tenantData.ID] = &stored
	return nil
}

func (tr *FakeTenantRepo) Delete(_ context.Context, tenantID string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if _, ok := tr.tenants[tenantID]; !ok {
		return apperrors.ErrTenantNotFound
	}
	delete(tr.tenants, tenantID)
	return nil
}

func (tr *FakeTenantRepo) Get(_ context.Context, tenantID string) (*tenants.Tenant, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	t, ok := tr.tenants[tenantID]
	if !ok {
		return nil, apperrors.ErrTenantNotFound
	}
	c := *t
	return &c, nil
}

func (tr *FakeTenantRepo) GetBySlug(_ context.Context, slug string) (*tenants.Tenant, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	for _, t := range tr.tenants {
		if t.Slug == slug {
			c := *t
			return &c, nil
		}
	}
	return nil, apperrors.ErrTenantNotFound
}

func (tr *FakeTenantRepo) List(_ context.Context, filter tenants.ListFilter) (tenants.ListResult, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	search := strings.ToLower(filter.Search)
	list := make([]*tenants.Tenant, 0)
	for _, t := range tr.tenants {
		if filter.Active != nil && t.Active != *filter.Active {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Name), search) && !strings.Contains(t.Slug, search) {
			continue
		}
		c := *t
		list = append(list, &c)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})

	page := utils.NormalisePage(filter.Offset, filter.Limit)
	return tenants.ListResult{
		Tenants: utils.Paginate(list, page),
		Total:   len(list),
		Offset:  page.Offset,
		Limit:   page.Limit,
	}, nil
}
