package fakeauditrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/go-tenant-admin/audit"
	"github.com/jrsteele09/go-tenant-admin/internal/utils"
)

var _ audit.Repo = (*FakeAuditRepo)(nil)

type FakeAuditRepo struct {
	events []*audit.Event
	lock   sync.RWMutex
}

func NewFakeAuditRepo() *FakeAuditRepo {
	return &FakeAuditRepo{}
}

func (r *FakeAuditRepo) Insert(_ context.Context, event *audit.Event) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	e := *event
	r.events = append(r.events, &e)
	return nil
}

func (r *FakeAuditRepo) List(_ context.Context, filter audit.ListFilter) (audit.ListResult, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	matched := make([]*audit.Event, 0)
	for _, e := range r.events {
		if filter.Matches(e) {
			c := *e
			matched = append(matched, &c)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := utils.NormalisePage(filter.Offset, filter.Limit)
	return audit.ListResult{
		Events: utils.Paginate(matched, page),
		Total:  len(matched),
		Offset: page.Offset,
		Limit:  page.Limit,
	}, nil
}
