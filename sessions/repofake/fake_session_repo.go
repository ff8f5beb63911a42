package fakesessionrepo

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/jrsteele09/go-tenant-admin/internal/utils"
	"github.com/jrsteele09/go-tenant-admin/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	sessions map[string]*sessions.Session
	lock     sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{sessions: make(map[string]*sessions.Session)}
}

func (r *FakeSessionRepo) Upsert(_ context.Context, session *sessions.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	s := *session
	r.sessions[session.ID] = &s
	return nil
}

func (r *FakeSessionRepo) Get(_ context.Context, id string) (*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (r *FakeSessionRepo) List(_ context.Context, filter sessions.ListFilter) (sessions.ListResult, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	matched := make([]*sessions.Session, 0)
	for _, s := range r.sessions {
		if filter.Matches(s) {
			c := *s
			matched = append(matched, &c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := utils.NormalisePage(filter.Offset, filter.Limit)
	return sessions.ListResult{
		Sessions: utils.Paginate(matched, page),
		Total:    len(matched),
		Offset:   page.Offset,
		Limit:    page.Limit,
	}, nil
}
