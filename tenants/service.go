package tenants

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/pkg/errors"
)

// CreateRequest is the payload for creating a tenant. Slug is derived from
// Name when empty.
type CreateRequest struct {
	Name   string `json:"name"`
	Slug   string `json:"slug,omitempty"`
	Active *bool  `json:"active,omitempty"`
}

// UpdateRequest patches a tenant; nil fields are left unchanged.
type UpdateRequest struct {
	Name   *string `json:"name,omitempty"`
	Slug   *string `json:"slug,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// Service provides tenant management on top of a Repo
type Service struct {
	repo    Repo
	nowTime func() time.Time
}

func NewService(repo Repo, nowTime func() time.Time) *Service {
	if nowTime == nil {
		nowTime = time.Now
	}
	return &Service{repo: repo, nowTime: nowTime}
}

func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	res, err := s.repo.List(ctx, filter)
	if err != nil {
		return ListResult{}, errors.Wrap(err, "[Tenants List]")
	}
	return res, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Tenant, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Tenant, error) {
	now := s.nowTime().UTC()
	t := &Tenant{
		Name:      strings.TrimSpace(req.Name),
		Slug:      strings.TrimSpace(req.Slug),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if t.Slug == "" {
		t.Slug = Slugify(t.Name)
	}
	if req.Active != nil {
		t.Active = *req.Active
	}
	if err := t.Validate(); err != nil {
		return nil, apperrors.Invalid("%s", err.Error())
	}
	if _, err := s.repo.GetBySlug(ctx, t.Slug); err == nil {
		return nil, apperrors.ErrSlugTaken
	}
	if err := s.repo.Upsert(ctx, t); err != nil {
		return nil, errors.Wrap(err, "[Tenants Create]")
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Tenant, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		t.Name = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		t.Slug = strings.TrimSpace(*req.Slug)
	}
	if req.Active != nil {
		t.Active = *req.Active
	}
	if err := t.Validate(); err != nil {
		return nil, apperrors.Invalid("%s", err.Error())
	}
	if other, err := s.repo.GetBySlug(ctx, t.Slug); err == nil && other.ID != t.ID {
		return nil, apperrors.ErrSlugTaken
	}
	t.UpdatedAt = s.nowTime().UTC()
	if err := s.repo.Upsert(ctx, t); err != nil {
		return nil, errors.Wrap(err, "[Tenants Update]")
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
