package fakeuserrepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/jrsteele09/go-tenant-admin/internal/utils"
	"github.com/jrsteele09/go-tenant-admin/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() users.Repo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Upsert(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = users.NormaliseEmail(user.Email)
	if existingID, ok := ur.emailIds[user.Email]; ok && existingID != user.ID {
		return apperrors.ErrEmailTaken
	}
	if previous, ok := ur.users[user.ID]; ok && previous.Email != user.Email {
		delete(ur.emailIds, previous.Email)
	}
	stored := *user
	ur.users[user.ID] = &stored
	ur.emailIds[user.Email] = user.ID
	return nil
}

func (ur *FakeUserRepo) Delete(_ context.Context, id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	delete(ur.emailIds, user.Email)
	delete(ur.users, id)
	return nil
}

func (ur *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[users.NormaliseEmail(email)]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	u := *ur.users[id]
	return &u, nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (ur *FakeUserRepo) List(_ context.Context, filter users.ListFilter) (users.ListResult, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	search := strings.ToLower(filter.Search)
	userList := make([]*users.User, 0)
	for _, v := range ur.users {
		if filter.TenantID != "" && !v.InTenant(filter.TenantID) {
			continue
		}
		if filter.Role != "" && v.Role != filter.Role {
			continue
		}
		if search != "" && !strings.Contains(v.Email, search) && !strings.Contains(strings.ToLower(v.Name), search) {
			continue
		}
		u := *v
		userList = append(userList, &u)
	}

	sort.Slice(userList, func(i, j int) bool {
		return userList[i].Email < userList[j].Email
	})

	page := utils.NormalisePage(filter.Offset, filter.Limit)
	return users.ListResult{
		Users:  utils.Paginate(userList, page),
		Total:  len(userList),
		Offset: page.Offset,
		Limit:  page.Limit,
	}, nil
}
