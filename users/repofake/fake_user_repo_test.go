package fakeuserrepo_test

import (
	"context"
	"fmt"
	"testing"

	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/jrsteele09/go-tenant-admin/internal/utils"
	"github.com/jrsteele09/go-tenant-admin/users"
	fakeuserrepo "github.com/jrsteele09/go-tenant-admin/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestFakeUserRepo_ListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Upsert(ctx, &users.User{
			Email:    fmt.Sprintf("user%d@tenant-a.com", i),
			Role:     users.RoleUser,
			TenantID: utils.Ptr("tenant-a"),
		}))
	}
	require.NoError(t, repo.Upsert(ctx, &users.User{Email: "admin@tenant-b.com", Role: users.RoleTenantAdmin, TenantID: utils.Ptr("tenant-b")}))

	res, err := repo.List(ctx, users.ListFilter{TenantID: "tenant-a", Offset: 3, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 5, res.Total)
	require.Len(t, res.Users, 2)
	require.Equal(t, "user3@tenant-a.com", res.Users[0].Email)

	res, err = repo.List(ctx, users.ListFilter{Role: users.RoleTenantAdmin})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)

	res, err = repo.List(ctx, users.ListFilter{Offset: 50})
	require.NoError(t, err)
	require.Empty(t, res.Users)
	require.Equal(t, 6, res.Total)
}

func TestFakeUserRepo_EmailUnique(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()
	require.NoError(t, repo.Upsert(ctx, &users.User{Email: "Dup@Example.com"}))

	err := repo.Upsert(ctx, &users.User{Email: "dup@example.com"})
	require.ErrorIs(t, err, apperrors.ErrEmailTaken)

	u, err := repo.GetByEmail(ctx, "DUP@example.com")
	require.NoError(t, err)
	require.Equal(t, "dup@example.com", u.Email)
}
