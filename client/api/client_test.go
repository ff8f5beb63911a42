package api_test

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"

	"github.com/jrsteele09/go-tenant-admin/client/api"
	"github.com/jrsteele09/go-tenant-admin/client/api/apifake"
	"github.com/jrsteele09/go-tenant-admin/users"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*apifake.Server, *api.Client) {
	t.Helper()
	backend := apifake.NewServer()
	t.Cleanup(backend.Close)

	c, err := api.New(backend.URL, backend.Client())
	require.NoError(t, err)
	return backend, c
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := api.New("localhost", nil)
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	_, c := setup(t)

	resp, err := c.Login(context.Background(), apifake.Email, apifake.Password)
	require.NoError(t, err)
	require.Equal(t, "mock-access-token", resp.AccessToken)
	require.Equal(t, users.RoleSuperUser, resp.User.Role)
	require.Equal(t, apifake.Email, resp.User.Email)

	_, err = c.Login(context.Background(), apifake.Email, "wrong")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "Invalid credentials", apiErr.Error())
}

func TestLogin_AlreadyAuthenticatedRedirect(t *testing.T) {
	backend := apifake.NewServer()
	t.Cleanup(backend.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	u, err := url.Parse(backend.URL)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: "token", Value: apifake.AccessToken, Path: "/"}})

	c, err := api.New(backend.URL, &http.Client{Jar: jar})
	require.NoError(t, err)

	_, err = c.Login(context.Background(), apifake.Email, apifake.Password)
	var redirect *api.RedirectError
	require.ErrorAs(t, err, &redirect)
	require.Equal(t, apifake.LoginRedirect, redirect.RedirectTo)
	require.NotNil(t, redirect.User)
	require.Equal(t, apifake.Email, redirect.User.Email)
	require.False(t, api.IsUnauthorized(err))
}

func TestRegister(t *testing.T) {
	_, c := setup(t)

	resp, err := c.Register(context.Background(), api.RegisterRequest{Email: "new@test.com", Password: "password123", Name: "New"})
	require.NoError(t, err)
	require.Equal(t, apifake.RegisterToken, resp.AccessToken)
	require.Equal(t, users.RoleUser, resp.User.Role)

	_, err = c.Register(context.Background(), api.RegisterRequest{Email: apifake.TakenEmail, Password: "password123", Name: "Dup"})
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "Email already registered", apiErr.Message)
}

func TestMe(t *testing.T) {
	_, c := setup(t)

	user, err := c.Me(context.Background(), apifake.AccessToken)
	require.NoError(t, err)
	require.Equal(t, apifake.Email, user.Email)

	_, err = c.Me(context.Background(), "invalid-token")
	require.True(t, api.IsUnauthorized(err))
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestRefresh(t *testing.T) {
	backend, c := setup(t)

	next, err := c.Refresh(context.Background(), apifake.AccessToken)
	require.NoError(t, err)
	require.Equal(t, apifake.RefreshedToken, next)
	require.Equal(t, 1, backend.RefreshCalls())

	backend.SetRefreshResponse(http.StatusForbidden, "")
	_, err = c.Refresh(context.Background(), apifake.AccessToken)
	require.True(t, api.IsUnauthorized(err))

	backend.SetRefreshResponse(http.StatusServiceUnavailable, "")
	_, err = c.Refresh(context.Background(), apifake.AccessToken)
	require.Error(t, err)
	require.False(t, api.IsUnauthorized(err))
}

func TestTransportFailureIsNotUnauthorized(t *testing.T) {
	backend := apifake.NewServer()
	c, err := api.New(backend.URL, nil)
	require.NoError(t, err)
	backend.Close()

	_, err = c.Me(context.Background(), apifake.AccessToken)
	require.Error(t, err)
	require.False(t, api.IsUnauthorized(err))
	var apiErr *api.Error
	require.False(t, errors.As(err, &apiErr))
}

func TestListTenants(t *testing.T) {
	_, c := setup(t)

	res, err := c.ListTenants(context.Background(), apifake.AccessToken, "", 0, 10)
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
	require.Equal(t, "acme-corp", res.Tenants[0].Slug)

	_, err = c.ListTenants(context.Background(), "invalid-token", "", 0, 0)
	require.True(t, api.IsUnauthorized(err))
}
