// Package api is the HTTP transport to the admin backend
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-tenant-admin/tenants"
	"github.com/jrsteele09/go-tenant-admin/users"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"
	MePath       = "/auth/me"
	RefreshPath  = "/auth/refresh"
	TenantsPath  = "/tenants"

	defaultTimeout = 30 * time.Second
	maxErrorBody   = 64 << 10
)

// AuthResponse is the body of a successful login, register or refresh
type AuthResponse struct {
	AccessToken string      `json:"accessToken"`
	User        *users.User `json:"user,omitempty"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	TenantID *string `json:"tenantId,omitempty"`
}

// errorBody covers both the {message} and the {redirectTo, user} answers
type errorBody struct {
	Message    string      `json:"message"`
	RedirectTo string      `json:"redirectTo"`
	User       *users.User `json:"user"`
}

// Client performs the auth calls against one backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for baseURL. The http.Client should carry the cookie
// jar the token store writes to, so the backend also sees the token cookie.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("[api New] invalid base URL %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(u.String(), "/"), httpClient: httpClient}, nil
}

// BaseURL returns the backend URL requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, LoginPath, "", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, RegisterPath, "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me fetches the profile of the user token belongs to
func (c *Client) Me(ctx context.Context, token string) (*users.User, error) {
	var user users.User
	if err := c.do(ctx, http.MethodGet, MePath, token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Refresh exchanges token for a successor. The request has no body.
func (c *Client) Refresh(ctx context.Context, token string) (string, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, RefreshPath, token, nil, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", errors.New("[api Refresh] response carried no access token")
	}
	return resp.AccessToken, nil
}

// ListTenants fetches one page of tenants
func (c *Client) ListTenants(ctx context.Context, token, search string, offset, limit int) (*tenants.ListResult, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := TenantsPath
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var res tenants.ListResult
	if err := c.do(ctx, http.MethodGet, path, token, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "[api %s %s] encode request", method, path)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "[api %s %s]", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "[api %s %s]", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "[api %s %s] decode response", method, path)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorBody
	if len(data) > 0 && json.Unmarshal(data, &body) == nil {
		if resp.StatusCode == http.StatusForbidden && body.RedirectTo != "" {
			return &RedirectError{RedirectTo: body.RedirectTo, User: body.User}
		}
	}
	if body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}
	return &Error{Status: resp.StatusCode, Message: body.Message}
}
