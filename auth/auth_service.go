package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-tenant-admin/audit"
	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/jrsteele09/go-tenant-admin/internal/utils"
	"github.com/jrsteele09/go-tenant-admin/sessions"
	"github.com/jrsteele09/go-tenant-admin/tenants"
	"github.com/jrsteele09/go-tenant-admin/token"
	"github.com/jrsteele09/go-tenant-admin/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultLoginRedirect = "/dashboard"

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users    users.Repo    // Repository for user data
	Tenants  tenants.Repo  // Repository for tenant data
	Sessions sessions.Repo // Session log
	Audit    audit.Repo    // Audit log
}

// Meta describes the request a service call originates from
type Meta struct {
	IP           string
	UserAgent    string
	CurrentToken string // token already presented by the caller, if any
}

// AuthResponse is returned by login, register and refresh
type AuthResponse struct {
	AccessToken string      `json:"accessToken"`
	User        *users.User `json:"user,omitempty"`
}

// Service issues and validates session tokens and serves the admin API.
type Service struct {
	repos         Repos
	tokens        *token.Manager
	audit         *audit.Recorder
	validator     *Validator
	loginRedirect string
	nowTime       func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithLoginRedirect sets where already authenticated callers are redirected
func WithLoginRedirect(path string) ServiceOption {
	return func(s *Service) {
		if path != "" {
			s.loginRedirect = path
		}
	}
}

// NewService initializes a new Service with required dependencies.
func NewService(repos Repos, tokens *token.Manager, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.Tenants == nil {
		return nil, errors.New("[NewService] Tenants repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewService] Sessions repo is required")
	}
	if repos.Audit == nil {
		return nil, errors.New("[NewService] Audit repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewService] token manager is required")
	}

	s := &Service{
		repos:         repos,
		tokens:        tokens,
		validator:     NewValidator(),
		loginRedirect: defaultLoginRedirect,
		nowTime:       time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	s.audit = audit.NewRecorder(repos.Audit, s.nowTime)
	return s, nil
}

// Audit exposes the recorder so other admin operations can log events
func (s *Service) Audit() *audit.Recorder {
	return s.audit
}

// Authenticate validates a raw bearer token
func (s *Service) Authenticate(rawToken string) (*token.Claims, error) {
	return s.tokens.Validate(rawToken)
}

// Login checks the credentials and issues a token for a new session.
func (s *Service) Login(ctx context.Context, req LoginRequest, meta Meta) (*AuthResponse, error) {
	if err := s.alreadyAuthenticated(ctx, meta.CurrentToken); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateLogin(&req); err != nil {
		return nil, err
	}

	user, err := s.repos.Users.GetByEmail(ctx, req.Email)
	if err != nil || !user.CheckPassword(req.Password) {
		s.audit.Record(ctx, audit.Event{
			Type:      audit.EventLoginFailed,
			Email:     req.Email,
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
			Message:   "invalid credentials",
		})
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := s.checkActive(ctx, user); err != nil {
		s.audit.Record(ctx, audit.Event{
			Type:      audit.EventLoginFailed,
			UserID:    user.ID,
			Email:     user.Email,
			TenantID:  utils.Value(user.TenantID),
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
			Message:   err.Error(),
		})
		return nil, err
	}

	user.LastLoginAt = utils.Ptr(s.nowTime().UTC())
	if err := s.repos.Users.Upsert(ctx, user); err != nil {
		return nil, errors.Wrap(err, "[Login] failed to update last login")
	}

	resp, err := s.startSession(ctx, user, meta)
	if err != nil {
		return nil, errors.Wrap(err, "[Login]")
	}
	s.audit.Record(ctx, audit.Event{
		Type:      audit.EventLogin,
		UserID:    user.ID,
		Email:     user.Email,
		TenantID:  utils.Value(user.TenantID),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Success:   true,
	})
	return resp, nil
}

// Register creates a USER account and logs it in.
func (s *Service) Register(ctx context.Context, req RegisterRequest, meta Meta) (*AuthResponse, error) {
	if err := s.alreadyAuthenticated(ctx, meta.CurrentToken); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateRegister(&req); err != nil {
		return nil, err
	}

	if _, err := s.repos.Users.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperrors.ErrEmailTaken
	}
	if req.TenantID != nil {
		tenant, err := s.repos.Tenants.Get(ctx, *req.TenantID)
		if err != nil || !tenant.Active {
			return nil, apperrors.Invalid("unknown tenant %q", *req.TenantID)
		}
	}

	hash, err := users.HashPassword(req.Password)
	if err != nil {
		return nil, errors.Wrap(err, "[Register] failed to hash password")
	}
	now := s.nowTime().UTC()
	user := &users.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         users.RoleUser,
		TenantID:     req.TenantID,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastLoginAt:  &now,
	}
	if err := s.repos.Users.Upsert(ctx, user); err != nil {
		return nil, errors.Wrap(err, "[Register] failed to create user")
	}

	resp, err := s.startSession(ctx, user, meta)
	if err != nil {
		return nil, errors.Wrap(err, "[Register]")
	}
	s.audit.Record(ctx, audit.Event{
		Type:      audit.EventRegister,
		UserID:    user.ID,
		Email:     user.Email,
		TenantID:  utils.Value(user.TenantID),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Success:   true,
	})
	return resp, nil
}

// Profile returns the user a validated token belongs to
func (s *Service) Profile(ctx context.Context, claims *token.Claims) (*users.User, error) {
	user, err := s.repos.Users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "[Profile] unknown subject")
	}
	if !user.Active {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "[Profile] user inactive")
	}
	return user, nil
}

// Refresh issues a successor token within the same session. Users that have
// since been deactivated get ErrForbidden.
func (s *Service) Refresh(ctx context.Context, claims *token.Claims, meta Meta) (*AuthResponse, error) {
	user, err := s.repos.Users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "[Refresh] unknown subject")
	}
	if err := s.checkActive(ctx, user); err != nil {
		return nil, errors.Wrap(apperrors.ErrForbidden, err.Error())
	}

	sessionID := claims.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	raw, issued, err := s.tokens.Issue(user, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "[Refresh]")
	}

	now := s.nowTime().UTC()
	session, err := s.repos.Sessions.Get(ctx, sessionID)
	if err != nil {
		session = &sessions.Session{
			ID:        sessionID,
			UserID:    user.ID,
			TenantID:  utils.Value(user.TenantID),
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
			CreatedAt: now,
		}
	}
	session.LastRefreshedAt = now
	session.ExpiresAt = issued.ExpiresAt.Time.UTC()
	session.RefreshCount++
	if err := s.repos.Sessions.Upsert(ctx, session); err != nil {
		log.Err(err).Str("session_id", sessionID).Msg("Failed to update session log")
	}

	s.audit.Record(ctx, audit.Event{
		Type:      audit.EventTokenRefresh,
		UserID:    user.ID,
		Email:     user.Email,
		TenantID:  utils.Value(user.TenantID),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Success:   true,
	})
	return &AuthResponse{AccessToken: raw}, nil
}

// alreadyAuthenticated returns an AlreadyAuthenticatedError when currentToken
// is a valid token of an active user. Invalid tokens are ignored so a stale
// cookie never blocks a fresh login.
func (s *Service) alreadyAuthenticated(ctx context.Context, currentToken string) error {
	if currentToken == "" {
		return nil
	}
	claims, err := s.tokens.Validate(currentToken)
	if err != nil {
		return nil
	}
	user, err := s.repos.Users.GetByID(ctx, claims.Subject)
	if err != nil || !user.Active {
		return nil
	}
	return &AlreadyAuthenticatedError{RedirectTo: s.loginRedirect, User: user}
}

// checkActive rejects inactive users and users of inactive tenants
func (s *Service) checkActive(ctx context.Context, user *users.User) error {
	if !user.Active {
		return apperrors.ErrUserInactive
	}
	if user.TenantID != nil {
		tenant, err := s.repos.Tenants.Get(ctx, *user.TenantID)
		if err != nil || !tenant.Active {
			return apperrors.ErrUserInactive
		}
	}
	return nil
}

func (s *Service) startSession(ctx context.Context, user *users.User, meta Meta) (*AuthResponse, error) {
	sessionID := uuid.New().String()
	raw, claims, err := s.tokens.Issue(user, sessionID)
	if err != nil {
		return nil, err
	}
	now := s.nowTime().UTC()
	if err := s.repos.Sessions.Upsert(ctx, &sessions.Session{
		ID:              sessionID,
		UserID:          user.ID,
		TenantID:        utils.Value(user.TenantID),
		IP:              meta.IP,
		UserAgent:       meta.UserAgent,
		CreatedAt:       now,
		LastRefreshedAt: now,
		ExpiresAt:       claims.ExpiresAt.Time.UTC(),
	}); err != nil {
		log.Err(err).Str("session_id", sessionID).Msg("Failed to record session")
	}
	return &AuthResponse{AccessToken: raw, User: user}, nil
}
