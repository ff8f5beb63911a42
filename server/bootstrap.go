package server

import (
	"context"

	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/jrsteele09/go-tenant-admin/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultSuperUserName = "System Administrator"

// InitialiseSystem makes sure the configured super user exists. An existing
// account with that email is left untouched so a changed password survives
// restarts.
func (s *Server) InitialiseSystem(ctx context.Context) error {
	log.Info().Msg("Bootstrap: checking system configuration")

	created, err := s.bootstrapSuperUser(ctx, s.config.GetSuperUserEmail(), s.config.GetSuperUserPassword())
	if err != nil {
		return errors.Wrap(err, "failed to bootstrap super user")
	}

	if created != nil {
		log.Info().
			Str("email", created.Email).
			Str("base_url", s.config.GetBaseURL()).
			Msg("Bootstrap complete: super user created, change the seeded password")
	} else {
		log.Info().Str("base_url", s.config.GetBaseURL()).Msg("Bootstrap: system already configured")
	}
	return nil
}

// bootstrapSuperUser creates the super user if no account uses email yet
func (s *Server) bootstrapSuperUser(ctx context.Context, email, password string) (*users.User, error) {
	email = users.NormaliseEmail(email)
	if email == "" {
		return nil, errors.New("super user email is required")
	}

	existing, err := s.repos.Users.GetByEmail(ctx, email)
	if err == nil {
		if !existing.IsSuperUser() {
			log.Warn().Str("email", email).Str("role", string(existing.Role)).Msg("Configured super user exists with a different role")
		}
		return nil, nil
	}
	if !apperrors.Is(err, apperrors.ErrUserNotFound) {
		return nil, errors.Wrap(err, "failed to check for existing super user")
	}

	if err := users.ValidatePasswordStrength(password); err != nil {
		return nil, errors.Wrap(err, "super user password")
	}
	passwordHash, err := users.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	now := s.nowTime().UTC()
	admin := &users.User{
		Email:        email,
		Name:         DefaultSuperUserName,
		PasswordHash: passwordHash,
		Role:         users.RoleSuperUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repos.Users.Upsert(ctx, admin); err != nil {
		return nil, errors.Wrap(err, "failed to create super user")
	}
	return admin, nil
}
