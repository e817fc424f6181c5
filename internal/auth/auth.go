// Package auth signs users in with a Google access token and records
// them on first login.
package auth

import (
	"context"
	"errors"
	"fmt"

	appLog "roomcal/internal/log"
	"roomcal/internal/model"
	"roomcal/internal/store"
)

// ErrUpstream means Google rejected the token or returned an unusable
// profile.
var ErrUpstream = errors.New("authentication failed")

type Service struct {
	users   store.UserStore
	fetcher ProfileFetcher
}

func NewService(users store.UserStore, fetcher ProfileFetcher) *Service {
	return &Service{users: users, fetcher: fetcher}
}

// SignIn looks up the token's Google profile and returns the matching
// user, creating it on first login. Existing users are never modified;
// the returned profile fields come from Google.
func (s *Service) SignIn(ctx context.Context, credential string) (model.User, error) {
	p, err := s.fetcher.FetchProfile(ctx, credential)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if p.Email == "" {
		return model.User{}, fmt.Errorf("%w: profile has no email", ErrUpstream)
	}

	u, err := s.users.FindUserByEmail(ctx, p.Email)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		u, err = s.create(ctx, p)
		if err != nil {
			return model.User{}, err
		}
	default:
		return model.User{}, fmt.Errorf("find user: %w", err)
	}

	return model.User{
		ID:             u.ID,
		GoogleID:       p.GoogleID,
		Email:          p.Email,
		DisplayName:    p.Name,
		ProfilePicture: p.Picture,
	}, nil
}

func (s *Service) create(ctx context.Context, p Profile) (model.User, error) {
	u, err := s.users.InsertUser(ctx, model.User{
		GoogleID:       p.GoogleID,
		Email:          p.Email,
		DisplayName:    p.Name,
		ProfilePicture: p.Picture,
	})
	if errors.Is(err, store.ErrDuplicate) {
		// Lost a race with a concurrent first login.
		return s.users.FindUserByEmail(ctx, p.Email)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	appLog.Info("user created", "id", u.ID, "email", u.Email)
	return u, nil
}
