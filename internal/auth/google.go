package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Profile is the subset of Google's userinfo response that sign-in uses.
type Profile struct {
	GoogleID string
	Email    string
	Name     string
	Picture  string
}

// ProfileFetcher resolves an OAuth access token to the profile of the
// account that granted it.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken string) (Profile, error)
}

// GoogleFetcher calls Google's userinfo endpoint with the access token
// the browser obtained.
type GoogleFetcher struct {
	// Endpoint overrides the API base URL; empty means Google.
	Endpoint string
	// HTTPClient is the base transport. nil means http.DefaultClient.
	HTTPClient *http.Client
}

func (g GoogleFetcher) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	if accessToken == "" {
		return Profile{}, errors.New("empty access token")
	}

	if g.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.HTTPClient)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, src))}
	if g.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.Endpoint))
	}

	svc, err := googleoauth2.NewService(ctx, opts...)
	if err != nil {
		return Profile{}, fmt.Errorf("unable to create userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Profile{}, fmt.Errorf("userinfo: %w", err)
	}
	return Profile{
		GoogleID: info.Id,
		Email:    info.Email,
		Name:     info.Name,
		Picture:  info.Picture,
	}, nil
}
