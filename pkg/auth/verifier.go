// Package auth resolves the owner of a request and limits how often each
// owner may trigger work.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/supabase-community/supabase-go"
)

// TokenVerifier turns a bearer token into the user it belongs to
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*UserContext, error)
}

// UserContext represents the authenticated user of a request
type UserContext struct {
	UserID string
	Email  string
	Role   string
}

type contextKey string

const userContextKey contextKey = "user"

// GetUserFromContext extracts user from context
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	if !ok || user == nil {
		return nil, errors.New("user not found in context")
	}
	return user, nil
}

// SetUserInContext adds user to context
func SetUserInContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// BearerToken extracts the token of an "Authorization: Bearer" header
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// SupabaseVerifier asks Supabase Auth who a token belongs to
type SupabaseVerifier struct {
	lookup func(token string) (*UserContext, error)
}

var _ TokenVerifier = (*SupabaseVerifier)(nil)

// NewSupabaseVerifier creates a verifier backed by the project's auth API
func NewSupabaseVerifier(client *supabase.Client) *SupabaseVerifier {
	return &SupabaseVerifier{
		lookup: func(token string) (*UserContext, error) {
			user, err := client.Auth.WithToken(token).GetUser()
			if err != nil {
				return nil, err
			}
			return &UserContext{
				UserID: user.ID.String(),
				Email:  user.Email,
				Role:   user.Role,
			}, nil
		},
	}
}

// Verify resolves the token through Supabase Auth
func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (*UserContext, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	user, err := v.lookup(token)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if user == nil || user.UserID == "" {
		return nil, ErrInvalidClaims
	}
	return user, nil
}

// StaticVerifier accepts any non-empty token as the configured user. It is
// used for local development with auth disabled.
type StaticVerifier struct {
	UserID string
}

// Verify returns the configured user, or the token itself when no user is set
func (v StaticVerifier) Verify(_ context.Context, token string) (*UserContext, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if v.UserID != "" {
		return &UserContext{UserID: v.UserID}, nil
	}
	return &UserContext{UserID: token}, nil
}
