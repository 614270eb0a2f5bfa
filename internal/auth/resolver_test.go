package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lingua/infrastructure"
	"lingua/pkg/jwt"
)

type fakeUsers struct {
	byUsername map[string]*Identity
}

func (f *fakeUsers) UserByUsername(_ context.Context, username string) (*Identity, error) {
	identity, ok := f.byUsername[username]
	if !ok {
		return nil, infrastructure.ErrUserNotFound
	}
	return identity, nil
}

func TestCredentialFromRequest(t *testing.T) {
	req := require.New(t)

	r := httptest.NewRequest("GET", "/ws?token=from-query", nil)
	token, err := CredentialFromRequest(r)
	req.NoError(err)
	req.Equal("from-query", token)

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	token, err = CredentialFromRequest(r)
	req.NoError(err)
	req.Equal("from-header", token)

	// The query parameter wins when both are present.
	r = httptest.NewRequest("GET", "/ws?token=from-query", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	token, err = CredentialFromRequest(r)
	req.NoError(err)
	req.Equal("from-query", token)

	r = httptest.NewRequest("GET", "/ws", nil)
	_, err = CredentialFromRequest(r)
	req.ErrorIs(err, infrastructure.ErrMissingToken)
}

func TestResolver_Resolve(t *testing.T) {
	req := require.New(t)
	tokens := jwt.NewJWT("test-secret")
	users := &fakeUsers{byUsername: map[string]*Identity{
		"alice": {ID: 1, Username: "alice"},
	}}
	resolver := NewResolver(users, tokens)

	token, err := tokens.GenerateToken("alice", time.Hour)
	req.NoError(err)

	identity, err := resolver.Resolve(context.Background(), token)
	req.NoError(err)
	req.Equal(uint(1), identity.ID)
	req.Equal("alice", identity.Username)
}

func TestResolver_FailuresMapToInvalidToken(t *testing.T) {
	req := require.New(t)
	tokens := jwt.NewJWT("test-secret")
	users := &fakeUsers{byUsername: map[string]*Identity{
		"alice": {ID: 1, Username: "alice"},
	}}
	resolver := NewResolver(users, tokens)

	// Garbage credential.
	_, err := resolver.Resolve(context.Background(), "not-a-jwt")
	req.ErrorIs(err, infrastructure.ErrInvalidToken)

	// Signed with a different secret.
	foreign, err := jwt.NewJWT("other-secret").GenerateToken("alice", time.Hour)
	req.NoError(err)
	_, err = resolver.Resolve(context.Background(), foreign)
	req.ErrorIs(err, infrastructure.ErrInvalidToken)

	// Expired.
	expired, err := tokens.GenerateToken("alice", -time.Minute)
	req.NoError(err)
	_, err = resolver.Resolve(context.Background(), expired)
	req.ErrorIs(err, infrastructure.ErrInvalidToken)

	// Valid token for a user that no longer exists.
	ghost, err := tokens.GenerateToken("deleted-user", time.Hour)
	req.NoError(err)
	_, err = resolver.Resolve(context.Background(), ghost)
	req.ErrorIs(err, infrastructure.ErrInvalidToken)
}

func TestResolver_ResolveRequest(t *testing.T) {
	req := require.New(t)
	tokens := jwt.NewJWT("test-secret")
	users := &fakeUsers{byUsername: map[string]*Identity{
		"alice": {ID: 1, Username: "alice"},
	}}
	resolver := NewResolver(users, tokens)

	token, err := tokens.GenerateToken("alice", time.Hour)
	req.NoError(err)

	r := httptest.NewRequest("GET", "/ws?token="+token, nil)
	identity, err := resolver.ResolveRequest(context.Background(), r)
	req.NoError(err)
	req.Equal("alice", identity.Username)

	r = httptest.NewRequest("GET", "/ws", nil)
	_, err = resolver.ResolveRequest(context.Background(), r)
	req.ErrorIs(err, infrastructure.ErrMissingToken)
}
