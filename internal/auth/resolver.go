package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"lingua/infrastructure"
	"lingua/internal/database"
	"lingua/pkg/jwt"
)

// UserProvider resolves a token subject to a stored user.
type UserProvider interface {
	UserByUsername(ctx context.Context, username string) (*Identity, error)
}

// Resolver validates a bearer credential and maps it to an Identity.
// Validation is synchronous and stateless; there are no retries.
type Resolver struct {
	users  UserProvider
	tokens *jwt.JWT
}

func NewResolver(users UserProvider, tokens *jwt.JWT) *Resolver {
	return &Resolver{users: users, tokens: tokens}
}

// CredentialFromRequest extracts the token from the "token" query
// parameter or an "Authorization: Bearer" header, in that order.
func CredentialFromRequest(r *http.Request) (string, error) {
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer "), nil
	}
	return "", infrastructure.ErrMissingToken
}

func (rs *Resolver) Resolve(ctx context.Context, credential string) (*Identity, error) {
	claims, err := rs.tokens.ValidateToken(credential)
	if err != nil {
		return nil, infrastructure.ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, infrastructure.ErrInvalidToken
	}

	identity, err := rs.users.UserByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, infrastructure.ErrInvalidToken
	}

	return identity, nil
}

// ResolveRequest authenticates an incoming connection request.
func (rs *Resolver) ResolveRequest(ctx context.Context, r *http.Request) (*Identity, error) {
	credential, err := CredentialFromRequest(r)
	if err != nil {
		return nil, err
	}
	return rs.Resolve(ctx, credential)
}

// GormUserProvider is the production UserProvider backed by the users table.
type GormUserProvider struct {
	db *database.Database
}

func NewGormUserProvider(db *database.Database) *GormUserProvider {
	return &GormUserProvider{db: db}
}

func (p *GormUserProvider) UserByUsername(ctx context.Context, username string) (*Identity, error) {
	var user database.User
	err := p.db.WithContext(ctx).Where("username = ? AND is_active", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, infrastructure.ErrUserNotFound
		}
		return nil, err
	}
	return &Identity{ID: user.ID, Username: user.Username}, nil
}
