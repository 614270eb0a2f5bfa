package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"lingua/infrastructure"
	"lingua/internal/database"
	"lingua/pkg/jwt"
)

// minPasswordEntropy rejects passwords like "password1" at register time.
const minPasswordEntropy = 50

type Service struct {
	db         *database.Database
	tokens     *jwt.JWT
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(db *database.Database, tokens *jwt.JWT, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		db:         db,
		tokens:     tokens,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

type RegisterInput struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Password  string
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*database.User, error) {
	if err := passwordvalidator.Validate(input.Password, minPasswordEntropy); err != nil {
		return nil, fmt.Errorf("%w: %s", infrastructure.ErrInvalidInput, err.Error())
	}

	var existing database.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", input.Username, input.Email).
		First(&existing).Error
	if err == nil {
		return nil, infrastructure.ErrUserAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &database.User{
		Username:  input.Username,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Password:  string(hash),
		IsActive:  true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	var user database.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, infrastructure.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, infrastructure.ErrUnauthorized
	}

	accessToken, err := s.tokens.GenerateToken(user.Username, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.tokens.GenerateToken(user.Username, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	stored := &database.RefreshToken{UserID: user.ID, Token: refreshToken}
	if err := s.db.WithContext(ctx).Create(stored).Error; err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh exchanges a stored refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var stored database.RefreshToken
	err := s.db.WithContext(ctx).Where("token = ?", refreshToken).First(&stored).Error
	if err != nil {
		return "", infrastructure.ErrInvalidToken
	}

	var user database.User
	if err := s.db.WithContext(ctx).First(&user, stored.UserID).Error; err != nil {
		return "", infrastructure.ErrInvalidToken
	}

	accessToken, err := s.tokens.GenerateToken(user.Username, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}

	return accessToken, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	result := s.db.WithContext(ctx).Where("token = ?", refreshToken).Delete(&database.RefreshToken{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete refresh token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return infrastructure.ErrInvalidToken
	}
	return nil
}
