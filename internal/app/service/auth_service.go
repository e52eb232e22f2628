package service

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/storefront/internal/app/model"
	"github.com/ikkim/storefront/internal/app/repository"
	"github.com/ikkim/storefront/pkg/logger"
	"github.com/ikkim/storefront/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// TokenRevoker stores revoked token ids. *redis.TokenBlacklist implements it.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

type AuthService interface {
	Login(email, password string) (*model.User, string, error)
	Logout(ctx context.Context, token string) error
	GetUserByID(id uint) (*model.User, error)
}

type authService struct {
	userRepo     repository.UserRepository
	revoker      TokenRevoker
	jwtSecret    string
	accessExpiry time.Duration
}

// NewAuthService creates the auth service. revoker may be nil, in which case
// logout only succeeds locally and tokens stay valid until they expire.
func NewAuthService(
	userRepo repository.UserRepository,
	revoker TokenRevoker,
	jwtSecret string,
	accessExpiry time.Duration,
) AuthService {
	return &authService{
		userRepo:     userRepo,
		revoker:      revoker,
		jwtSecret:    jwtSecret,
		accessExpiry: accessExpiry,
	}
}

func (s *authService) Login(email, password string) (*model.User, string, error) {
	logger.Info("Login attempt", logger.Fields{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", logger.Fields{
				"email": email,
			})
			return nil, "", ErrInvalidCredentials
		}
		logger.Error("Failed to find user", err, logger.Fields{
			"email": email,
		})
		return nil, "", err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", logger.Fields{
			"email":   email,
			"user_id": user.ID,
		})
		return nil, "", ErrInvalidCredentials
	}

	token, err := util.GenerateToken(user.ID, user.Email, string(user.Role), s.jwtSecret, s.accessExpiry)
	if err != nil {
		logger.Error("Failed to generate token", err, logger.Fields{
			"user_id": user.ID,
		})
		return nil, "", err
	}

	logger.Info("User logged in successfully", logger.Fields{
		"user_id": user.ID,
		"email":   email,
		"role":    user.Role,
	})
	return user, token, nil
}

// Logout revokes token for the rest of its lifetime
func (s *authService) Logout(ctx context.Context, token string) error {
	claims, err := util.ValidateToken(token, s.jwtSecret)
	if err != nil {
		if errors.Is(err, util.ErrExpiredToken) {
			return nil
		}
		return err
	}

	if s.revoker == nil {
		logger.Debug("No token revoker configured; logout is client-side only", logger.Fields{
			"user_id": claims.UserID,
		})
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		logger.Error("Failed to revoke token", err, logger.Fields{
			"user_id": claims.UserID,
		})
		return err
	}

	logger.Info("User logged out", logger.Fields{
		"user_id": claims.UserID,
	})
	return nil
}

func (s *authService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		logger.Error("Failed to fetch user", err, logger.Fields{
			"user_id": id,
		})
		return nil, err
	}
	return user, nil
}
