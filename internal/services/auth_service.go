package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beamdash/backend/internal/config"
	"github.com/beamdash/backend/internal/models"
	"github.com/beamdash/backend/pkg/crypto"
	jwtpkg "github.com/beamdash/backend/pkg/jwt"
	"github.com/beamdash/backend/pkg/validation"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TokenPair is what login and refresh hand back to clients.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type AuthService struct {
	db     *gorm.DB
	redis  *redis.Client
	cfg    *config.Config
	logger *zap.Logger
}

func NewAuthService(db *gorm.DB, redis *redis.Client, cfg *config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		db:     db,
		redis:  redis,
		cfg:    cfg,
		logger: logger,
	}
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, *models.User, error) {
	var user models.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !crypto.CheckPassword(password, user.PasswordHash) {
		s.logger.Info("login rejected", zap.String("user_id", user.ID.String()))
		return nil, nil, ErrInvalidCredentials
	}

	accessToken, expiresAt, err := jwtpkg.GenerateToken(user.ID.String(), user.Email, jwtpkg.AccessToken, s.cfg.JWTSecret, s.cfg.JWTAccessTokenDuration)
	if err != nil {
		return nil, nil, err
	}
	refreshToken, refreshExpiresAt, err := jwtpkg.GenerateToken(user.ID.String(), user.Email, jwtpkg.RefreshToken, s.cfg.JWTSecret, s.cfg.JWTRefreshTokenDuration)
	if err != nil {
		return nil, nil, err
	}

	// Store refresh token in database
	refreshTokenModel := &models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: refreshExpiresAt,
	}
	if err := s.db.WithContext(ctx).Create(refreshTokenModel).Error; err != nil {
		return nil, nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresAt: expiresAt}, &user, nil
}

// Register creates a new, unverified identity.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validation.ValidateEmail(email) {
		return nil, invalid("Invalid email address")
	}
	if !validation.ValidatePassword(password) {
		return nil, invalid("Password must be at least 8 characters with upper and lower case letters, a digit and one of @$!%%*?&")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := crypto.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         validation.SanitizeString(name),
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Refresh mints a new access token from a stored, unexpired refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := jwtpkg.ValidateToken(refreshToken, s.cfg.JWTSecret)
	if err != nil || claims.Type() != jwtpkg.RefreshToken {
		return nil, ErrInvalidCredentials
	}

	var tokenModel models.RefreshToken
	if err := s.db.WithContext(ctx).Where("token = ?", refreshToken).First(&tokenModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if time.Now().After(tokenModel.ExpiresAt) {
		return nil, ErrInvalidCredentials
	}

	accessToken, expiresAt, err := jwtpkg.GenerateToken(claims.UserIdentity(), claims.Email, jwtpkg.AccessToken, s.cfg.JWTSecret, s.cfg.JWTAccessTokenDuration)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresAt: expiresAt}, nil
}

// Logout deletes the user's refresh tokens and blacklists the access token
// for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, accessToken string) error {
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
		return err
	}
	if s.redis == nil || accessToken == "" {
		return nil
	}

	ttl := s.cfg.JWTAccessTokenDuration
	if claims, err := jwtpkg.ValidateToken(accessToken, s.cfg.JWTSecret); err == nil && claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, blacklistKey(accessToken), "1", ttl).Err(); err != nil {
		s.logger.Warn("could not blacklist token", zap.Error(err))
	}
	return nil
}

// ValidateAccessToken validates an access token and returns claims
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (*jwtpkg.Claims, error) {
	claims, err := jwtpkg.ValidateToken(token, s.cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	if claims.Type() != jwtpkg.AccessToken {
		return nil, jwtpkg.ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.UserIdentity()); err != nil {
		return nil, jwtpkg.ErrInvalidToken
	}

	// If redis is down, we allow the request to proceed
	if s.redis != nil {
		exists, err := s.redis.Exists(ctx, blacklistKey(token)).Result()
		if err != nil {
			s.logger.Warn("could not check token blacklist", zap.Error(err))
		} else if exists > 0 {
			return nil, jwtpkg.ErrInvalidToken
		}
	}
	return claims, nil
}

// GetUserByID retrieves a user by ID
func (s *AuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("AdminUser").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CleanupExpiredTokens removes expired refresh tokens
func (s *AuthService) CleanupExpiredTokens(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("expires_at < ?", time.Now()).Delete(&models.RefreshToken{}).Error
}

// EnsureSuperAdmin creates the bootstrap super admin when it does not exist
// yet. An existing identity with that email is promoted instead.
func (s *AuthService) EnsureSuperAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("email = ?", email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if password == "" {
				return fmt.Errorf("super admin %s does not exist and no password is configured", email)
			}
			hash, err := crypto.HashPassword(password, s.cfg.BcryptCost)
			if err != nil {
				return err
			}
			now := time.Now()
			user = models.User{
				Email:            email,
				PasswordHash:     hash,
				Name:             "Administrator",
				IsAdmin:          true,
				EmailConfirmedAt: &now,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&user).Update("is_admin", true).Error; err != nil {
				return err
			}
		}

		row := models.AdminUser{UserID: user.ID}
		if err := tx.Where(models.AdminUser{UserID: user.ID}).
			Assign(models.AdminUser{Role: models.RoleSuperAdmin}).
			FirstOrCreate(&row).Error; err != nil {
			return err
		}
		s.logger.Info("super admin ensured", zap.String("user_id", user.ID.String()))
		return nil
	})
}

func blacklistKey(token string) string {
	return fmt.Sprintf("blacklist:token:%s", token)
}
