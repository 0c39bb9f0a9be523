package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/loopflow/cadenza/internal/apperr"
	"github.com/loopflow/cadenza/internal/config"
	"github.com/loopflow/cadenza/internal/dto"
	"github.com/loopflow/cadenza/internal/models"
	"gorm.io/gorm"
)

// DevTokenPrefix introduces a development bearer token naming a user id.
const DevTokenPrefix = "dev_token_user_"

const privateRelayDomain = "privaterelay.appleid.com"

type AuthService struct {
	db    *gorm.DB
	cfg   *config.Config
	apple *AppleJWKSClient
}

func NewAuthService(db *gorm.DB, cfg *config.Config, apple *AppleJWKSClient) *AuthService {
	return &AuthService{db: db, cfg: cfg, apple: apple}
}

// IssueToken signs a session token whose subject is the user id.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	method := jwt.GetSigningMethod(s.cfg.JWTAlgorithm)
	if method == nil {
		return "", fmt.Errorf("unsupported JWT algorithm %q", s.cfg.JWTAlgorithm)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiration)),
	}
	return jwt.NewWithClaims(method, claims).SignedString([]byte(s.cfg.JWTSecret))
}

// UserFromToken loads the user named by a verified session token's subject.
func (s *AuthService) UserFromToken(token *jwt.Token) (*models.User, error) {
	if token == nil {
		return nil, apperr.Unauthenticated()
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return nil, apperr.Unauthenticated()
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, apperr.Unauthenticated()
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, apperr.Unauthenticated()
	}
	return &user, nil
}

// ResolveDevToken accepts dev_token_user_<id> in the dev environment, and only
// for users created through the development login.
func (s *AuthService) ResolveDevToken(token string) (*models.User, bool) {
	if !s.cfg.IsDev() || !strings.HasPrefix(token, DevTokenPrefix) {
		return nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(token, DevTokenPrefix))
	if err != nil {
		return nil, false
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, false
	}
	if !user.IsDevUser() {
		return nil, false
	}
	return &user, true
}

// DevLogin finds or creates a user by email without Apple verification.
// Outside dev it reports NotFound so the endpoint looks absent.
func (s *AuthService) DevLogin(email string) (*dto.AuthResponse, error) {
	if !s.cfg.IsDev() {
		return nil, apperr.NotFound("Not found")
	}

	devID := models.DevAppleIDPrefix + email
	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{Email: email, AppleUserID: &devID}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create dev user: %w", err)
		}
	case err != nil:
		return nil, err
	case user.IsStub():
		if err := s.db.Model(&user).Update("apple_user_id", devID).Error; err != nil {
			return nil, fmt.Errorf("failed to upgrade stub user: %w", err)
		}
		user.AppleUserID = &devID
	}

	return s.authResponse(&user)
}

// AppleSignIn verifies an Apple identity token and resolves it to a user: by
// Apple subject first, then by email (upgrading a stub), else a new user.
func (s *AuthService) AppleSignIn(ctx context.Context, idToken string) (*dto.AuthResponse, error) {
	claims, err := s.apple.VerifyToken(ctx, idToken)
	if err != nil {
		if errors.Is(err, ErrAppleKeysUnavailable) {
			return nil, apperr.Upstream("Authentication service unavailable", err)
		}
		slog.Warn("apple token verification failed", "error", err)
		return nil, apperr.Unauthenticated()
	}

	appleUserID := claims.Subject
	email := claims.Email
	if email == "" {
		email = appleUserID + "@" + privateRelayDomain
	}

	var user models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("apple_user_id = ?", appleUserID).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		err = tx.Where("email = ?", email).First(&user).Error
		switch {
		case err == nil:
			// Keeps teacher_id set while the user was a stub.
			user.AppleUserID = &appleUserID
			return tx.Model(&user).Update("apple_user_id", appleUserID).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{Email: email, AppleUserID: &appleUserID}
			return tx.Create(&user).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Apple user: %w", err)
	}

	return s.authResponse(&user)
}

func (s *AuthService) authResponse(user *models.User) (*dto.AuthResponse, error) {
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{AccessToken: token, User: user}, nil
}
