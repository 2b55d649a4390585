package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"heirloom/models"
	"heirloom/pkg/apperror"
	"heirloom/pkg/auth"
	tokenstore "heirloom/pkg/token"
	utils "heirloom/pkg/utills"
)

const minPasswordLen = 8

type AuthService struct {
	db         *gorm.DB
	tokens     *auth.TokenManager
	revoked    *tokenstore.Store
	openSignup bool
	log        *zap.Logger
	now        func() time.Time
}

func NewAuthService(db *gorm.DB, tokens *auth.TokenManager, revoked *tokenstore.Store, openSignup bool, log *zap.Logger) *AuthService {
	return &AuthService{db: db, tokens: tokens, revoked: revoked, openSignup: openSignup, log: log.Named("auth"), now: time.Now}
}

type RegisterInput struct {
	Name     string `json:"name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type Profile struct {
	*models.User
	ConversationCount int64 `json:"conversationCount"`
	LegacyCount       int64 `json:"legacyCount"`
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func checkPassword(pw string) error {
	if len(pw) < minPasswordLen || !utils.HasLetter(pw) || !utils.HasNumber(pw) {
		return apperror.Validation("password must be at least 8 characters and contain a letter and a number")
	}
	return nil
}

func (s *AuthService) emailTaken(ctx context.Context, email string, except uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ? AND id <> ?", email, except).Count(&n).Error
	return n > 0, err
}

// Register creates an account. Privileged roles can only be claimed at
// signup when open role signup is enabled.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.Validation("a valid email is required")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	role, err := auth.ParseRole(in.Role)
	if err != nil {
		return nil, apperror.Validation("role must be one of EMPLOYEE, ADMIN, SENIOR_DEV")
	}
	if role != auth.RoleEmployee && !s.openSignup {
		return nil, apperror.Forbidden("privileged roles are assigned by an administrator")
	}

	taken, err := s.emailTaken(ctx, email, 0)
	if err != nil {
		return nil, apperror.Internal("failed to check email", err)
	}
	if taken {
		return nil, apperror.Conflict("email already registered")
	}

	user := &models.User{Name: name, Email: email, Role: role}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, apperror.Internal("failed to hash password", err)
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("email already registered")
		}
		return nil, apperror.Internal("failed to create user", err)
	}
	s.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*Session, error) {
	signed, claims, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperror.Internal("failed to create token", err)
	}
	return &Session{Token: signed, ExpiresAt: claims.Expiry(), User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.Validation("email and password are required")
	}
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Unauthenticated("invalid credentials")
	}
	if err != nil {
		return nil, apperror.Internal("failed to load user", err)
	}
	if !user.CheckPassword(password) {
		return nil, apperror.Unauthenticated("invalid credentials")
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&user).UpdateColumn("last_login", now).Error; err != nil {
		s.log.Warn("last login not recorded", zap.Uint("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}
	return s.issue(&user)
}

// Authenticate resolves a bearer token into a principal, rejecting revoked tokens.
func (s *AuthService) Authenticate(ctx context.Context, tokenStr string) (auth.Principal, *auth.Claims, error) {
	claims, err := s.tokens.Parse(tokenStr)
	if err != nil {
		return auth.Principal{}, nil, apperror.Unauthenticated("invalid or expired token")
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return auth.Principal{}, nil, apperror.Internal("failed to check token", err)
	}
	if revoked {
		return auth.Principal{}, nil, apperror.Unauthenticated("token has been revoked")
	}
	return claims.Principal(), claims, nil
}

// Refresh swaps a valid token for a new one carrying the user's current role.
// The old token is revoked.
func (s *AuthService) Refresh(ctx context.Context, tokenStr string) (*Session, error) {
	_, claims, err := s.Authenticate(ctx, tokenStr)
	if err != nil {
		return nil, err
	}
	user, err := s.user(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	sess, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.UserID, claims.Expiry()); err != nil {
		s.log.Warn("refreshed token not revoked", zap.String("jti", claims.ID), zap.Error(err))
	}
	return sess, nil
}

func (s *AuthService) Logout(ctx context.Context, p auth.Principal, expiresAt time.Time) error {
	if err := s.revoked.Revoke(ctx, p.JTI, p.UserID, expiresAt); err != nil {
		return apperror.Internal("failed to revoke token", err)
	}
	return nil
}

func (s *AuthService) user(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("user not found")
	}
	if err != nil {
		return nil, apperror.Internal("failed to load user", err)
	}
	return &user, nil
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*Profile, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &Profile{User: user}
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Conversation{}).
		Where("user_id = ? AND state = ?", userID, models.StateActive).
		Count(&out.ConversationCount).Error; err != nil {
		return nil, apperror.Internal("failed to count conversations", err)
	}
	if err := db.Model(&models.LegacyMessage{}).Where("senior_dev_id = ?", userID).Count(&out.LegacyCount).Error; err != nil {
		return nil, apperror.Internal("failed to count legacy messages", err)
	}
	return out, nil
}

type ProfileInput struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	ProfileImageURL *string `json:"profileImage"`
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.Validation("name cannot be empty")
		}
		user.Name = name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, apperror.Validation("a valid email is required")
		}
		if email != user.Email {
			taken, err := s.emailTaken(ctx, email, user.ID)
			if err != nil {
				return nil, apperror.Internal("failed to check email", err)
			}
			if taken {
				return nil, apperror.Conflict("email already registered")
			}
			user.Email = email
		}
	}
	if in.Password != nil && *in.Password != "" {
		if err := checkPassword(*in.Password); err != nil {
			return nil, err
		}
		if err := user.SetPassword(*in.Password); err != nil {
			return nil, apperror.Internal("failed to hash password", err)
		}
	}
	if in.ProfileImageURL != nil {
		user.ProfileImageURL = strings.TrimSpace(*in.ProfileImageURL)
	}
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, apperror.Internal("failed to update profile", err)
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context, p auth.Principal) ([]models.User, error) {
	if !p.Can(auth.CapManageUsers) {
		return nil, apperror.Forbidden("only admins can list users")
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, apperror.Internal("failed to list users", err)
	}
	return users, nil
}

// SetRole changes another user's role. Admins cannot demote themselves, so
// the system always keeps the admin that made the change.
func (s *AuthService) SetRole(ctx context.Context, p auth.Principal, userID uint, roleStr string) (*models.User, error) {
	if !p.Can(auth.CapManageUsers) {
		return nil, apperror.Forbidden("only admins can change roles")
	}
	role, err := auth.ParseRole(roleStr)
	if err != nil || strings.TrimSpace(roleStr) == "" {
		return nil, apperror.Validation("role must be one of EMPLOYEE, ADMIN, SENIOR_DEV")
	}
	if userID == p.UserID && role != auth.RoleAdmin {
		return nil, apperror.Validation("admins cannot change their own role")
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, apperror.Internal("failed to update role", err)
	}
	user.Role = role
	s.log.Info("role changed", zap.Uint("user_id", userID), zap.String("role", string(role)), zap.Uint("by", p.UserID))
	return user, nil
}
