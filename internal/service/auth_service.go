package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentalhub/internal/apierror"
	"rentalhub/internal/config"
	"rentalhub/internal/dto"
	"rentalhub/internal/model"
	"rentalhub/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Token types carried in the "typ" claim.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

const bcryptCost = 12

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	CreateUser(ctx context.Context, actor Actor, req dto.CreateUserRequest) (*dto.UserResponse, error)
	ListUsers(ctx context.Context) ([]dto.UserResponse, error)
	// EnsureBootstrapAdmin creates the first admin account when, and only
	// when, no user exists yet. Safe to call from every instance at startup.
	EnsureBootstrapAdmin(ctx context.Context, email, password string) (bool, error)
}

type authService struct {
	repo  repository.UserRepository
	cfg   *config.Config
	audit AuditService
}

func NewAuthService(repo repository.UserRepository, cfg *config.Config, audit AuditService) AuthService {
	return &authService{repo: repo, cfg: cfg, audit: audit}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Storage("load user", err)
		}
		return nil, apierror.Unauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apierror.Unauthorized("invalid credentials")
	}
	return s.issue(user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, apierror.Unauthorized("refresh token invalid or expired")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != TokenRefresh {
		return nil, apierror.Unauthorized("not a refresh token")
	}
	idStr, _ := claims["id"].(string)
	uid, err := uuid.Parse(idStr)
	if err != nil {
		return nil, apierror.Unauthorized("malformed token")
	}

	user, err := s.repo.FindByID(ctx, uid)
	if err != nil || !user.Active {
		return nil, apierror.Unauthorized("user not found or inactive")
	}
	return s.issue(user)
}

func (s *authService) CreateUser(ctx context.Context, actor Actor, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	user, err := s.newUser(req.Email, req.Name, req.Password, req.Role)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apierror.Conflict("email already registered")
		}
		return nil, apierror.Storage("create user", err)
	}
	if s.audit != nil {
		entry := AuditEntry{Action: "user.create", Target: user.Email, IP: actor.IP, Details: map[string]string{"role": user.Role}}
		if actor.ID != uuid.Nil {
			entry.UserID = &actor.ID
		}
		s.audit.Record(ctx, entry)
	}
	resp := userToResponse(user)
	return &resp, nil
}

func (s *authService) ListUsers(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apierror.Storage("list users", err)
	}
	resp := make([]dto.UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(&users[i])
	}
	return resp, nil
}

func (s *authService) EnsureBootstrapAdmin(ctx context.Context, email, password string) (bool, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if email == "" || password == "" {
		log.Warn().Msg("no users exist and BOOTSTRAP_ADMIN_EMAIL/PASSWORD are not set")
		return false, nil
	}

	user, err := s.newUser(email, "Administrator", password, model.RoleAdmin)
	if err != nil {
		return false, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// Another instance won the race.
		if repository.IsUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	log.Info().Str("email", user.Email).Msg("bootstrap admin created")
	return true, nil
}

func (s *authService) newUser(email, name, password, role string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}
	return &model.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}, nil
}

func (s *authService) issue(user *model.User) (*dto.LoginResponse, error) {
	accessToken, err := s.generateToken(user, TokenAccess, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.generateToken(user, TokenRefresh, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		User:         userToResponse(user),
	}, nil
}

func (s *authService) generateToken(user *model.User, typ string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"id":    user.ID.String(),
		"email": user.Email,
		"role":  user.Role,
		"typ":   typ,
		"exp":   time.Now().Add(duration).Unix(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
