package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/jimmygitz3/final-project/internal/apperr"
	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/repository"
)

const minPasswordLength = 6

var validate = validator.New()

// TokenIssuer signs a bearer token for a user id and role.
type TokenIssuer interface {
	Issue(userID, role string) (string, error)
}

type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	now    func() time.Time
}

func NewAuthService(us UserStore, tokens TokenIssuer) *AuthService {
	return &AuthService{users: us, tokens: tokens, now: time.Now}
}

type RegisterInput struct {
	Name       string     `json:"name" binding:"required"`
	Email      string     `json:"email" binding:"required,email"`
	Password   string     `json:"password" binding:"required"`
	Phone      string     `json:"phone" binding:"required"`
	UserType   model.Role `json:"userType" binding:"required"`
	University string     `json:"university"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, apperr.Validation("Invalid email address")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperr.Validation("Password must be at least %d characters", minPasswordLength)
	}
	if !in.UserType.Valid() {
		return nil, apperr.Validation("User type must be tenant or landlord")
	}
	if in.UserType == model.RoleTenant && strings.TrimSpace(in.University) == "" {
		return nil, apperr.Validation("University is required for tenants")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("AuthService.Register: %w", err)
	}
	u := &model.User{
		Name:               strings.TrimSpace(in.Name),
		Email:              email,
		PasswordHash:       string(hash),
		Phone:              strings.TrimSpace(in.Phone),
		Role:               in.UserType,
		University:         strings.TrimSpace(in.University),
		SubscriptionStatus: model.SubscriptionActive,
		CreatedAt:          s.now(),
	}
	if u.Role == model.RoleLandlord {
		u.SubscriptionStatus = model.SubscriptionInactive
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict(nil, "User already exists")
		}
		return nil, fmt.Errorf("AuthService.Register: %w", err)
	}
	log.Printf("[AuthService] registered %s %s", u.Role, u.ID.Hex())
	return s.issue(u)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthenticated("Invalid credentials")
		}
		return nil, fmt.Errorf("AuthService.Login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperr.Unauthenticated("Invalid credentials")
	}
	return s.issue(u)
}

func (s *AuthService) Me(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("AuthService.Me: %w", err)
	}
	return u, nil
}

func (s *AuthService) issue(u *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(u.ID.Hex(), string(u.Role))
	if err != nil {
		return nil, fmt.Errorf("AuthService: %w", err)
	}
	return &AuthResult{Token: token, User: u}, nil
}
