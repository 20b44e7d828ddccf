package service

import (
	"context"
	"errors"
	"strings"

	"arcade/internal/models"
	"arcade/internal/repository"
	"arcade/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const (
	MsgMissingFields      = "Please enter all fields"
	MsgInvalidCredentials = "Invalid Credentials"
)

// TokenIssuer mints session tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID models.ID) (string, error)
}

type AuthService struct {
	users      repository.UserRepository
	tokens     TokenIssuer
	bcryptCost int
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

func NewAuthService(users repository.UserRepository, tokens TokenIssuer, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{users: users, tokens: tokens, bcryptCost: bcryptCost}
}

// Register creates the account and returns a session token for it. Email
// uniqueness is checked before username uniqueness.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (string, error) {
	username := strings.TrimSpace(in.Username)
	email := repository.NormalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return "", models.NewValidationError(MsgMissingFields)
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return "", models.NewValidationError(err.Error())
	}
	if err := validation.ValidateUsername(username); err != nil {
		return "", models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return "", models.NewValidationError(err.Error())
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", models.NewConflictError(repository.MsgUserExists)
	}
	existing, err = s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", models.NewConflictError(repository.MsgUsernameTaken)
	}

	hash, err := hashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return "", err
	}

	user := &models.User{
		Username:      username,
		Email:         email,
		Password:      hash,
		Bio:           models.DefaultBio,
		AvatarColor:   models.DefaultAvatarColor,
		FavoriteGames: []models.FavoriteGame{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", err
	}

	return s.issue(user.ID)
}

// Login verifies credentials. Unknown emails and wrong passwords fail the
// same way.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (string, error) {
	email := repository.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return "", models.NewValidationError(MsgMissingFields)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil || !checkPassword(user.Password, in.Password) {
		return "", models.NewInvalidCredentialsError(MsgInvalidCredentials)
	}

	return s.issue(user.ID)
}

// CurrentUser returns the caller's profile with favorites.
func (s *AuthService) CurrentUser(ctx context.Context, userID models.ID) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) issue(userID models.ID) (string, error) {
	token, err := s.tokens.Issue(userID)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return token, nil
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", models.NewValidationError("Password too long")
		}
		return "", models.NewInternalError(err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
