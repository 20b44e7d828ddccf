package service

import (
	"context"
	"strings"

	"arcade/internal/models"
	"arcade/internal/repository"
	"arcade/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const (
	MsgProfileUpdated        = "Profile updated successfully"
	MsgPasswordChanged       = "Password changed successfully"
	MsgAccountDeleted        = "Account deleted successfully"
	MsgPasswordFieldsMissing = "Please provide current and new password"
	MsgNewPasswordTooShort   = "New password must be at least 6 characters"
	MsgCurrentPasswordWrong  = "Current password is incorrect"
)

type UserService struct {
	userRepo   repository.UserRepository
	bcryptCost int
}

// UpdateProfileInput carries optional profile changes. A nil field is left
// untouched; an empty Bio clears the bio.
type UpdateProfileInput struct {
	UserID   models.ID
	Username *string
	Bio      *string
}

type ChangePasswordInput struct {
	UserID          models.ID
	CurrentPassword string
	NewPassword     string
}

func NewUserService(userRepo repository.UserRepository, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{userRepo: userRepo, bcryptCost: bcryptCost}
}

func (s *UserService) GetUserByID(ctx context.Context, id models.ID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username != "" && username != user.Username {
			if err := validation.ValidateUsername(username); err != nil {
				return nil, models.NewValidationError(err.Error())
			}
			existing, err := s.userRepo.GetByUsername(ctx, username)
			if err != nil {
				return nil, err
			}
			if existing != nil && !existing.ID.Equal(user.ID) {
				return nil, models.NewConflictError(repository.MsgUsernameTaken)
			}
			user.Username = username
		}
	}
	if in.Bio != nil {
		if err := validation.ValidateBio(*in.Bio); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Bio = *in.Bio
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	if in.CurrentPassword == "" || in.NewPassword == "" {
		return models.NewValidationError(MsgPasswordFieldsMissing)
	}
	if len([]rune(in.NewPassword)) < validation.MinPasswordLength {
		return models.NewValidationError(MsgNewPasswordTooShort)
	}

	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return err
	}
	if !checkPassword(user.Password, in.CurrentPassword) {
		return models.NewInvalidCredentialsError(MsgCurrentPasswordWrong)
	}

	hash, err := hashPassword(in.NewPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.Password = hash
	return s.userRepo.Update(ctx, user)
}

// DeleteAccount removes the user and everything they own.
func (s *UserService) DeleteAccount(ctx context.Context, userID models.ID) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return err
	}
	return s.userRepo.Delete(ctx, userID)
}

// SetAvatar records the public path of the user's avatar.
func (s *UserService) SetAvatar(ctx context.Context, userID models.ID, path string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Avatar = &path
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
