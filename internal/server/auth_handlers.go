package server

import (
	"io"

	"arcade/internal/models"
	"arcade/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type loginRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
}

type changePasswordRequest struct {
	CurrentPassword *string `json:"currentPassword"`
	NewPassword     *string `json:"newPassword"`
}

// TokenResponse is returned by register and login.
type TokenResponse struct {
	Token string `json:"token"`
}

// MessageResponse carries a confirmation message.
type MessageResponse struct {
	Msg string `json:"msg"`
}

// ProfileResponse is returned after a profile update.
type ProfileResponse struct {
	Msg  string       `json:"msg"`
	User *models.User `json:"user"`
}

// AvatarResponse is returned after an avatar upload.
type AvatarResponse struct {
	Msg    string `json:"msg"`
	Avatar string `json:"avatar"`
}

// Register handles POST /auth/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	token, err := s.authSvc.Register(c.UserContext(), service.RegisterInput{
		Username: deref(req.Username),
		Email:    deref(req.Email),
		Password: deref(req.Password),
	})
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(TokenResponse{Token: token})
}

// Login handles POST /auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	token, err := s.authSvc.Login(c.UserContext(), service.LoginInput{
		Email:    deref(req.Email),
		Password: deref(req.Password),
	})
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(TokenResponse{Token: token})
}

// GetCurrentUser handles GET /auth
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	user, err := s.authSvc.CurrentUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(user)
}

// UpdateProfile handles PUT /auth/profile
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userSvc.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:   currentUserID(c),
		Username: req.Username,
		Bio:      req.Bio,
	})
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(ProfileResponse{Msg: service.MsgProfileUpdated, User: user})
}

// ChangePassword handles PUT /auth/password
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	err := s.userSvc.ChangePassword(c.UserContext(), service.ChangePasswordInput{
		UserID:          currentUserID(c),
		CurrentPassword: deref(req.CurrentPassword),
		NewPassword:     deref(req.NewPassword),
	})
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(MessageResponse{Msg: service.MsgPasswordChanged})
}

// DeleteAccount handles DELETE /auth/account
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	if err := s.userSvc.DeleteAccount(c.UserContext(), currentUserID(c)); err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(MessageResponse{Msg: service.MsgAccountDeleted})
}

// UploadAvatar handles POST /auth/avatar (multipart field "avatar")
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return s.respondWithError(c, models.NewValidationError(service.MsgNoFileUploaded))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return s.respondWithError(c, models.NewValidationError("Invalid upload payload"))
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(io.LimitReader(file, s.avatarSvc.MaxUploadBytes()+1))
	if err != nil {
		return s.respondWithError(c, models.NewValidationError("Invalid upload payload"))
	}

	avatar, err := s.avatarSvc.Upload(c.UserContext(), service.UploadAvatarInput{
		UserID:      currentUserID(c),
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(AvatarResponse{Msg: service.MsgAvatarUploaded, Avatar: avatar})
}

// AuthTest handles GET /auth/test
func (s *Server) AuthTest(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"message": "Auth routes are mounted correctly",
	})
}
