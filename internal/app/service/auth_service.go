package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"contest_registry/internal/common"
	"contest_registry/internal/common/security"
	"contest_registry/internal/domain/model"
	"contest_registry/internal/domain/repository"
)

type AuthService struct {
	userRepo repository.UserRepository
	now      Clock
}

func NewAuthService(userRepo repository.UserRepository, clock Clock) *AuthService {
	return &AuthService{userRepo: userRepo, now: orSystemClock(clock)}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type CreateUserRequest struct {
	Username string     `json:"username"`
	Password string     `json:"password"`
	FullName string     `json:"full_name"`
	Role     model.Role `json:"role"`
}

// UpdateUserRequest changes a user's profile, role or active state. Nil fields are kept.
type UpdateUserRequest struct {
	FullName *string     `json:"full_name"`
	Role     *model.Role `json:"role"`
	IsActive *bool       `json:"is_active"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	username := model.NormalizeText(req.Username)
	if username == "" || req.Password == "" {
		return nil, common.ErrBadRequest
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized // Generic message for security
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !user.CheckPassword(req.Password) {
		return nil, common.ErrUnauthorized
	}
	if !user.IsActive {
		return nil, fmt.Errorf("user %s is disabled: %w", user.Username, common.ErrForbidden)
	}

	now := s.now()
	user.LastLogin = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	token, err := security.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{User: user, Token: token}, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, req ChangePasswordRequest) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(req.CurrentPassword) {
		return common.NewValidationError("current_password", "is incorrect")
	}
	if req.NewPassword != req.ConfirmPassword {
		return common.NewValidationError("confirm_password", "does not match the new password")
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	log.Printf("INFO: user %d changed their password", user.ID)
	return nil
}

func (s *AuthService) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	user := &model.User{
		Username: model.NormalizeText(req.Username),
		FullName: model.NormalizeText(req.FullName),
		Role:     req.Role,
		IsActive: true,
	}
	if user.Role == "" {
		user.Role = model.RoleViewer
	}
	ve := &common.ValidationError{}
	if err := user.SetPassword(req.Password); err != nil {
		ve.Merge(err)
		if !ve.Has("password") {
			return nil, err
		}
	}
	ve.Merge(user.Validate())
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Repo returns common.ErrConflict for a taken username
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	log.Printf("INFO: user %s created with role %s", user.Username, user.Role)
	return user, nil
}

// UpdateUser applies req to user id. Existing tokens pick up the change on their next request.
func (s *AuthService) UpdateUser(ctx context.Context, id uint, req UpdateUserRequest) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		user.FullName = model.NormalizeText(*req.FullName)
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}
	log.Printf("INFO: user %s updated (role %s, active %t)", user.Username, user.Role, user.IsActive)
	return user, nil
}

// ActiveUser returns the stored user behind a token. Unknown users are unauthorized
// and deactivated ones forbidden.
func (s *AuthService) ActiveUser(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("user %s is disabled: %w", user.Username, common.ErrForbidden)
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context, req PageRequest) (*ListResult[model.User], error) {
	users, total, err := s.userRepo.List(ctx, req.repoPage())
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return newListResult(users, total, req), nil
}

// EnsureAdmin creates the first administrator when the user table is empty.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password, fullName string) error {
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}
	if password == "" {
		log.Println("WARN: no users exist and ADMIN_PASSWORD is empty; skipping admin bootstrap")
		return nil
	}
	if _, err := s.CreateUser(ctx, CreateUserRequest{
		Username: username,
		Password: password,
		FullName: fullName,
		Role:     model.RoleAdmin,
	}); err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	return nil
}
