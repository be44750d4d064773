package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	"github.com/sangkips/tillpoint-api/internal/domain/enum"
	"github.com/sangkips/tillpoint-api/internal/domain/repository"
	infraRepo "github.com/sangkips/tillpoint-api/internal/infrastructure/repository"
	"github.com/sangkips/tillpoint-api/pkg/apperror"
	"github.com/sangkips/tillpoint-api/pkg/pagination"
	"github.com/sangkips/tillpoint-api/pkg/utils"
)

// UserService manages staff accounts
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// CreateUserInput represents the create user input
type CreateUserInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     *string
	Role      string
}

// CreateUser adds a staff account. Role defaults to cashier.
func (s *UserService) CreateUser(ctx context.Context, input *CreateUserInput) (*entity.User, error) {
	username := strings.TrimSpace(input.Username)
	role := enum.RoleCashier
	if input.Role != "" {
		role = enum.UserRole(strings.ToLower(strings.TrimSpace(input.Role)))
		if !role.IsValid() {
			return nil, apperror.NewValidationError([]apperror.FieldError{{Field: "role", Message: "must be admin or cashier"}})
		}
	}

	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.NewConflictError("Username already taken")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternalError("Failed to hash password", err)
	}

	user := &entity.User{
		Username:  username,
		Password:  hashed,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     trimmedOrNil(input.Email),
		Role:      role,
		IsStaff:   true,
		IsActive:  true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if infraRepo.IsUniqueViolation(err) {
			return nil, apperror.NewConflictError("Username already taken")
		}
		return nil, err
	}
	return user, nil
}

// ListUsers lists staff accounts
func (s *UserService) ListUsers(ctx context.Context, params *pagination.PaginationParams, search string) (*pagination.PaginatedResult[entity.User], error) {
	params.Validate()
	users, total, err := s.userRepo.List(ctx, params, search)
	if err != nil {
		return nil, err
	}
	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(users, pag), nil
}

// SetActive enables or disables an account. Disabled users cannot log in.
func (s *UserService) SetActive(ctx context.Context, actorID, userID uuid.UUID, active bool) (*entity.User, error) {
	if actorID == userID && !active {
		return nil, apperror.NewBadRequestError("You cannot deactivate your own account")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NewNotFoundError("User")
	}
	user.IsActive = active
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
