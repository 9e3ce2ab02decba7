package service

import (
	"context"
	"fmt"

	"github.com/example/parklite/internal/parking/domain"
)

// UserService owns the user lifecycle and the username uniqueness rule.
type UserService struct {
	users domain.UserRepository
}

// NewUserService constructs a UserService.
func NewUserService(users domain.UserRepository) *UserService {
	return &UserService{users: users}
}

// List returns a page of users matching a substring filter on the chosen
// field, sorted by username.
func (s *UserService) List(ctx context.Context, search domain.UserSearch, req domain.PageRequest) (domain.Page[domain.User], error) {
	switch search.Field {
	case "", "username", "email", "firstName", "lastName", "fullName":
	default:
		search = domain.UserSearch{}
	}
	return s.users.Search(ctx, search, req)
}

// Get retrieves one user by id.
func (s *UserService) Get(ctx context.Context, id int64) (domain.User, error) {
	return s.users.FindByID(ctx, id)
}

// Create persists a new user, rejecting duplicate usernames.
func (s *UserService) Create(ctx context.Context, user domain.User) (domain.User, error) {
	if user.Username == "" {
		return domain.User{}, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	exists, err := s.users.ExistsByUsername(ctx, user.Username)
	if err != nil {
		return domain.User{}, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return domain.User{}, fmt.Errorf("%w: user with same username already exists", domain.ErrAlreadyExists)
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	user.ID = 0
	return s.users.Save(ctx, user)
}

// Update replaces the user's mutable fields. Changing the username to one
// held by a different user is rejected.
func (s *UserService) Update(ctx context.Context, id int64, user domain.User) (domain.User, error) {
	existing, err := s.users.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if existing.Username != user.Username {
		taken, err := s.users.ExistsByUsername(ctx, user.Username)
		if err != nil {
			return domain.User{}, fmt.Errorf("check username: %w", err)
		}
		if taken {
			return domain.User{}, fmt.Errorf("%w: username already exists", domain.ErrAlreadyExists)
		}
	}
	user.ID = id
	if user.Role == "" {
		user.Role = existing.Role
	}
	return s.users.Save(ctx, user)
}

// Delete removes the user.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	exists, err := s.users.ExistsByID(ctx, id)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return s.users.DeleteByID(ctx, id)
}
