package userservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/Leopold1975/tickets_control/internal/tickets/domain/models"
	"github.com/Leopold1975/tickets_control/internal/tickets/repository/userrepo"
	"github.com/Leopold1975/tickets_control/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

type Repository interface {
	CreateUser(context.Context, models.User) (models.User, error)
	GetUserByID(context.Context, int64) (models.User, error)
	GetUserByUsername(context.Context, string) (models.User, error)
	GetUserByEmail(context.Context, string) (models.User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]models.User, error)
	UpdateUser(context.Context, models.User) (models.User, error)
	DeleteUser(context.Context, int64) (models.User, error)
	CountUsers(context.Context) (int64, error)
	Shutdown(context.Context) error
}

type UserService struct {
	userRepo Repository
	lg       logger.Logger
}

func New(userRepo Repository, lg logger.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		lg:       lg,
	}
}

const defaultListLimit = 100

func (us *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (models.User, error) {
	// Явная проверка на занятость даёт чистую ошибку до вставки;
	// уникальный индекс остаётся страховкой от гонки.
	if _, err := us.userRepo.GetUserByUsername(ctx, req.Username); !errors.Is(err, userrepo.ErrNotFound) {
		if err != nil {
			return models.User{}, fmt.Errorf("get user error: %w", err)
		}

		return models.User{}, userrepo.ErrAlreadyExists
	}

	if _, err := us.userRepo.GetUserByEmail(ctx, req.Email); !errors.Is(err, userrepo.ErrNotFound) {
		if err != nil {
			return models.User{}, fmt.Errorf("get user error: %w", err)
		}

		return models.User{}, userrepo.ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("generate from password error: %w", err)
	}

	u := models.User{ //nolint:exhaustruct
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Active:       true,
		Superuser:    req.Superuser,
	}

	created, err := us.userRepo.CreateUser(ctx, u)
	if err != nil {
		return models.User{}, fmt.Errorf("create user error: %w", err)
	}

	return created, nil
}

func (us *UserService) GetUser(ctx context.Context, id int64) (models.User, error) {
	u, err := us.userRepo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return models.User{}, userrepo.ErrNotFound
		}

		return models.User{}, fmt.Errorf("get user error: %w", err)
	}

	return u, nil
}

func (us *UserService) ListUsers(ctx context.Context, skip, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	users, err := us.userRepo.ListUsers(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list users error: %w", err)
	}

	return users, nil
}

func (us *UserService) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (models.User, error) {
	u, err := us.userRepo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return models.User{}, userrepo.ErrNotFound
		}

		return models.User{}, fmt.Errorf("get user error: %w", err)
	}

	if req.Username != nil {
		u.Username = *req.Username
	}

	if req.Email != nil {
		u.Email = *req.Email
	}

	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, fmt.Errorf("generate from password error: %w", err)
		}

		u.PasswordHash = string(hash)
	}

	if req.Active != nil {
		u.Active = *req.Active
	}

	updated, err := us.userRepo.UpdateUser(ctx, u)
	if err != nil {
		return models.User{}, fmt.Errorf("update user error: %w", err)
	}

	return updated, nil
}

func (us *UserService) DeleteUser(ctx context.Context, id int64) (models.User, error) {
	deleted, err := us.userRepo.DeleteUser(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return models.User{}, userrepo.ErrNotFound
		}

		return models.User{}, fmt.Errorf("delete user error: %w", err)
	}

	return deleted, nil
}

// SeedSuperuser creates the initial superuser when the users table is
// empty, so a fresh deployment can be administered at all.
func (us *UserService) SeedSuperuser(ctx context.Context, username, email, password string) error {
	if username == "" || password == "" {
		return nil
	}

	count, err := us.userRepo.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users error: %w", err)
	}

	if count != 0 {
		return nil
	}

	if _, err := us.CreateUser(ctx, CreateUserRequest{
		Username:  username,
		Email:     email,
		Password:  password,
		Superuser: true,
	}); err != nil {
		return fmt.Errorf("create superuser error: %w", err)
	}

	us.lg.Infof("seeded initial superuser %q", username)

	return nil
}

func (us *UserService) Shutdown(ctx context.Context) error {
	if err := us.userRepo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown user repo error: %w", err)
	}

	return nil
}
