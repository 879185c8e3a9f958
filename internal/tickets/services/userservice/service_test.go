package userservice_test

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/Leopold1975/tickets_control/internal/tickets/domain/models"
	"github.com/Leopold1975/tickets_control/internal/tickets/repository/userrepo"
	"github.com/Leopold1975/tickets_control/internal/tickets/services/userservice"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type nopLogger struct{}

func (nopLogger) Info(string)                   {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Sync() error                   { return nil }

type memUserRepo struct {
	seq   int64
	users map[int64]models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]models.User)} //nolint:exhaustruct
}

func (m *memUserRepo) CreateUser(_ context.Context, u models.User) (models.User, error) {
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return models.User{}, userrepo.ErrAlreadyExists
		}
	}

	m.seq++
	u.ID = m.seq
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = u

	return u, nil
}

func (m *memUserRepo) GetUserByID(_ context.Context, id int64) (models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return models.User{}, userrepo.ErrNotFound
	}

	return u, nil
}

func (m *memUserRepo) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}

	return models.User{}, userrepo.ErrNotFound
}

func (m *memUserRepo) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}

	return models.User{}, userrepo.ErrNotFound
}

func (m *memUserRepo) ListUsers(_ context.Context, offset, limit int) ([]models.User, error) {
	all := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, u)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset >= len(all) {
		return nil, nil
	}

	all = all[offset:]
	if limit != 0 && limit < len(all) {
		all = all[:limit]
	}

	return all, nil
}

func (m *memUserRepo) UpdateUser(_ context.Context, u models.User) (models.User, error) {
	if _, ok := m.users[u.ID]; !ok {
		return models.User{}, userrepo.ErrNotFound
	}

	u.UpdatedAt = time.Now()
	m.users[u.ID] = u

	return u, nil
}

func (m *memUserRepo) DeleteUser(_ context.Context, id int64) (models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return models.User{}, userrepo.ErrNotFound
	}

	delete(m.users, id)

	return u, nil
}

func (m *memUserRepo) CountUsers(_ context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

func (m *memUserRepo) Shutdown(_ context.Context) error { return nil }

func TestCreateAndGetUser(t *testing.T) {
	us := userservice.New(newMemUserRepo(), nopLogger{})
	ctx := context.Background()

	created, err := us.CreateUser(ctx, userservice.CreateUserRequest{ //nolint:exhaustruct
		Email:    "a@b.com",
		Username: "a",
		Password: "pw123456",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.True(t, created.Active)

	got, err := us.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "a@b.com", got.Email)
	require.Equal(t, "a", got.Username)

	// Хэш принимает исходный пароль и отвергает любой другой.
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("pw123456")))
	require.Error(t, bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("pw1234567")))
	require.NotEqual(t, "pw123456", got.PasswordHash)
}

func TestCreateUserConflict(t *testing.T) {
	us := userservice.New(newMemUserRepo(), nopLogger{})
	ctx := context.Background()

	_, err := us.CreateUser(ctx, userservice.CreateUserRequest{ //nolint:exhaustruct
		Email:    "a@b.com",
		Username: "a",
		Password: "pw123456",
	})
	require.NoError(t, err)

	_, err = us.CreateUser(ctx, userservice.CreateUserRequest{ //nolint:exhaustruct
		Email:    "other@b.com",
		Username: "a",
		Password: "pw123456",
	})
	require.ErrorIs(t, err, userrepo.ErrAlreadyExists)

	_, err = us.CreateUser(ctx, userservice.CreateUserRequest{ //nolint:exhaustruct
		Email:    "a@b.com",
		Username: "other",
		Password: "pw123456",
	})
	require.ErrorIs(t, err, userrepo.ErrAlreadyExists)
}

func TestListUsersPagination(t *testing.T) {
	us := userservice.New(newMemUserRepo(), nopLogger{})
	ctx := context.Background()

	for i := 0; i < 150; i++ {
		_, err := us.CreateUser(ctx, userservice.CreateUserRequest{ //nolint:exhaustruct
			Email:    fmt.Sprintf("user%d@example.com", i),
			Username: fmt.Sprintf("user%d", i),
			Password: "pw123456",
		})
		require.NoError(t, err)
	}

	page, err := us.ListUsers(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, page, 100)

	for i := 1; i < len(page); i++ {
		require.Greater(t, page[i].ID, page[i-1].ID)
	}

	rest, err := us.ListUsers(ctx, 100, 100)
	require.NoError(t, err)
	require.Len(t, rest, 50)
	require.Greater(t, rest[0].ID, page[len(page)-1].ID)
}

func TestUpdateUser(t *testing.T) {
	us := userservice.New(newMemUserRepo(), nopLogger{})
	ctx := context.Background()

	created, err := us.CreateUser(ctx, userservice.CreateUserRequest{ //nolint:exhaustruct
		Email:    "a@b.com",
		Username: "a",
		Password: "pw123456",
	})
	require.NoError(t, err)

	newName := "renamed"
	inactive := false

	updated, err := us.UpdateUser(ctx, created.ID, userservice.UpdateUserRequest{ //nolint:exhaustruct
		Username: &newName,
		Active:   &inactive,
	})
	require.NoError(t, err)
	require.Equal(t, "renamed", updated.Username)
	require.Equal(t, "a@b.com", updated.Email)
	require.False(t, updated.Active)

	_, err = us.UpdateUser(ctx, 9000, userservice.UpdateUserRequest{}) //nolint:exhaustruct
	require.ErrorIs(t, err, userrepo.ErrNotFound)
}

func TestDeleteUser(t *testing.T) {
	us := userservice.New(newMemUserRepo(), nopLogger{})
	ctx := context.Background()

	created, err := us.CreateUser(ctx, userservice.CreateUserRequest{ //nolint:exhaustruct
		Email:    "a@b.com",
		Username: "a",
		Password: "pw123456",
	})
	require.NoError(t, err)

	deleted, err := us.DeleteUser(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, deleted.ID)

	_, err = us.GetUser(ctx, created.ID)
	require.ErrorIs(t, err, userrepo.ErrNotFound)

	_, err = us.DeleteUser(ctx, created.ID)
	require.ErrorIs(t, err, userrepo.ErrNotFound)
}

func TestSeedSuperuser(t *testing.T) {
	repo := newMemUserRepo()
	us := userservice.New(repo, nopLogger{})
	ctx := context.Background()

	require.NoError(t, us.SeedSuperuser(ctx, "admin", "admin@example.com", "admin12345"))

	u, err := us.GetUser(ctx, 1)
	require.NoError(t, err)
	require.True(t, u.Superuser)

	// Вторая посевная на непустой таблице ничего не делает.
	require.NoError(t, us.SeedSuperuser(ctx, "admin2", "admin2@example.com", "admin12345"))

	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}
