package authservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/Leopold1975/tickets_control/internal/pkg/config"
	"github.com/Leopold1975/tickets_control/internal/pkg/jwtauth"
	"github.com/Leopold1975/tickets_control/internal/tickets/domain/models"
	"github.com/Leopold1975/tickets_control/internal/tickets/repository/userrepo"
	"github.com/Leopold1975/tickets_control/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

const (
	ScopeMe         = "me"
	ScopeTickets    = "tickets"
	ScopeUsersAdmin = "users:admin"
)

var (
	ErrWrongCredentials  = errors.New("incorrect username or password")
	ErrInactiveUser      = errors.New("inactive user")
	ErrNotAllowed        = errors.New("the user doesn't have enough privileges")
	ErrInsufficientScope = errors.New("not enough permissions")
)

type Repository interface {
	GetUserByUsername(context.Context, string) (models.User, error)
	GetUserByEmail(context.Context, string) (models.User, error)
	UpdateUser(context.Context, models.User) (models.User, error)
}

type AuthService struct {
	userRepo Repository
	cfg      config.Auth
	lg       logger.Logger
}

func New(userRepo Repository, cfg config.Auth, lg logger.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		cfg:      cfg,
		lg:       lg,
	}
}

// Authenticate resolves the identifier as a username first, then as an
// email, and checks the password. Unknown identifier and wrong password
// are indistinguishable to the caller.
func (as *AuthService) Authenticate(ctx context.Context, identifier, password string) (models.User, error) {
	u, err := as.userRepo.GetUserByUsername(ctx, identifier)
	if errors.Is(err, userrepo.ErrNotFound) {
		u, err = as.userRepo.GetUserByEmail(ctx, identifier)
	}

	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return models.User{}, ErrWrongCredentials
		}

		return models.User{}, fmt.Errorf("get user error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrWrongCredentials
	}

	return u, nil
}

func (as *AuthService) Login(ctx context.Context, req LoginRequest) (string, error) {
	u, err := as.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return "", err
	}

	if err := as.RequireActive(u); err != nil {
		return "", err
	}

	token, err := jwtauth.GetToken(u.Username, grantScopes(u, req.Scopes), as.cfg.TTL, as.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("can't get token error: %w", err)
	}

	return token, nil
}

// CurrentUser resolves the bearer token to a user and checks every
// required scope against the token's scope set.
func (as *AuthService) CurrentUser(ctx context.Context, token string, requiredScopes ...string) (models.User, error) {
	claims, err := jwtauth.ValidateToken(token, as.cfg.Secret)
	if err != nil {
		return models.User{}, fmt.Errorf("validate token error: %w", err)
	}

	if claims.Purpose != "" {
		return models.User{}, jwtauth.ErrInvalidToken
	}

	u, err := as.userRepo.GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return models.User{}, jwtauth.ErrInvalidToken
		}

		return models.User{}, fmt.Errorf("get user error: %w", err)
	}

	for _, scope := range requiredScopes {
		if !claims.HasScope(scope) {
			return models.User{}, ErrInsufficientScope
		}
	}

	return u, nil
}

func (as *AuthService) RequireActive(u models.User) error {
	if !u.Active {
		return ErrInactiveUser
	}

	return nil
}

func (as *AuthService) RequireSuperuser(u models.User) error {
	if !u.Superuser {
		return ErrNotAllowed
	}

	return nil
}

// RecoverPassword issues a purpose-tagged reset token for the account.
// Mail delivery is a stub: the token is logged instead of sent.
func (as *AuthService) RecoverPassword(ctx context.Context, email string) error {
	u, err := as.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return userrepo.ErrNotFound
		}

		return fmt.Errorf("get user error: %w", err)
	}

	token, err := jwtauth.GetRecoveryToken(u.Email, as.cfg.RecoveryTTL, as.cfg.Secret)
	if err != nil {
		return fmt.Errorf("can't get recovery token error: %w", err)
	}

	as.lg.Infof("password recovery token for %s: %s", u.Email, token)

	return nil
}

func (as *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := jwtauth.ValidateToken(token, as.cfg.Secret)
	if err != nil {
		return fmt.Errorf("validate token error: %w", err)
	}

	if claims.Purpose != jwtauth.PurposeRecovery {
		return jwtauth.ErrInvalidToken
	}

	u, err := as.userRepo.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return userrepo.ErrNotFound
		}

		return fmt.Errorf("get user error: %w", err)
	}

	if err := as.RequireActive(u); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("generate from password error: %w", err)
	}

	u.PasswordHash = string(hash)

	if _, err := as.userRepo.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update user error: %w", err)
	}

	return nil
}

// AllowedScopes is the role-derived allow-list: every active user may
// hold "me" and "tickets", superusers additionally "users:admin".
func AllowedScopes(u models.User) []string {
	scopes := []string{ScopeMe, ScopeTickets}
	if u.Superuser {
		scopes = append(scopes, ScopeUsersAdmin)
	}

	return scopes
}

// grantScopes intersects the requested scopes with the role allow-list.
// An empty request grants the full allow-list.
func grantScopes(u models.User, requested []string) []string {
	allowed := AllowedScopes(u)

	if len(requested) == 0 {
		return allowed
	}

	granted := make([]string, 0, len(requested))

	for _, req := range requested {
		for _, a := range allowed {
			if req == a {
				granted = append(granted, req)

				break
			}
		}
	}

	return granted
}
