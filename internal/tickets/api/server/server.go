package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/Leopold1975/tickets_control/internal/pkg/config"
	"github.com/Leopold1975/tickets_control/internal/tickets/domain/models"
	"github.com/Leopold1975/tickets_control/internal/tickets/repository/ticketrepo"
	"github.com/Leopold1975/tickets_control/internal/tickets/services/authservice"
	"github.com/Leopold1975/tickets_control/internal/tickets/services/ticketservice"
	"github.com/Leopold1975/tickets_control/internal/tickets/services/userservice"
	"github.com/Leopold1975/tickets_control/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type Server struct {
	serv          *http.Server
	userService   UserService
	ticketService TicketService
	authService   AuthService
	sessionTTL    time.Duration
	templates     *template.Template
	lg            logger.Logger
}

type UserService interface {
	CreateUser(context.Context, userservice.CreateUserRequest) (models.User, error)
	GetUser(context.Context, int64) (models.User, error)
	ListUsers(ctx context.Context, skip, limit int) ([]models.User, error)
	UpdateUser(context.Context, int64, userservice.UpdateUserRequest) (models.User, error)
	DeleteUser(context.Context, int64) (models.User, error)
	Shutdown(context.Context) error
}

type TicketService interface {
	CreateForUser(context.Context, int64, ticketservice.CreateTicketRequest) (models.Ticket, error)
	CreateForSession(context.Context, string, ticketservice.CreateTicketRequest) (models.Ticket, error)
	Get(context.Context, ticketrepo.Scope, int64) (models.Ticket, error)
	List(ctx context.Context, scope ticketrepo.Scope, skip, limit int) ([]models.Ticket, error)
	Update(context.Context, ticketrepo.Scope, int64, ticketservice.CreateTicketRequest) (models.Ticket, error)
	Delete(context.Context, ticketrepo.Scope, int64) error
	Shutdown(context.Context) error
}

type AuthService interface {
	Login(context.Context, authservice.LoginRequest) (string, error)
	CurrentUser(ctx context.Context, token string, requiredScopes ...string) (models.User, error)
	RecoverPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

func New(cfg config.Server, us UserService, ts TicketService, as AuthService, lg logger.Logger) (*Server, error) {
	s := &Server{ //nolint:exhaustruct
		userService:   us,
		ticketService: ts,
		authService:   as,
		sessionTTL:    cfg.SessionTTL,
		lg:            lg,
	}

	templatesDir := cfg.TemplatesDir
	if templatesDir == "" {
		templatesDir = "./web/templates"
	}

	tmpl, err := template.ParseGlob(templatesDir + "/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates error: %w", err)
	}

	s.templates = tmpl

	r := chi.NewRouter()
	r.Use(loggingMiddleware(lg))
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	r.Get("/health", s.health)

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/users", func(u chi.Router) {
			u.Post("/", s.createUser)
			u.Get("/", s.listUsers)
			u.Get("/{id}", s.readUser)
			u.Put("/{id}", s.updateUser)
			u.Delete("/{id}", s.deleteUser)
			u.Post("/{id}/tickets", s.createUserTicket)
		})

		api.Route("/auth", func(a chi.Router) {
			a.Post("/login/access-token", s.loginAccessToken)
			a.Post("/login/test-token", s.testToken)
			a.Post("/password-recovery/{email}", s.recoverPassword)
			a.Post("/reset-password/", s.resetPassword)
		})

		api.Route("/tickets", func(t chi.Router) {
			t.Use(s.sessionMiddleware)
			t.Get("/", s.listTickets)
			t.Post("/", s.createTicket)
			t.Get("/{id}", s.readTicket)
			t.Put("/{id}", s.updateTicket)
			t.Delete("/{id}", s.deleteTicket)
		})
	})

	// Доска на HTMX-фрагментах живёт от корня и делит
	// session-куку с /api/v1/tickets.
	r.Group(func(v chi.Router) {
		v.Use(s.sessionMiddleware)
		v.Get("/", s.boardPage)
		v.Post("/", s.boardCreate)
		v.Get("/register/", s.registerPage)
		v.Get("/login/", s.loginPage)
		v.Get("/{id}/", s.boardEdit)
		v.Put("/{id}/", s.boardUpdate)
		v.Delete("/{id}/", s.boardDelete)
	})

	serv := &http.Server{ //nolint:exhaustruct
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	s.serv = serv

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error)

	go func() {
		if err := s.serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			close(errCh)
		}
	}()

	select {
	case <-ctx.Done():
		ctxS, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
		defer cancel()

		if err := s.Shutdown(ctxS); err != nil { //nolint:contextcheck
			return fmt.Errorf("context error: %w server error %w", ctxS.Err(), err)
		}

		if !errors.Is(ctx.Err(), context.Canceled) {
			return fmt.Errorf("context cancelled error: %w", ctx.Err())
		}

		return nil
	case err := <-errCh:
		return fmt.Errorf("listen and serve error: %w", err)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctxS, cancel := context.WithTimeout(ctx, s.serv.IdleTimeout)
	defer cancel()

	if err := s.serv.Shutdown(ctxS); err != nil {
		return fmt.Errorf("shutdown server error: %w", err)
	}

	return nil
}

// Проверка живости: никаких зависимостей не трогает.
// (GET /health).
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	if err := enc.Encode(HealthResponse{Message: "It worked!!"}); err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}
}
