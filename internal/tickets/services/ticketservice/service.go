package ticketservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/Leopold1975/tickets_control/internal/tickets/domain/models"
	repo "github.com/Leopold1975/tickets_control/internal/tickets/repository/ticketrepo"
	"github.com/Leopold1975/tickets_control/pkg/logger"
)

type Repository interface {
	CreateTicket(context.Context, models.Ticket) (models.Ticket, error)
	GetTicket(context.Context, repo.Scope, int64) (models.Ticket, error)
	ListTickets(context.Context, repo.ListRequest) ([]models.Ticket, error)
	UpdateTicket(context.Context, repo.Scope, models.Ticket) (models.Ticket, error)
	DeleteTicket(context.Context, repo.Scope, int64) error
	Shutdown(context.Context) error
}

type Cache interface {
	CacheTicket(context.Context, models.Ticket) error
	CacheSessionTickets(ctx context.Context, sessionKey string, tickets []models.Ticket) error
	GetSessionTickets(ctx context.Context, sessionKey string) ([]models.Ticket, error)
	DeleteTicket(ctx context.Context, sessionKey string, ticketID int64) error
}

type TicketService struct {
	ticketRepo  Repository
	ticketCache Cache
	lg          logger.Logger
}

func New(ticketRepo Repository, ticketCache Cache, lg logger.Logger) *TicketService {
	return &TicketService{
		ticketRepo:  ticketRepo,
		ticketCache: ticketCache,
		lg:          lg,
	}
}

func (ts *TicketService) CreateForUser(ctx context.Context, ownerID int64, req CreateTicketRequest) (models.Ticket, error) {
	return ts.create(ctx, models.Ticket{ //nolint:exhaustruct
		Title:       req.Title,
		Description: req.Description,
		OwnerID:     ownerID,
	})
}

func (ts *TicketService) CreateForSession(ctx context.Context, sessionKey string, req CreateTicketRequest) (models.Ticket, error) {
	return ts.create(ctx, models.Ticket{ //nolint:exhaustruct
		Title:       req.Title,
		Description: req.Description,
		SessionKey:  sessionKey,
	})
}

func (ts *TicketService) create(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	created, err := ts.ticketRepo.CreateTicket(ctx, t)
	if err != nil {
		if errors.Is(err, repo.ErrOwnerNotFound) {
			return models.Ticket{}, repo.ErrOwnerNotFound
		}

		return models.Ticket{}, fmt.Errorf("create ticket error: %w", err)
	}

	if err := ts.ticketCache.CacheTicket(ctx, created); err != nil {
		ts.lg.Error("cache ticket error: %s", err.Error())
	}

	return created, nil
}

func (ts *TicketService) Get(ctx context.Context, scope repo.Scope, id int64) (models.Ticket, error) {
	t, err := ts.ticketRepo.GetTicket(ctx, scope, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return models.Ticket{}, repo.ErrNotFound
		}

		return models.Ticket{}, fmt.Errorf("get ticket error: %w", err)
	}

	return t, nil
}

// List returns the scope's tickets in ascending id order. Unpaginated
// anonymous reads are served from the cache when it is complete.
func (ts *TicketService) List(ctx context.Context, scope repo.Scope, skip, limit int) ([]models.Ticket, error) {
	if scope.SessionKey != "" && skip == 0 && limit == 0 {
		tickets, err := ts.ticketCache.GetSessionTickets(ctx, scope.SessionKey)
		if err == nil {
			ts.lg.Info("cache hit")

			return tickets, nil
		}

		if !errors.Is(err, repo.ErrNotFound) {
			ts.lg.Error("get session tickets cache error: %s", err.Error())
		}
	}

	tickets, err := ts.ticketRepo.ListTickets(ctx, repo.ListRequest{
		Scope:  scope,
		Offset: skip,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list tickets error: %w", err)
	}

	// Сессионный индекс пересеивается только полной выборкой.
	if scope.SessionKey != "" && skip == 0 && limit == 0 {
		if err := ts.ticketCache.CacheSessionTickets(ctx, scope.SessionKey, tickets); err != nil {
			ts.lg.Error("cache session tickets error: %s", err.Error())
		}
	}

	return tickets, nil
}

func (ts *TicketService) Update(ctx context.Context, scope repo.Scope, id int64, req CreateTicketRequest) (models.Ticket, error) {
	t := models.Ticket{ //nolint:exhaustruct
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
	}

	updated, err := ts.ticketRepo.UpdateTicket(ctx, scope, t)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return models.Ticket{}, repo.ErrNotFound
		}

		return models.Ticket{}, fmt.Errorf("update ticket error: %w", err)
	}

	if err := ts.ticketCache.CacheTicket(ctx, updated); err != nil {
		ts.lg.Error("cache ticket error: %s", err.Error())
	}

	return updated, nil
}

func (ts *TicketService) Delete(ctx context.Context, scope repo.Scope, id int64) error {
	if err := ts.ticketCache.DeleteTicket(ctx, scope.SessionKey, id); err != nil &&
		!errors.Is(err, repo.ErrNotFound) {
		ts.lg.Error("delete ticket cache error: %s", err.Error())
	}

	if err := ts.ticketRepo.DeleteTicket(ctx, scope, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return repo.ErrNotFound
		}

		return fmt.Errorf("delete ticket error: %w", err)
	}

	return nil
}

func (ts *TicketService) Shutdown(ctx context.Context) error {
	if err := ts.ticketRepo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown ticket repo error: %w", err)
	}

	return nil
}
