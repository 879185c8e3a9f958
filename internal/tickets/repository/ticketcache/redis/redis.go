package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Leopold1975/tickets_control/internal/pkg/config"
	"github.com/Leopold1975/tickets_control/internal/pkg/redistools"
	"github.com/Leopold1975/tickets_control/internal/tickets/domain/models"
	"github.com/Leopold1975/tickets_control/internal/tickets/repository/ticketrepo"
	"github.com/redis/go-redis/v9"
)

type TicketCache struct {
	rdb     *redis.Client
	expTime time.Duration
}

func New(ctx context.Context, cfg config.RedisCache) (TicketCache, error) {
	rdb := redis.NewClient(&redis.Options{ //nolint:exhaustruct
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := redistools.Connect(ctx, rdb); err != nil {
		return TicketCache{}, fmt.Errorf("connect error: %w", err)
	}

	return TicketCache{
		rdb:     rdb,
		expTime: cfg.ExpTime,
	}, nil
}

func (tc TicketCache) CacheTicket(ctx context.Context, ticket models.Ticket) error {
	ticketJSON, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	_, err = tc.rdb.Set(ctx, fmt.Sprintf("ticket:%d", ticket.ID), ticketJSON, tc.expTime).Result() //nolint:perfsprint
	if err != nil {
		return fmt.Errorf("set error: %w", err)
	}

	// Индекс по сессии, чтобы доска гостя собиралась одним SMembers.
	if ticket.SessionKey != "" {
		_, err = tc.rdb.SAdd(ctx, "session:"+ticket.SessionKey, ticket.ID).Result()
		if err != nil {
			return fmt.Errorf("sadd error: %w", err)
		}

		if err := tc.rdb.Expire(ctx, "session:"+ticket.SessionKey, tc.expTime).Err(); err != nil {
			return fmt.Errorf("expire error: %w", err)
		}
	}

	return nil
}

// CacheSessionTickets пересобирает сессионный кэш по полной выборке
// и ставит маркер полноты; без маркера индексу верить нельзя.
func (tc TicketCache) CacheSessionTickets(ctx context.Context, sessionKey string, tickets []models.Ticket) error {
	for _, t := range tickets {
		if err := tc.CacheTicket(ctx, t); err != nil {
			return err
		}
	}

	if err := tc.rdb.Set(ctx, "session:"+sessionKey+":full", 1, tc.expTime).Err(); err != nil {
		return fmt.Errorf("set error: %w", err)
	}

	return nil
}

func (tc TicketCache) GetSessionTickets(ctx context.Context, sessionKey string) ([]models.Ticket, error) {
	full, err := tc.rdb.Exists(ctx, "session:"+sessionKey+":full").Result()
	if err != nil {
		return nil, fmt.Errorf("exists error: %w", err)
	}

	// Индекс без маркера мог быть засеян точечной записью после сброса.
	if full == 0 {
		return nil, ticketrepo.ErrNotFound
	}

	ids, err := tc.rdb.SMembers(ctx, "session:"+sessionKey).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers error: %w", err)
	}

	if len(ids) == 0 {
		return nil, ticketrepo.ErrNotFound
	}

	tickets := make([]models.Ticket, 0, len(ids))

	for _, id := range ids {
		ticketJSON, err := tc.rdb.Get(ctx, "ticket:"+id).Result()
		if errors.Is(err, redis.Nil) {
			// Затухший элемент индекса означает, что кэш неполный.
			return nil, ticketrepo.ErrNotFound
		} else if err != nil {
			return nil, fmt.Errorf("get error: %w", err)
		}

		var ticket models.Ticket

		if err := json.Unmarshal([]byte(ticketJSON), &ticket); err != nil {
			return nil, fmt.Errorf("unmarshal error: %w", err)
		}

		tickets = append(tickets, ticket)
	}

	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID < tickets[j].ID })

	return tickets, nil
}

func (tc TicketCache) DeleteTicket(ctx context.Context, sessionKey string, ticketID int64) error {
	if sessionKey != "" {
		if err := tc.rdb.SRem(ctx, "session:"+sessionKey, ticketID).Err(); err != nil {
			return fmt.Errorf("srem error: %w", err)
		}
	}

	deleted, err := tc.rdb.Del(ctx, fmt.Sprintf("ticket:%d", ticketID)).Result() //nolint:perfsprint
	if err != nil {
		return fmt.Errorf("del error: %w", err)
	}

	if deleted == 0 {
		return ticketrepo.ErrNotFound
	}

	return nil
}
