package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Leopold1975/tickets_control/internal/pkg/config"
	"github.com/Leopold1975/tickets_control/internal/tickets/api/server"
	"github.com/Leopold1975/tickets_control/internal/tickets/repository/ticketcache/redis"
	tr "github.com/Leopold1975/tickets_control/internal/tickets/repository/ticketrepo/postgres"
	ur "github.com/Leopold1975/tickets_control/internal/tickets/repository/userrepo/postgres"
	"github.com/Leopold1975/tickets_control/internal/tickets/services/authservice"
	"github.com/Leopold1975/tickets_control/internal/tickets/services/ticketservice"
	"github.com/Leopold1975/tickets_control/internal/tickets/services/userservice"
	"github.com/Leopold1975/tickets_control/pkg/logger"
)

type Server interface {
	Start(context.Context) error
	Shutdown(context.Context) error
}

type TicketsApp struct {
	s   Server
	lg  logger.Logger
	cfg config.Config
}

func New(ctx context.Context, cfg config.Config) (TicketsApp, error) {
	lg, err := logger.New(cfg.Logger)
	if err != nil {
		return TicketsApp{}, fmt.Errorf("can't get logger error: %w", err)
	}

	userRepo, err := ur.New(ctx, cfg.PostgresDB)
	if err != nil {
		return TicketsApp{}, fmt.Errorf("postgres user repo initializing error: %w", err)
	}

	ticketRepo, err := tr.New(ctx, cfg.PostgresDB)
	if err != nil {
		return TicketsApp{}, fmt.Errorf("postgres ticket repo initializing error: %w", err)
	}

	tc, err := redis.New(ctx, cfg.RedisCache)
	if err != nil {
		return TicketsApp{}, fmt.Errorf("redis ticket cache initializing error: %w", err)
	}

	userService := userservice.New(userRepo, lg)

	if err := userService.SeedSuperuser(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return TicketsApp{}, fmt.Errorf("seed superuser error: %w", err)
	}

	ticketService := ticketservice.New(ticketRepo, tc, lg)

	authService := authservice.New(userRepo, cfg.Auth, lg)

	s, err := server.New(cfg.Server, userService, ticketService, authService, lg)
	if err != nil {
		return TicketsApp{}, fmt.Errorf("server initializing error: %w", err)
	}

	return TicketsApp{
		s:   s,
		lg:  lg,
		cfg: cfg,
	}, nil
}

func (ta *TicketsApp) Run(ctx context.Context) {
	ta.lg.Infof("STARTED SERVER ON %s", ta.cfg.Server.Addr)

	go func() {
		if err := ta.s.Start(ctx); err != nil {
			ta.lg.Errorf("server start error: %s", err.Error())
			ctx.Done()

			return
		}
	}()

	<-ctx.Done()

	ctxS, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	if err := ta.Stop(ctxS); err != nil { //nolint:contextcheck
		ta.lg.Errorf("server shutdown error: %s", err.Error())
	}
}

func (ta *TicketsApp) Stop(ctx context.Context) error {
	if err := ta.s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	ta.lg.Info("Shutdowned successfully")

	return nil
}
