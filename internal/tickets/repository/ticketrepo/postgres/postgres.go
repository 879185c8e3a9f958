package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Leopold1975/tickets_control/internal/pkg/config"
	"github.com/Leopold1975/tickets_control/internal/pkg/pgtools"
	"github.com/Leopold1975/tickets_control/internal/tickets/domain/models"
	repo "github.com/Leopold1975/tickets_control/internal/tickets/repository/ticketrepo"
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // driver for migrations
)

const foreignKeyViolation = "23503"

type TicketsPostgresRepo struct {
	db *pgxpool.Pool
}

func New(ctx context.Context, cfg config.PostgresDB) (TicketsPostgresRepo, error) {
	connString := "postgres://" + cfg.Username + ":" + cfg.Password + "@" +
		cfg.Addr + "/" + cfg.DB + "?" + "sslmode=" + cfg.SSLmode + "&pool_max_conns=" + cfg.MaxConns

	db, err := pgtools.Connect(ctx, connString)
	if err != nil {
		return TicketsPostgresRepo{}, fmt.Errorf("connect to db error: %w", err)
	}

	if err := pgtools.ApplyMigration(cfg); err != nil {
		return TicketsPostgresRepo{}, fmt.Errorf("apply migration error: %w", err)
	}

	return TicketsPostgresRepo{
		db: db,
	}, nil
}

func (tr TicketsPostgresRepo) CreateTicket(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	tx, err := tr.db.Begin(ctx)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "create ticket")
	}()

	var owner interface{}
	if t.OwnerID != 0 {
		owner = t.OwnerID
	}

	var sessionKey interface{}
	if t.SessionKey != "" {
		sessionKey = t.SessionKey
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Insert("tickets").
		Columns("title", "description", "owner_id", "session_key").
		Values(t.Title, t.Description, owner, sessionKey).
		Suffix("RETURNING id, created_at, updated_at").ToSql()
	if err != nil {
		return models.Ticket{}, fmt.Errorf("to sql error: %w", err)
	}

	if err = tx.QueryRow(ctx, query, args...).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		target := new(pgconn.PgError)
		if errors.As(err, &target) && target.Code == foreignKeyViolation {
			err = repo.ErrOwnerNotFound

			return models.Ticket{}, err
		}

		return models.Ticket{}, fmt.Errorf("scan error: %w", err)
	}

	return t, nil
}

func (tr TicketsPostgresRepo) GetTicket(ctx context.Context, scope repo.Scope, id int64) (models.Ticket, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select("id", "title", "description",
		"coalesce(owner_id, 0)", "coalesce(session_key, '')", "created_at", "updated_at").
		From("tickets").
		Where(squirrel.Eq{"id": id}).
		Where(scopeWhere(scope)).ToSql()
	if err != nil {
		return models.Ticket{}, fmt.Errorf("to sql error: %w", err)
	}

	var t models.Ticket

	if err := tr.db.QueryRow(ctx, query, args...).Scan(
		&t.ID, &t.Title, &t.Description, &t.OwnerID, &t.SessionKey,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return t, repo.ErrNotFound
		}

		return t, fmt.Errorf("scan error: %w", err)
	}

	return t, nil
}

func (tr TicketsPostgresRepo) ListTickets(ctx context.Context, req repo.ListRequest) ([]models.Ticket, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	sb := psql.Select("id", "title", "description",
		"coalesce(owner_id, 0)", "coalesce(session_key, '')", "created_at", "updated_at").
		From("tickets").
		Where(scopeWhere(req.Scope)).
		OrderBy("id ASC")

	if req.Offset != 0 {
		sb = sb.Offset(uint64(req.Offset))
	}

	if req.Limit != 0 {
		sb = sb.Limit(uint64(req.Limit))
	}

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	rows, err := tr.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	tickets := make([]models.Ticket, 0, req.Limit)

	for rows.Next() {
		var t models.Ticket

		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.OwnerID, &t.SessionKey,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		tickets = append(tickets, t)
	}

	return tickets, nil
}

func (tr TicketsPostgresRepo) UpdateTicket(ctx context.Context, scope repo.Scope, t models.Ticket) (models.Ticket, error) {
	tx, err := tr.db.Begin(ctx)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "update ticket")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Update("tickets").
		Set("title", t.Title).
		Set("description", t.Description).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": t.ID}).
		Where(scopeWhere(scope)).
		Suffix("RETURNING coalesce(owner_id, 0), coalesce(session_key, ''), created_at, updated_at").ToSql()
	if err != nil {
		return models.Ticket{}, fmt.Errorf("to sql error: %w", err)
	}

	if err = tx.QueryRow(ctx, query, args...).Scan(
		&t.OwnerID, &t.SessionKey, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = repo.ErrNotFound

			return models.Ticket{}, err
		}

		return models.Ticket{}, fmt.Errorf("scan error: %w", err)
	}

	return t, nil
}

func (tr TicketsPostgresRepo) DeleteTicket(ctx context.Context, scope repo.Scope, id int64) error {
	tx, err := tr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "delete ticket")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Delete("tickets").
		Where(squirrel.Eq{"id": id}).
		Where(scopeWhere(scope)).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if ct.RowsAffected() == 0 {
		err = repo.ErrNotFound

		return err
	}

	return nil
}

func (tr TicketsPostgresRepo) Shutdown(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		tr.db.Close()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("context error: %w", ctx.Err())
	case <-done:
		return nil
	}
}

func scopeWhere(scope repo.Scope) squirrel.Eq {
	if scope.OwnerID != 0 {
		return squirrel.Eq{"owner_id": scope.OwnerID}
	}

	return squirrel.Eq{"session_key": scope.SessionKey}
}
