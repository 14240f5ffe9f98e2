package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres is the production account store.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres runs pending schema migrations and opens the connection pool.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if err := migrate(databaseURL); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func migrate(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open postgres for migrations: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (p *Postgres) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
}

func (p *Postgres) ByTwilioNumber(ctx context.Context, number string) (Account, error) {
	const q = `
		SELECT id, email, display_name, twilio_number, forwarding_number,
		       scheduling_url, timezone, calendar_refresh_token, calendar_connected
		FROM accounts
		WHERE twilio_number = $1`

	var a Account
	var refreshToken sql.NullString
	err := p.pool.QueryRow(ctx, q, number).Scan(
		&a.ID,
		&a.Email,
		&a.DisplayName,
		&a.TwilioNumber,
		&a.ForwardingNumber,
		&a.SchedulingURL,
		&a.Timezone,
		&refreshToken,
		&a.CalendarConnected,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("query account by number: %w", err)
	}
	a.CalendarRefreshToken = refreshToken.String
	return a, nil
}
