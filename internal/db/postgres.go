package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Options describes the Postgres connection.
type Options struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// PostgresDB holds the bookkeeping the spreadsheet cannot: which due
// reminders went out and which online payments were already applied.
type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(cfg Options) (*PostgresDB, error) {
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 5
	}
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.MaxOpenConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	if cfg.ConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnLifetime
	}
	poolConfig.MaxConnIdleTime = 15 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS reminder_log (
    reminder_key TEXT PRIMARY KEY,
    sent_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS dues_payments (
    id                SERIAL PRIMARY KEY,
    user_id           BIGINT NOT NULL,
    amount            BIGINT NOT NULL,
    currency          TEXT NOT NULL,
    stripe_session_id TEXT UNIQUE NOT NULL,
    status            TEXT NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS stripe_events (
    event_id     TEXT PRIMARY KEY,
    processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate creates the tables when they do not exist.
func (db *PostgresDB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Sent reports whether the reminder with key was already delivered.
func (db *PostgresDB) Sent(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reminder_log WHERE reminder_key = $1)`, key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up reminder %s: %w", key, err)
	}
	return exists, nil
}

func (db *PostgresDB) MarkSent(ctx context.Context, key string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO reminder_log (reminder_key) VALUES ($1) ON CONFLICT DO NOTHING`, key)
	if err != nil {
		return fmt.Errorf("failed to record reminder %s: %w", key, err)
	}
	return nil
}

// SaveCheckout records a checkout session issued for a member's dues.
func (db *PostgresDB) SaveCheckout(ctx context.Context, userID int64, amount int64, currency, sessionID string) error {
	query := `
        INSERT INTO dues_payments (user_id, amount, currency, stripe_session_id, status)
        VALUES ($1, $2, $3, $4, 'pending')
        ON CONFLICT (stripe_session_id) DO NOTHING
    `
	if _, err := db.pool.Exec(ctx, query, userID, amount, currency, sessionID); err != nil {
		return fmt.Errorf("failed to save checkout %s: %w", sessionID, err)
	}
	return nil
}

func (db *PostgresDB) UpdatePaymentStatus(ctx context.Context, sessionID, status string) error {
	query := `
        UPDATE dues_payments
        SET status = $2, updated_at = NOW()
        WHERE stripe_session_id = $1
    `
	_, err := db.pool.Exec(ctx, query, sessionID, status)
	return err
}

// ClaimEvent marks a webhook event as processed. It returns false when the
// event had been claimed before.
func (db *PostgresDB) ClaimEvent(ctx context.Context, eventID string) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`INSERT INTO stripe_events (event_id) VALUES ($1) ON CONFLICT DO NOTHING`, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to claim event %s: %w", eventID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseEvent drops a claim so a redelivery of the event is applied.
func (db *PostgresDB) ReleaseEvent(ctx context.Context, eventID string) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM stripe_events WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("failed to release event %s: %w", eventID, err)
	}
	return nil
}
