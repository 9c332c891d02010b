package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

var (
	ErrRequestNotFound = errors.New("checkout request not found")
	ErrNotPending      = errors.New("checkout request is not pending")
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// Request is one order submission, keyed by its idempotency key.
type Request struct {
	IdempotencyKey string
	OrderID        string
	UserID         string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Begin claims key for orderID. If the key was already claimed the existing
// request is returned with created set to false.
func (r *Repository) Begin(ctx context.Context, key, orderID, userID string) (*Request, bool, error) {
	query := `
		INSERT INTO checkout_requests (idempotency_key, order_id, user_id, status)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		ON CONFLICT (idempotency_key) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, key, orderID, userID, StatusPending)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert checkout request: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read insert result: %w", err)
	}
	if inserted == 1 {
		now := time.Now()
		return &Request{
			IdempotencyKey: key,
			OrderID:        orderID,
			UserID:         userID,
			Status:         StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}, true, nil
	}

	existing, err := r.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *Repository) Get(ctx context.Context, key string) (*Request, error) {
	query := `
		SELECT idempotency_key, order_id, COALESCE(user_id, ''), status, created_at, updated_at
		FROM checkout_requests
		WHERE idempotency_key = $1`

	var req Request
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&req.IdempotencyKey, &req.OrderID, &req.UserID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout request: %w", err)
	}
	return &req, nil
}

// Abandon releases a pending key so the client can retry with it.
func (r *Repository) Abandon(ctx context.Context, key string) error {
	query := `DELETE FROM checkout_requests WHERE idempotency_key = $1 AND status = $2`
	if _, err := r.db.ExecContext(ctx, query, key, StatusPending); err != nil {
		return fmt.Errorf("failed to abandon checkout request: %w", err)
	}
	return nil
}

// Complete marks the request completed and records the outbox event in the
// same transaction.
func (r *Repository) Complete(ctx context.Context, key, eventType string, payload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var orderID string
	updateQuery := `
		UPDATE checkout_requests
		SET status = $1, updated_at = NOW()
		WHERE idempotency_key = $2 AND status = $3
		RETURNING order_id`
	err = tx.QueryRowContext(ctx, updateQuery, StatusCompleted, key, StatusPending).Scan(&orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotPending
	}
	if err != nil {
		return fmt.Errorf("failed to complete checkout request: %w", err)
	}

	insertQuery := `
		INSERT INTO outbox_events (aggregate_id, event_type, payload)
		VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, insertQuery, orderID, eventType, payload); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetStalePending returns pending requests not touched for olderThan.
func (r *Repository) GetStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*Request, error) {
	query := `
		SELECT idempotency_key, order_id, COALESCE(user_id, ''), status, created_at, updated_at
		FROM checkout_requests
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, StatusPending, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending requests: %w", err)
	}
	defer rows.Close()

	var requests []*Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(&req.IdempotencyKey, &req.OrderID, &req.UserID, &req.Status, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan checkout request: %w", err)
		}
		requests = append(requests, &req)
	}
	return requests, rows.Err()
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY id
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	query := `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark event %d as processed: %w", id, err)
	}
	return nil
}
