// Package postgres implements the database stores on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"trippin/database"
	"trippin/model"
)

type DB struct {
	conn *sql.DB
}

// ─── Init ─────────────────────────────────────────────────────────────────────

// Open connects to dsn, waiting for the server to come up, and applies
// the migrations.
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// managed databases may take a moment to accept connections
	for i := 0; i < 10; i++ {
		if err = conn.PingContext(ctx); err == nil {
			break
		}
		slog.Warn("waiting for database", "attempt", i+1, "error", err)
		select {
		case <-ctx.Done():
			conn.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect to database after retries: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Backend exposes db through the store interfaces.
func (db *DB) Backend() *database.Backend {
	return &database.Backend{
		Users:    db,
		Orders:   db,
		Sessions: db,
		Searches: db,
		Close:    db.conn.Close,
		Ping:     db.conn.PingContext,
	}
}

// ─── Migrations ───────────────────────────────────────────────────────────────

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash BYTEA,
		name          TEXT NOT NULL DEFAULT '',
		phone         TEXT NOT NULL DEFAULT '',
		country       TEXT NOT NULL DEFAULT '',
		language      TEXT NOT NULL DEFAULT '',
		currency      TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ DEFAULT NOW(),
		updated_at    TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id         TEXT PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users(id),
		plan_id    INTEGER NOT NULL,
		plan_name  TEXT NOT NULL,
		price      NUMERIC(12,2) NOT NULL,
		currency   TEXT NOT NULL,
		duration   TEXT NOT NULL,
		data       TEXT NOT NULL,
		status     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_orders_user_id
		ON orders(user_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		token      TEXT PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS searches (
		id             TEXT PRIMARY KEY,
		origin         TEXT NOT NULL,
		destination    TEXT NOT NULL,
		departure_date TEXT NOT NULL,
		return_date    TEXT NOT NULL,
		budget         NUMERIC(12,2) NOT NULL,
		passengers     INTEGER DEFAULT 1,
		flights_json   TEXT,
		hotels_json    TEXT,
		summary        TEXT,
		source         TEXT,
		created_at     TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_searches_created_at
		ON searches(created_at DESC)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := db.conn.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Users ────────────────────────────────────────────────────────────────────

func (db *DB) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = &now, &now
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, name, phone, country, language, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, normalizeEmail(u.Email), u.PasswordHash, u.Profile.Name, u.Profile.Phone,
		u.Profile.Country, u.Profile.Language, u.Profile.Currency, now, now)
	return err
}

func (db *DB) UpdateUser(ctx context.Context, u *model.User) error {
	now := time.Now()
	u.UpdatedAt = &now
	res, err := db.conn.ExecContext(ctx, `
		UPDATE users SET password_hash = $1, name = $2, phone = $3, country = $4,
			language = $5, currency = $6, updated_at = $7
		WHERE id = $8`,
		u.PasswordHash, u.Profile.Name, u.Profile.Phone, u.Profile.Country,
		u.Profile.Language, u.Profile.Currency, now, u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return database.ErrNotFound
	}
	return nil
}

const userColumns = `id, email, password_hash, name, phone, country, language, currency, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	u := &model.User{}
	var created, updated time.Time
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Profile.Name, &u.Profile.Phone,
		&u.Profile.Country, &u.Profile.Language, &u.Profile.Currency, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt, u.UpdatedAt = &created, &updated
	return u, nil
}

func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email)))
}

// ─── Orders ───────────────────────────────────────────────────────────────────

func (db *DB) AppendOrder(ctx context.Context, o *model.Order) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, plan_id, plan_name, price, currency, duration, data, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.UserID, o.PlanID, o.PlanName, o.Price, o.Currency, o.Duration, o.Data, o.Status, o.CreatedAt)
	return err
}

const orderColumns = `id, user_id, plan_id, plan_name, price, currency, duration, data, status, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*model.Order, error) {
	o := &model.Order{}
	err := row.Scan(&o.ID, &o.UserID, &o.PlanID, &o.PlanName, &o.Price, &o.Currency,
		&o.Duration, &o.Data, &o.Status, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (db *DB) ListOrders(ctx context.Context, userID uuid.UUID) ([]*model.Order, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (db *DB) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	o, err := scanOrder(db.conn.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	return o, err
}

// ─── Sessions ─────────────────────────────────────────────────────────────────

func (db *DB) SaveSession(ctx context.Context, token string, userID uuid.UUID) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id) VALUES ($1, $2)
		ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id`,
		token, userID)
	return err
}

func (db *DB) GetSession(ctx context.Context, token string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id FROM sessions WHERE token = $1`, token).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, database.ErrNotFound
	}
	return id, err
}

func (db *DB) DeleteSession(ctx context.Context, token string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

// ─── Searches ─────────────────────────────────────────────────────────────────

func (db *DB) SaveSearch(ctx context.Context, s *model.Search) error {
	flightsJSON, err := json.Marshal(s.Flights)
	if err != nil {
		return err
	}
	hotelsJSON, err := json.Marshal(s.Hotels)
	if err != nil {
		return err
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO searches (id, origin, destination, departure_date, return_date, budget, passengers,
			flights_json, hotels_json, summary, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.Origin, s.Destination, s.DepartureDate, s.ReturnDate, s.Budget, s.Passengers,
		string(flightsJSON), string(hotelsJSON), s.Summary, s.Source, s.CreatedAt)
	return err
}

func (db *DB) GetSearch(ctx context.Context, id string) (*model.Search, error) {
	s := &model.Search{}
	var flightsJSON, hotelsJSON sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, origin, destination, departure_date, return_date, budget, passengers,
			flights_json, hotels_json, summary, source, created_at
		FROM searches WHERE id = $1`, id).
		Scan(&s.ID, &s.Origin, &s.Destination, &s.DepartureDate, &s.ReturnDate,
			&s.Budget, &s.Passengers, &flightsJSON, &hotelsJSON, &s.Summary, &s.Source, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if flightsJSON.Valid {
		if err := json.Unmarshal([]byte(flightsJSON.String), &s.Flights); err != nil {
			return nil, fmt.Errorf("parse stored flights: %w", err)
		}
	}
	if hotelsJSON.Valid {
		if err := json.Unmarshal([]byte(hotelsJSON.String), &s.Hotels); err != nil {
			return nil, fmt.Errorf("parse stored hotels: %w", err)
		}
	}
	return s, nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
