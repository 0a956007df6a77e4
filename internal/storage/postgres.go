package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/org/authgate/pkg/models"
)

// PostgresBackend is a Backend backed by PostgreSQL.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend opens a pgxpool connection and returns a ready backend.
func NewPostgresBackend(ctx context.Context, connStr string) (*PostgresBackend, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

func (p *PostgresBackend) Close() {
	p.pool.Close()
}

func (p *PostgresBackend) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// --- Sessions ---

func (p *PostgresBackend) CreateSession(ctx context.Context, s *models.Session) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		s.ID, s.UserID, s.CreatedAt, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (p *PostgresBackend) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at, expires_at, revoked_at FROM sessions WHERE id = $1`,
		id,
	)
	s := &models.Session{}
	if err := row.Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &s.RevokedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (p *PostgresBackend) TouchSession(ctx context.Context, id string, expiresAt time.Time) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE sessions SET expires_at = $2 WHERE id = $1 AND revoked_at IS NULL`,
		id, expiresAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresBackend) RevokeSession(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresBackend) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- Security events ---

func (p *PostgresBackend) WriteSecurityEvent(ctx context.Context, ev *models.SecurityEvent) error {
	return p.pool.QueryRow(ctx,
		`INSERT INTO security_events (kind, source_ip, detail, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		string(ev.Kind), ev.SourceIP, ev.Detail, ev.Timestamp,
	).Scan(&ev.ID)
}

func (p *PostgresBackend) QuerySecurityEvents(ctx context.Context, filter EventFilter) ([]*models.SecurityEvent, error) {
	query := `SELECT id, kind, source_ip, detail, created_at FROM security_events WHERE 1=1`
	args := []any{}
	n := 0

	if filter.Kind != "" {
		n++
		query += fmt.Sprintf(" AND kind = $%d", n)
		args = append(args, filter.Kind)
	}
	if filter.SourceIP != "" {
		n++
		query += fmt.Sprintf(" AND source_ip = $%d", n)
		args = append(args, filter.SourceIP)
	}
	if filter.Since != nil {
		n++
		query += fmt.Sprintf(" AND created_at >= $%d", n)
		args = append(args, *filter.Since)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		n++
		query += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.SecurityEvent
	for rows.Next() {
		ev := &models.SecurityEvent{}
		var kind string
		if err := rows.Scan(&ev.ID, &kind, &ev.SourceIP, &ev.Detail, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.Kind = models.EventKind(kind)
		events = append(events, ev)
	}
	return events, rows.Err()
}
