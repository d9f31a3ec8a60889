package issues

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/preppysphere/internal/intent"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store using the issues table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, issue Issue) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO issues (id, title, description, category, routing, status, created_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7)`,
		issue.ID.String(),
		issue.Title,
		issue.Description,
		string(issue.Category),
		issue.Routing,
		string(issue.Status),
		issue.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, title, description, category, routing, status, created_at
		 FROM issues
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	out := []Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT id::text, title, description, category, routing, status, created_at
		 FROM issues
		 WHERE id = $1::uuid`,
		id.String(),
	)
	issue, err := scanIssue(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Issue{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return issue, err
}

func (s *PostgresStore) SetStatus(ctx context.Context, id uuid.UUID, status Status) (Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`UPDATE issues SET status = $2
		 WHERE id = $1::uuid
		 RETURNING id::text, title, description, category, routing, status, created_at`,
		id.String(),
		string(status),
	)
	issue, err := scanIssue(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Issue{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return issue, err
}

func scanIssue(row pgx.Row) (Issue, error) {
	var (
		issue    Issue
		id       string
		category string
		status   string
	)
	if err := row.Scan(&id, &issue.Title, &issue.Description, &category, &issue.Routing, &status, &issue.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Issue{}, err
		}
		return Issue{}, fmt.Errorf("scan issue: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Issue{}, fmt.Errorf("parse issue id: %w", err)
	}
	issue.ID = parsed
	issue.Category = intent.IssueCategory(category)
	issue.Status = Status(status)
	return issue, nil
}
