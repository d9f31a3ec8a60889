package doubt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// CreateConversation inserts a conversation and its greeting in one transaction.
func (s *PostgresStore) CreateConversation(ctx context.Context) (Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	now := time.Now().UTC()
	conv := Conversation{
		ID:        uuid.NewString(),
		Messages:  []Message{{Role: RoleAssistant, Content: Greeting, CreatedAt: now}},
		StartedAt: now,
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO conversations (id, started_at) VALUES ($1::uuid, $2)`,
			conv.ID, conv.StartedAt,
		); err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO messages (conversation_id, role, content, failed, created_at)
			 VALUES ($1::uuid, $2, $3, false, $4)`,
			conv.ID, RoleAssistant, Greeting, now,
		); err != nil {
			return fmt.Errorf("insert greeting: %w", err)
		}
		return nil
	})
	if err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, id string) (Conversation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Conversation{}, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	conv := Conversation{ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT started_at FROM conversations WHERE id = $1::uuid`, id,
	).Scan(&conv.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("get conversation: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT role, content, failed, created_at
		 FROM messages
		 WHERE conversation_id = $1::uuid
		 ORDER BY id ASC`,
		id,
	)
	if err != nil {
		return Conversation{}, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Failed, &msg.CreatedAt); err != nil {
			return Conversation{}, fmt.Errorf("scan message: %w", err)
		}
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return Conversation{}, fmt.Errorf("iterate messages: %w", err)
	}
	return conv, nil
}

func (s *PostgresStore) AddMessage(ctx context.Context, conversationID string, msg Message) error {
	if _, err := uuid.Parse(conversationID); err != nil {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	if msg.Role == "" {
		return fmt.Errorf("message role is required")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	cmd, err := s.pool.Exec(ctx,
		`INSERT INTO messages (conversation_id, role, content, failed, created_at)
		 SELECT c.id, $2, $3, $4, $5
		 FROM conversations c
		 WHERE c.id = $1::uuid`,
		conversationID, msg.Role, msg.Content, msg.Failed, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	return nil
}
