// Package doubt runs tutor conversations: a short history per client,
// one question answered at a time.
package doubt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Greeting opens every conversation.
const Greeting = "Hi! I am your AI Tutor. Stuck on a concept? Ask me anything in plain English!"

// Roles of a message author.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrConversationNotFound is returned for unknown conversation IDs.
var ErrConversationNotFound = errors.New("conversation not found")

// Message is one turn of a conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Failed    bool      `json:"failed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is a tutor session.
type Conversation struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	StartedAt time.Time `json:"started_at"`
}

// Store persists conversation history.
type Store interface {
	CreateConversation(ctx context.Context) (Conversation, error)
	GetConversation(ctx context.Context, id string) (Conversation, error)
	AddMessage(ctx context.Context, conversationID string, msg Message) error
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	conversations map[string]*Conversation
	mu            sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*Conversation),
	}
}

// CreateConversation starts a conversation seeded with the greeting.
func (s *MemoryStore) CreateConversation(_ context.Context) (Conversation, error) {
	now := time.Now()
	conv := &Conversation{
		ID:        uuid.NewString(),
		Messages:  []Message{{Role: RoleAssistant, Content: Greeting, CreatedAt: now}},
		StartedAt: now,
	}

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.mu.Unlock()
	return copyConversation(conv), nil
}

func (s *MemoryStore) GetConversation(_ context.Context, id string) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return Conversation{}, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	return copyConversation(conv), nil
}

func (s *MemoryStore) AddMessage(_ context.Context, conversationID string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	conv.Messages = append(conv.Messages, msg)
	return nil
}

func copyConversation(c *Conversation) Conversation {
	out := *c
	out.Messages = append([]Message(nil), c.Messages...)
	return out
}
