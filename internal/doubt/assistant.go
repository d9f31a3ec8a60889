package doubt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/p-n-ai/preppysphere/internal/ai"
	"github.com/p-n-ai/preppysphere/internal/intent"
)

// Apology is recorded in place of an answer when the gateway fails.
const Apology = "Sorry, I lost my connection to the server. Please try again."

// Solver answers a single doubt.
type Solver interface {
	SolveDoubt(ctx context.Context, req intent.DoubtRequest) (string, error)
}

// Assistant keeps conversation history around a Solver.
type Assistant struct {
	solver Solver
	store  Store
}

func NewAssistant(solver Solver, store Store) *Assistant {
	return &Assistant{solver: solver, store: store}
}

// Start opens a new conversation.
func (a *Assistant) Start(ctx context.Context) (Conversation, error) {
	conv, err := a.store.CreateConversation(ctx)
	if err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// History returns a conversation.
func (a *Assistant) History(ctx context.Context, conversationID string) (Conversation, error) {
	return a.store.GetConversation(ctx, conversationID)
}

// Ask records the question and the answer. If the gateway fails, the
// apology is recorded and returned together with the gateway error.
func (a *Assistant) Ask(ctx context.Context, conversationID, question string) (Message, error) {
	req := intent.DoubtRequest{Question: strings.TrimSpace(question)}
	if err := req.Validate(); err != nil {
		return Message{}, err
	}

	if err := a.store.AddMessage(ctx, conversationID, Message{Role: RoleUser, Content: req.Question}); err != nil {
		return Message{}, fmt.Errorf("record question: %w", err)
	}

	answer, askErr := a.solver.SolveDoubt(ctx, req)
	reply := Message{Role: RoleAssistant, Content: answer}
	if askErr != nil {
		reply = Message{Role: RoleAssistant, Content: Apology, Failed: true}
		slog.Warn("doubt unanswered", "conversation_id", conversationID, "kind", ai.KindOf(askErr).String())
	}

	if err := a.store.AddMessage(ctx, conversationID, reply); err != nil {
		return Message{}, fmt.Errorf("record answer: %w", err)
	}
	return reply, askErr
}
