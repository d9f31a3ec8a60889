package doubt_test

import (
	"context"
	"errors"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/p-n-ai/preppysphere/internal/doubt"
	"github.com/p-n-ai/preppysphere/internal/platform/database"
)

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := doubt.NewPostgresStore(nil); err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:17-alpine",
		postgres.WithDatabase("preppysphere"),
		postgres.WithUsername("preppy"),
		postgres.WithPassword("preppy"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}
	db, err := database.New(ctx, url, 4, 1)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	store, err := doubt.NewPostgresStore(db.Pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}

	conv, err := store.CreateConversation(ctx)
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if len(conv.Messages) != 1 || conv.Messages[0].Content != doubt.Greeting {
		t.Fatalf("new conversation = %+v, want greeting", conv)
	}

	msgs := []doubt.Message{
		{Role: doubt.RoleUser, Content: "What is gravity?"},
		{Role: doubt.RoleAssistant, Content: doubt.Apology, Failed: true},
	}
	for _, m := range msgs {
		if err := store.AddMessage(ctx, conv.ID, m); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
	}

	got, err := store.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(got.Messages))
	}
	if got.Messages[1].Content != "What is gravity?" || !got.Messages[2].Failed {
		t.Errorf("messages = %+v", got.Messages)
	}

	for _, id := range []string{"not-a-uuid", "7c9e6679-7425-40de-944b-e07fc1f90ae7"} {
		if _, err := store.GetConversation(ctx, id); !errors.Is(err, doubt.ErrConversationNotFound) {
			t.Errorf("GetConversation(%q) error = %v, want ErrConversationNotFound", id, err)
		}
		if err := store.AddMessage(ctx, id, msgs[0]); !errors.Is(err, doubt.ErrConversationNotFound) {
			t.Errorf("AddMessage(%q) error = %v, want ErrConversationNotFound", id, err)
		}
	}
}
