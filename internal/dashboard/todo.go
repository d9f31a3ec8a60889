package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/p-n-ai/preppysphere/internal/intent"
	"github.com/p-n-ai/preppysphere/internal/platform/cache"
)

// ErrTaskNotFound is returned for unknown task IDs.
var ErrTaskNotFound = errors.New("task not found")

// Task is a to-do item.
type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	Deadline  string `json:"deadline,omitempty"`
}

// DefaultTasks seeds the personal list on first use.
func DefaultTasks() []Task {
	return []Task{
		{ID: "1", Text: "Complete Math assignment"},
		{ID: "2", Text: "Read Biology Chapter 3", Completed: true},
	}
}

// TodoList is one persisted task list.
type TodoList struct {
	store cache.Store
	key   string
	seed  []Task
	mu    sync.Mutex
}

// NewTodoList creates a list stored under key. seed is returned until the
// list is first saved.
func NewTodoList(store cache.Store, key string, seed []Task) *TodoList {
	return &TodoList{store: store, key: key, seed: seed}
}

// All returns the tasks in insertion order.
func (l *TodoList) All(ctx context.Context) ([]Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

// Add appends a task.
func (l *TodoList) Add(ctx context.Context, text, deadline string) (Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, fmt.Errorf("%w: task text is required", intent.ErrInvalidRequest)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tasks, err := l.load(ctx)
	if err != nil {
		return Task{}, err
	}
	task := Task{ID: uuid.NewString(), Text: text, Deadline: strings.TrimSpace(deadline)}
	if err := l.save(ctx, append(tasks, task)); err != nil {
		return Task{}, err
	}
	return task, nil
}

// Toggle flips a task's completed flag.
func (l *TodoList) Toggle(ctx context.Context, id string) (Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tasks, err := l.load(ctx)
	if err != nil {
		return Task{}, err
	}
	for i := range tasks {
		if tasks[i].ID == id {
			tasks[i].Completed = !tasks[i].Completed
			if err := l.save(ctx, tasks); err != nil {
				return Task{}, err
			}
			return tasks[i], nil
		}
	}
	return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

// Remove deletes a task.
func (l *TodoList) Remove(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tasks, err := l.load(ctx)
	if err != nil {
		return err
	}
	for i := range tasks {
		if tasks[i].ID == id {
			return l.save(ctx, append(tasks[:i], tasks[i+1:]...))
		}
	}
	return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

// Progress returns the completed share as a whole percentage.
func Progress(tasks []Task) int {
	if len(tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range tasks {
		if t.Completed {
			done++
		}
	}
	return (done*100 + len(tasks)/2) / len(tasks)
}

func (l *TodoList) load(ctx context.Context) ([]Task, error) {
	raw, ok, err := l.store.Get(ctx, l.key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.key, err)
	}
	if !ok {
		return append([]Task{}, l.seed...), nil
	}
	var tasks []Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		slog.Warn("discarding unreadable task list", "key", l.key, "error", err)
		return append([]Task{}, l.seed...), nil
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return tasks, nil
}

func (l *TodoList) save(ctx context.Context, tasks []Task) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", l.key, err)
	}
	if err := l.store.Set(ctx, l.key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", l.key, err)
	}
	return nil
}
