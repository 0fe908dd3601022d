package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"promptbot/internal/entities"
	"promptbot/internal/repository"
)

type fakeUsers struct {
	byID    map[int]*entities.User
	byPhone map[string]*entities.User
	err     error
}

func newFakeUsers(users ...*entities.User) *fakeUsers {
	f := &fakeUsers{byID: map[int]*entities.User{}, byPhone: map[string]*entities.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
		if u.Phone != "" {
			f.byPhone[u.Phone] = u
		}
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id int) (*entities.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %d: %w", id, repository.ErrNotFound)
}

func (f *fakeUsers) GetByPhone(_ context.Context, phone string) (*entities.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.byPhone[phone]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("phone %s: %w", phone, repository.ErrNotFound)
}

type fakeConfigs struct {
	configs map[string]*entities.PromptConfig
	err     error
	calls   []string
}

func (f *fakeConfigs) GetByID(_ context.Context, id string) (*entities.PromptConfig, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	if cfg, ok := f.configs[id]; ok {
		return cfg, nil
	}
	return nil, fmt.Errorf("prompt %s: %w", id, repository.ErrNotFound)
}

type appendCall struct {
	conversationID string
	userID         int
	entries        []entities.ConversationEntry
}

// fakeHistory keeps transcripts in memory with the same ordering rules as the
// Postgres store.
type fakeHistory struct {
	mu        sync.Mutex
	data      map[string][]entities.ConversationEntry
	appends   []appendCall
	getErr    error
	appendErr error
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{data: map[string][]entities.ConversationEntry{}}
}

func (f *fakeHistory) Get(_ context.Context, conversationID string, limit int) ([]entities.ConversationEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	entries := f.data[conversationID]
	if limit <= 0 {
		return nil, nil
	}
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return append([]entities.ConversationEntry(nil), entries...), nil
}

func (f *fakeHistory) Append(_ context.Context, conversationID string, userID int, entries []entities.ConversationEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends = append(f.appends, appendCall{conversationID: conversationID, userID: userID, entries: entries})
	if f.appendErr != nil {
		return f.appendErr
	}
	f.data[conversationID] = append(f.data[conversationID], entries...)
	return nil
}

// fakeCompletion returns a canned outcome and records every request.
type fakeCompletion struct {
	mu       sync.Mutex
	name     string
	result   entities.Completion
	err      error
	requests []entities.CompletionRequest
	// respond, when set, overrides result and err.
	respond func(ctx context.Context, req entities.CompletionRequest) (entities.Completion, error)
}

func (f *fakeCompletion) Name() string {
	if f.name == "" {
		return "OpenRouter"
	}
	return f.name
}

func (f *fakeCompletion) Complete(ctx context.Context, req entities.CompletionRequest) (entities.Completion, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(ctx, req)
	}
	return f.result, f.err
}

func (f *fakeCompletion) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeDelivery struct {
	sent []entities.OutgoingMessage
	err  error
}

func (f *fakeDelivery) Send(_ context.Context, msg entities.OutgoingMessage) error {
	f.sent = append(f.sent, msg)
	return f.err
}

type fakeLedger struct {
	seen       map[string]bool
	err        error
	releaseErr error
	released   []string
}

func (f *fakeLedger) Claim(_ context.Context, messageID, channel string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	key := channel + "/" + messageID
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeLedger) Release(_ context.Context, messageID, channel string) error {
	key := channel + "/" + messageID
	f.released = append(f.released, key)
	if f.releaseErr != nil {
		return f.releaseErr
	}
	delete(f.seen, key)
	return nil
}

type fakeUsage struct {
	received map[int]int
	sent     map[int]int
}

func newFakeUsage() *fakeUsage {
	return &fakeUsage{received: map[int]int{}, sent: map[int]int{}}
}

func (f *fakeUsage) IncrementReceived(_ context.Context, userID int) error {
	f.received[userID]++
	return nil
}

func (f *fakeUsage) IncrementSent(_ context.Context, userID int) error {
	f.sent[userID]++
	return nil
}

var errDown = errors.New("connection refused")
