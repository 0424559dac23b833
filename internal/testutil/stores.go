// stores.go
//
// Shared mock implementations of auth.Store, auth.Registry, auth.AttemptStore,
// and todo.Store. Imported by test files across packages to avoid duplicate
// mock definitions.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MGallo-Code/styx/internal/store"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// duplicateEmailErr mimics the unique-violation error Postgres raises on a
// duplicate email, so handler tests exercise the real no-enumeration path.
func duplicateEmailErr() error {
	return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
}

// MockStore implements the Postgres-backed interfaces for tests.
//
// Always stateful...Users, Histories, TokenKeys, and Todos are maps, like a
// real store. Use *Err fields to inject errors for specific operations.
type MockStore struct {
	// Error injection...zero value means no error
	CreateUserErr    error
	GetUserErr       error
	UpdateUserErr    error
	RecordLoginErr   error
	ListTokenKeysErr error
	DeleteTokensErr  error
	GetHistoryErr    error
	CreateHistoryErr error
	IncrementErr     error
	ResetHistoryErr  error
	TodoErr          error

	Users     map[uuid.UUID]*store.User
	Histories map[uuid.UUID]*store.LoginFailedHistory
	TokenKeys map[uuid.UUID][]string
	Todos     map[uuid.UUID]*store.Todo

	// MaxAttempts mirrors the lockout threshold the SQL increment enforces.
	MaxAttempts int

	mu sync.Mutex
}

// NewMockStore returns a MockStore seeded with the given users.
func NewMockStore(users ...*store.User) *MockStore {
	ms := &MockStore{
		Users:       make(map[uuid.UUID]*store.User),
		Histories:   make(map[uuid.UUID]*store.LoginFailedHistory),
		TokenKeys:   make(map[uuid.UUID][]string),
		Todos:       make(map[uuid.UUID]*store.Todo),
		MaxAttempts: 5,
	}
	for _, u := range users {
		ms.Users[u.ID] = u
	}
	return ms
}

func (m *MockStore) CreateUser(_ context.Context, id uuid.UUID, familyName, givenName, email, passwordHash string) (*store.User, error) {
	if m.CreateUserErr != nil {
		return nil, m.CreateUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == email {
			return nil, duplicateEmailErr()
		}
	}
	now := time.Now()
	u := &store.User{
		ID:           id,
		FamilyName:   familyName,
		GivenName:    givenName,
		Email:        email,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.Users[id] = u
	return u, nil
}

func (m *MockStore) GetUserByEmail(_ context.Context, email string) (*store.User, error) {
	if m.GetUserErr != nil {
		return nil, m.GetUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *MockStore) GetUserByID(_ context.Context, id uuid.UUID) (*store.User, error) {
	if m.GetUserErr != nil {
		return nil, m.GetUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (m *MockStore) UpdateUser(_ context.Context, id uuid.UUID, familyName, givenName, email *string) (*store.User, error) {
	if m.UpdateUserErr != nil {
		return nil, m.UpdateUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if email != nil {
		for _, other := range m.Users {
			if other.ID != id && other.Email == *email {
				return nil, duplicateEmailErr()
			}
		}
		u.Email = *email
	}
	if familyName != nil {
		u.FamilyName = *familyName
	}
	if givenName != nil {
		u.GivenName = *givenName
	}
	u.UpdatedAt = time.Now()
	return u, nil
}

func (m *MockStore) RecordLogin(_ context.Context, userID uuid.UUID, loggedInAt time.Time,
	accessKey string, _ time.Time, refreshKey string, _ time.Time) error {
	if m.RecordLoginErr != nil {
		return m.RecordLoginErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	t := loggedInAt
	u.LastLoginAt = &t
	delete(m.Histories, userID)
	m.TokenKeys[userID] = append(m.TokenKeys[userID], accessKey, refreshKey)
	return nil
}

func (m *MockStore) ListUserTokenKeys(_ context.Context, userID uuid.UUID) ([]string, error) {
	if m.ListTokenKeysErr != nil {
		return nil, m.ListTokenKeysErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.TokenKeys[userID]...), nil
}

func (m *MockStore) DeleteUserTokens(_ context.Context, userID uuid.UUID) ([]string, error) {
	if m.DeleteTokensErr != nil {
		return nil, m.DeleteTokensErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := m.TokenKeys[userID]
	delete(m.TokenKeys, userID)
	return keys, nil
}

func (m *MockStore) GetLoginFailedHistory(_ context.Context, userID uuid.UUID) (*store.LoginFailedHistory, error) {
	if m.GetHistoryErr != nil {
		return nil, m.GetHistoryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.Histories[userID]
	if !ok {
		return nil, store.ErrNoLoginHistory
	}
	return h, nil
}

func (m *MockStore) CreateLoginFailedHistory(_ context.Context, userID uuid.UUID, attempts int, attemptedAt time.Time) error {
	if m.CreateHistoryErr != nil {
		return m.CreateHistoryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.Histories[userID] = &store.LoginFailedHistory{
		UserID:           userID,
		NumberOfAttempts: attempts,
		AttemptedAt:      attemptedAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return nil
}

func (m *MockStore) IncrementLoginAttempts(_ context.Context, userID uuid.UUID, maxAttempts int) error {
	if m.IncrementErr != nil {
		return m.IncrementErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.Histories[userID]
	if !ok {
		return store.ErrNoLoginHistory
	}
	h.NumberOfAttempts++
	h.UpdatedAt = time.Now()
	if u, ok := m.Users[userID]; ok && h.NumberOfAttempts > maxAttempts {
		u.Active = false
	}
	return nil
}

func (m *MockStore) ResetLoginFailedHistory(_ context.Context, userID uuid.UUID, attemptedAt time.Time) error {
	if m.ResetHistoryErr != nil {
		return m.ResetHistoryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.Histories[userID]
	if !ok {
		return store.ErrNoLoginHistory
	}
	h.NumberOfAttempts = 1
	h.AttemptedAt = attemptedAt
	h.UpdatedAt = time.Now()
	return nil
}

func (m *MockStore) CreateTodo(_ context.Context, id, userID uuid.UUID, title string, description *string, dueDate *time.Time) (*store.Todo, error) {
	if m.TodoErr != nil {
		return nil, m.TodoErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	t := &store.Todo{
		ID:          id,
		UserID:      userID,
		Title:       title,
		Description: description,
		StatusCode:  1,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.Todos[id] = t
	return t, nil
}

func (m *MockStore) GetTodo(_ context.Context, id, userID uuid.UUID) (*store.Todo, error) {
	if m.TodoErr != nil {
		return nil, m.TodoErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Todos[id]
	if !ok || t.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	return t, nil
}

func (m *MockStore) ListTodos(_ context.Context, userID uuid.UUID) ([]store.Todo, error) {
	if m.TodoErr != nil {
		return nil, m.TodoErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var todos []store.Todo
	for _, t := range m.Todos {
		if t.UserID == userID && !t.Archived {
			todos = append(todos, *t)
		}
	}
	return todos, nil
}

func (m *MockStore) UpdateTodo(_ context.Context, id, userID uuid.UUID, title string, description *string, statusCode int16, dueDate *time.Time) (*store.Todo, error) {
	if m.TodoErr != nil {
		return nil, m.TodoErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Todos[id]
	if !ok || t.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	t.Title = title
	t.Description = description
	t.StatusCode = statusCode
	t.DueDate = dueDate
	t.UpdatedAt = time.Now()
	return t, nil
}

func (m *MockStore) CompleteTodo(_ context.Context, id, userID uuid.UUID, completedAt time.Time) (*store.Todo, error) {
	if m.TodoErr != nil {
		return nil, m.TodoErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Todos[id]
	if !ok || t.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	t.StatusCode = store.TodoStatusCompleted
	if t.CompletedAt == nil {
		c := completedAt
		t.CompletedAt = &c
	}
	t.UpdatedAt = time.Now()
	return t, nil
}

func (m *MockStore) ReopenTodo(_ context.Context, id, userID uuid.UUID, statusCode int16) (*store.Todo, error) {
	if m.TodoErr != nil {
		return nil, m.TodoErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Todos[id]
	if !ok || t.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	t.StatusCode = statusCode
	t.CompletedAt = nil
	t.UpdatedAt = time.Now()
	return t, nil
}

func (m *MockStore) ArchiveTodo(_ context.Context, id, userID uuid.UUID) error {
	if m.TodoErr != nil {
		return m.TodoErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Todos[id]
	if !ok || t.UserID != userID {
		return pgx.ErrNoRows
	}
	t.Archived = true
	t.UpdatedAt = time.Now()
	return nil
}

func (m *MockStore) DeleteTodo(_ context.Context, id, userID uuid.UUID) error {
	if m.TodoErr != nil {
		return m.TodoErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Todos[id]
	if !ok || t.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(m.Todos, id)
	return nil
}

func (m *MockStore) ListTodoStatuses(_ context.Context) ([]store.TodoStatus, error) {
	if m.TodoErr != nil {
		return nil, m.TodoErr
	}
	return []store.TodoStatus{
		{Code: 1, Name: "not_started", DisplayOrder: 1},
		{Code: 2, Name: "in_progress", DisplayOrder: 2},
		{Code: 3, Name: "completed", DisplayOrder: 3},
		{Code: 4, Name: "cancelled", DisplayOrder: 4},
	}, nil
}

// mockRegistryEntry is one live token in the MockRegistry.
type mockRegistryEntry struct {
	content   store.TokenContent
	expiresAt time.Time
}

// MockRegistry implements auth.Registry in memory, keyed the same way the
// Redis registry keys its entries. TTLs are honored on Lookup.
type MockRegistry struct {
	RegisterErr error
	LookupErr   error
	DeleteErr   error

	entries map[string]mockRegistryEntry

	mu sync.Mutex
}

func NewMockRegistry() *MockRegistry {
	return &MockRegistry{entries: make(map[string]mockRegistryEntry)}
}

func (m *MockRegistry) Register(_ context.Context, userID uuid.UUID, token string, kind store.TokenKind, ttl time.Duration) error {
	if m.RegisterErr != nil {
		return m.RegisterErr
	}
	if ttl <= 0 {
		return errors.New("non-positive ttl")
	}
	m.mu.Lock()
	m.entries[store.TokenKey(token)] = mockRegistryEntry{
		content:   store.TokenContent{UserID: userID, Kind: kind},
		expiresAt: time.Now().Add(ttl),
	}
	m.mu.Unlock()
	return nil
}

func (m *MockRegistry) Lookup(_ context.Context, token string) (*store.TokenContent, error) {
	if m.LookupErr != nil {
		return nil, m.LookupErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[store.TokenKey(token)]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, store.ErrTokenNotFound
	}
	content := entry.content
	return &content, nil
}

func (m *MockRegistry) DeleteKeys(_ context.Context, keys []string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	m.mu.Unlock()
	return nil
}

// Len reports the number of live entries, for revocation assertions.
func (m *MockRegistry) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
