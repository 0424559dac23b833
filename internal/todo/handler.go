// Package todo implements the task CRUD handlers behind the auth middleware.
package todo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/MGallo-Code/styx/internal/auth"
	"github.com/MGallo-Code/styx/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// Store defines the todo-store operations needed by these handlers.
// Satisfied by *store.PostgresStore. Every operation is scoped by user id in
// SQL, so a caller can never touch another user's rows.
type Store interface {
	CreateTodo(ctx context.Context, id, userID uuid.UUID, title string, description *string, dueDate *time.Time) (*store.Todo, error)
	GetTodo(ctx context.Context, id, userID uuid.UUID) (*store.Todo, error)
	ListTodos(ctx context.Context, userID uuid.UUID) ([]store.Todo, error)
	UpdateTodo(ctx context.Context, id, userID uuid.UUID, title string, description *string, statusCode int16, dueDate *time.Time) (*store.Todo, error)
	CompleteTodo(ctx context.Context, id, userID uuid.UUID, completedAt time.Time) (*store.Todo, error)
	ReopenTodo(ctx context.Context, id, userID uuid.UUID, statusCode int16) (*store.Todo, error)
	ArchiveTodo(ctx context.Context, id, userID uuid.UUID) error
	DeleteTodo(ctx context.Context, id, userID uuid.UUID) error
	ListTodoStatuses(ctx context.Context) ([]store.TodoStatus, error)
}

// Handler serves the /todos routes.
type Handler struct {
	TS Store
}

const maxTitleLength = 200

// todoID parses the {todoID} URL parameter. Writes a 404 and returns false
// on a malformed id: from the caller's view an unparseable id and a missing
// row are the same thing.
func todoID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.FromString(chi.URLParam(r, "todoID"))
	if err != nil {
		auth.NotFound(w, r, "todo not found")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp, _ := json.Marshal(v)
	w.Write(resp)
}

// Create handles POST /todos.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		auth.InternalServerError(w, r, errors.New("missing auth context"))
		return
	}

	var input struct {
		Title       string     `json:"title"`
		Description *string    `json:"description"`
		DueDate     *time.Time `json:"due_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		auth.BadRequest(w, r, "error decoding request body")
		return
	}
	if input.Title == "" {
		auth.BadRequest(w, r, "title required")
		return
	}
	if len(input.Title) > maxTitleLength {
		auth.BadRequest(w, r, "title too long")
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}

	created, err := h.TS.CreateTodo(r.Context(), id, user.ID, input.Title, input.Description, input.DueDate)
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /todos -- the user's non-archived todos, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		auth.InternalServerError(w, r, errors.New("missing auth context"))
		return
	}

	todos, err := h.TS.ListTodos(r.Context(), user.ID)
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}
	if todos == nil {
		todos = []store.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

// Get handles GET /todos/{todoID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		auth.InternalServerError(w, r, errors.New("missing auth context"))
		return
	}
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	found, err := h.TS.GetTodo(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			auth.NotFound(w, r, "todo not found")
			return
		}
		auth.InternalServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

// Update handles PUT /todos/{todoID} -- full replacement of the mutable fields.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		auth.InternalServerError(w, r, errors.New("missing auth context"))
		return
	}
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	var input struct {
		Title       string     `json:"title"`
		Description *string    `json:"description"`
		StatusCode  int16      `json:"status_code"`
		DueDate     *time.Time `json:"due_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		auth.BadRequest(w, r, "error decoding request body")
		return
	}
	if input.Title == "" {
		auth.BadRequest(w, r, "title required")
		return
	}
	if len(input.Title) > maxTitleLength {
		auth.BadRequest(w, r, "title too long")
		return
	}

	updated, err := h.TS.UpdateTodo(r.Context(), id, user.ID, input.Title, input.Description, input.StatusCode, input.DueDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			auth.NotFound(w, r, "todo not found")
			return
		}
		auth.InternalServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Complete handles POST /todos/{todoID}/complete. Idempotent: completing an
// already-completed todo keeps the original completed_at.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		auth.InternalServerError(w, r, errors.New("missing auth context"))
		return
	}
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	completed, err := h.TS.CompleteTodo(r.Context(), id, user.ID, time.Now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			auth.NotFound(w, r, "todo not found")
			return
		}
		auth.InternalServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, completed)
}

// Reopen handles POST /todos/{todoID}/reopen. Only a completed, non-archived
// todo can reopen. The body may name the status to land in, defaulting to
// in-progress; reopening into the completed status is contradictory and
// rejected.
func (h *Handler) Reopen(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		auth.InternalServerError(w, r, errors.New("missing auth context"))
		return
	}
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	// An empty body is fine: it means "back to in-progress".
	var input struct {
		StatusCode int16 `json:"status_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		auth.BadRequest(w, r, "error decoding request body")
		return
	}
	switch input.StatusCode {
	case 0:
		input.StatusCode = store.TodoStatusInProgress
	case store.TodoStatusNotStarted, store.TodoStatusInProgress, store.TodoStatusCancelled:
	case store.TodoStatusCompleted:
		auth.BadRequest(w, r, "cannot reopen a todo into the completed status")
		return
	default:
		auth.BadRequest(w, r, "invalid status_code")
		return
	}

	found, err := h.TS.GetTodo(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			auth.NotFound(w, r, "todo not found")
			return
		}
		auth.InternalServerError(w, r, err)
		return
	}
	if found.StatusCode != store.TodoStatusCompleted {
		auth.BadRequest(w, r, "only completed todos can be reopened")
		return
	}
	if found.Archived {
		auth.BadRequest(w, r, "archived todos cannot be reopened")
		return
	}

	reopened, err := h.TS.ReopenTodo(r.Context(), id, user.ID, input.StatusCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			auth.NotFound(w, r, "todo not found")
			return
		}
		auth.InternalServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reopened)
}

// Archive handles POST /todos/{todoID}/archive.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		auth.InternalServerError(w, r, errors.New("missing auth context"))
		return
	}
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	if err := h.TS.ArchiveTodo(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			auth.NotFound(w, r, "todo not found")
			return
		}
		auth.InternalServerError(w, r, err)
		return
	}
	auth.OK(w, "todo archived")
}

// Delete handles DELETE /todos/{todoID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		auth.InternalServerError(w, r, errors.New("missing auth context"))
		return
	}
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	if err := h.TS.DeleteTodo(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			auth.NotFound(w, r, "todo not found")
			return
		}
		auth.InternalServerError(w, r, err)
		return
	}
	auth.OK(w, "todo deleted")
}

// Statuses handles GET /todos/statuses -- the shared status lookup table.
func (h *Handler) Statuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.TS.ListTodoStatuses(r.Context())
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}
