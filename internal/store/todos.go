// todos.go -- Todo CRUD queries.
//
// Every row operation is scoped by user_id -- a user can never read or write
// another user's todos, enforced in SQL rather than handler code.
package store

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

const todoColumns = `id, user_id, title, description, status_code, due_date,
	completed_at, archived, created_at, updated_at`

func scanTodo(row pgx.Row) (*Todo, error) {
	var t Todo
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.StatusCode,
		&t.DueDate, &t.CompletedAt, &t.Archived, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTodo inserts a todo owned by userID in the "not started" status.
func (s *PostgresStore) CreateTodo(ctx context.Context, id, userID uuid.UUID, title string, description *string, dueDate *time.Time) (*Todo, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO todos (id, user_id, title, description, due_date)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+todoColumns,
		id, userID, title, description, dueDate)
	return scanTodo(row)
}

// GetTodo fetches a single todo owned by userID.
// Returns pgx.ErrNoRows when absent or owned by someone else.
func (s *PostgresStore) GetTodo(ctx context.Context, id, userID uuid.UUID) (*Todo, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = $1 AND user_id = $2`,
		id, userID)
	return scanTodo(row)
}

// ListTodos returns the user's non-archived todos, newest first.
func (s *PostgresStore) ListTodos(ctx context.Context, userID uuid.UUID) ([]Todo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+todoColumns+` FROM todos
		 WHERE user_id = $1 AND NOT archived
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var todos []Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *t)
	}
	return todos, rows.Err()
}

// UpdateTodo replaces the mutable fields of a todo owned by userID.
// Returns pgx.ErrNoRows when absent or owned by someone else.
func (s *PostgresStore) UpdateTodo(ctx context.Context, id, userID uuid.UUID, title string, description *string, statusCode int16, dueDate *time.Time) (*Todo, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE todos
		 SET title = $1, description = $2, status_code = $3, due_date = $4, updated_at = now()
		 WHERE id = $5 AND user_id = $6
		 RETURNING `+todoColumns,
		title, description, statusCode, dueDate, id, userID)
	return scanTodo(row)
}

// CompleteTodo marks a todo completed, stamping completed_at once.
func (s *PostgresStore) CompleteTodo(ctx context.Context, id, userID uuid.UUID, completedAt time.Time) (*Todo, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE todos
		 SET status_code = (SELECT code FROM todo_statuses WHERE name = 'completed'),
		     completed_at = COALESCE(completed_at, $1),
		     updated_at = now()
		 WHERE id = $2 AND user_id = $3
		 RETURNING `+todoColumns,
		completedAt, id, userID)
	return scanTodo(row)
}

// ReopenTodo moves a todo back into an open status and clears completed_at.
// The only-completed-can-reopen guard lives in the handler; here the update
// is a plain ownership-scoped write.
func (s *PostgresStore) ReopenTodo(ctx context.Context, id, userID uuid.UUID, statusCode int16) (*Todo, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE todos
		 SET status_code = $1, completed_at = NULL, updated_at = now()
		 WHERE id = $2 AND user_id = $3
		 RETURNING `+todoColumns,
		statusCode, id, userID)
	return scanTodo(row)
}

// ArchiveTodo hides a todo from listings without deleting it.
func (s *PostgresStore) ArchiveTodo(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE todos SET archived = TRUE, updated_at = now()
		 WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteTodo removes a todo owned by userID.
// Returns pgx.ErrNoRows when absent or owned by someone else.
func (s *PostgresStore) DeleteTodo(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListTodoStatuses returns the status lookup table in display order.
func (s *PostgresStore) ListTodoStatuses(ctx context.Context) ([]TodoStatus, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, name, display_order FROM todo_statuses ORDER BY display_order`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []TodoStatus
	for rows.Next() {
		var st TodoStatus
		if err := rows.Scan(&st.Code, &st.Name, &st.DisplayOrder); err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}
