package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, event_id, assignee_id, title, notes, status, due_at, created_at, updated_at`

func scanTask(row pgx.Row) (*Task, error) {
	t := &Task{}
	err := row.Scan(
		&t.ID,
		&t.EventID,
		&t.AssigneeID,
		&t.Title,
		&t.Notes,
		&t.Status,
		&t.DueAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTask inserts a new task under an event.
func (s *Store) CreateTask(ctx context.Context, in CreateTaskInput) (*Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("creating task: title is required")
	}
	if in.EventID == "" {
		return nil, fmt.Errorf("creating task: event id is required")
	}
	status := in.Status
	if status == "" {
		status = "todo"
	}

	var t *Task
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var opErr error
		t, opErr = scanTask(s.db.QueryRow(ctx,
			`INSERT INTO tasks (id, event_id, assignee_id, title, notes, status, due_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING `+taskColumns,
			uuid.NewString(), in.EventID, in.AssigneeID, in.Title, in.Notes, status, in.DueAt,
		))
		if opErr != nil {
			return fmt.Errorf("creating task: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateTask(t.ID, t.EventID)
	return t, nil
}

// GetTask retrieves a task by id. Returns nil without error when no such
// task exists.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	return cachedRead(ctx, s, s.caches.Tasks, "tasks", idKey(id), func(ctx context.Context) (*Task, error) {
		t, err := scanTask(s.db.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("getting task: %w", err)
		}
		return t, nil
	})
}

// GetTasksByEvent returns every task under the event, due-date first.
func (s *Store) GetTasksByEvent(ctx context.Context, eventID string) ([]*Task, error) {
	return cachedRead(ctx, s, s.caches.Tasks, "tasks", byEventKey(eventID), func(ctx context.Context) ([]*Task, error) {
		rows, err := s.db.Query(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE event_id = $1
			 ORDER BY due_at NULLS LAST, created_at`, eventID)
		if err != nil {
			return nil, fmt.Errorf("listing tasks by event: %w", err)
		}
		defer rows.Close()

		var tasks []*Task
		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return nil, fmt.Errorf("scanning task row: %w", err)
			}
			tasks = append(tasks, t)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating task rows: %w", err)
		}
		return tasks, nil
	})
}

// UpdateTask performs a partial update on the task with the given id.
// Returns nil without error when no such task exists.
func (s *Store) UpdateTask(ctx context.Context, id string, in UpdateTaskInput) (*Task, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if in.AssigneeID != nil {
		// An explicit empty string clears the assignee.
		setClauses = append(setClauses, fmt.Sprintf("assignee_id = NULLIF($%d, '')", argIdx))
		args = append(args, *in.AssigneeID)
		argIdx++
	}
	if in.Title != nil {
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", argIdx))
		args = append(args, *in.Title)
		argIdx++
	}
	if in.Notes != nil {
		setClauses = append(setClauses, fmt.Sprintf("notes = $%d", argIdx))
		args = append(args, *in.Notes)
		argIdx++
	}
	if in.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *in.Status)
		argIdx++
	}
	if in.DueAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("due_at = $%d", argIdx))
		args = append(args, *in.DueAt)
		argIdx++
	}

	if len(setClauses) == 0 {
		return s.GetTask(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE tasks SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, taskColumns,
	)

	var t *Task
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var opErr error
		t, opErr = scanTask(s.db.QueryRow(ctx, query, args...))
		if errors.Is(opErr, pgx.ErrNoRows) {
			t = nil
			return nil
		}
		if opErr != nil {
			return fmt.Errorf("updating task: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}

	s.invalidateTask(t.ID, t.EventID)
	return t, nil
}

// DeleteTask removes a task and its assignee rows.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	var eventID string
	if t, err := s.GetTask(ctx, id); err != nil {
		return err
	} else if t != nil {
		eventID = t.EventID
	}

	err := s.retry.Do(ctx, func(ctx context.Context) error {
		if _, opErr := s.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id); opErr != nil {
			return fmt.Errorf("deleting task: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateTask(id, eventID)
	s.caches.Participants.Invalidate(byTaskKey(id))
	return nil
}

// AddTaskAssignee assigns a user to a task; re-assigning is a no-op.
func (s *Store) AddTaskAssignee(ctx context.Context, taskID, userID string) error {
	if taskID == "" || userID == "" {
		return fmt.Errorf("adding task assignee: task id and user id are required")
	}

	err := s.retry.Do(ctx, func(ctx context.Context) error {
		if _, opErr := s.db.Exec(ctx,
			`INSERT INTO task_assignees (task_id, user_id)
			 VALUES ($1, $2)
			 ON CONFLICT (task_id, user_id) DO NOTHING`,
			taskID, userID); opErr != nil {
			return fmt.Errorf("adding task assignee: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.caches.Participants.Invalidate(byTaskKey(taskID))
	return nil
}

// GetTaskAssignees returns every assignee row for the task.
func (s *Store) GetTaskAssignees(ctx context.Context, taskID string) ([]*TaskAssignee, error) {
	return cachedRead(ctx, s, s.caches.Participants, "participants", byTaskKey(taskID), func(ctx context.Context) ([]*TaskAssignee, error) {
		rows, err := s.db.Query(ctx,
			`SELECT task_id, user_id, created_at FROM task_assignees
			 WHERE task_id = $1 ORDER BY created_at`, taskID)
		if err != nil {
			return nil, fmt.Errorf("listing task assignees: %w", err)
		}
		defer rows.Close()

		var assignees []*TaskAssignee
		for rows.Next() {
			a := &TaskAssignee{}
			if err := rows.Scan(&a.TaskID, &a.UserID, &a.CreatedAt); err != nil {
				return nil, fmt.Errorf("scanning task assignee row: %w", err)
			}
			assignees = append(assignees, a)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating task assignee rows: %w", err)
		}
		return assignees, nil
	})
}

// RemoveTaskAssignee unassigns a user from a task.
func (s *Store) RemoveTaskAssignee(ctx context.Context, taskID, userID string) error {
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		if _, opErr := s.db.Exec(ctx,
			`DELETE FROM task_assignees WHERE task_id = $1 AND user_id = $2`,
			taskID, userID); opErr != nil {
			return fmt.Errorf("removing task assignee: %w", opErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.caches.Participants.Invalidate(byTaskKey(taskID))
	return nil
}

func (s *Store) invalidateTask(taskID, eventID string) {
	s.caches.Tasks.Invalidate(idKey(taskID))
	if eventID != "" {
		s.caches.Tasks.Invalidate(byEventKey(eventID))
	}
}
