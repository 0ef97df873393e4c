package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taprealm/internal/game"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskEntry is a catalog task with one player's completion.
type TaskEntry struct {
	Task      game.Task
	Completed bool
	ClaimedAt *time.Time
}

type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `td.id, td.category, td.title, td.description, td.reward, td.action_type,
	COALESCE(td.action_url, ''), COALESCE(td.required_league, ''), td.sort_order`

func scanTask(row pgx.Row, extra ...any) (game.Task, error) {
	var (
		t      game.Task
		league string
	)
	dest := append([]any{&t.ID, &t.Category, &t.Title, &t.Description, &t.Reward, &t.ActionType,
		&t.ActionURL, &league, &t.SortOrder}, extra...)
	if err := row.Scan(dest...); err != nil {
		return t, err
	}
	t.RequiredLeague = game.League(league)
	return t, nil
}

// List returns the active catalog with the user's completions.
func (r *TaskRepository) List(ctx context.Context, userID int64) ([]TaskEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+taskColumns+`, tp.claimed_at
		FROM task_definitions td
		LEFT JOIN task_progress tp ON tp.task_id = td.id AND tp.user_id = $1
		WHERE td.is_active
		ORDER BY td.category, td.sort_order, td.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []TaskEntry
	for rows.Next() {
		var e TaskEntry
		if e.Task, err = scanTask(rows, &e.ClaimedAt); err != nil {
			return nil, err
		}
		e.Completed = e.ClaimedAt != nil
		res = append(res, e)
	}
	return res, rows.Err()
}

// Get returns an active task and whether userID already claimed it.
func (r *TaskRepository) Get(ctx context.Context, userID, taskID int64) (TaskEntry, error) {
	var e TaskEntry
	t, err := scanTask(r.db.QueryRow(ctx, `
		SELECT `+taskColumns+`, tp.claimed_at
		FROM task_definitions td
		LEFT JOIN task_progress tp ON tp.task_id = td.id AND tp.user_id = $1
		WHERE td.id = $2 AND td.is_active`, userID, taskID), &e.ClaimedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return e, fmt.Errorf("%w: task %d", game.ErrNotFound, taskID)
	}
	if err != nil {
		return e, err
	}
	e.Task = t
	e.Completed = e.ClaimedAt != nil
	return e, nil
}

// MarkCompleted records the claim through q, normally the transaction that
// pays the reward. A repeated claim is game.ErrAlreadyClaimed.
func (r *TaskRepository) MarkCompleted(ctx context.Context, q DBTX, userID, taskID, reward int64) error {
	tag, err := q.Exec(ctx,
		`INSERT INTO task_progress (user_id, task_id, reward)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, task_id) DO NOTHING`,
		userID, taskID, reward,
	)
	if err != nil {
		return fmt.Errorf("insert task progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return game.ErrAlreadyClaimed
	}
	return nil
}
