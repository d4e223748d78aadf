package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Akash01010101/threadcraft/internal/models"
)

type ThreadRepository interface {
	Create(ctx context.Context, thread *models.Thread) error
	GetByID(ctx context.Context, id string) (*models.Thread, error)
	GetByUserID(ctx context.Context, userID string) ([]*models.Thread, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Thread, error)
	CheckByUserID(ctx context.Context, threadID, userID string) (bool, error)
	Remove(ctx context.Context, id string) error
}

type threadRepository struct {
	db *sql.DB
}

func NewThreadRepository(db *sql.DB) ThreadRepository {
	return &threadRepository{db: db}
}

const threadColumns = "id, user_id, content, scheduled_time, is_posted, access_token, access_secret, created_at, updated_at"

func (r *threadRepository) Create(ctx context.Context, thread *models.Thread) error {
	content, err := json.Marshal(thread.Content)
	if err != nil {
		return fmt.Errorf("error encoding thread content: %w", err)
	}

	query := `
		INSERT INTO threads (id, user_id, content, scheduled_time, access_token, access_secret)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query, thread.ID, thread.UserID, content, thread.ScheduledTime, thread.AccessToken, thread.AccessSecret)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *threadRepository) GetByID(ctx context.Context, id string) (*models.Thread, error) {
	query := fmt.Sprintf("SELECT %s FROM threads WHERE id = $1", threadColumns)
	row := r.db.QueryRowContext(ctx, query, id)

	thread, err := scanThread(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return thread, nil
}

func (r *threadRepository) GetByUserID(ctx context.Context, userID string) ([]*models.Thread, error) {
	query := fmt.Sprintf("SELECT %s FROM threads WHERE user_id = $1 ORDER BY created_at DESC", threadColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectThreads(rows)
}

// ListDue returns unposted threads whose scheduled time has elapsed (or
// was never set), earliest deadline first.
func (r *threadRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Thread, error) {
	query := fmt.Sprintf(`SELECT %s FROM threads
		WHERE (scheduled_time IS NULL OR scheduled_time <= $1) AND is_posted = false
		ORDER BY scheduled_time ASC NULLS FIRST`, threadColumns)

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectThreads(rows)
}

func (r *threadRepository) CheckByUserID(ctx context.Context, threadID, userID string) (bool, error) {
	query := "SELECT 1 FROM threads WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, threadID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *threadRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM threads WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(row rowScanner) (*models.Thread, error) {
	var thread models.Thread
	var content []byte
	var scheduledTime sql.NullTime

	err := row.Scan(&thread.ID, &thread.UserID, &content, &scheduledTime, &thread.IsPosted,
		&thread.AccessToken, &thread.AccessSecret, &thread.CreatedAt, &thread.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if scheduledTime.Valid {
		t := scheduledTime.Time
		thread.ScheduledTime = &t
	}

	if err := json.Unmarshal(content, &thread.Content); err != nil {
		return nil, fmt.Errorf("error decoding thread content: %w", err)
	}

	return &thread, nil
}

func collectThreads(rows *sql.Rows) ([]*models.Thread, error) {
	var threads []*models.Thread
	for rows.Next() {
		thread, err := scanThread(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		threads = append(threads, thread)
	}
	return threads, rows.Err()
}
