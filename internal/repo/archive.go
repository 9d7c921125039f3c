package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/studyflow-scheduler/internal/domain"
)

// ArchiveRepo — архив processed items в Postgres.
//
// Store хранит только рабочее множество; processed items старше
// retention-возраста переносятся сюда периодическим prune-проходом.
// Архив — приёмник: записи не мутируются и не удаляются.
type ArchiveRepo struct {
	pool *pgxpool.Pool
}

// NewArchiveRepo создаёт новый ArchiveRepo.
func NewArchiveRepo(pool *pgxpool.Pool) *ArchiveRepo {
	return &ArchiveRepo{pool: pool}
}

// EnsureSchema создаёт таблицу архива, если её ещё нет.
// Вызывается при старте сервиса.
func (r *ArchiveRepo) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS processed_items (
			id          UUID PRIMARY KEY,
			subject_id  TEXT NOT NULL,
			due_at      TIMESTAMPTZ NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			archived_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS processed_items_subject_idx
			ON processed_items (subject_id, due_at);
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertBatch переносит пачку items в архив одной транзакцией.
func (r *ArchiveRepo) InsertBatch(ctx context.Context, items []domain.DueItem) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO processed_items (id, subject_id, due_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	for _, item := range items {
		batch.Queue(query, item.ID, item.SubjectID, item.DueAt, item.CreatedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("archive item: %w", err)
		}
	}
	return nil
}

// ListBySubject возвращает архивные записи для subject,
// по убыванию due_at.
func (r *ArchiveRepo) ListBySubject(ctx context.Context, subjectID string, limit int) ([]domain.DueItem, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, subject_id, due_at, created_at
		FROM processed_items
		WHERE subject_id = $1
		ORDER BY due_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	defer rows.Close()

	var items []domain.DueItem
	for rows.Next() {
		var item domain.DueItem
		if err := rows.Scan(&item.ID, &item.SubjectID, &item.DueAt, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan archive item: %w", err)
		}
		item.Processed = true
		items = append(items, item)
	}
	return items, rows.Err()
}
