package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dstclair/fanpulse/internal/model"
)

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

func (s *BackupStore) Create(ctx context.Context, filename, s3Key string) (*model.Backup, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO backups (filename, s3_key, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		filename, s3Key, model.BackupStatusPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	id, _ := result.LastInsertId()
	return &model.Backup{
		ID:        id,
		Filename:  filename,
		S3Key:     s3Key,
		Status:    model.BackupStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *BackupStore) UpdateCompleted(ctx context.Context, id, sizeBytes int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE backups SET status = ?, size_bytes = ?, updated_at = ? WHERE id = ?`,
		model.BackupStatusCompleted, sizeBytes, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update backup completed: %w", err)
	}
	return nil
}

func (s *BackupStore) UpdateFailed(ctx context.Context, id int64, errorMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE backups SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		model.BackupStatusFailed, errorMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update backup failed: %w", err)
	}
	return nil
}

func (s *BackupStore) List(ctx context.Context, limit int) ([]model.Backup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, s3_key, size_bytes, status, error_message, created_at, updated_at
		 FROM backups ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		var b model.Backup
		var errMsg sql.NullString
		if err := rows.Scan(&b.ID, &b.Filename, &b.S3Key, &b.SizeBytes, &b.Status, &errMsg, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		b.ErrorMessage = errMsg.String
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

// DeleteOlderThan deletes backup records older than the given time and returns
// the S3 keys of deleted backups so the caller can remove the objects.
func (s *BackupStore) DeleteOlderThan(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s3_key FROM backups WHERE created_at < ?`, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("select old backups: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan s3 key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM backups WHERE created_at < ?`, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("delete old backups: %w", err)
	}
	return keys, nil
}
