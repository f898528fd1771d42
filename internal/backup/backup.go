// Package backup produces encrypted database snapshots and uploads them to
// S3-compatible object storage on a daily schedule.
package backup

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dstclair/fanpulse/internal/model"
	"github.com/dstclair/fanpulse/internal/store"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup manager configuration. The manager is disabled unless
// the S3 credentials, passphrase, and salt are all set.
type Config struct {
	S3            S3Config
	DBPath        string
	Passphrase    string
	SaltHex       string
	ScheduleHour  int
	RetentionDays int
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Manager manages encrypted backups to S3-compatible storage.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	salt     []byte
	status   Status
	callback StatusCallback

	db     *sql.DB
	store  *store.BackupStore
	client s3Client
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. callback may be nil.
func NewManager(cfg Config, db *sql.DB, bs *store.BackupStore, callback StatusCallback, logger *slog.Logger) (*Manager, error) {
	m := &Manager{
		cfg:      cfg,
		db:       db,
		store:    bs,
		callback: callback,
		logger:   logger,
		status:   Status{State: StateDisabled},
	}

	if cfg.S3.Bucket == "" || cfg.S3.AccessKey == "" || cfg.S3.SecretKey == "" ||
		cfg.Passphrase == "" || cfg.SaltHex == "" {
		return m, nil
	}

	salt, err := hex.DecodeString(cfg.SaltHex)
	if err != nil {
		return nil, fmt.Errorf("decode backup salt: %w", err)
	}
	m.salt = salt
	m.client = newS3Client(cfg.S3)
	m.status.State = StateIdle
	return m, nil
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether the manager is configured to run.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Start begins the scheduled backup loop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.status.State == StateDisabled {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkSchedule(ctx)
			}
		}
	}()
}

// Stop gracefully stops the backup manager.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

func (m *Manager) checkSchedule(ctx context.Context) {
	now := time.Now().UTC()
	if now.Hour() != m.cfg.ScheduleHour || now.Minute() != 0 {
		return
	}

	if _, err := m.RunNow(ctx); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}

	retentionDays := m.cfg.RetentionDays
	if retentionDays <= 0 {
		retentionDays = 30
	}
	if err := m.Cleanup(ctx, retentionDays); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	}
}

// RunNow takes a snapshot, encrypts it, and uploads it.
func (m *Manager) RunNow(ctx context.Context) (int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	passphrase := m.cfg.Passphrase
	salt := m.salt
	m.mu.RUnlock()

	if client == nil {
		return 0, fmt.Errorf("backup not configured")
	}

	m.setStatus(Status{State: StateRunning, InProgress: true})

	timestamp := time.Now().UTC().Format("2006-01-02T150405Z")
	filename := fmt.Sprintf("backup-%s.db.enc", timestamp)
	s3Key := "snapshots/" + filename

	record, err := m.store.Create(ctx, filename, s3Key)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("create backup record: %w", err)
	}

	fail := func(stage string, err error) (int64, error) {
		m.store.UpdateFailed(ctx, record.ID, err.Error())
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("%s: %w", stage, err)
	}

	tmpDir := os.TempDir()
	dbCopy := filepath.Join(tmpDir, fmt.Sprintf("fanpulse-backup-%d.db", record.ID))
	encFile := filepath.Join(tmpDir, fmt.Sprintf("fanpulse-backup-%d.db.enc", record.ID))
	defer os.Remove(dbCopy)
	defer os.Remove(encFile)

	// VACUUM INTO writes a consistent snapshot without blocking writers
	os.Remove(dbCopy)
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", dbCopy); err != nil {
		return fail("snapshot database", err)
	}

	if err := EncryptFile(dbCopy, encFile, passphrase, salt); err != nil {
		return fail("encrypt", err)
	}

	encData, err := os.Open(encFile)
	if err != nil {
		return fail("open encrypted file", err)
	}
	defer encData.Close()

	stat, err := encData.Stat()
	if err != nil {
		return fail("stat encrypted file", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(s3Key),
		Body:          encData,
		ContentLength: aws.Int64(stat.Size()),
	})
	if err != nil {
		return fail("upload to s3", err)
	}

	if err := m.store.UpdateCompleted(ctx, record.ID, stat.Size()); err != nil {
		m.logger.Error("mark backup completed", "id", record.ID, "error", err)
	}

	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &now})

	return record.ID, nil
}

// List returns recent backup records.
func (m *Manager) List(ctx context.Context, limit int) ([]model.Backup, error) {
	return m.store.List(ctx, limit)
}

// Cleanup deletes backups older than the retention period, both the records
// and the uploaded objects.
func (m *Manager) Cleanup(ctx context.Context, retentionDays int) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return nil
	}

	before := time.Now().UTC().AddDate(0, 0, -retentionDays)
	keys, err := m.store.DeleteOlderThan(ctx, before)
	if err != nil {
		return fmt.Errorf("delete old backups: %w", err)
	}

	for _, key := range keys {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Error("delete s3 object", "key", key, "error", err)
		}
	}

	return nil
}
