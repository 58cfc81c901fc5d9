package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "modernc.org/sqlite"

	"github.com/juanlo017/cerves-app/internal/model"
	"github.com/juanlo017/cerves-app/internal/store"
)

var (
	ErrDisabled = errors.New("backups not configured")
	ErrNotFound = errors.New("backup not found")
	ErrRunning  = errors.New("backup already in progress")
)

// s3Client is the slice of the S3 API the manager uses.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
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

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Config struct {
	S3            S3Config
	Passphrase    string
	RetentionDays int
	Prefix        string
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status is the manager's last known state, served to operators.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Manager snapshots the database, seals it and ships it to object storage.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	status  Status
	running bool

	db      *sql.DB
	backups *store.BackupStore
	client  s3Client
	logger  *slog.Logger
	now     func() time.Time
}

func NewManager(cfg Config, db *sql.DB, bs *store.BackupStore, logger *slog.Logger) *Manager {
	if cfg.Prefix == "" {
		cfg.Prefix = "cerves"
	}
	m := &Manager{
		cfg:     cfg,
		db:      db,
		backups: bs,
		logger:  logger,
		now:     time.Now,
		status:  Status{State: StateDisabled},
	}
	if cfg.S3.complete() && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
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

// Enabled reports whether storage and a passphrase are configured.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// begin claims the single backup slot.
func (m *Manager) begin() (s3Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil, ErrDisabled
	}
	if m.running {
		return nil, ErrRunning
	}
	m.running = true
	m.status.State = StateRunning
	m.status.Error = ""
	return m.client, nil
}

func (m *Manager) finish(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	if err != nil {
		m.status.State = StateError
		m.status.Error = err.Error()
		return
	}
	now := m.now().UTC()
	m.status = Status{State: StateIdle, LastBackup: &now}
}

// RunNow takes a consistent snapshot and uploads it. The returned record
// reflects the final state even when the upload failed.
func (m *Manager) RunNow(ctx context.Context, trigger model.BackupTrigger) (*model.Backup, error) {
	client, err := m.begin()
	if err != nil {
		return nil, err
	}

	record, err := m.run(ctx, client, trigger)
	m.finish(err)
	if err != nil {
		m.logger.Error("backup failed", "trigger", trigger, "error", err)
	} else {
		m.logger.Info("backup completed", "trigger", trigger, "id", record.ID, "key", record.S3Key, "size", record.SizeBytes)
	}
	return record, err
}

func (m *Manager) run(ctx context.Context, client s3Client, trigger model.BackupTrigger) (*model.Backup, error) {
	filename := fmt.Sprintf("cerves-%s.db.enc", m.now().UTC().Format("2006-01-02T150405Z"))
	key := m.cfg.Prefix + "/" + filename

	record, err := m.backups.Create(filename, key, trigger)
	if err != nil {
		return nil, fmt.Errorf("create backup record: %w", err)
	}

	fail := func(err error) (*model.Backup, error) {
		if uerr := m.backups.UpdateStatus(record.ID, model.BackupStatusFailed, err.Error()); uerr != nil {
			m.logger.Error("mark backup failed", "id", record.ID, "error", uerr)
		}
		latest, _ := m.backups.GetByID(record.ID)
		if latest == nil {
			latest = record
		}
		return latest, err
	}

	if err := m.backups.UpdateStatus(record.ID, model.BackupStatusUploading, ""); err != nil {
		return fail(err)
	}

	snapshot, err := m.snapshot(ctx)
	if err != nil {
		return fail(err)
	}

	sealed, err := Seal(snapshot, m.cfg.Passphrase)
	if err != nil {
		return fail(fmt.Errorf("encrypt snapshot: %w", err))
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fail(fmt.Errorf("upload to s3: %w", err))
	}

	if err := m.backups.UpdateCompleted(record.ID, int64(len(sealed))); err != nil {
		return fail(err)
	}
	return m.backups.GetByID(record.ID)
}

// snapshot writes a transactionally consistent copy of the live database
// with VACUUM INTO and returns its bytes.
func (m *Manager) snapshot(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "cerves-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

func (m *Manager) clientOrErr() (s3Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil, ErrDisabled
	}
	return m.client, nil
}

// Download streams the sealed object of a completed backup.
func (m *Manager) Download(ctx context.Context, id string) (io.ReadCloser, *model.Backup, error) {
	client, err := m.clientOrErr()
	if err != nil {
		return nil, nil, err
	}

	record, err := m.backups.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	if record == nil || record.Status != model.BackupStatusCompleted {
		return nil, nil, ErrNotFound
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("download from s3: %w", err)
	}
	return out.Body, record, nil
}

// RestoreTo downloads a backup, decrypts it and verifies it is an intact
// SQLite database before writing it to dst. The live database is untouched.
func (m *Manager) RestoreTo(ctx context.Context, id, dst string) error {
	body, _, err := m.Download(ctx, id)
	if err != nil {
		return err
	}
	defer body.Close()

	sealed, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	plain, err := Open(sealed, m.cfg.Passphrase)
	if err != nil {
		return fmt.Errorf("decrypt backup: %w", err)
	}

	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, plain, 0o600); err != nil {
		return fmt.Errorf("write restored db: %w", err)
	}
	if err := checkIntegrity(ctx, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("move restored db: %w", err)
	}
	return nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Cleanup removes backups past the retention window from the store and
// the bucket. It returns how many records were removed.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	client, err := m.clientOrErr()
	if err != nil {
		return 0, nil
	}
	days := m.cfg.RetentionDays
	if days <= 0 {
		days = 30
	}

	keys, err := m.backups.DeleteOlderThan(m.now().UTC().AddDate(0, 0, -days))
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete backup object", "key", key, "error", err)
		}
	}
	return len(keys), nil
}
