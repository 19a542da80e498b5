package localcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/util"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore 单文件本地缓存
type SQLiteStore struct {
	db       *sqlx.DB
	maxBytes int
	clock    util.Clock
}

type recordRow struct {
	RecordKey string `db:"record_key"`
	Payload   []byte `db:"payload"`
}

type bindingRow struct {
	DeviceKey string `db:"device_key"`
	UserID    string `db:"user_id"`
}

func NewSQLiteStore(path string, maxBytes int, clock util.Clock) (*SQLiteStore, error) {
	if path != ":memory:" && !isURI(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create local cache directory: %v", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local cache: %v", err)
	}

	// SQLite 只允许一个写连接
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if clock == nil {
		clock = util.NewMonotonicClock()
	}
	s := &SQLiteStore{db: db, maxBytes: maxBytes, clock: clock}
	if err := s.initializeSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func isURI(path string) bool {
	return len(path) > 5 && path[:5] == "file:"
}

func (s *SQLiteStore) initializeSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS local_records (
			record_key TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create local_records table: %v", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS bindings (
			device_key TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			bound_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create bindings table: %v", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, key string) (*model.UserRecord, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}

	var row recordRow
	err := s.db.GetContext(ctx, &row, `SELECT record_key, payload FROM local_records WHERE record_key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rec, err := decode(row.Payload)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, patch model.RecordPatch) (*model.UserRecord, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existing *model.UserRecord
	var row recordRow
	err = tx.GetContext(ctx, &row, `SELECT record_key, payload FROM local_records WHERE record_key = ?`, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, err
	default:
		if existing, err = decode(row.Payload); err != nil {
			return nil, err
		}
	}

	rec, payload, err := merge(existing, key, patch, s.clock, s.maxBytes)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO local_records (record_key, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(record_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, key, payload)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) BindIdentity(ctx context.Context, deviceKey, userID string) error {
	if deviceKey == "" {
		return ErrEmptyKey
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bindings (device_key, user_id, bound_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(device_key) DO UPDATE SET user_id = excluded.user_id, bound_at = excluded.bound_at
	`, deviceKey, userID)
	return err
}

func (s *SQLiteStore) BoundIdentity(ctx context.Context, deviceKey string) (string, bool, error) {
	var row bindingRow
	err := s.db.GetContext(ctx, &row, `SELECT device_key, user_id FROM bindings WHERE device_key = ?`, deviceKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.UserID, true, nil
}

// ClearBinding 只删除绑定标记，local_records 保留
func (s *SQLiteStore) ClearBinding(ctx context.Context, deviceKey string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM bindings WHERE device_key = ?`, deviceKey)
	return err
}

func (s *SQLiteStore) Name() string {
	return "sqlite"
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
