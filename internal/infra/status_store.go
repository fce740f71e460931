package infra

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

const statusDBName = "status.db"

// ErrStatusNotFound is returned when no daemon has registered yet.
var ErrStatusNotFound = errors.New("no daemon status recorded")

// EncryptedStatusStore implements domain.StatusStore using a SQLCipher
// encrypted SQLite database.
type EncryptedStatusStore struct {
	db             *sql.DB
	dbPath         string
	processManager domain.ProcessManager
	now            func() time.Time
}

// NewEncryptedStatusStore opens (or creates) the status database in dataDir.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedStatusStore(dataDir string, key []byte, pm domain.ProcessManager) (*EncryptedStatusStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, statusDBName)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, hex.EncodeToString(key))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	store := &EncryptedStatusStore{
		db:             db,
		dbPath:         dbPath,
		processManager: pm,
		now:            time.Now,
	}

	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *EncryptedStatusStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS daemon_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		pid INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		app_version TEXT DEFAULT '',
		last_heartbeat INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshot (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		view_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Register records the running daemon, replacing any previous record.
// The stored view is dropped so readers never see a previous run's timers.
func (s *EncryptedStatusStore) Register(daemon domain.DaemonRecord) error {
	now := s.now().Unix()
	startedAt := daemon.StartedAt.Unix()
	if daemon.StartedAt.IsZero() {
		startedAt = now
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO daemon_state (id, pid, started_at, app_version, last_heartbeat)
		VALUES (1, ?, ?, ?, ?)`,
		daemon.PID, startedAt, daemon.AppVersion, now,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM snapshot`); err != nil {
		return err
	}
	if daemon.AppVersion != "" {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('app_version', ?)`, daemon.AppVersion); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateHeartbeat stores the heartbeat time and the latest view.
func (s *EncryptedStatusStore) UpdateHeartbeat(view domain.View) error {
	now := s.now().Unix()
	raw, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to encode view: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE daemon_state SET last_heartbeat = ? WHERE id = 1`, now)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("daemon not registered: %w", ErrStatusNotFound)
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO snapshot (id, view_json, updated_at) VALUES (1, ?, ?)`,
		string(raw), now); err != nil {
		return err
	}
	return tx.Commit()
}

// GetStatus returns the stored daemon record and its latest view.
// View is nil when the daemon registered but has not sent a heartbeat.
func (s *EncryptedStatusStore) GetStatus() (*domain.StatusRecord, error) {
	var (
		pid        int
		startedAt  int64
		appVersion string
		heartbeat  int64
	)
	err := s.db.QueryRow(`SELECT pid, started_at, app_version, last_heartbeat FROM daemon_state WHERE id = 1`).
		Scan(&pid, &startedAt, &appVersion, &heartbeat)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStatusNotFound
	}
	if err != nil {
		return nil, err
	}

	record := &domain.StatusRecord{
		Daemon: domain.DaemonRecord{
			PID:        pid,
			StartedAt:  time.Unix(startedAt, 0),
			AppVersion: appVersion,
		},
		LastHeartbeat: heartbeat,
	}

	var raw string
	err = s.db.QueryRow(`SELECT view_json FROM snapshot WHERE id = 1`).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return record, nil
	case err != nil:
		return nil, err
	}

	var view domain.View
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		return nil, fmt.Errorf("failed to decode stored view: %w", err)
	}
	record.View = &view
	return record, nil
}

// IsDaemonAlive reports whether the registered daemon PID is still running.
func (s *EncryptedStatusStore) IsDaemonAlive() (bool, error) {
	record, err := s.GetStatus()
	if errors.Is(err, ErrStatusNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.processManager.IsRunning(record.Daemon.PID), nil
}

// Clear removes all daemon state.
func (s *EncryptedStatusStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM daemon_state`); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM snapshot`); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM meta WHERE key = 'app_version'`)
	return err
}

// Path returns the database file path.
func (s *EncryptedStatusStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *EncryptedStatusStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure EncryptedStatusStore implements domain.StatusStore.
var _ domain.StatusStore = (*EncryptedStatusStore)(nil)
