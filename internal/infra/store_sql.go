package infra

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"
	_ "modernc.org/sqlite"

	"github.com/mosmello93/focus-timer/internal/config"
	"github.com/mosmello93/focus-timer/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const (
	encryptedDBName = "focustimer.db"
	plainDBName     = "focustimer-plain.db"

	kvBalance           = "balance"
	kvSettings          = "settings"
	kvLastAllowanceDate = "last_allowance_date"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	duration INTEGER NOT NULL,
	started_at INTEGER NOT NULL,
	earned REAL,
	seq INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_seq ON sessions(seq);
`

// SQLStore implements domain.SnapshotStore on a SQLite database.
// The same schema backs the SQLCipher (encrypted) and modernc (plain) drivers.
type SQLStore struct {
	db     *sql.DB
	dbPath string
	stored int // sessions already in the table
}

// NewEncryptedStore opens (or creates) an encrypted snapshot database.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedStore(dataDir string, key []byte) (*SQLStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, encryptedDBName)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, hex.EncodeToString(key))
	return openSQLStore("sqlite3", dsn, dbPath)
}

// NewSQLiteStore opens (or creates) an unencrypted snapshot database using
// the pure-Go SQLite driver.
func NewSQLiteStore(dataDir string) (*SQLStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, plainDBName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	return openSQLStore("sqlite", dsn, dbPath)
}

func openSQLStore(driver, dsn, dbPath string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Verify the key (if any) by touching the schema
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	var stored int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&stored); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	return &SQLStore{db: db, dbPath: dbPath, stored: stored}, nil
}

// Load returns the stored snapshot with defaults applied to missing keys.
func (s *SQLStore) Load() (domain.Snapshot, error) {
	snap := domain.Snapshot{Settings: config.ResolveSettings(nil)}

	rows, err := s.db.Query(`SELECT key, value FROM kv`)
	if err != nil {
		return snap, fmt.Errorf("failed to read kv: %w", err)
	}
	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return snap, fmt.Errorf("failed to scan kv: %w", err)
		}
		values[k] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("failed to read kv: %w", err)
	}

	if v, ok := values[kvBalance]; ok {
		if balance, err := strconv.ParseFloat(v, 64); err == nil {
			snap.Balance = balance
		}
	}
	if v, ok := values[kvSettings]; ok {
		var raw config.RawSettings
		if err := json.Unmarshal([]byte(v), &raw); err == nil {
			snap.Settings = config.ResolveSettings(&raw)
		}
	}
	snap.LastAllowanceDate = values[kvLastAllowanceDate]

	history, err := s.loadHistory()
	if err != nil {
		return snap, err
	}
	snap.History = history
	return snap, nil
}

func (s *SQLStore) loadHistory() ([]domain.Session, error) {
	rows, err := s.db.Query(`SELECT id, kind, category, duration, started_at, earned FROM sessions ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	defer rows.Close()

	var history []domain.Session
	for rows.Next() {
		var (
			sess      domain.Session
			kind      string
			startedAt int64
			earned    sql.NullFloat64
		)
		if err := rows.Scan(&sess.ID, &kind, &sess.Category, &sess.DurationSeconds, &startedAt, &earned); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sess.Kind = domain.SessionKind(kind)
		sess.StartedAt = time.UnixMilli(startedAt)
		if earned.Valid {
			v := earned.Float64
			sess.EarnedSeconds = &v
		}
		history = append(history, sess)
	}
	return history, rows.Err()
}

// Save writes the snapshot in one transaction. History only grows at the
// front, so just the sessions newer than the stored ones are inserted.
func (s *SQLStore) Save(snap domain.Snapshot) (err error) {
	settingsJSON, err := json.Marshal(config.ToRaw(snap.Settings))
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().Unix()
	kv := [][2]string{
		{kvBalance, strconv.FormatFloat(snap.Balance, 'f', -1, 64)},
		{kvSettings, string(settingsJSON)},
		{kvLastAllowanceDate, snap.LastAllowanceDate},
	}
	for _, pair := range kv {
		if _, err = tx.Exec(`INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, ?)`,
			pair[0], pair[1], now); err != nil {
			return fmt.Errorf("failed to write %s: %w", pair[0], err)
		}
	}

	// History is newest first; the oldest record gets seq 0
	n := len(snap.History)
	fresh := n - s.stored
	if fresh < 0 {
		fresh = 0
	}
	for i, sess := range snap.History[:fresh] {
		var earned any
		if sess.EarnedSeconds != nil {
			earned = *sess.EarnedSeconds
		}
		if _, err = tx.Exec(`INSERT OR IGNORE INTO sessions (id, kind, category, duration, started_at, earned, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, string(sess.Kind), sess.Category, sess.DurationSeconds, sess.StartedAt.UnixMilli(), earned, n-1-i,
		); err != nil {
			return fmt.Errorf("failed to write session %s: %w", sess.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	s.stored += fresh
	return nil
}

// Path returns the database file path.
func (s *SQLStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// OpenStore opens the snapshot store selected by backend. The encrypted
// backend creates its key on first use.
func OpenStore(backend, dataDir string) (domain.SnapshotStore, error) {
	switch backend {
	case config.BackendSQLCipher:
		key, err := EnsureKey(NewStoreKeyFile(dataDir))
		if err != nil {
			return nil, fmt.Errorf("failed to load store key: %w", err)
		}
		return NewEncryptedStore(dataDir, key)
	case config.BackendSQLite:
		return NewSQLiteStore(dataDir)
	case config.BackendJSON:
		return NewFileStore(filepath.Join(dataDir, jsonStoreName))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

var _ domain.SnapshotStore = (*SQLStore)(nil)
