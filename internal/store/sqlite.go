package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/smart-assistant/gateway/internal/domain"
)

// schemaVersion is declared on first open via PRAGMA user_version. Bumping
// it re-runs setup so new collections can be added without dropping data.
const schemaVersion = 1

// DefaultChatHistoryLimit is the per-user retention cap applied when no
// explicit limit is configured.
const DefaultChatHistoryLimit = 50

// SQLiteStore implements Store using SQLite. Records from every collection
// live in one table partitioned by collection name, keyed by the record id.
type SQLiteStore struct {
	db           *sql.DB
	historyLimit int

	// Per-user locks serialize the save+trim read-modify-delete step so the
	// retention cap holds even with concurrent writers in this process.
	userMu    sync.Mutex
	userLocks map[int]*sync.Mutex
}

// NewSQLite creates a new SQLite-backed store. historyLimit caps the
// per-user chat history; values < 1 fall back to DefaultChatHistoryLimit.
func NewSQLite(dbPath string, historyLimit int) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if historyLimit < 1 {
		historyLimit = DefaultChatHistoryLimit
	}

	s := &SQLiteStore{
		db:           db,
		historyLimit: historyLimit,
		userLocks:    make(map[int]*sync.Mutex),
	}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	var version int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS records (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		payload TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);
	CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

func checkCollection(collection string) error {
	if !domain.ValidCollection(collection) {
		return fmt.Errorf("unknown collection %q", collection)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get retrieves a record by id, or (nil, nil) if the id is absent.
func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (*domain.Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}

	query := `SELECT payload FROM records WHERE collection = ? AND id = ?`
	row := s.db.QueryRowContext(ctx, query, collection, id)

	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan record row: %w", err)
	}

	return &domain.Record{ID: id, Payload: json.RawMessage(payload)}, nil
}

// GetAll returns every record in the collection.
func (s *SQLiteStore) GetAll(ctx context.Context, collection string) ([]domain.Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}

	query := `SELECT id, payload FROM records WHERE collection = ?`
	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close record rows", "collection", collection, "error", closeErr)
		}
	}()

	var records []domain.Record
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		records = append(records, domain.Record{ID: id, Payload: json.RawMessage(payload)})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

// Put inserts or fully replaces the record sharing rec.ID.
func (s *SQLiteStore) Put(ctx context.Context, collection string, rec domain.Record) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("record id cannot be empty")
	}

	query := `
	INSERT INTO records (collection, id, payload)
	VALUES (?, ?, ?)
	ON CONFLICT(collection, id) DO UPDATE SET
		payload = excluded.payload`

	if _, err := s.db.ExecContext(ctx, query, collection, rec.ID, string(rec.Payload)); err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// Delete removes the record if present. Missing ids are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}

	query := `DELETE FROM records WHERE collection = ? AND id = ?`
	if _, err := s.db.ExecContext(ctx, query, collection, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// Clear removes every record in the collection.
func (s *SQLiteStore) Clear(ctx context.Context, collection string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}

	query := `DELETE FROM records WHERE collection = ?`
	if _, err := s.db.ExecContext(ctx, query, collection); err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func (s *SQLiteStore) userLock(userID int) *sync.Mutex {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	mu, ok := s.userLocks[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.userLocks[userID] = mu
	}
	return mu
}

// GetChatHistory returns the user's chat messages sorted ascending by
// timestamp. The full collection is scanned and filtered in memory, which
// is acceptable only because the dataset is small and local.
func (s *SQLiteStore) GetChatHistory(ctx context.Context, userID int) ([]domain.ChatMessage, error) {
	records, err := s.GetAll(ctx, domain.CollectionChatHistory)
	if err != nil {
		return nil, err
	}

	var messages []domain.ChatMessage
	for _, rec := range records {
		var msg domain.ChatMessage
		if err := json.Unmarshal(rec.Payload, &msg); err != nil {
			slog.Warn("skipping malformed chat history record", "id", rec.ID, "error", err)
			continue
		}
		if msg.UserID != userID {
			continue
		}
		messages = append(messages, msg)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Time().Before(messages[j].Time())
	})

	return messages, nil
}

// SaveChatMessage stamps msg with the owning user and a fresh unique id,
// persists it, and trims the user's history to the retention cap.
func (s *SQLiteStore) SaveChatMessage(ctx context.Context, userID int, msg domain.ChatMessage) (domain.ChatMessage, error) {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	now := time.Now().UTC()
	msg.UserID = userID
	// Wall clock plus a random disambiguator so rapid successive saves
	// never collide.
	msg.ID = fmt.Sprintf("%d-%d-%s", userID, now.UnixMilli(), uuid.New().String())
	if msg.Timestamp == "" {
		msg.Timestamp = now.Format(time.RFC3339Nano)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("marshal chat message: %w", err)
	}

	if err := s.Put(ctx, domain.CollectionChatHistory, domain.Record{ID: msg.ID, Payload: payload}); err != nil {
		return domain.ChatMessage{}, err
	}

	if err := s.trimChatHistory(ctx, userID); err != nil {
		return domain.ChatMessage{}, err
	}

	return msg, nil
}

// trimChatHistory deletes the oldest messages beyond the retention cap,
// one at a time. Callers must hold the user's lock.
func (s *SQLiteStore) trimChatHistory(ctx context.Context, userID int) error {
	messages, err := s.GetChatHistory(ctx, userID)
	if err != nil {
		return err
	}
	if len(messages) <= s.historyLimit {
		return nil
	}

	for _, msg := range messages[:len(messages)-s.historyLimit] {
		if err := s.Delete(ctx, domain.CollectionChatHistory, msg.ID); err != nil {
			return fmt.Errorf("trim chat history: %w", err)
		}
	}
	return nil
}

// ClearChatHistory deletes every one of the user's chat messages
// individually. Other users' records are unaffected.
func (s *SQLiteStore) ClearChatHistory(ctx context.Context, userID int) error {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	messages, err := s.GetChatHistory(ctx, userID)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		if err := s.Delete(ctx, domain.CollectionChatHistory, msg.ID); err != nil {
			return fmt.Errorf("clear chat history: %w", err)
		}
	}
	return nil
}
