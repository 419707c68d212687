// Package session is the client-side durable store for state that must
// survive a reload - currently the upload queue hand-off record consumed
// by the downstream per-document workflow.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"docvault/internal/domain"
	"docvault/internal/domain/models"

	_ "github.com/mattn/go-sqlite3"
)

// QueueKey is the fixed name of the upload queue record
const QueueKey = "document_upload_queue"

// Store is a SQLite-backed session record store
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the session database at the given path
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure session db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("verify session db: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	schema := `CREATE TABLE IF NOT EXISTS upload_queue (
		name TEXT PRIMARY KEY,
		document_ids TEXT NOT NULL,
		current_index INTEGER NOT NULL,
		total_count INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate session db: %w", err)
	}
	return nil
}

// Save writes the whole queue record in one atomic upsert. It is called
// exactly once per completed upload batch; the record is never mutated
// incrementally during an upload.
func (s *Store) Save(ctx context.Context, q *models.UploadQueue) error {
	ids, err := json.Marshal(q.DocumentIDs)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO upload_queue (name, document_ids, current_index, total_count, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET
			document_ids = excluded.document_ids,
			current_index = excluded.current_index,
			total_count = excluded.total_count,
			updated_at = excluded.updated_at`,
		QueueKey, string(ids), q.CurrentIndex, q.TotalCount,
	)
	if err != nil {
		return fmt.Errorf("save queue: %w", err)
	}

	s.logger.Debug("upload queue persisted",
		"documents", q.TotalCount,
		"current_index", q.CurrentIndex,
	)
	return nil
}

// Load reads the queue record, or a not-found error when no batch has been
// persisted.
func (s *Store) Load(ctx context.Context) (*models.UploadQueue, error) {
	var rawIDs string
	q := &models.UploadQueue{}

	err := s.db.QueryRowContext(ctx,
		`SELECT document_ids, current_index, total_count FROM upload_queue WHERE name = ?`,
		QueueKey,
	).Scan(&rawIDs, &q.CurrentIndex, &q.TotalCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Message: "no upload queue"}
	}
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}

	if err := json.Unmarshal([]byte(rawIDs), &q.DocumentIDs); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	return q, nil
}

// Advance moves the consumption cursor forward by one and returns the
// updated record. The cursor is monotonic: it never moves backward and
// never past the total count.
func (s *Store) Advance(ctx context.Context) (*models.UploadQueue, error) {
	q, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	if q.CurrentIndex >= q.TotalCount {
		return q, nil
	}
	q.CurrentIndex++

	_, err = s.db.ExecContext(ctx,
		`UPDATE upload_queue SET current_index = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE name = ? AND current_index < ?`,
		q.CurrentIndex, QueueKey, q.CurrentIndex,
	)
	if err != nil {
		return nil, fmt.Errorf("advance queue: %w", err)
	}
	return q, nil
}

// Clear removes the queue record
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM upload_queue WHERE name = ?`, QueueKey); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	return nil
}
