package sqlitemirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"spines/internal/catalog"
)

// Store is a SQLite-backed catalog.Repository.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the mirror database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure mirror directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

func (s *Store) GetAll(ctx context.Context) ([]catalog.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT metadata_json FROM books`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var entries []catalog.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	catalog.SortEntries(entries)
	return entries, nil
}

func (s *Store) Get(ctx context.Context, id string) (catalog.Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT metadata_json FROM books WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Entry{}, false, nil
	}
	if err != nil {
		return catalog.Entry{}, false, err
	}
	return entry, true, nil
}

func (s *Store) Upsert(ctx context.Context, entry catalog.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := upsertTx(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}

// Replace rebuilds the mirror so it holds exactly entries.
func (s *Store) Replace(ctx context.Context, entries []catalog.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM related_copies`); err != nil {
		return fmt.Errorf("clear related copies: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM books`); err != nil {
		return fmt.Errorf("clear books: %w", err)
	}
	for _, entry := range entries {
		if err := upsertTx(ctx, tx, entry); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// Count returns the number of mirrored books.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

func upsertTx(ctx context.Context, tx *sql.Tx, entry catalog.Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	contributors, _ := json.Marshal(nonNil(entry.Contributors))
	readers, _ := json.Marshal(nonNil(entry.ReadBy))
	tags, _ := json.Marshal(nonNil(entry.Tags))
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO books (
            id, title, author, year, isbn, publisher, media_type, contributor, read_by, tags, notes,
            folder_name, date_added, original_filename, file_type, file_size, pages, url,
            extraction_method, extraction_confidence, metadata_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            title = excluded.title, author = excluded.author, year = excluded.year,
            isbn = excluded.isbn, publisher = excluded.publisher, media_type = excluded.media_type,
            contributor = excluded.contributor, read_by = excluded.read_by, tags = excluded.tags,
            notes = excluded.notes, folder_name = excluded.folder_name, date_added = excluded.date_added,
            original_filename = excluded.original_filename, file_type = excluded.file_type,
            file_size = excluded.file_size, pages = excluded.pages, url = excluded.url,
            extraction_method = excluded.extraction_method,
            extraction_confidence = excluded.extraction_confidence,
            metadata_json = excluded.metadata_json, updated_at = excluded.updated_at`,
		entry.ID,
		nullableString(entry.Title),
		nullableString(entry.Author),
		nullableInt(entry.Year),
		nullableString(entry.ISBN),
		nullableString(entry.Publisher),
		nullableString(entry.MediaType),
		string(contributors),
		string(readers),
		string(tags),
		nullableString(entry.Notes),
		nullableString(entry.FolderName),
		nullableTime(entry.DateAdded),
		nullableString(entry.OriginalFilename),
		nullableString(entry.FileType),
		entry.FileSize,
		nullableInt(entry.Pages),
		nullableString(entry.URL),
		nullableString(entry.ExtractionMethod),
		entry.ExtractionConfidence,
		string(payload),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert book %s: %w", entry.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM related_copies WHERE book_id = ?`, entry.ID); err != nil {
		return fmt.Errorf("clear related copies: %w", err)
	}
	for _, rc := range entry.RelatedCopies {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO related_copies (book_id, related_id, similarity_type, confidence) VALUES (?, ?, ?, ?)`,
			entry.ID, rc.BookID, rc.SimilarityType, rc.Confidence,
		); err != nil {
			return fmt.Errorf("insert related copy: %w", err)
		}
	}
	return nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (catalog.Entry, error) {
	var payload string
	if err := scanner.Scan(&payload); err != nil {
		return catalog.Entry{}, err
	}
	var entry catalog.Entry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return catalog.Entry{}, fmt.Errorf("decode mirrored entry: %w", err)
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
