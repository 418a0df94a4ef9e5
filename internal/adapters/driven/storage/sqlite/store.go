package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/attesta-labs/attesta-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/attesta-labs/attesta-cli/internal/core/domain"
	"github.com/attesta-labs/attesta-cli/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// the metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.attesta/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".attesta", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// ChecklistStore returns a ChecklistStore interface backed by this store.
func (s *Store) ChecklistStore() driven.ChecklistStore {
	return &checklistStore{store: s}
}

// CheckStore returns a CheckStore interface backed by this store.
func (s *Store) CheckStore() driven.CheckStore {
	return &checkStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, page_count, processed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			page_count = excluded.page_count,
			processed = excluded.processed,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Name, doc.PageCount, doc.Processed, doc.CreatedAt, doc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, page_count, processed, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.Name, &doc.PageCount, &doc.Processed,
		&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	return &doc, nil
}

// MarkProcessed records the page count and sets the processed flag.
func (s *documentStore) MarkProcessed(ctx context.Context, id string, pageCount int) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET page_count = ?, processed = 1, updated_at = ?
		WHERE id = ?
	`, pageCount, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("marking document processed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SaveChunks stores chunks for a document transactionally.
func (s *documentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, page_number, position, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			page_number = excluded.page_number,
			position = excluded.position,
			content = excluded.content,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		embeddingBlob := float32SliceToBytes(chunk.Embedding)

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID,
			chunk.PageNumber, chunk.Index, chunk.Content, embeddingBlob); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunks retrieves all chunks for a document, ordered by position.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, page_number, position, content, embedding
		FROM chunks WHERE document_id = ?
		ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var embeddingBlob []byte
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.PageNumber,
			&chunk.Index, &chunk.Content, &embeddingBlob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// ListDocuments returns all registered documents, most recent first.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, page_count, processed, created_at, updated_at
		FROM documents
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.PageCount, &doc.Processed,
			&doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// ==================== Checklist Store ====================

// checklistStore implements driven.ChecklistStore.
type checklistStore struct {
	store *Store
}

var _ driven.ChecklistStore = (*checklistStore)(nil)

// SaveItems stores or updates checklist items.
func (s *checklistStore) SaveItems(ctx context.Context, items []domain.ChecklistItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO checklist_items
			(id, sheet_name, check_id, check_text, category, legal_basis, applicable_types, item_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sheet_name = excluded.sheet_name,
			check_id = excluded.check_id,
			check_text = excluded.check_text,
			category = excluded.category,
			legal_basis = excluded.legal_basis,
			applicable_types = excluded.applicable_types,
			item_order = excluded.item_order
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		typesJSON, err := json.Marshal(item.ApplicableTypes)
		if err != nil {
			return fmt.Errorf("marshalling applicable types: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, item.ID, item.SheetName, item.CheckID,
			item.CheckText, item.Category, item.LegalBasis, string(typesJSON), item.Order); err != nil {
			return fmt.Errorf("saving checklist item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListItems returns the items for a sheet, ordered by Order.
func (s *checklistStore) ListItems(ctx context.Context, sheetName string) ([]domain.ChecklistItem, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, sheet_name, check_id, check_text, category, legal_basis, applicable_types, item_order
		FROM checklist_items WHERE sheet_name = ?
		ORDER BY item_order
	`, sheetName)
	if err != nil {
		return nil, fmt.Errorf("querying checklist items: %w", err)
	}
	defer rows.Close()

	var items []domain.ChecklistItem //nolint:prealloc // size unknown from query
	for rows.Next() {
		var item domain.ChecklistItem
		var typesJSON string
		if err := rows.Scan(&item.ID, &item.SheetName, &item.CheckID, &item.CheckText,
			&item.Category, &item.LegalBasis, &typesJSON, &item.Order); err != nil {
			return nil, fmt.Errorf("scanning checklist item: %w", err)
		}

		if err := json.Unmarshal([]byte(typesJSON), &item.ApplicableTypes); err != nil {
			return nil, fmt.Errorf("unmarshaling applicable types: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating checklist items: %w", err)
	}

	return items, nil
}

// ListSheets returns the distinct sheet names available, sorted.
func (s *checklistStore) ListSheets(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT DISTINCT sheet_name FROM checklist_items ORDER BY sheet_name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sheets: %w", err)
	}
	defer rows.Close()

	var sheets []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning sheet name: %w", err)
		}
		sheets = append(sheets, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sheets: %w", err)
	}

	return sheets, nil
}

// ==================== Check Store ====================

// checkStore implements driven.CheckStore.
type checkStore struct {
	store *Store
}

var _ driven.CheckStore = (*checkStore)(nil)

// SaveRun stores a new check run.
func (s *checkStore) SaveRun(ctx context.Context, run *domain.CheckRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO check_runs
			(id, document_id, sheet_name, status, progress, total_items, error, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.DocumentID, run.SheetName, string(run.Status), run.Progress,
		run.TotalItems, run.Error, run.CreatedAt,
		nullTime(run.StartedAt), nullTime(run.CompletedAt))

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("saving check run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *checkStore) GetRun(ctx context.Context, id string) (*domain.CheckRun, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, document_id, sheet_name, status, progress, total_items, error, created_at, started_at, completed_at
		FROM check_runs WHERE id = ?
	`, id)

	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return run, err
}

// UpdateRun applies a partial update to a run.
func (s *checkStore) UpdateRun(ctx context.Context, id string, patch driven.RunPatch) error {
	var sets []string
	var args []any

	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.Progress != nil {
		sets = append(sets, "progress = ?")
		args = append(args, *patch.Progress)
	}
	if patch.TotalItems != nil {
		sets = append(sets, "total_items = ?")
		args = append(args, *patch.TotalItems)
	}
	if patch.Error != nil {
		sets = append(sets, "error = ?")
		args = append(args, *patch.Error)
	}
	if patch.StartedAt != nil {
		sets = append(sets, "started_at = ?")
		args = append(args, *patch.StartedAt)
	}
	if patch.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, *patch.CompletedAt)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := "UPDATE check_runs SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	res, err := s.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating check run: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRuns returns runs for a document, most recent first.
func (s *checkStore) ListRuns(ctx context.Context, documentID string) ([]domain.CheckRun, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, sheet_name, status, progress, total_items, error, created_at, started_at, completed_at
		FROM check_runs WHERE document_id = ?
		ORDER BY created_at DESC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying check runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.CheckRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating check runs: %w", err)
	}

	return runs, nil
}

// UpsertResult stores or overwrites the result for the composite key
// (CheckRunID, ChecklistItemID). Replacing keeps the original row
// position, so ListResults preserves first-insertion order.
func (s *checkStore) UpsertResult(ctx context.Context, result *domain.CheckResult) error {
	evidenceJSON, err := json.Marshal(result.Evidence)
	if err != nil {
		return fmt.Errorf("marshalling evidence: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO check_results
			(check_run_id, checklist_item_id, status, reasoning, evidence, confidence, processing_time_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(check_run_id, checklist_item_id) DO UPDATE SET
			status = excluded.status,
			reasoning = excluded.reasoning,
			evidence = excluded.evidence,
			confidence = excluded.confidence,
			processing_time_ms = excluded.processing_time_ms
	`, result.CheckRunID, result.ChecklistItemID, string(result.Status),
		result.Reasoning, string(evidenceJSON), result.Confidence,
		result.ProcessingTime.Milliseconds())

	if err != nil {
		return fmt.Errorf("saving check result: %w", err)
	}
	return nil
}

// ListResults returns results for a run in insertion order.
func (s *checkStore) ListResults(ctx context.Context, runID string) ([]domain.CheckResult, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT check_run_id, checklist_item_id, status, reasoning, evidence, confidence, processing_time_ms
		FROM check_results WHERE check_run_id = ?
		ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying check results: %w", err)
	}
	defer rows.Close()

	var results []domain.CheckResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var result domain.CheckResult
		var status, evidenceJSON string
		var processingMs int64
		if err := rows.Scan(&result.CheckRunID, &result.ChecklistItemID, &status,
			&result.Reasoning, &evidenceJSON, &result.Confidence, &processingMs); err != nil {
			return nil, fmt.Errorf("scanning check result: %w", err)
		}

		result.Status = domain.VerdictStatus(status)
		result.ProcessingTime = time.Duration(processingMs) * time.Millisecond
		if err := json.Unmarshal([]byte(evidenceJSON), &result.Evidence); err != nil {
			return nil, fmt.Errorf("unmarshaling evidence: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating check results: %w", err)
	}

	return results, nil
}

// CountResults returns the number of results persisted for a run.
func (s *checkStore) CountResults(ctx context.Context, runID string) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM check_results WHERE check_run_id = ?
	`, runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting check results: %w", err)
	}
	return count, nil
}

// ==================== Helper Functions ====================

// scanRun scans a check run using the given scan function.
func scanRun(scan func(...any) error) (*domain.CheckRun, error) {
	var run domain.CheckRun
	var status string
	var startedAt, completedAt sql.NullTime

	if err := scan(&run.ID, &run.DocumentID, &run.SheetName, &status, &run.Progress,
		&run.TotalItems, &run.Error, &run.CreatedAt, &startedAt, &completedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning check run: %w", err)
	}

	run.Status = domain.RunStatus(status)
	if startedAt.Valid {
		run.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		run.CompletedAt = completedAt.Time
	}

	return &run, nil
}

// nullTime maps the zero time to NULL for storage.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
