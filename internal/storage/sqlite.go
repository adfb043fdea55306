// Package storage persists chunks and their embeddings in SQLite. The vector
// index is rebuilt from this store on open, so it is the single durable copy.
package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/docsage/internal/apperr"
	"github.com/hyperjump/docsage/internal/models"
)

// schemaVersion is written to PRAGMA user_version. A database with a
// different non-zero version is refused rather than silently migrated.
const schemaVersion = 1

// SQLiteStorage implements Storage using SQLite. Embeddings are stored as
// little-endian float32 blobs alongside the chunk metadata.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	if version != 0 && version != schemaVersion {
		return fmt.Errorf("unsupported schema version %d (expected %d)", version, schemaVersion)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		text TEXT NOT NULL,
		page INTEGER NOT NULL,
		paragraph INTEGER NOT NULL,
		sequence_index INTEGER NOT NULL,
		embedding BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_doc_seq ON chunks(doc_id, sequence_index);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	return err
}

// UpsertChunks stores chunks and embeddings in one transaction. Colliding
// chunk ids are replaced in place.
func (s *SQLiteStorage) UpsertChunks(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return apperr.Newf(apperr.KindInvalidArgument, "chunks and embeddings length mismatch: %d vs %d", len(chunks), len(embeddings))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO chunks (id, doc_id, text, page, paragraph, sequence_index, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx,
			c.ID(), c.DocID, c.Text, c.Page, c.Paragraph, c.SequenceIndex,
			embeddingToBytes(embeddings[i]), now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetChunk returns a chunk by id.
func (s *SQLiteStorage) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	var c models.Chunk
	err := s.db.QueryRowContext(ctx,
		`SELECT doc_id, text, page, paragraph, sequence_index FROM chunks WHERE id = ?`, id,
	).Scan(&c.DocID, &c.Text, &c.Page, &c.Paragraph, &c.SequenceIndex)
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.KindNotFound, "chunk not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetChunksByDocID returns all chunks for a document ordered by sequence index.
func (s *SQLiteStorage) GetChunksByDocID(ctx context.Context, docID string) ([]models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, text, page, paragraph, sequence_index
		 FROM chunks WHERE doc_id = ? ORDER BY sequence_index`,
		docID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.DocID, &c.Text, &c.Page, &c.Paragraph, &c.SequenceIndex); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteChunksByDocID removes all chunks for a document.
func (s *SQLiteStorage) DeleteChunksByDocID(ctx context.Context, docID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ?`, docID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ForEachChunk streams every stored chunk with its embedding.
func (s *SQLiteStorage) ForEachChunk(ctx context.Context, fn func(chunk models.Chunk, embedding []float32) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, text, page, paragraph, sequence_index, embedding
		 FROM chunks ORDER BY doc_id, sequence_index`,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Chunk
		var blob []byte
		if err := rows.Scan(&c.DocID, &c.Text, &c.Page, &c.Paragraph, &c.SequenceIndex, &blob); err != nil {
			return err
		}
		if err := fn(c, bytesToEmbedding(blob)); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListDocIDs returns the distinct document ids.
func (s *SQLiteStorage) ListDocIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT doc_id FROM chunks ORDER BY doc_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountDocuments returns the number of distinct documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT doc_id) FROM chunks`).Scan(&n)
	return n, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func embeddingToBytes(v []float32) []byte {
	const size = 4
	out := make([]byte, len(v)*size)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(f))
	}
	return out
}

func bytesToEmbedding(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
