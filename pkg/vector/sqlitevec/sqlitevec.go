// Package sqlitevec provides a SQLite-backed vector index using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/memory"
	"github.com/mnemolabs/mnemo/pkg/vector"
)

// Index implements vector.Index using SQLite with the sqlite-vec extension.
// Records live in a plain table keyed by rowid; embeddings live in a vec0
// virtual table sharing those rowids.
type Index struct {
	db     *sql.DB
	dims   int
	logger *zap.Logger
}

// Config holds configuration for the SQLite vec index.
type Config struct {
	// Path is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	Path string

	// Dimensions is the embedding vector width. Required.
	Dimensions int
}

// NewIndex creates a SQLite vector index backed by sqlite-vec.
func NewIndex(c Config, logger *zap.Logger) (*Index, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions <= 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", c.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vector.ErrConnection, err)
	}

	// In-memory databases exist per connection; keep the pool at one so
	// every statement sees the same database.
	if c.Path == ":memory:" || strings.Contains(c.Path, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", vector.ErrConnection, err)
	}

	// vec0 virtual tables use integer rowids, so records carry the rowid the
	// embedding is stored under.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS memories (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT 'episodic',
			importance REAL NOT NULL DEFAULT 0,
			domain TEXT NOT NULL,
			context TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			consolidated INTEGER NOT NULL DEFAULT 0,
			consolidated_at TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating memories table: %w", err)
	}

	if _, err := db.Exec(
		`CREATE INDEX IF NOT EXISTS idx_memories_domain ON memories(domain, consolidated)`,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating domain index: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS memory_embeddings USING vec0(embedding float[%d])`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec index initialized",
		zap.String("path", c.Path),
		zap.Int("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Index{
		db:     db,
		dims:   c.Dimensions,
		logger: logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to the little-endian BLOB format
// sqlite-vec expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Upsert inserts entries, replacing any existing entry with the same ID.
func (i *Index) Upsert(ctx context.Context, entries ...vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", vector.ErrConnection, err)
	}
	defer tx.Rollback()

	for _, entry := range entries {
		if len(entry.Embedding) != i.dims {
			return fmt.Errorf("%w: entry %s has %d dimensions, index has %d",
				vector.ErrDimension, entry.ID, len(entry.Embedding), i.dims)
		}

		embBlob := serializeFloat32(entry.Embedding)

		contextJSON, err := json.Marshal(entry.Record.Context)
		if err != nil {
			return fmt.Errorf("serializing context for entry %s: %w", entry.ID, err)
		}

		var consolidatedAt any
		if entry.Record.ConsolidatedAt != nil {
			consolidatedAt = entry.Record.ConsolidatedAt.UTC().Format(time.RFC3339Nano)
		}

		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM memories WHERE id = ?`, entry.ID,
		).Scan(&existingRowID)

		switch err {
		case nil:
			if _, err := tx.ExecContext(ctx, `
				UPDATE memories
				SET content = ?, kind = ?, importance = ?, domain = ?, context = ?,
					created_at = ?, consolidated = ?, consolidated_at = ?
				WHERE rowid = ?`,
				entry.Record.Content,
				string(entry.Record.Kind),
				entry.Record.Importance,
				entry.Record.Domain,
				string(contextJSON),
				entry.Record.CreatedAt.UTC().Format(time.RFC3339Nano),
				boolToInt(entry.Record.Consolidated),
				consolidatedAt,
				existingRowID,
			); err != nil {
				return fmt.Errorf("updating entry %s: %w", entry.ID, err)
			}

			// vec0 does not support UPDATE; replace via DELETE + INSERT.
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM memory_embeddings WHERE rowid = ?`, existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for entry %s: %w", entry.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO memory_embeddings(rowid, embedding) VALUES (?, ?)`,
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for entry %s: %w", entry.ID, err)
			}
		case sql.ErrNoRows:
			// New entry: the mapping row is inserted first to obtain the rowid.
			result, err := tx.ExecContext(ctx, `
				INSERT INTO memories(id, content, kind, importance, domain, context, created_at, consolidated, consolidated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				entry.ID,
				entry.Record.Content,
				string(entry.Record.Kind),
				entry.Record.Importance,
				entry.Record.Domain,
				string(contextJSON),
				entry.Record.CreatedAt.UTC().Format(time.RFC3339Nano),
				boolToInt(entry.Record.Consolidated),
				consolidatedAt,
			)
			if err != nil {
				return fmt.Errorf("inserting entry %s: %w", entry.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for entry %s: %w", entry.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO memory_embeddings(rowid, embedding) VALUES (?, ?)`,
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("inserting embedding for entry %s: %w", entry.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing entry %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", vector.ErrConnection, err)
	}

	i.logger.Debug("upserted entries into sqlite-vec",
		zap.Int("count", len(entries)),
	)

	return nil
}

// Search returns up to k entries nearest to the embedding, filtered and
// ordered by descending score.
func (i *Index) Search(ctx context.Context, embedding []float32, k int, filter vector.Filter) ([]vector.Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(embedding) != i.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			vector.ErrDimension, len(embedding), i.dims)
	}

	queryBlob := serializeFloat32(embedding)

	// KNN overfetches so row filters applied after the vec0 MATCH cannot
	// starve the requested k.
	fetchK := k * 4
	if fetchK < k+16 {
		fetchK = k + 16
	}

	query := `
		SELECT
			m.id, m.content, m.kind, m.importance, m.domain, m.context,
			m.created_at, m.consolidated, m.consolidated_at,
			ve.embedding, ve.distance
		FROM memory_embeddings ve
		INNER JOIN memories m ON m.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?`
	args := []any{queryBlob, fetchK}

	if filter.Domain != "" {
		query += " AND m.domain = ?"
		args = append(args, filter.Domain)
	}
	if filter.Consolidated != nil {
		query += " AND m.consolidated = ?"
		args = append(args, boolToInt(*filter.Consolidated))
	}

	query += " ORDER BY ve.distance LIMIT ?"
	args = append(args, k)

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying vectors: %v", vector.ErrConnection, err)
	}
	defer rows.Close()

	var hits []vector.Hit
	for rows.Next() {
		var (
			rec      scanRow
			embBlob  []byte
			distance float64
		)
		if err := rows.Scan(
			&rec.id, &rec.content, &rec.kind, &rec.importance, &rec.domain,
			&rec.contextJSON, &rec.createdAt, &rec.consolidated, &rec.consolidatedAt,
			&embBlob, &distance,
		); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}

		record, err := rec.toRecord()
		if err != nil {
			return nil, err
		}

		emb, err := deserializeFloat32(embBlob)
		if err != nil {
			return nil, fmt.Errorf("deserializing embedding for entry %s: %w", rec.id, err)
		}

		hits = append(hits, vector.Hit{
			Entry: vector.Entry{ID: rec.id, Embedding: emb, Record: record},
			// Lower distance means higher similarity.
			Score: 1.0 / (1.0 + distance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}

	i.logger.Debug("queried sqlite-vec",
		zap.Int("results", len(hits)),
	)

	return hits, nil
}

// List returns every entry passing the filter.
func (i *Index) List(ctx context.Context, filter vector.Filter) ([]vector.Entry, error) {
	query := `
		SELECT m.rowid, m.id, m.content, m.kind, m.importance, m.domain,
			m.context, m.created_at, m.consolidated, m.consolidated_at
		FROM memories m`
	var (
		conds []string
		args  []any
	)
	if filter.Domain != "" {
		conds = append(conds, "m.domain = ?")
		args = append(args, filter.Domain)
	}
	if filter.Consolidated != nil {
		conds = append(conds, "m.consolidated = ?")
		args = append(args, boolToInt(*filter.Consolidated))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying entries: %v", vector.ErrConnection, err)
	}
	defer rows.Close()

	// Collect rows first so the cursor is closed before the per-row
	// embedding lookups (SQLite uses a single connection).
	type listRow struct {
		rowID int64
		rec   scanRow
	}
	var listRows []listRow

	for rows.Next() {
		var lr listRow
		if err := rows.Scan(
			&lr.rowID, &lr.rec.id, &lr.rec.content, &lr.rec.kind, &lr.rec.importance,
			&lr.rec.domain, &lr.rec.contextJSON, &lr.rec.createdAt,
			&lr.rec.consolidated, &lr.rec.consolidatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		listRows = append(listRows, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	rows.Close()

	entries := make([]vector.Entry, 0, len(listRows))
	for _, lr := range listRows {
		record, err := lr.rec.toRecord()
		if err != nil {
			return nil, err
		}

		entry := vector.Entry{ID: lr.rec.id, Record: record}

		var embBlob []byte
		err = i.db.QueryRowContext(ctx,
			`SELECT embedding FROM memory_embeddings WHERE rowid = ?`, lr.rowID,
		).Scan(&embBlob)
		if err == nil && len(embBlob) > 0 {
			entry.Embedding, _ = deserializeFloat32(embBlob)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// Get returns the entry with the given ID.
func (i *Index) Get(ctx context.Context, id string) (vector.Entry, error) {
	var (
		rowID int64
		rec   scanRow
	)
	err := i.db.QueryRowContext(ctx, `
		SELECT m.rowid, m.id, m.content, m.kind, m.importance, m.domain,
			m.context, m.created_at, m.consolidated, m.consolidated_at
		FROM memories m WHERE m.id = ?`, id,
	).Scan(
		&rowID, &rec.id, &rec.content, &rec.kind, &rec.importance, &rec.domain,
		&rec.contextJSON, &rec.createdAt, &rec.consolidated, &rec.consolidatedAt,
	)
	if err == sql.ErrNoRows {
		return vector.Entry{}, fmt.Errorf("%w: %s", vector.ErrNotFound, id)
	}
	if err != nil {
		return vector.Entry{}, fmt.Errorf("%w: querying entry %s: %v", vector.ErrConnection, id, err)
	}

	record, err := rec.toRecord()
	if err != nil {
		return vector.Entry{}, err
	}

	entry := vector.Entry{ID: rec.id, Record: record}

	var embBlob []byte
	err = i.db.QueryRowContext(ctx,
		`SELECT embedding FROM memory_embeddings WHERE rowid = ?`, rowID,
	).Scan(&embBlob)
	if err == nil && len(embBlob) > 0 {
		entry.Embedding, _ = deserializeFloat32(embBlob)
	}

	return entry, nil
}

// Delete removes the entries with the given IDs. Missing IDs are ignored.
func (i *Index) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", vector.ErrConnection, err)
	}
	defer tx.Rollback()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for n, id := range ids {
		placeholders[n] = "?"
		args[n] = id
	}
	inClause := strings.Join(placeholders, ",")

	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT rowid FROM memories WHERE id IN (%s)`, inClause), args...,
	)
	if err != nil {
		return fmt.Errorf("querying rowids for deletion: %w", err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning rowid: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rowids: %w", err)
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM memory_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM memories WHERE id IN (%s)`, inClause), args...,
	); err != nil {
		return fmt.Errorf("deleting entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", vector.ErrConnection, err)
	}

	i.logger.Debug("deleted entries from sqlite-vec",
		zap.Int("count", len(ids)),
	)

	return nil
}

// Close releases resources held by the index.
func (i *Index) Close() error {
	return i.db.Close()
}

// scanRow carries one memories row between scanning and conversion.
type scanRow struct {
	id             string
	content        string
	kind           string
	importance     float64
	domain         string
	contextJSON    string
	createdAt      string
	consolidated   int
	consolidatedAt sql.NullString
}

func (s scanRow) toRecord() (memory.Record, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, s.createdAt)
	if err != nil {
		return memory.Record{}, fmt.Errorf("parsing created_at for entry %s: %w", s.id, err)
	}

	rec := memory.Record{
		ID:           s.id,
		Content:      s.content,
		Kind:         memory.Kind(s.kind),
		Importance:   s.importance,
		Domain:       s.domain,
		CreatedAt:    createdAt,
		Consolidated: s.consolidated != 0,
	}

	if s.contextJSON != "" {
		if err := json.Unmarshal([]byte(s.contextJSON), &rec.Context); err != nil {
			return memory.Record{}, fmt.Errorf("parsing context for entry %s: %w", s.id, err)
		}
	}

	if s.consolidatedAt.Valid && s.consolidatedAt.String != "" {
		at, err := time.Parse(time.RFC3339Nano, s.consolidatedAt.String)
		if err != nil {
			return memory.Record{}, fmt.Errorf("parsing consolidated_at for entry %s: %w", s.id, err)
		}
		rec.ConsolidatedAt = &at
	}

	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ vector.Index = (*Index)(nil)
