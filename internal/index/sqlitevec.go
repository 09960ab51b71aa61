//go:build cgo

package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"trackqa/internal/document"
	"trackqa/internal/embedding"
)

func init() {
	// Loads sqlite-vec into every mattn/go-sqlite3 connection.
	vec.Auto()

	kinds.Register("sqlite-vec", func(ctx context.Context, cfg Config, engine embedding.Engine) (Index, error) {
		return OpenSQLiteVec(ctx, cfg.Path, engine)
	})
}

const dropVecSchema = `
DROP TABLE IF EXISTS index_vectors;
DROP TABLE IF EXISTS index_documents;
`

const createDocumentsTable = `
CREATE TABLE index_documents (
	id INTEGER PRIMARY KEY,
	text TEXT NOT NULL,
	metadata TEXT NOT NULL
)`

// SQLiteVecIndex persists documents in a SQLite file and searches them with a
// sqlite-vec vec0 table using cosine distance. The vector table is created on
// the first Add, once the embedding length is known.
type SQLiteVecIndex struct {
	db     *sql.DB
	engine embedding.Engine
	dims   int
	nextID int64
}

// OpenSQLiteVec opens path and discards any index already stored there.
func OpenSQLiteVec(ctx context.Context, path string, engine embedding.Engine) (*SQLiteVecIndex, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	db.SetMaxOpenConns(1)

	var version string
	if err := db.QueryRowContext(ctx, "SELECT vec_version()").Scan(&version); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	if _, err := db.ExecContext(ctx, dropVecSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to drop previous index: %w", err)
	}
	if _, err := db.ExecContext(ctx, createDocumentsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index schema: %w", err)
	}

	return &SQLiteVecIndex{db: db, engine: engine, nextID: 1}, nil
}

// Add embeds docs and writes them in one transaction.
func (s *SQLiteVecIndex) Add(ctx context.Context, docs []document.Document) error {
	if len(docs) == 0 {
		return nil
	}
	vecs, err := embedDocuments(ctx, s.engine, docs, s.dims)
	if err != nil {
		return err
	}
	if s.dims == 0 {
		create := fmt.Sprintf("CREATE VIRTUAL TABLE index_vectors USING vec0(embedding float[%d] distance_metric=cosine)", len(vecs[0]))
		if _, err := s.db.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("failed to create vector table: %w", err)
		}
		s.dims = len(vecs[0])
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	id := s.nextID
	for i, d := range docs {
		md, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata of document %d: %w", i, err)
		}
		blob, err := vec.SerializeFloat32(vecs[i])
		if err != nil {
			return fmt.Errorf("serialise embedding of document %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO index_documents (id, text, metadata) VALUES (?, ?, ?)", id, d.Text, string(md)); err != nil {
			return fmt.Errorf("insert document %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO index_vectors (rowid, embedding) VALUES (?, ?)", id, blob); err != nil {
			return fmt.Errorf("insert embedding %d: %w", i, err)
		}
		id++
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.nextID = id
	return nil
}

// Search runs a k-nearest-neighbour query against the vector table.
func (s *SQLiteVecIndex) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 || s.dims == 0 {
		return nil, nil
	}
	qv, err := s.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query with %s: %w", s.engine.Name(), err)
	}
	if len(qv) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d", ErrDimensions, len(qv), s.dims)
	}
	blob, err := vec.SerializeFloat32(qv)
	if err != nil {
		return nil, fmt.Errorf("serialise query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.text, d.metadata, v.distance
		FROM (
			SELECT rowid, distance FROM index_vectors
			WHERE embedding MATCH ? AND k = ?
		) v
		JOIN index_documents d ON d.id = v.rowid
		ORDER BY v.distance, d.id`, blob, k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			text, md string
			distance float64
		)
		if err := rows.Scan(&text, &md, &distance); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		d, err := decodeDocument(text, md)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{Document: d, Score: 1 - distance})
	}
	return hits, rows.Err()
}

// Documents reads every stored document in insertion order.
func (s *SQLiteVecIndex) Documents(ctx context.Context) ([]document.Document, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT text, metadata FROM index_documents ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		var text, md string
		if err := rows.Scan(&text, &md); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d, err := decodeDocument(text, md)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLiteVecIndex) Close() error {
	return s.db.Close()
}

// decodeDocument restores metadata written by Add. JSON numbers come back as
// float64; whole ones are turned back into int so chunk indexes compare equal.
func decodeDocument(text, md string) (document.Document, error) {
	meta := map[string]any{}
	if err := json.Unmarshal([]byte(md), &meta); err != nil {
		return document.Document{}, fmt.Errorf("decode metadata: %w", err)
	}
	for k, v := range meta {
		if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			meta[k] = int(f)
		}
	}
	return document.Document{Text: text, Metadata: meta}, nil
}
