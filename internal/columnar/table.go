// Package columnar is the Columnar Store Adapter (C2): it opens/creates
// the on-disk table, appends/upserts/deletes/scans row batches, and
// maintains the vector index. Grounded on the teacher's
// internal/database package (Open/InitSchema/Exec/Query wrappers,
// sync.RWMutex-guarded single connection).
package columnar

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mycelicmemory/docstore/internal/docerr"
	"github.com/mycelicmemory/docstore/internal/logging"
	"github.com/mycelicmemory/docstore/internal/schema"
)

var log = logging.GetLogger("columnar")

// Table is a single open columnar table together with its vector
// index. One Table per store instance; opening the same path twice in
// one process is undefined behavior (spec.md §5).
type Table struct {
	db        *sql.DB
	path      string
	dim       int
	batchSize int
	mu        sync.RWMutex

	index VectorIndex // rebuildable on demand; nil until first ensured
}

// defaultBatchSize is used when Open is given batchSize <= 0, so
// Append always chunks even without an explicit config value.
const defaultBatchSize = 1000

// Open opens an existing table at path or creates one with the fixed
// schema. dim is the store-wide vector dimension fixed at creation.
// batchSize bounds how many rows Append writes per transaction
// (spec.md §5); values <= 0 fall back to defaultBatchSize.
func Open(path string, dim int, batchSize int) (*Table, error) {
	dbPath := filepath.Join(path, "docstore.db")
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, docerr.New("open", docerr.KindIO, fmt.Errorf("create store dir: %w", err))
	}

	// A bare path, not a mattn-style `?_foreign_keys=on&_journal_mode=WAL`
	// DSN: that query-string pragma shortcut is specific to
	// mattn/go-sqlite3 and modernc.org/sqlite either rejects or ignores
	// it. Grounded on codenerd's cmd/query-kb/main.go, which opens the
	// modernc driver with a bare path for the same reason. Pragmas are
	// applied below via plain PRAGMA statements, which both drivers
	// execute identically.
	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, docerr.New("open", docerr.KindIO, fmt.Errorf("open sqlite: %w", err))
	}
	db.SetMaxOpenConns(1) // single connection: the reader-writer discipline lives above this, not in the pool

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, docerr.New("open", docerr.KindIO, fmt.Errorf("apply foreign_keys pragma: %w", err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, docerr.New("open", docerr.KindIO, fmt.Errorf("apply journal_mode pragma: %w", err))
	}

	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	t := &Table{db: db, path: path, dim: dim, batchSize: batchSize}
	if err := t.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := t.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return t, nil
}

func (t *Table) initSchema() error {
	if _, err := t.db.Exec(CoreSchema); err != nil {
		return docerr.New("init_schema", docerr.KindIO, fmt.Errorf("apply core schema: %w", err))
	}
	var count int
	if err := t.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return docerr.New("init_schema", docerr.KindIO, err)
	}
	if count == 0 {
		if _, err := t.db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
			return docerr.New("init_schema", docerr.KindIO, err)
		}
	}
	log.Info("schema initialized", "path", t.path, "version", SchemaVersion)
	return nil
}

// Close closes the underlying connection.
func (t *Table) Close() error {
	return t.db.Close()
}

// ApplyExtensionSchema runs DDL for a supplemental table that lives
// alongside nodes in the same database file (e.g. the relationship
// package's edge table). It follows the teacher's Database.Exec
// wrapper convention of giving collaborating packages direct access to
// the connection rather than hiding it entirely.
func (t *Table) ApplyExtensionSchema(ddl string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.db.Exec(ddl); err != nil {
		return docerr.New("apply_extension_schema", docerr.KindIO, err)
	}
	return nil
}

// Exec runs a write statement against the shared connection under the
// adapter's exclusive lock, serializing with appends/upserts/deletes
// per spec.md §5.
func (t *Table) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, docerr.New("exec", docerr.KindIO, err)
	}
	return res, nil
}

// Query runs a read statement against the shared connection under the
// adapter's shared lock.
func (t *Table) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, docerr.New("query", docerr.KindIO, err)
	}
	return rows, nil
}

// QueryRow runs a single-row read statement against the shared
// connection under the adapter's shared lock.
func (t *Table) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.db.QueryRowContext(ctx, query, args...)
}

// Exists reports whether a row with the given id is present.
func (t *Table) Exists(ctx context.Context, id string) (bool, error) {
	_, ok, err := t.Get(ctx, id)
	return ok, err
}

// Dimension returns the store's fixed vector dimension.
func (t *Table) Dimension() int { return t.dim }

// Append atomically appends a batch of rows; on failure that chunk is
// rejected (spec.md §4.2 append). Batches larger than the table's
// configured batch size are split into sequential chunks, each its own
// transaction, so a single oversized call can't hold the exclusive
// lock indefinitely or build one unbounded transaction.
func (t *Table) Append(ctx context.Context, rows []schema.Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for start := 0; start < len(rows); start += t.batchSize {
		end := start + t.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := t.appendLocked(ctx, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) appendLocked(ctx context.Context, rows []schema.Row) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return docerr.New("append", docerr.KindIO, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return docerr.New("append", docerr.KindIO, err)
	}
	defer stmt.Close()

	for _, r := range rows {
		args, err := rowArgs(r)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return docerr.New("append", docerr.KindIO, fmt.Errorf("insert %s: %w", r.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return docerr.New("append", docerr.KindIO, err)
	}

	for _, r := range rows {
		if t.index == nil {
			break
		}
		if len(r.Vector) > 0 {
			if err := t.index.Upsert(r.ID, r.Vector, r.CreatedAt); err != nil {
				log.Warn("vector index upsert failed, will rebuild on next ensure", "id", r.ID, "error", err)
			}
		} else if err := t.index.Delete(r.ID); err != nil {
			// A rewrite without a vector must not leave the old entry behind.
			log.Warn("vector index delete failed", "id", r.ID, "error", err)
		}
	}
	return nil
}

const insertSQL = `
INSERT INTO nodes (id, type, content, metadata, vector, vector_model, parent_id, next_sibling, root_id, mentions, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	type=excluded.type, content=excluded.content, metadata=excluded.metadata,
	vector=excluded.vector, vector_model=excluded.vector_model, parent_id=excluded.parent_id,
	next_sibling=excluded.next_sibling, root_id=excluded.root_id, mentions=excluded.mentions,
	updated_at=excluded.updated_at
`

func rowArgs(r schema.Row) ([]any, error) {
	var vecBlob []byte
	if len(r.Vector) > 0 {
		vecBlob = encodeVector(r.Vector)
	}
	mentions, err := json.Marshal(r.Mentions)
	if err != nil {
		return nil, docerr.New("append", docerr.KindInvalidInput, fmt.Errorf("marshal mentions: %w", err))
	}
	return []any{
		r.ID, r.Type, r.Content, nullableString(r.Metadata), nullableBytes(vecBlob), nullableString(r.VectorModel),
		nullableString(r.ParentID), nullableString(r.NextSibling), nullableString(r.RootID),
		string(mentions), r.CreatedAt, r.UpdatedAt,
	}, nil
}

// Upsert writes a single row with "delete by id then append" semantics,
// observable as atomic to concurrent readers: the SQL upsert commits in
// a single statement, so an id is visible as old or new, never both or
// neither (spec.md §4.2).
func (t *Table) Upsert(ctx context.Context, r schema.Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appendLocked(ctx, []schema.Row{r})
}

// DeleteByPredicate removes all rows matching p.
func (t *Table) DeleteByPredicate(ctx context.Context, p Predicate) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids, err := t.scanIDsLocked(ctx, p)
	if err != nil {
		return 0, err
	}

	where, args := p.render()
	q := "DELETE FROM nodes"
	if where != "" {
		q += " WHERE " + where
	}
	res, err := t.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, docerr.New("delete_by_predicate", docerr.KindIO, err)
	}
	n, _ := res.RowsAffected()

	for _, id := range ids {
		if t.index != nil {
			if err := t.index.Delete(id); err != nil {
				log.Warn("vector index delete failed", "id", id, "error", err)
			}
		}
	}
	return n, nil
}

func (t *Table) scanIDsLocked(ctx context.Context, p Predicate) ([]string, error) {
	where, args := p.render()
	q := "SELECT id FROM nodes"
	if where != "" {
		q += " WHERE " + where
	}
	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, docerr.New("scan_ids", docerr.KindIO, err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, docerr.New("scan_ids", docerr.KindIO, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Scan returns matching rows up to limit. Ordering is unspecified
// unless p is id-based. limit <= 0 means unbounded.
func (t *Table) Scan(ctx context.Context, p Predicate, limit int) ([]schema.Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	where, args := p.render()
	q := "SELECT " + selectColumns + " FROM nodes"
	if where != "" {
		q += " WHERE " + where
	}
	if p.OrderBy != "" {
		q += " ORDER BY " + p.OrderBy
	}
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, docerr.New("scan", docerr.KindIO, err)
	}
	defer rows.Close()

	var out []schema.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, docerr.New("scan", docerr.KindIO, err)
	}
	return populateChildren(ctx, t, out)
}

const selectColumns = "id, type, content, metadata, vector, vector_model, parent_id, next_sibling, root_id, mentions, created_at, updated_at"

func scanRow(rows *sql.Rows) (schema.Row, error) {
	var r schema.Row
	var metadata, vectorModel, parentID, nextSibling, rootID sql.NullString
	var vectorBlob []byte
	var mentionsJSON string

	if err := rows.Scan(&r.ID, &r.Type, &r.Content, &metadata, &vectorBlob, &vectorModel,
		&parentID, &nextSibling, &rootID, &mentionsJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return schema.Row{}, docerr.New("scan_row", docerr.KindIO, err)
	}

	if metadata.Valid {
		r.Metadata = &metadata.String
	}
	if vectorModel.Valid {
		r.VectorModel = &vectorModel.String
	}
	if parentID.Valid {
		r.ParentID = &parentID.String
	}
	if nextSibling.Valid {
		r.NextSibling = &nextSibling.String
	}
	if rootID.Valid {
		r.RootID = &rootID.String
	}
	if len(vectorBlob) > 0 {
		r.Vector = decodeVector(vectorBlob)
	}
	if mentionsJSON != "" {
		_ = json.Unmarshal([]byte(mentionsJSON), &r.Mentions)
	}
	return r, nil
}

// populateChildren fills Row.ChildrenIDs from a live parent_id scan
// (spec.md §3 invariant 6: always derived, never trusted on write).
func populateChildren(ctx context.Context, t *Table, rows []schema.Row) ([]schema.Row, error) {
	for i := range rows {
		children, err := t.childIDsLocked(ctx, rows[i].ID)
		if err != nil {
			return nil, err
		}
		rows[i].ChildrenIDs = children
	}
	return rows, nil
}

func (t *Table) childIDsLocked(ctx context.Context, parentID string) ([]string, error) {
	rows, err := t.db.QueryContext(ctx, "SELECT id FROM nodes WHERE parent_id = ? ORDER BY id", parentID)
	if err != nil {
		return nil, docerr.New("child_ids", docerr.KindIO, err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, docerr.New("child_ids", docerr.KindIO, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ChildrenIDs is the exported, lock-acquiring counterpart used by
// packages outside columnar (hierarchy, ranker) to derive children
// without running a full Scan.
func (t *Table) ChildrenIDs(ctx context.Context, parentID string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.childIDsLocked(ctx, parentID)
}

// Get returns a single row by id, or (schema.Row{}, false, nil) if absent.
func (t *Table) Get(ctx context.Context, id string) (schema.Row, bool, error) {
	rows, err := t.Scan(ctx, ByID(id), 1)
	if err != nil {
		return schema.Row{}, false, err
	}
	if len(rows) == 0 {
		return schema.Row{}, false, nil
	}
	return rows[0], true, nil
}

// EnsureVectorIndex (re)builds the ANN index. It is a no-op on an empty
// table. replace forces a rebuild even if an index already exists.
func (t *Table) EnsureVectorIndex(ctx context.Context, replace bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.index != nil && !replace {
		return nil
	}

	rows, err := t.db.QueryContext(ctx, "SELECT id, vector, created_at FROM nodes WHERE vector IS NOT NULL")
	if err != nil {
		return docerr.New("ensure_vector_index", docerr.KindIO, err)
	}
	defer rows.Close()

	var entries []IndexEntry
	for rows.Next() {
		var id, createdAt string
		var blob []byte
		if err := rows.Scan(&id, &blob, &createdAt); err != nil {
			return docerr.New("ensure_vector_index", docerr.KindIO, err)
		}
		entries = append(entries, IndexEntry{ID: id, Vector: decodeVector(blob), CreatedAt: createdAt})
	}
	if err := rows.Err(); err != nil {
		return docerr.New("ensure_vector_index", docerr.KindIO, err)
	}

	idx := newVectorIndex(t.db)
	if len(entries) > 0 {
		if err := idx.Rebuild(entries); err != nil {
			return docerr.New("ensure_vector_index", docerr.KindIndexUnavailable, err)
		}
	}
	t.index = idx
	return nil
}

// ANNSearch returns up to k rows most similar to query by cosine
// similarity. If the index is unavailable, it falls back to a bounded
// linear scan (maxCandidates) over all vectored rows and flags the
// result partial when the cap is exceeded.
func (t *Table) ANNSearch(ctx context.Context, query []float32, k int, maxCandidates int) (ANNResult, error) {
	t.mu.RLock()
	idx := t.index
	t.mu.RUnlock()

	if idx == nil {
		if err := t.EnsureVectorIndex(ctx, false); err != nil {
			return t.linearScanFallback(ctx, query, k, maxCandidates)
		}
		t.mu.RLock()
		idx = t.index
		t.mu.RUnlock()
	}

	hits, err := idx.Search(query, k)
	if err != nil {
		return t.linearScanFallback(ctx, query, k, maxCandidates)
	}
	return ANNResult{Hits: hits, Partial: false}, nil
}

func (t *Table) linearScanFallback(ctx context.Context, query []float32, k int, maxCandidates int) (ANNResult, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows, err := t.db.QueryContext(ctx, fmt.Sprintf("SELECT id, vector, created_at FROM nodes WHERE vector IS NOT NULL LIMIT %d", maxCandidates+1))
	if err != nil {
		return ANNResult{}, docerr.New("ann_search", docerr.KindIndexUnavailable, err)
	}
	defer rows.Close()

	var entries []IndexEntry
	for rows.Next() {
		var id, createdAt string
		var blob []byte
		if err := rows.Scan(&id, &blob, &createdAt); err != nil {
			return ANNResult{}, docerr.New("ann_search", docerr.KindIO, err)
		}
		entries = append(entries, IndexEntry{ID: id, Vector: decodeVector(blob), CreatedAt: createdAt})
	}

	partial := len(entries) > maxCandidates
	if partial {
		entries = entries[:maxCandidates]
	}

	hits := cosineTopK(entries, query, k)
	return ANNResult{Hits: hits, Partial: partial}, nil
}

// encodeVector/decodeVector store float32 vectors little-endian,
// grounded on theRebelliousNerd-codenerd's encodeFloat32SliceToBlob.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	n := len(b) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// Predicate is a small WHERE-clause builder in the teacher's dynamic
// filter-construction idiom (internal/database/operations.go built SET
// and WHERE clauses the same way, by appending clauses and args).
type Predicate struct {
	clauses []string
	args    []any
	OrderBy string
}

func (p Predicate) render() (string, []any) {
	if len(p.clauses) == 0 {
		return "", nil
	}
	return strings.Join(p.clauses, " AND "), p.args
}

// And returns a new Predicate with an additional clause appended.
func (p Predicate) And(clause string, args ...any) Predicate {
	np := Predicate{clauses: append(append([]string{}, p.clauses...), clause), args: append(append([]any{}, p.args...), args...), OrderBy: p.OrderBy}
	return np
}

// ByID matches a single row by id.
func ByID(id string) Predicate {
	return Predicate{clauses: []string{"id = ?"}, args: []any{id}, OrderBy: "id"}
}

// ByParent matches rows whose parent_id equals parentID.
func ByParent(parentID string) Predicate {
	return Predicate{clauses: []string{"parent_id = ?"}, args: []any{parentID}, OrderBy: "id"}
}

// ByRoot matches rows whose root_id equals rootID.
func ByRoot(rootID string) Predicate {
	return Predicate{clauses: []string{"root_id = ?"}, args: []any{rootID}, OrderBy: "id"}
}

// ByRootAndType matches rows sharing rootID and typ.
func ByRootAndType(rootID, typ string) Predicate {
	return Predicate{clauses: []string{"root_id = ?", "type = ?"}, args: []any{rootID, typ}, OrderBy: "id"}
}

// ContentContains matches rows whose content column contains substr
// (spec.md §4.6 scan_text: substring filtering, not full-text search).
func ContentContains(substr string) Predicate {
	return Predicate{clauses: []string{"content LIKE ? ESCAPE '\\'"}, args: []any{"%" + escapeLike(substr) + "%"}, OrderBy: "id"}
}

// MentionsID matches rows whose mentions column contains id. mentions
// is stored as a JSON array, so this is a substring match over its
// serialized form bounded by quotes to avoid partial-id collisions.
func MentionsID(id string) Predicate {
	needle := `"` + id + `"`
	return Predicate{clauses: []string{"mentions LIKE ? ESCAPE '\\'"}, args: []any{"%" + escapeLike(needle) + "%"}, OrderBy: "id"}
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

// All matches every row.
func All() Predicate { return Predicate{OrderBy: "id"} }

// cosineTopK ranks entries by cosine similarity to query, breaking ties
// by created_at descending then id ascending (spec.md §4.2).
func cosineTopK(entries []IndexEntry, query []float32, k int) []ScoredID {
	scored := make([]ScoredID, 0, len(entries))
	for _, e := range entries {
		scored = append(scored, ScoredID{ID: e.ID, Score: cosine(e.Vector, query), CreatedAt: e.CreatedAt})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].CreatedAt != scored[j].CreatedAt {
			return scored[i].CreatedAt > scored[j].CreatedAt
		}
		return scored[i].ID < scored[j].ID
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
