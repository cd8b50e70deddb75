// Package importer is the legacy importer (external collaborator,
// spec.md §6): a one-shot migration tool that reads an exported corpus
// from a prior backend and maps it into the Node model via the Store
// Facade. Grounded on original_source/src/migration/lance_import.rs's
// manifest-driven import loop (per-table files, checksum validation,
// running MigrationStats) and surrealdb_export.rs's ExportManifest
// shape, translated from SurrealDB-specific record types into the
// generic legacy-table mapping the rewritten store calls for.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mycelicmemory/docstore/internal/docerr"
	"github.com/mycelicmemory/docstore/internal/logging"
	"github.com/mycelicmemory/docstore/internal/schema"
	"github.com/mycelicmemory/docstore/pkg/docstore"
)

var log = logging.GetLogger("importer")

// Manifest is the top-level export manifest: one per export directory,
// enumerating the per-table record files.
type Manifest struct {
	Files              []ManifestFile `json:"export_files"`
	TotalRecords       int            `json:"total_records"`
	ValidationChecksum string         `json:"validation_checksum"`
}

// ManifestFile describes one legacy table's exported records.
type ManifestFile struct {
	FileName    string `json:"file_name"`
	TableName   string `json:"table_name"`
	RecordCount int    `json:"record_count"`
	Checksum    string `json:"checksum"`
}

// LegacyRecord is the generic shape of one exported row: only the
// fields below are read. Legacy tables vary in columns; any other
// field in a record is ignored and is not carried into the node.
type LegacyRecord struct {
	ID        string   `json:"id"`
	Content   any      `json:"content"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
	ParentID  string   `json:"parent_id"`
	Mentions  []string `json:"mentions"`
}

// recordFile is the on-disk envelope around a batch of LegacyRecords,
// mirroring original_source's ExportData<T>.
type recordFile struct {
	TableName   string         `json:"table_name"`
	RecordCount int            `json:"record_count"`
	Records     []LegacyRecord `json:"records"`
}

// Stats summarizes one import run, the Go counterpart of
// original_source's MigrationStats.
type Stats struct {
	TotalRecords    int
	ImportedRecords int
	FailedRecords   int
	ByTable         map[string]int
	Errors          []string
}

// tableTypeMap maps a legacy table name to the node type its records
// become, per spec.md §6: "text/date/task/generic legacy rows must
// become nodes whose type reflects the legacy table".
var tableTypeMap = map[string]string{
	"text": schema.TypeText,
	"date": schema.TypeDate,
	"task": schema.TypeTask,
	"nodes": "node", // generic legacy rows with no more specific table
}

// Import reads the manifest at dir/manifest.json, verifies each file's
// checksum, and maps every record into a node via store. It does not
// stop when a file fails (unreadable, checksum mismatch, or a record in
// it that cannot be stored): that file's whole record count is added
// to FailedRecords, its error to Errors, and the import goes on with
// the next file.
func Import(ctx context.Context, store *docstore.Store, dir string) (Stats, error) {
	stats := Stats{ByTable: map[string]int{}}

	manifest, err := readManifest(dir)
	if err != nil {
		return stats, err
	}
	stats.TotalRecords = manifest.TotalRecords

	for _, f := range manifest.Files {
		if err := importFile(ctx, store, dir, f, &stats); err != nil {
			msg := fmt.Sprintf("%s: %v", f.FileName, err)
			log.Error("import file failed", "file", f.FileName, "error", err)
			stats.Errors = append(stats.Errors, msg)
			stats.FailedRecords += f.RecordCount
		}
	}
	return stats, nil
}

func readManifest(dir string) (Manifest, error) {
	path := filepath.Join(dir, "manifest.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, docerr.New("read_manifest", docerr.KindIO, fmt.Errorf("read %s: %w", path, err))
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, docerr.New("read_manifest", docerr.KindCorrupt, fmt.Errorf("parse manifest: %w", err))
	}
	return m, nil
}

func importFile(ctx context.Context, store *docstore.Store, dir string, f ManifestFile, stats *Stats) error {
	path := filepath.Join(dir, f.FileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return docerr.New("import_file", docerr.KindIO, fmt.Errorf("read %s: %w", path, err))
	}

	if f.Checksum != "" {
		sum := sha256.Sum256(raw)
		if hex.EncodeToString(sum[:]) != f.Checksum {
			return docerr.New("import_file", docerr.KindCorrupt, fmt.Errorf("checksum mismatch for %s", f.FileName))
		}
	}

	var rf recordFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		return docerr.New("import_file", docerr.KindCorrupt, fmt.Errorf("parse %s: %w", f.FileName, err))
	}

	nodeType, ok := tableTypeMap[f.TableName]
	if !ok {
		nodeType = f.TableName
	}

	nodes := make([]schema.Node, 0, len(rf.Records))
	for _, rec := range rf.Records {
		nodes = append(nodes, schema.Node{
			ID:        rec.ID,
			Type:      nodeType,
			Content:   rec.Content,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
			ParentID:  rec.ParentID,
			Mentions:  rec.Mentions,
		})
	}

	// StoreBatch hands the whole file's records to the Store Facade at
	// once, which chunks the write by the store's configured batch
	// size (pkg/config StoreConfig.DefaultBatchSize) instead of this
	// importer opening one transaction per record.
	if _, err := store.StoreBatch(ctx, nodes); err != nil {
		return docerr.New("import_file", docerr.KindIO, fmt.Errorf("store batch for %s: %w", f.FileName, err))
	}
	stats.ImportedRecords += len(nodes)
	stats.ByTable[f.TableName] += len(nodes)
	return nil
}
