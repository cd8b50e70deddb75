package columnar

// SchemaVersion tracks the on-disk layout. Bump and add a migration in
// migrations.go whenever CoreSchema changes in an incompatible way.
const SchemaVersion = 1

// CoreSchema is the fixed columnar schema shared by every node type
// (spec.md §3 Row). One table for all modalities keeps ANN and
// hierarchy queries index-backed without per-type joins.
const CoreSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS nodes (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	content TEXT NOT NULL,
	metadata TEXT,
	vector BLOB,
	vector_model TEXT,
	parent_id TEXT,
	next_sibling TEXT,
	root_id TEXT,
	mentions TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type);
CREATE INDEX IF NOT EXISTS idx_nodes_parent_id ON nodes(parent_id);
CREATE INDEX IF NOT EXISTS idx_nodes_root_id ON nodes(root_id);
CREATE INDEX IF NOT EXISTS idx_nodes_root_id_type ON nodes(root_id, type);
CREATE INDEX IF NOT EXISTS idx_nodes_next_sibling ON nodes(next_sibling);
CREATE INDEX IF NOT EXISTS idx_nodes_created_at ON nodes(created_at);
`
