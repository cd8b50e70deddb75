package columnar

import (
	"fmt"

	"github.com/mycelicmemory/docstore/internal/docerr"
)

// RunMigrations brings an older on-disk schema up to SchemaVersion.
// Called by Open after initSchema. There is only one version today;
// this exists so a future column addition has a documented home,
// matching the teacher's migrations.go version-gated runner.
func (t *Table) RunMigrations() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var version int
	if err := t.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return docerr.New("run_migrations", docerr.KindIO, err)
	}

	if version >= SchemaVersion {
		return nil
	}

	return docerr.New("run_migrations", docerr.KindIO, fmt.Errorf("no migration path from version %d to %d", version, SchemaVersion))
}
