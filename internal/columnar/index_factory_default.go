//go:build !(sqlite_vec && cgo)

package columnar

import "database/sql"

// newVectorIndex returns the pure-Go brute-force index for ordinary
// builds. Swap in -tags sqlite_vec,cgo for the sqlite-vec accelerated
// path in index_factory_accel.go.
func newVectorIndex(db *sql.DB) VectorIndex {
	return newLinearIndex()
}
