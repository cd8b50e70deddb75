//go:build sqlite_vec && cgo

package columnar

import "database/sql"

// newVectorIndex returns the sqlite-vec accelerated index for builds
// tagged sqlite_vec,cgo.
func newVectorIndex(db *sql.DB) VectorIndex {
	return newSQLVecIndex(db)
}
