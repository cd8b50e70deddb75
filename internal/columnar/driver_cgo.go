//go:build !nocgo

package columnar

// Default build: the CGO sqlite3 driver, same as the teacher used
// throughout internal/database.
import (
	_ "github.com/mattn/go-sqlite3"
)

// driverName is the database/sql driver registered for this build.
const driverName = "sqlite3"
