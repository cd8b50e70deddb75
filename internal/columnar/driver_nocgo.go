//go:build nocgo

package columnar

// Pure-Go build (no CGO toolchain available): modernc.org/sqlite,
// grounded on theRebelliousNerd-codenerd's pure-Go fallback path.
import (
	_ "modernc.org/sqlite"
)

// driverName is the database/sql driver registered for this build.
const driverName = "sqlite"
