//go:build !sqlite_cgo

package dal

// Default build: pure Go SQLite, no C toolchain needed.
//
//	CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// SQLiteDriverName is the database/sql driver registered for SQLite
	SQLiteDriverName = "sqlite"

	// SQLiteBuildMode describes the SQLite flavour compiled in
	SQLiteBuildMode = "purego"
)
