//go:build sqlite_cgo

package dal

// cgo build using the C SQLite amalgamation:
//
//	CGO_ENABLED=1 go build -tags sqlite_cgo ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// SQLiteDriverName is the database/sql driver registered for SQLite
	SQLiteDriverName = "sqlite3"

	// SQLiteBuildMode describes the SQLite flavour compiled in
	SQLiteBuildMode = "cgo"
)
