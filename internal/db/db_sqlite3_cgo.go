//go:build cgo && sqlite3_cgo

package db

import (
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const (
	driverID   = "mattn/go-sqlite3"
	driverName = "sqlite3"
)

// fileDSN opens path read-write, creating it if missing. Writes take the
// lock when the transaction begins so concurrent writers queue on busy_timeout.
func fileDSN(path string) string {
	return fmt.Sprintf("file:%s?_txlock=immediate&mode=rwc&cache=private", path)
}
