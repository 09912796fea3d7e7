//go:build !cgo_sqlite

package main

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

// initDB opens the snapshot cache with the pure Go SQLite driver. That driver
// takes pragmas as _pragma parameters, so the mattn style DSN options used in
// the default config are translated.
func initDB(dataSource string) (*sql.DB, error) {
	return sql.Open("sqlite", nativeDSN(dataSource))
}

func nativeDSN(dataSource string) string {
	path, query, found := strings.Cut(dataSource, "?")
	if !found {
		return dataSource
	}
	params := strings.Split(query, "&")
	for i, p := range params {
		switch {
		case strings.HasPrefix(p, "_journal_mode="):
			params[i] = "_pragma=journal_mode(" + strings.TrimPrefix(p, "_journal_mode=") + ")"
		case strings.HasPrefix(p, "_busy_timeout="):
			params[i] = "_pragma=busy_timeout(" + strings.TrimPrefix(p, "_busy_timeout=") + ")"
		}
	}
	return path + "?" + strings.Join(params, "&")
}
