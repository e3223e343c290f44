// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package store

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func TestMigrate_AppliesSessionRecordsTableOnSQLite(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(db, DialectSQLite))

	_, err = db.Exec(`INSERT INTO session_records (id, manifest_name, manifest_version, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		"sess-1", "demo-manifest", "v1", string(StatusPending), "2026-01-01 00:00:00")
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM session_records`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(db, DialectSQLite))
	require.NoError(t, Migrate(db, DialectSQLite))
}
