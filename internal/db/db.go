// Package db stores params entries in SQLite.
package db

import (
	"compress/gzip"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DevMode reads migrations from the source tree instead of the embedded
// copy, so schema edits apply without a rebuild.
var DevMode = false

// devMigrationsDir is relative to the repository root.
const devMigrationsDir = "internal/db/migrations"

// pragmas are applied to every pooled connection.
const pragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)"

type DB struct {
	*sql.DB
}

// Param is one params row.
type Param struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt int64  `json:"updated_at"`
}

// ParamChange is one audit row. A nil Value records a removal.
type ParamChange struct {
	ID        int64   `json:"id"`
	Key       string  `json:"key"`
	Value     *string `json:"value"`
	ChangedAt int64   `json:"changed_at"`
}

func getMigrationsFS() (fs.FS, error) {
	if DevMode {
		return os.DirFS(devMigrationsDir), nil
	}
	return fs.Sub(migrationsFS, "migrations")
}

// NewDB opens the database at path and applies pending migrations.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open params database: %w", err)
	}

	db := &DB{sqlDB}
	migFS, err := getMigrationsFS()
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	if err := db.MigrateUp(migFS); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// GetParam returns the value for key. The boolean is false if the key has
// never been set or was removed.
func (db *DB) GetParam(key string) (string, bool, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM params WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get param %q: %w", key, err)
	}
	return value, true, nil
}

// PutParam inserts or replaces key and records the change.
func (db *DB) PutParam(key, value string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	_, err = tx.Exec(`INSERT INTO params (key, value, updated_at) VALUES (?, ?, ?)
	          ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	if err != nil {
		return fmt.Errorf("failed to put param %q: %w", key, err)
	}
	if _, err := tx.Exec(`INSERT INTO param_history (key, value, changed_at) VALUES (?, ?, ?)`, key, value, now); err != nil {
		return fmt.Errorf("failed to record param history: %w", err)
	}
	return tx.Commit()
}

// DeleteParam removes key. Removing a missing key is not an error.
func (db *DB) DeleteParam(key string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM params WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete param %q: %w", key, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		if _, err := tx.Exec(`INSERT INTO param_history (key, value, changed_at) VALUES (?, NULL, ?)`, key, time.Now().Unix()); err != nil {
			return fmt.Errorf("failed to record param history: %w", err)
		}
	}
	return tx.Commit()
}

// Params returns every stored entry ordered by key.
func (db *DB) Params() ([]Param, error) {
	rows, err := db.Query(`SELECT key, value, updated_at FROM params ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query params: %w", err)
	}
	defer rows.Close()

	var params []Param
	for rows.Next() {
		var p Param
		if err := rows.Scan(&p.Key, &p.Value, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan param: %w", err)
		}
		params = append(params, p)
	}
	return params, rows.Err()
}

// ParamHistory returns up to limit changes for key, newest first.
func (db *DB) ParamHistory(key string, limit int) ([]ParamChange, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`SELECT id, key, value, changed_at FROM param_history
	          WHERE key = ? ORDER BY id DESC LIMIT ?`, key, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query param history: %w", err)
	}
	defer rows.Close()

	var changes []ParamChange
	for rows.Next() {
		var c ParamChange
		var value sql.NullString
		if err := rows.Scan(&c.ID, &c.Key, &value, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan param change: %w", err)
		}
		if value.Valid {
			v := value.String
			c.Value = &v
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	// create a tailSQL instance and point it to our DB
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://params.db", db.DB, &tailsql.DBOptions{
		Label: "Params DB",
	})

	// mount the tailSQL server on the debug /tailsql path
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the params database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupPath := fmt.Sprintf("params-backup-%d.db", time.Now().Unix())
		if _, err := db.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Failed to remove backup file: %v", err)
			}
		}()

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", backupPath))
		w.Header().Set("Content-Type", "application/gzip")

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()
		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			log.Printf("Failed to write backup: %v", err)
		}
	}))
}
