package index

import (
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/runeberg/ansuz/internal/apperr"
)

// FileRow represents a row in the files table.
type FileRow struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// UpsertFile inserts or replaces a file entry. Base, stem, and extension
// columns are derived from the path.
func (db *DB) UpsertFile(row FileRow) error {
	base := path.Base(row.Path)
	ext := strings.TrimPrefix(path.Ext(base), ".")
	stem := strings.TrimSuffix(base, path.Ext(base))

	_, err := db.conn.Exec(`
		INSERT INTO files (path, base, stem, ext, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			base       = excluded.base,
			stem       = excluded.stem,
			ext        = excluded.ext,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, row.Path, base, stem, strings.ToLower(ext), row.Checksum, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}
	return nil
}

// DeleteFile removes a file entry.
func (db *DB) DeleteFile(p string) error {
	if _, err := db.conn.Exec(`DELETE FROM files WHERE path = ?`, p); err != nil {
		return fmt.Errorf("index: delete file: %w", err)
	}
	return nil
}

// AllChecksums returns the stored checksum for every indexed path.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM files`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Resolve maps an embed target name to a vault path. Names may carry a
// subdirectory or an extension. Ranking, Obsidian-style: an exact path match
// wins, then a file in the source note's own folder, then the shortest
// path, ties broken lexicographically. Returns apperr.ErrNotFound when
// nothing matches.
func (db *DB) Resolve(name, sourcePath string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return "", fmt.Errorf("index: resolve empty name: %w", apperr.ErrNotFound)
	}

	// Exact relative path.
	var p string
	err := db.conn.QueryRow(`SELECT path FROM files WHERE path = ?`, name).Scan(&p)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("index: resolve %s: %w", name, err)
	}

	base := path.Base(name)
	var rows *sql.Rows
	if path.Ext(base) != "" {
		rows, err = db.conn.Query(`SELECT path FROM files WHERE base = ? ORDER BY LENGTH(path), path`, base)
	} else {
		rows, err = db.conn.Query(`SELECT path FROM files WHERE stem = ? ORDER BY LENGTH(path), path`, base)
	}
	if err != nil {
		return "", fmt.Errorf("index: resolve %s: %w", name, err)
	}
	defer rows.Close()

	var candidates []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return "", err
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("index: resolve %s: %w", name, apperr.ErrNotFound)
	}

	// Prefer a sibling of the source note; candidates are already ordered
	// shortest-first.
	if sourcePath != "" {
		srcDir := path.Dir(sourcePath)
		for _, c := range candidates {
			if path.Dir(c) == srcDir {
				return c, nil
			}
		}
	}
	return candidates[0], nil
}
