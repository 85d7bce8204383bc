package index

import (
	"log/slog"

	"github.com/runeberg/ansuz/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		row := FileRow{Path: m.Path, Checksum: m.Checksum, UpdatedAt: m.UpdatedAt}
		if err := db.UpsertFile(row); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteFile(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}
