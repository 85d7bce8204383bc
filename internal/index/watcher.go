package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/runeberg/ansuz/internal/checksum"
	"github.com/runeberg/ansuz/internal/storage"
)

// Watch starts an fsnotify watcher on the vault root and keeps the file
// index current until ctx is cancelled.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass that removes stale
// index entries whose files no longer exist on disk. Hidden files and
// directories (including atomic-write temp files) are ignored.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcileAfterRename(db, store, logger)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name
			if strings.HasPrefix(filepath.Base(absPath), ".") {
				continue
			}

			// --- Handle new directories: add to watcher ---
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					// Index any files already in the new directory.
					indexNewDir(db, store, vaultRoot, absPath, logger)
					continue
				}
			}

			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if err := upsertFromDisk(db, store, rel); err != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: indexed", slog.String("path", rel))

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteFile(rel); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new
				// path will arrive as a separate Create event (if it
				// stays within a watched dir). We delete the old entry
				// immediately and schedule a short reconciliation pass
				// to catch any stragglers.
				if delErr := db.DeleteFile(rel); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("path", rel))
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// upsertFromDisk reads a vault file and refreshes its index row.
func upsertFromDisk(db *DB, store storage.Provider, rel string) error {
	data, err := store.Read(rel)
	if err != nil {
		return err
	}
	return db.UpsertFile(FileRow{
		Path:      filepath.ToSlash(rel),
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now(),
	})
}

// reconcileAfterRename does a lightweight sync using batch lookups:
// finds index entries without a corresponding file on disk and removes them,
// and finds on-disk files that are not indexed and indexes them.
func reconcileAfterRename(db *DB, store storage.Provider, logger *slog.Logger) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := db.DeleteFile(p); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", p))
			}
		}
	}

	for _, m := range metas {
		if checksums[m.Path] == m.Checksum {
			continue
		}
		row := FileRow{Path: m.Path, Checksum: m.Checksum, UpdatedAt: m.UpdatedAt}
		if idxErr := db.UpsertFile(row); idxErr == nil {
			logger.Debug("reconcile: indexed new", slog.String("path", m.Path))
		}
	}
}

// indexNewDir indexes any files found in a newly created directory.
func indexNewDir(db *DB, store storage.Provider, vaultRoot, dirPath string, logger *slog.Logger) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(vaultRoot, path)
		if relErr != nil {
			return nil
		}
		if idxErr := upsertFromDisk(db, store, rel); idxErr == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
		}
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return fs.SkipDir
		}
		return w.Add(path)
	})
}
