// Package storage defines the vault file-system abstraction.
package storage

import "github.com/runeberg/ansuz/internal/models"

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every regular file under dir (relative to
	// vault root). Hidden files and directories are skipped.
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
}
